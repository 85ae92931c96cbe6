package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/metrics"
)

type fakeFeed struct {
	feeds     map[int64][]int64
	err       error
	refreshed []int64
}

func (f *fakeFeed) GetUserRecommendedProgramIDs(_ context.Context, userID int64) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	ids, ok := f.feeds[userID]
	if !ok {
		return nil, core.NewUserNotFound(userID)
	}
	return ids, nil
}

func (f *fakeFeed) GenerateAndCacheUserFeed(ctx context.Context, userID int64) ([]int64, error) {
	f.refreshed = append(f.refreshed, userID)
	return f.GetUserRecommendedProgramIDs(ctx, userID)
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestGetFeed(t *testing.T) {
	s := New(&fakeFeed{feeds: map[int64][]int64{1: {30, 10, 20}, 2: nil}}, 0, nil, nil)

	rec := do(t, s, http.MethodGet, "/api/v1/users/1/feed")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var resp FeedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, FeedResponse{UserID: 1, ProgramIDs: []int64{30, 10, 20}}, resp)

	// 空 Feed 输出 []，不是 null
	rec = do(t, s, http.MethodGet, "/api/v1/users/2/feed")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":2,"program_ids":[]}`, rec.Body.String())
}

func TestRefreshFeed(t *testing.T) {
	feed := &fakeFeed{feeds: map[int64][]int64{7: {1}}}
	s := New(feed, 0, nil, nil)

	rec := do(t, s, http.MethodPost, "/api/v1/users/7/feed/refresh")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{7}, feed.refreshed)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
		code   string
	}{
		{"unknown user", "/api/v1/users/9/feed", nil, http.StatusNotFound, core.ErrorCodeNotFound},
		{"bad id", "/api/v1/users/abc/feed", nil, http.StatusBadRequest, core.ErrorCodeInvalidInput},
		{"stored vector has wrong dimension", "/api/v1/users/1/feed",
			fmt.Errorf("wrap: %w", core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "dimension mismatch")),
			http.StatusInternalServerError, core.ErrorCodeInvalidInput},
		{"corrupt cache entry", "/api/v1/users/1/feed",
			core.NewDomainError(core.ModuleFeed, core.ErrorCodeInvalidInput, "length mismatch"),
			http.StatusInternalServerError, core.ErrorCodeInvalidInput},
		{"store down", "/api/v1/users/1/feed",
			core.NewDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "redis down"),
			http.StatusServiceUnavailable, core.ErrorCodeUnavailable},
		{"unexpected", "/api/v1/users/1/feed", errors.New("boom"), http.StatusInternalServerError, core.ErrorCodeInternalError},
		{"timeout", "/api/v1/users/1/feed", context.DeadlineExceeded, http.StatusGatewayTimeout, core.ErrorCodeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&fakeFeed{feeds: map[int64][]int64{1: {1}}, err: tt.err}, 0, nil, nil)
			rec := do(t, s, http.MethodGet, tt.path)
			assert.Equal(t, tt.status, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	m := metrics.New(nil)
	m.ObserveLookup(metrics.ResultHit)
	s := New(&fakeFeed{}, 0, nil, m)

	rec := do(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "feedcache_feed_lookups_total")

	rec = do(t, s, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
