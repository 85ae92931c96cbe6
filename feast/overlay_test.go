package feast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/store"
)

type fakeClient struct {
	calls int
	err   error
	resp  *GetOnlineFeaturesResponse
	last  *GetOnlineFeaturesRequest
}

func (f *fakeClient) GetOnlineFeatures(_ context.Context, req *GetOnlineFeaturesRequest) (*GetOnlineFeaturesResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeClient) Close() error { return nil }

var refs = FeatureRefs{General: "user_embeddings:general", Liked: "user_embeddings:liked"}

func baseRepo() *store.MemoryUserRepository {
	return store.NewMemoryUserRepository(core.UserEmbeddings{
		UserID:     1,
		General:    core.Vector{1, 1},
		Liked:      core.Vector{2, 2},
		Bookmarked: core.Vector{3, 3},
	})
}

func TestEmbeddingOverlay_Overrides(t *testing.T) {
	client := &fakeClient{resp: &GetOnlineFeaturesResponse{FeatureVectors: []FeatureVector{{
		Values: map[string]interface{}{
			"user_embeddings:general": []float32{9, 9},
			"user_embeddings:liked":   []float32{},
		},
	}}}}
	o := NewEmbeddingOverlay(baseRepo(), client, "feed", "", refs, DefaultBreakerSettings(), nil)

	u, err := o.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, core.Vector{9, 9}, u.General)
	// 空列表不覆盖
	assert.Equal(t, core.Vector{2, 2}, u.Liked)
	assert.Equal(t, core.Vector{3, 3}, u.Bookmarked)

	require.NotNil(t, client.last)
	assert.Equal(t, []string{"user_embeddings:general", "user_embeddings:liked"}, client.last.Features)
	assert.Equal(t, int64(1), client.last.EntityRows[0]["user_id"])
}

func TestEmbeddingOverlay_SharedRefOverridesEverySignal(t *testing.T) {
	shared := FeatureRefs{Liked: "user_embeddings:engaged", Bookmarked: "user_embeddings:engaged"}
	client := &fakeClient{resp: &GetOnlineFeaturesResponse{FeatureVectors: []FeatureVector{{
		Values: map[string]interface{}{"user_embeddings:engaged": []float32{7, 7}},
	}}}}
	o := NewEmbeddingOverlay(baseRepo(), client, "feed", "", shared, DefaultBreakerSettings(), nil)

	u, err := o.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, core.Vector{7, 7}, u.Liked)
	assert.Equal(t, core.Vector{7, 7}, u.Bookmarked)
	assert.Equal(t, core.Vector{1, 1}, u.General)
	assert.Equal(t, []string{"user_embeddings:engaged"}, client.last.Features)
}

func TestEmbeddingOverlay_UserNotFoundSkipsFeast(t *testing.T) {
	client := &fakeClient{}
	o := NewEmbeddingOverlay(baseRepo(), client, "feed", "", refs, DefaultBreakerSettings(), nil)

	_, err := o.FindByID(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, core.IsUserNotFound(err))
	assert.Zero(t, client.calls)
}

func TestEmbeddingOverlay_FallbackAndBreaker(t *testing.T) {
	client := &fakeClient{err: errors.New("connection refused")}
	bs := BreakerSettings{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, FailureThreshold: 2}
	o := NewEmbeddingOverlay(baseRepo(), client, "feed", "", refs, bs, nil)

	for i := 0; i < 5; i++ {
		u, err := o.FindByID(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, core.Vector{1, 1}, u.General)
	}
	// 连续失败 2 次后熔断打开，后续请求不再打到 Feast
	assert.Equal(t, 2, client.calls)
}

func TestEmbeddingOverlay_ListUserIDs(t *testing.T) {
	o := NewEmbeddingOverlay(baseRepo(), &fakeClient{}, "feed", "", refs, DefaultBreakerSettings(), nil)
	ids, err := o.ListUserIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}

func TestToVector(t *testing.T) {
	v, err := toVector([]float64{1.5, 2})
	require.NoError(t, err)
	assert.Equal(t, core.Vector{1.5, 2}, v)

	v, err = toVector(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = toVector("x")
	assert.Error(t, err)
}
