package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/feedcache/config"
	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/metrics"
	"github.com/rushteam/feedcache/store"
)

func i64(v int64) *int64 { return &v }

// countingCandidates 记录候选池被全量扫描的次数。
type countingCandidates struct {
	*store.MemoryCandidateRepository
	scans atomic.Int32
}

func (c *countingCandidates) FindAll(ctx context.Context) ([]core.Candidate, error) {
	c.scans.Add(1)
	return c.MemoryCandidateRepository.FindAll(ctx)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	svc        *FeedCacheService
	users      *store.MemoryUserRepository
	candidates *countingCandidates
	cache      *store.KVFeedCacheRepository
	clock      *fakeClock
	metrics    *metrics.FeedMetrics
}

func newFixture(t *testing.T, feed core.FeedConfig, candidates ...core.Candidate) *fixture {
	t.Helper()
	kv := store.NewMemoryStore()
	t.Cleanup(func() { _ = kv.Close() })

	f := &fixture{
		users:      store.NewMemoryUserRepository(),
		candidates: &countingCandidates{MemoryCandidateRepository: store.NewMemoryCandidateRepository(candidates...)},
		cache:      store.NewKVFeedCacheRepository(kv, ""),
		clock:      &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		metrics:    metrics.New(nil),
	}
	p, err := config.BuildPipeline(nil, config.Deps{Candidates: f.candidates, Feed: feed})
	require.NoError(t, err)

	f.svc, err = NewFeedCacheService(f.users, f.cache, p, feed,
		WithClock(f.clock.Now),
		WithMetrics(f.metrics),
	)
	require.NoError(t, err)
	return f
}

func feed2(topN int) core.FeedConfig {
	cfg := core.DefaultFeedConfig()
	cfg.Dimension = 2
	cfg.TopN = topN
	return cfg
}

func TestNewUserGetsPoolOrderWithZeroScores(t *testing.T) {
	f := newFixture(t, feed2(500),
		core.Candidate{ID: i64(10), Embedding: core.Vector{1, 2}},
		core.Candidate{ID: i64(20), Embedding: core.Vector{3, -1}},
		core.Candidate{ID: i64(30), Embedding: core.Vector{-5, 5}},
	)
	f.users.Put(core.UserEmbeddings{UserID: 1})

	ids, err := f.svc.GetUserRecommendedProgramIDs(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, ids)

	entry, err := f.cache.FindByUserID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, []float32{0, 0, 0}, entry.LikeRatios)
	assert.True(t, f.clock.Now().Equal(entry.UpdatedAt))
}

func TestPreferenceOrdersCandidates(t *testing.T) {
	f := newFixture(t, feed2(500),
		core.Candidate{ID: i64(2), Embedding: core.Vector{0, 1}},
		core.Candidate{ID: i64(1), Embedding: core.Vector{1, 0}},
	)
	f.users.Put(core.UserEmbeddings{
		UserID:     1,
		General:    core.Vector{1, 0},
		Liked:      core.Vector{0, 0},
		Bookmarked: core.Vector{0, 0},
		SeeLess:    core.Vector{0, 0},
	})

	ids, err := f.svc.GenerateAndCacheUserFeed(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestTopNTruncates(t *testing.T) {
	// General=[1,0] 时分数为 0.3 * x，顺序与 x 一致
	f := newFixture(t, feed2(2),
		core.Candidate{ID: i64(1), Embedding: core.Vector{5, 0}},
		core.Candidate{ID: i64(2), Embedding: core.Vector{3, 0}},
		core.Candidate{ID: i64(3), Embedding: core.Vector{1, 0}},
	)
	f.users.Put(core.UserEmbeddings{UserID: 1, General: core.Vector{1, 0}})

	ids, err := f.svc.GenerateAndCacheUserFeed(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	entry, err := f.cache.FindByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, entry.LikeRatios, 2)
}

func TestUnknownUserFailsWithoutWrite(t *testing.T) {
	f := newFixture(t, feed2(500), core.Candidate{ID: i64(1), Embedding: core.Vector{1, 0}})

	_, err := f.svc.GetUserRecommendedProgramIDs(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, core.IsUserNotFound(err))
	assert.True(t, errors.Is(err, core.ErrUserNotFound))

	entry, err := f.cache.FindByUserID(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Zero(t, f.candidates.scans.Load())
}

func TestTTLGating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, feed2(500),
		core.Candidate{ID: i64(1), Embedding: core.Vector{1, 0}},
		core.Candidate{ID: i64(2), Embedding: core.Vector{0, 1}},
	)
	f.users.Put(core.UserEmbeddings{UserID: 1, General: core.Vector{1, 0}})

	// 预置一条与当前候选池不同的缓存
	stale := &core.FeedCacheEntry{
		UserID:     1,
		ProgramIDs: []int64{99, 98},
		LikeRatios: []float32{0.5, 0.25},
		UpdatedAt:  f.clock.Now().Add(-30 * time.Minute),
	}
	require.NoError(t, f.cache.Save(ctx, stale))

	ids, err := f.svc.GetUserRecommendedProgramIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{99, 98}, ids, "fresh cache returned verbatim")
	assert.Zero(t, f.candidates.scans.Load(), "fresh cache does not scan candidates")

	// 恰好 UpdatedAt+TTL == now 仍视为新鲜
	f.clock.Advance(30 * time.Minute)
	ids, err = f.svc.GetUserRecommendedProgramIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{99, 98}, ids)
	assert.Zero(t, f.candidates.scans.Load())

	// 61 分钟前写入的缓存需要刷新
	f.clock.Advance(31 * time.Minute)
	ids, err = f.svc.GetUserRecommendedProgramIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
	assert.Equal(t, int32(1), f.candidates.scans.Load())

	entry, err := f.cache.FindByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, stale.ID, entry.ID, "refresh overwrites the same row")
	assert.True(t, f.clock.Now().Equal(entry.UpdatedAt))
}

func TestRefreshIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, feed2(500),
		core.Candidate{ID: i64(1), Embedding: core.Vector{1, 1}},
		core.Candidate{ID: i64(2), Embedding: core.Vector{0.5, 2}},
		core.Candidate{ID: i64(3), Embedding: core.Vector{2, -1}},
	)
	f.users.Put(core.UserEmbeddings{
		UserID:     7,
		General:    core.Vector{0.2, 0.4},
		Liked:      core.Vector{1, 0},
		Bookmarked: core.Vector{0, 1},
	})

	first, err := f.svc.GenerateAndCacheUserFeed(ctx, 7)
	require.NoError(t, err)
	e1, err := f.cache.FindByUserID(ctx, 7)
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	second, err := f.svc.GenerateAndCacheUserFeed(ctx, 7)
	require.NoError(t, err)
	e2, err := f.cache.FindByUserID(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, e1.LikeRatios, e2.LikeRatios)
	assert.Equal(t, e1.ID, e2.ID)
	assert.True(t, e2.UpdatedAt.After(e1.UpdatedAt))
	for _, r := range e2.LikeRatios {
		assert.GreaterOrEqual(t, r, float32(0))
		assert.LessOrEqual(t, r, float32(1))
	}
}

func TestCandidatesWithoutIDAreSkipped(t *testing.T) {
	f := newFixture(t, feed2(500),
		core.Candidate{ID: nil, Embedding: core.Vector{9, 9}},
		core.Candidate{ID: i64(5), Embedding: nil},
	)
	f.users.Put(core.UserEmbeddings{UserID: 1, General: core.Vector{1, 1}})

	ids, err := f.svc.GenerateAndCacheUserFeed(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ids)
}

func TestUserDimensionMismatchIsInvalidInput(t *testing.T) {
	f := newFixture(t, feed2(500), core.Candidate{ID: i64(1), Embedding: core.Vector{1, 0}})
	f.users.Put(core.UserEmbeddings{UserID: 1, General: core.Vector{1, 0, 0}})

	_, err := f.svc.GenerateAndCacheUserFeed(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, core.IsInvalidInput(err))

	entry, err := f.cache.FindByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestNewFeedCacheService_Validation(t *testing.T) {
	_, err := NewFeedCacheService(nil, nil, nil, core.DefaultFeedConfig())
	assert.Error(t, err)
}

func TestSplitFeed(t *testing.T) {
	a := core.NewItem(1)
	a.Features[core.FeatureLikeRatio] = 0.75
	b := core.NewItem(2)

	ids, ratios := splitFeed([]*core.Item{a, nil, b})
	assert.Equal(t, []int64{1, 2}, ids)
	assert.Equal(t, []float32{0.75, 0}, ratios)
}
