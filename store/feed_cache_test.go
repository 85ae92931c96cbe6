package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/store/storetest"
)

func TestKVFeedCacheRepository_Memory(t *testing.T) {
	kv := NewMemoryStore()
	defer kv.Close()
	storetest.FeedCacheRepository(t, NewKVFeedCacheRepository(kv, "test"))
}

func TestKVFeedCacheRepository_KeyLayout(t *testing.T) {
	kv := NewMemoryStore()
	defer kv.Close()
	repo := NewKVFeedCacheRepository(kv, "")

	require.NoError(t, repo.Save(context.Background(), &core.FeedCacheEntry{UserID: 7}))
	_, err := kv.Get(context.Background(), "feedcache:user:7")
	assert.NoError(t, err)
}

func TestKVFeedCacheRepository_Redis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis integration tests")
	}
	ctx := context.Background()
	kv, err := NewRedisStore(ctx, addr, 15)
	require.NoError(t, err)
	defer kv.Close()

	prefix := "feedcache_test_" + time.Now().Format("150405.000000")
	repo := NewKVFeedCacheRepository(kv, prefix)
	t.Cleanup(func() { _ = kv.Delete(ctx, repo.key(42)) })

	storetest.FeedCacheRepository(t, repo)
}

func TestMemoryRepositories(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUserRepository(core.UserEmbeddings{UserID: 2}, core.UserEmbeddings{UserID: 1})

	_, err := users.FindByID(ctx, 3)
	assert.True(t, core.IsUserNotFound(err))

	u, err := users.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), u.UserID)

	ids, err := users.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	id := int64(5)
	cands := NewMemoryCandidateRepository(core.Candidate{ID: &id})
	cands.Add(core.Candidate{})
	all, err := cands.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(5), *all[0].ID)
	assert.Nil(t, all[1].ID)
}
