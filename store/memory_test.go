package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/feedcache/core"
)

func TestMemoryStoreGetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_, err := s.Get(ctx, "k")
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	// 返回值是副本
	got[0] = 'x'
	again, _ := s.Get(ctx, "k")
	assert.Equal(t, []byte("v"), again)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.True(t, core.IsStoreNotFound(err))
}

func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(WithSweepInterval(0), WithMemoryClock(func() time.Time { return now }))
	defer s.Close()

	require.NoError(t, s.Set(ctx, "short", []byte("v"), 1))
	require.NoError(t, s.Set(ctx, "forever", []byte("v")))
	_, err := s.Get(ctx, "short")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = s.Get(ctx, "short")
	assert.True(t, core.IsStoreNotFound(err))
	_, err = s.Get(ctx, "forever")
	assert.NoError(t, err)

	// 读时过期不回收，Sweep 之后才真正删除
	assert.Equal(t, 2, s.Len())
	s.Sweep()
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreCloseIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
