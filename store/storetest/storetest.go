// Package storetest 提供各 core.FeedCacheRepository 实现共用的行为测试。
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/feedcache/core"
)

// FeedCacheRepository 校验：不存在返回 (nil, nil)；Save 回填 ID；
// 再次 Save 原地覆盖同一行；数组长度不一致被拒绝。调用方需保证 user 42 没有缓存。
func FeedCacheRepository(t *testing.T, repo core.FeedCacheRepository) {
	t.Helper()
	ctx := context.Background()

	got, err := repo.FindByUserID(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, got, "absent entry must be nil without error")

	updated := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := &core.FeedCacheEntry{
		UserID:     42,
		ProgramIDs: []int64{3, 1, 2},
		LikeRatios: []float32{0.5, 0, 1},
		UpdatedAt:  updated,
	}
	require.NoError(t, repo.Save(ctx, e))
	assert.NotZero(t, e.ID)
	firstID := e.ID

	got, err = repo.FindByUserID(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, firstID, got.ID)
	assert.Equal(t, []int64{3, 1, 2}, got.ProgramIDs)
	assert.Equal(t, []float32{0.5, 0, 1}, got.LikeRatios)
	assert.True(t, updated.Equal(got.UpdatedAt))

	// 原地覆盖：同一行，新数组，新时间戳
	got.ProgramIDs = []int64{9}
	got.LikeRatios = []float32{0.25}
	got.UpdatedAt = updated.Add(2 * time.Hour)
	require.NoError(t, repo.Save(ctx, got))

	again, err := repo.FindByUserID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, firstID, again.ID)
	assert.Equal(t, []int64{9}, again.ProgramIDs)
	assert.Equal(t, []float32{0.25}, again.LikeRatios)
	assert.True(t, updated.Add(2*time.Hour).Equal(again.UpdatedAt))

	err = repo.Save(ctx, &core.FeedCacheEntry{UserID: 1, ProgramIDs: []int64{1}})
	assert.True(t, core.IsInvalidInput(err), "mismatched arrays must be rejected")
}
