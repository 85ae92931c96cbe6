package store

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/rushteam/feedcache/core"
)

// KVFeedCacheRepository 把每个用户的 Feed 缓存行编码为一个 KV 值。
//
// key 形如 "<prefix>:user:<userID>"。写入时不设置 KV 过期时间：
// 新鲜度只由 UpdatedAt 与 FeedConfig.TTL 决定，过期的行会被下一次刷新原地覆盖。
// KV 后端没有自增主键，ID 沿用 UserID。
type KVFeedCacheRepository struct {
	Store  core.Store
	Prefix string
}

type feedCacheRecord struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	ProgramIDs []int64   `json:"program_ids"`
	LikeRatios []float32 `json:"like_ratios"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewKVFeedCacheRepository 创建 KV 缓存仓库，prefix 为空时使用 "feedcache"。
func NewKVFeedCacheRepository(kv core.Store, prefix string) *KVFeedCacheRepository {
	if prefix == "" {
		prefix = "feedcache"
	}
	return &KVFeedCacheRepository{Store: kv, Prefix: prefix}
}

func (r *KVFeedCacheRepository) key(userID int64) string {
	return fmt.Sprintf("%s:user:%d", r.Prefix, userID)
}

func (r *KVFeedCacheRepository) FindByUserID(ctx context.Context, userID int64) (*core.FeedCacheEntry, error) {
	data, err := r.Store.Get(ctx, r.key(userID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s get feed cache: %w", r.Store.Name(), err)
	}

	var rec feedCacheRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode feed cache for user %d: %w", userID, err)
	}
	return &core.FeedCacheEntry{
		ID:         rec.ID,
		UserID:     rec.UserID,
		ProgramIDs: rec.ProgramIDs,
		LikeRatios: rec.LikeRatios,
		UpdatedAt:  rec.UpdatedAt,
	}, nil
}

func (r *KVFeedCacheRepository) Save(ctx context.Context, e *core.FeedCacheEntry) error {
	if e == nil {
		return core.NewDomainError(core.ModuleFeed, core.ErrorCodeInvalidInput, "feed cache entry is nil")
	}
	if len(e.ProgramIDs) != len(e.LikeRatios) {
		return core.NewDomainError(core.ModuleFeed, core.ErrorCodeInvalidInput,
			fmt.Sprintf("feed cache: %d program ids but %d ratios", len(e.ProgramIDs), len(e.LikeRatios)))
	}
	if e.ID == 0 {
		e.ID = e.UserID
	}

	data, err := json.Marshal(feedCacheRecord{
		ID:         e.ID,
		UserID:     e.UserID,
		ProgramIDs: e.ProgramIDs,
		LikeRatios: e.LikeRatios,
		UpdatedAt:  e.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode feed cache for user %d: %w", e.UserID, err)
	}
	if err := r.Store.Set(ctx, r.key(e.UserID), data); err != nil {
		return fmt.Errorf("%s set feed cache: %w", r.Store.Name(), err)
	}
	return nil
}

var _ core.FeedCacheRepository = (*KVFeedCacheRepository)(nil)
