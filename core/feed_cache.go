package core

import "time"

// FeedCacheEntry 是每个用户唯一的一行 Feed 缓存。
//
// ProgramIDs 与 LikeRatios 一一对应、长度相同，按写入时的排序分数降序排列；
// 分数本身不落库。刷新时原地覆盖同一行，核心逻辑从不删除它。
type FeedCacheEntry struct {
	ID         int64
	UserID     int64
	ProgramIDs []int64
	LikeRatios []float32
	UpdatedAt  time.Time
}

// Expired 判断缓存是否需要刷新：不存在，或 UpdatedAt+ttl 严格早于 now。
func (e *FeedCacheEntry) Expired(now time.Time, ttl time.Duration) bool {
	if e == nil {
		return true
	}
	return e.UpdatedAt.Add(ttl).Before(now)
}
