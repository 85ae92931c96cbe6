// Package store 提供 core 中存储接口的内存 / Redis 实现。
//
// 注意：此包只包含实现，接口定义在 core 包。
//
// 示例：
//
//	var kv core.Store = NewMemoryStore()
//	var cache core.FeedCacheRepository = NewKVFeedCacheRepository(kv, "feedcache")
package store
