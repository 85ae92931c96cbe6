package core

import "context"

// Store 是 Feed 缓存 KV 后端的最小接口，store.MemoryStore 与 store.RedisStore 实现它。
//
// Feed 缓存的新鲜度只看 FeedCacheEntry.UpdatedAt，写入时不带 ttl；
// ttl 参数留给其他 key（如动态黑名单）使用，单位秒，<= 0 表示不过期。
type Store interface {
	Name() string

	// Get 在 key 不存在或已过期时返回 ErrStoreNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl ...int) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ErrStoreNotFound 表示 key 不存在。
var ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

// IsStoreNotFound 判断 err 是否为 store 模块的 NOT_FOUND。
func IsStoreNotFound(err error) bool {
	d := GetDomainError(err)
	return d != nil && d.Module == ModuleStore && d.Code == ErrorCodeNotFound
}
