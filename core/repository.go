package core

import "context"

// UserRepository 提供用户 embedding 的读访问。
//
// 用户、会话、鉴权都属于外部系统，Feed 只需要"按 ID 取四路向量"。
// 用户不存在时必须返回 IsUserNotFound 为 true 的错误。
//
// 实现：
//   - db.UserRepository（gorm，postgres / sqlite）
//   - store.MemoryUserRepository（测试/开发）
//   - feast.EmbeddingOverlay（在上述实现之上叠加在线特征）
type UserRepository interface {
	FindByID(ctx context.Context, userID int64) (*UserEmbeddings, error)
}

// UserLister 列出全部用户 ID，仅供预热任务使用。
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// CandidateRepository 提供完整候选池（全表扫描，不做任何过滤）。
// 返回顺序即候选池顺序，排序分数相同时以此顺序为准。
type CandidateRepository interface {
	FindAll(ctx context.Context) ([]Candidate, error)
}

// FeedCacheRepository 是 Feed 缓存行的存取接口。
type FeedCacheRepository interface {
	// FindByUserID 读取用户的缓存行，不存在时返回 (nil, nil)
	FindByUserID(ctx context.Context, userID int64) (*FeedCacheEntry, error)

	// Save 按 UserID upsert；写入后 entry.ID 被回填
	Save(ctx context.Context, entry *FeedCacheEntry) error
}
