package core

// Vector 是定长的单精度 embedding。
type Vector []float32

// UserEmbeddings 是一个用户的四路兴趣信号。
//
// 任意一路都可能为 nil（用户还没有对应的历史行为），
// 参与计算前统一通过 vector.Resolve 补齐为零向量。
type UserEmbeddings struct {
	UserID int64

	General    Vector // 通用兴趣
	Liked      Vector // 点赞过的物品
	Bookmarked Vector // 收藏过的物品
	SeeLess    Vector // "少看此类"，合成时取负
}

// Candidate 是候选池中的一个物品。
// ID 为 nil 的候选无法被下游引用，召回时直接跳过。
type Candidate struct {
	ID        *int64
	Embedding Vector
}

// Preference 是由 UserEmbeddings 合成的查询向量（V-actor），
// 同时带上打分阶段需要的点赞、收藏向量。所有向量长度均为 FeedConfig.Dimension。
type Preference struct {
	UserID int64

	Actor      Vector
	Liked      Vector
	Bookmarked Vector
}
