package db

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"

	"github.com/rushteam/feedcache/core"
)

// UserModel 对应 users 表。四路 embedding 均可为空。
type UserModel struct {
	ID                  int64            `gorm:"column:id;primaryKey"`
	GeneralEmbedding    *pgvector.Vector `gorm:"column:general_embedding;type:vector"`
	LikedEmbedding      *pgvector.Vector `gorm:"column:liked_embedding;type:vector"`
	BookmarkedEmbedding *pgvector.Vector `gorm:"column:bookmarked_embedding;type:vector"`
	SeeLessEmbedding    *pgvector.Vector `gorm:"column:see_less_embedding;type:vector"`
}

func (UserModel) TableName() string { return "users" }

// ProgramModel 对应 programs 表，即候选池。
type ProgramModel struct {
	ID        int64            `gorm:"column:id;primaryKey"`
	Embedding *pgvector.Vector `gorm:"column:embedding;type:vector"`
}

func (ProgramModel) TableName() string { return "programs" }

// FeedCacheModel 对应 feed_caches 表，每个用户一行。
// UpdatedAt 由业务时钟写入，关闭 gorm 的自动更新时间。
type FeedCacheModel struct {
	ID         int64                        `gorm:"column:id;primaryKey;autoIncrement"`
	UserID     int64                        `gorm:"column:user_id;uniqueIndex;not null"`
	ProgramIDs datatypes.JSONSlice[int64]   `gorm:"column:program_ids"`
	LikeRatios datatypes.JSONSlice[float32] `gorm:"column:like_ratios"`
	UpdatedAt  time.Time                    `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (FeedCacheModel) TableName() string { return "feed_caches" }

func toPG(v core.Vector) *pgvector.Vector {
	if len(v) == 0 {
		return nil
	}
	pv := pgvector.NewVector(v)
	return &pv
}

func fromPG(pv *pgvector.Vector) core.Vector {
	if pv == nil {
		return nil
	}
	return core.Vector(pv.Slice())
}

func (m *UserModel) toDomain() *core.UserEmbeddings {
	return &core.UserEmbeddings{
		UserID:     m.ID,
		General:    fromPG(m.GeneralEmbedding),
		Liked:      fromPG(m.LikedEmbedding),
		Bookmarked: fromPG(m.BookmarkedEmbedding),
		SeeLess:    fromPG(m.SeeLessEmbedding),
	}
}

func (m *FeedCacheModel) toDomain() *core.FeedCacheEntry {
	return &core.FeedCacheEntry{
		ID:         m.ID,
		UserID:     m.UserID,
		ProgramIDs: []int64(m.ProgramIDs),
		LikeRatios: []float32(m.LikeRatios),
		UpdatedAt:  m.UpdatedAt,
	}
}
