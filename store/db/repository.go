package db

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rushteam/feedcache/core"
)

// UserRepository 读取 users 表，实现 core.UserRepository 与 core.UserLister。
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, userID int64) (*core.UserEmbeddings, error) {
	var m UserModel
	err := r.db.WithContext(ctx).Where("id = ?", userID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.NewUserNotFound(userID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find user %d", userID)
	}
	return m.toDomain(), nil
}

func (r *UserRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&UserModel{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, errors.Wrap(err, "list user ids")
	}
	return ids, nil
}

// Put 写入或覆盖一个用户的 embedding，供数据导入与测试使用。
func (r *UserRepository) Put(ctx context.Context, u core.UserEmbeddings) error {
	m := UserModel{
		ID:                  u.UserID,
		GeneralEmbedding:    toPG(u.General),
		LikedEmbedding:      toPG(u.Liked),
		BookmarkedEmbedding: toPG(u.Bookmarked),
		SeeLessEmbedding:    toPG(u.SeeLess),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&m).Error
	return errors.Wrapf(err, "put user %d", u.UserID)
}

// ProgramRepository 读取 programs 表，实现 core.CandidateRepository。
type ProgramRepository struct {
	db *gorm.DB
}

func NewProgramRepository(db *gorm.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

// FindAll 按 id 升序返回全部候选，顺序即候选池顺序。
func (r *ProgramRepository) FindAll(ctx context.Context) ([]core.Candidate, error) {
	var rows []ProgramModel
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load programs")
	}
	out := make([]core.Candidate, len(rows))
	for i := range rows {
		id := rows[i].ID
		out[i] = core.Candidate{ID: &id, Embedding: fromPG(rows[i].Embedding)}
	}
	return out, nil
}

// Put 写入或覆盖一个候选物品。
func (r *ProgramRepository) Put(ctx context.Context, id int64, embedding core.Vector) error {
	m := ProgramModel{ID: id, Embedding: toPG(embedding)}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&m).Error
	return errors.Wrapf(err, "put program %d", id)
}

// FeedCacheRepository 读写 feed_caches 表，实现 core.FeedCacheRepository。
type FeedCacheRepository struct {
	db *gorm.DB
}

func NewFeedCacheRepository(db *gorm.DB) *FeedCacheRepository {
	return &FeedCacheRepository{db: db}
}

func (r *FeedCacheRepository) FindByUserID(ctx context.Context, userID int64) (*core.FeedCacheEntry, error) {
	var m FeedCacheModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find feed cache for user %d", userID)
	}
	return m.toDomain(), nil
}

// Save 以 user_id 为冲突键 upsert，写入后把行 ID 回填到 e.ID。
func (r *FeedCacheRepository) Save(ctx context.Context, e *core.FeedCacheEntry) error {
	if e == nil {
		return core.NewDomainError(core.ModuleFeed, core.ErrorCodeInvalidInput, "feed cache entry is nil")
	}
	if len(e.ProgramIDs) != len(e.LikeRatios) {
		return core.NewDomainError(core.ModuleFeed, core.ErrorCodeInvalidInput,
			fmt.Sprintf("feed cache: %d program ids but %d ratios", len(e.ProgramIDs), len(e.LikeRatios)))
	}

	ids := e.ProgramIDs
	if ids == nil {
		ids = []int64{}
	}
	ratios := e.LikeRatios
	if ratios == nil {
		ratios = []float32{}
	}
	m := FeedCacheModel{
		UserID:     e.UserID,
		ProgramIDs: datatypes.JSONSlice[int64](ids),
		LikeRatios: datatypes.JSONSlice[float32](ratios),
		UpdatedAt:  e.UpdatedAt,
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"program_ids", "like_ratios", "updated_at"}),
		}).Create(&m).Error
		if err != nil {
			return errors.Wrapf(err, "upsert feed cache for user %d", e.UserID)
		}

		// 冲突更新时各驱动回填的主键不可靠，统一回读
		var ids []int64
		if err := tx.Model(&FeedCacheModel{}).Where("user_id = ?", e.UserID).Pluck("id", &ids).Error; err != nil {
			return errors.Wrapf(err, "read feed cache id for user %d", e.UserID)
		}
		if len(ids) == 0 {
			return errors.Errorf("feed cache for user %d missing after upsert", e.UserID)
		}
		e.ID = ids[0]
		return nil
	})
}

var (
	_ core.UserRepository      = (*UserRepository)(nil)
	_ core.UserLister          = (*UserRepository)(nil)
	_ core.CandidateRepository = (*ProgramRepository)(nil)
	_ core.FeedCacheRepository = (*FeedCacheRepository)(nil)
)
