// Package db 是基于 gorm 的关系库实现：用户 embedding、候选物品与 Feed 缓存表。
//
// postgres 下 embedding 列使用 pgvector 的 vector 类型；sqlite 下同一列以文本形式存储，
// 两者都通过 pgvector.Vector 的 Valuer/Scanner 读写。
package db

import (
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/rushteam/feedcache/pkg/logger"
)

// Open 按 driver 打开数据库连接，driver 为 postgres 或 sqlite。
func Open(driver, dsn string, log *logger.Logger) (*gorm.DB, error) {
	log = logger.OrNop(log)

	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, errors.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		log.Error("failed to connect database", "driver", driver, "error", err)
		return nil, errors.Wrapf(err, "connect %s", driver)
	}
	log.Info("database connected", "driver", driver)
	return db, nil
}

// Migrate 创建或更新 users / programs / feed_caches 三张表。
// postgres 下会先启用 vector 扩展。
func Migrate(db *gorm.DB, log *logger.Logger) error {
	log = logger.OrNop(log)

	if db.Dialector.Name() == "postgres" {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error; err != nil {
			log.Error("failed to enable vector extension", "error", err)
			return errors.Wrap(err, "enable vector extension")
		}
	}

	if err := db.AutoMigrate(&UserModel{}, &ProgramModel{}, &FeedCacheModel{}); err != nil {
		log.Error("auto migration failed", "error", err)
		return errors.Wrap(err, "auto migrate")
	}
	log.Info("database migrated")
	return nil
}
