package main

import (
	"context"
	"fmt"

	"github.com/rushteam/feedcache/config"
	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/feast"
	"github.com/rushteam/feedcache/metrics"
	"github.com/rushteam/feedcache/pkg/logger"
	"github.com/rushteam/feedcache/service"
	"github.com/rushteam/feedcache/store"
	"github.com/rushteam/feedcache/store/db"
)

// app 持有按配置装配好的全部组件。
type app struct {
	cfg     *config.AppConfig
	log     *logger.Logger
	metrics *metrics.FeedMetrics
	svc     *service.FeedCacheService
	warmer  *service.Warmer

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close resource failed", "error", err)
		}
	}
}

func buildApp(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, log: log, metrics: metrics.New(nil)}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var (
		users      core.UserRepository
		candidates core.CandidateRepository
		cache      core.FeedCacheRepository
		kv         core.Store
	)

	switch cfg.Database.Driver {
	case "memory":
		log.Warn("using in-memory repositories, data is not persisted")
		users = store.NewMemoryUserRepository()
		candidates = store.NewMemoryCandidateRepository()
	default:
		gdb, err := db.Open(cfg.Database.Driver, cfg.Database.DSN, log)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := gdb.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		if cfg.Database.AutoMigrate {
			if err := db.Migrate(gdb, log); err != nil {
				return nil, err
			}
		}
		users = db.NewUserRepository(gdb)
		candidates = db.NewProgramRepository(gdb)
		if cfg.Cache.Backend == "database" {
			cache = db.NewFeedCacheRepository(gdb)
		}
	}

	switch cfg.Cache.Backend {
	case "redis":
		rs, err := store.NewRedisStore(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rs.Close)
		kv = rs
		cache = store.NewKVFeedCacheRepository(rs, cfg.Cache.KeyPrefix)
	case "memory":
		ms := store.NewMemoryStore()
		a.closers = append(a.closers, ms.Close)
		kv = ms
		cache = store.NewKVFeedCacheRepository(ms, cfg.Cache.KeyPrefix)
	}
	if cache == nil {
		return nil, fmt.Errorf("no feed cache backend for %q", cfg.Cache.Backend)
	}

	if cfg.Feast.Enabled {
		opts := []feast.ClientOption{feast.WithTimeout(cfg.Feast.Timeout)}
		if cfg.Feast.Token != "" {
			opts = append(opts, feast.WithToken(cfg.Feast.Token))
		}
		if cfg.Feast.TLS {
			opts = append(opts, feast.WithTLS(cfg.Feast.TLSCertPath))
		}
		client, err := feast.NewGrpcClient(cfg.Feast.Host, cfg.Feast.Port, cfg.Feast.Project, opts...)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)

		f := cfg.Feast
		users = feast.NewEmbeddingOverlay(users, client, f.Project, f.EntityKey,
			feast.FeatureRefs{
				General:    f.Features.General,
				Liked:      f.Features.Liked,
				Bookmarked: f.Features.Bookmarked,
				SeeLess:    f.Features.SeeLess,
			},
			feast.BreakerSettings{
				MaxRequests:      f.Breaker.MaxRequests,
				Interval:         f.Breaker.Interval,
				Timeout:          f.Breaker.Timeout,
				FailureThreshold: f.Breaker.FailureThreshold,
			},
			log,
		)
		log.Info("feast embedding overlay enabled", "endpoint", fmt.Sprintf("%s:%d", f.Host, f.Port), "project", f.Project)
	}

	p, err := config.BuildPipeline(cfg.Pipeline, config.Deps{
		Candidates: candidates,
		Feed:       cfg.Feed,
		Logger:     log,
		KV:         kv,
	})
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	a.svc, err = service.NewFeedCacheService(users, cache, p, cfg.Feed,
		service.WithLogger(log),
		service.WithMetrics(a.metrics),
	)
	if err != nil {
		return nil, err
	}

	if lister, ok := users.(core.UserLister); ok {
		a.warmer = service.NewWarmer(a.svc, lister, cfg.Warmup.Concurrency, cfg.Warmup.Rate, cfg.Warmup.OnlyExpired)
	}
	return a, nil
}
