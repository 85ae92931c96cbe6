package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/metrics"
	"github.com/rushteam/feedcache/pipeline"
	"github.com/rushteam/feedcache/pkg/logger"
	"github.com/rushteam/feedcache/rank"
)

// FeedCacheService 对外提供两个操作：
//
//   - GetUserRecommendedProgramIDs：缓存未过期直接返回，否则刷新
//   - GenerateAndCacheUserFeed：无条件重新计算并写回缓存
//
// 同一用户的并发刷新不加锁，最后写入者生效；两次写入的内容都是合法的 Feed。
type FeedCacheService struct {
	builder  *rank.PreferenceBuilder
	cache    core.FeedCacheRepository
	pipeline *pipeline.Pipeline
	cfg      core.FeedConfig

	now     func() time.Time
	log     *logger.Logger
	metrics *metrics.FeedMetrics
}

// Option 配置 FeedCacheService。
type Option func(*FeedCacheService)

// WithClock 替换时间源，主要用于测试过期判断。
func WithClock(now func() time.Time) Option {
	return func(s *FeedCacheService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger 设置日志。
func WithLogger(l *logger.Logger) Option {
	return func(s *FeedCacheService) {
		s.log = logger.OrNop(l)
	}
}

// WithMetrics 设置指标，nil 表示不记录。
func WithMetrics(m *metrics.FeedMetrics) Option {
	return func(s *FeedCacheService) {
		s.metrics = m
	}
}

// NewFeedCacheService 创建服务。p 必须以召回节点开头并包含打分节点（见 config.DefaultPipeline）。
func NewFeedCacheService(
	users core.UserRepository,
	cache core.FeedCacheRepository,
	p *pipeline.Pipeline,
	cfg core.FeedConfig,
	opts ...Option,
) (*FeedCacheService, error) {
	if users == nil || cache == nil || p == nil {
		return nil, fmt.Errorf("feed service: users, cache and pipeline are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &FeedCacheService{
		builder:  rank.NewPreferenceBuilder(users, cfg),
		cache:    cache,
		pipeline: p,
		cfg:      cfg,
		now:      time.Now,
		log:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config 返回服务使用的 Feed 配置。
func (s *FeedCacheService) Config() core.FeedConfig {
	return s.cfg
}

// GetUserRecommendedProgramIDs 返回用户的推荐物品 ID（按分数降序）。
//
// 缓存不存在或 UpdatedAt+TTL 早于当前时间时刷新；否则原样返回缓存中的 ID，不扫描候选池。
func (s *FeedCacheService) GetUserRecommendedProgramIDs(ctx context.Context, userID int64) ([]int64, error) {
	entry, err := s.cache.FindByUserID(ctx, userID)
	if err != nil {
		s.metrics.ObserveLookup(metrics.ResultError)
		return nil, fmt.Errorf("load feed cache for user %d: %w", userID, err)
	}

	if !entry.Expired(s.now(), s.cfg.TTL) {
		s.metrics.ObserveLookup(metrics.ResultHit)
		s.log.Debug("feed cache hit", "user_id", userID, "size", len(entry.ProgramIDs))
		return entry.ProgramIDs, nil
	}

	s.metrics.ObserveLookup(metrics.ResultMiss)
	if entry == nil {
		s.log.Debug("feed cache miss", "user_id", userID)
	} else {
		s.log.Debug("feed cache expired", "user_id", userID, "updated_at", entry.UpdatedAt)
	}
	return s.GenerateAndCacheUserFeed(ctx, userID)
}

// GenerateAndCacheUserFeed 重新计算用户 Feed 并写回缓存，返回新的物品 ID 列表。
//
// 用户不存在时返回 IsUserNotFound 为 true 的错误，且不写缓存。
// 已有缓存行时原地覆盖（保留行 ID），否则新建。
func (s *FeedCacheService) GenerateAndCacheUserFeed(ctx context.Context, userID int64) (ids []int64, err error) {
	start := time.Now()
	scored := 0
	defer func() {
		s.metrics.ObserveRefresh(time.Since(start), scored, len(ids), err)
	}()

	pref, err := s.builder.Build(ctx, userID)
	if err != nil {
		return nil, err
	}

	rctx := &core.RecommendContext{UserID: userID, Preference: pref}
	items, err := s.pipeline.Run(ctx, rctx, nil)
	if err != nil {
		return nil, fmt.Errorf("rank feed for user %d: %w", userID, err)
	}
	scored = rctx.IntParam(core.ParamScoredCount)
	programIDs, likeRatios := splitFeed(items)

	entry, err := s.cache.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load feed cache for user %d: %w", userID, err)
	}
	if entry == nil {
		entry = &core.FeedCacheEntry{UserID: userID}
	}
	entry.ProgramIDs = programIDs
	entry.LikeRatios = likeRatios
	entry.UpdatedAt = s.now()

	if err := s.cache.Save(ctx, entry); err != nil {
		return nil, fmt.Errorf("save feed cache for user %d: %w", userID, err)
	}

	s.log.Info("feed refreshed",
		"user_id", userID,
		"scored", scored,
		"filtered", rctx.IntParam(core.ParamFilteredCount),
		"size", len(programIDs),
		"duration", time.Since(start),
	)
	return programIDs, nil
}

// splitFeed 把排好序的 items 拆成平行的 ID 与 like ratio 列表。
func splitFeed(items []*core.Item) ([]int64, []float32) {
	ids := make([]int64, 0, len(items))
	ratios := make([]float32, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		ids = append(ids, it.ID)
		ratios = append(ratios, it.LikeRatio())
	}
	return ids, ratios
}
