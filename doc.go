// Package feedcache 为每个用户计算并缓存个性化的推荐 Feed。
//
// 设计要点：
// - Pipeline-first: Feed 计算由 Node 串联（候选池 → 偏好内积打分 → 稳定排序截断）
// - 每个用户一行缓存，TTL 内直接返回，过期时原地刷新
// - Labels 全链路透传，用于解释与观测
//
// 入口：
//   - service.FeedCacheService：GetUserRecommendedProgramIDs / GenerateAndCacheUserFeed
//   - config.BuildPipeline：按 YAML 或默认配置装配 Pipeline
//   - cmd/feedcache：HTTP 服务、批量预热、数据库迁移
package feedcache

import "github.com/rushteam/feedcache/pipeline"

// 轻量 facade：便于直接 import "feedcache" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindRank   = pipeline.KindRank
	KindReRank = pipeline.KindReRank
)
