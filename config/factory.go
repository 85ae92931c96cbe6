// Package config 负责把 YAML 配置装配成可运行的 Feed Pipeline 与应用配置。
package config

import (
	"fmt"

	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/filter"
	"github.com/rushteam/feedcache/pipeline"
	"github.com/rushteam/feedcache/pkg/conv"
	"github.com/rushteam/feedcache/pkg/logger"
	"github.com/rushteam/feedcache/rank"
	"github.com/rushteam/feedcache/recall"
	"github.com/rushteam/feedcache/rerank"
)

// 内置 Node 类型。
const (
	NodeCandidatePool = "recall.candidate_pool"
	NodeExprFilter    = "filter.expr"
	NodeBlacklist     = "filter.blacklist"
	NodePreferenceDot = "rank.preference_dot"
	NodeTopN          = "rerank.topn"
)

// Deps 是构建 Node 时需要注入的运行期依赖。
type Deps struct {
	Candidates core.CandidateRepository
	Feed       core.FeedConfig
	Logger     *logger.Logger

	// KV 供 filter.blacklist 读取动态黑名单，可以为 nil
	KV core.Store
}

// NewFactory 返回注册了全部内置 Node 的工厂。
// Node 配置中缺省的参数取 deps.Feed 中的值。
func NewFactory(deps Deps) *pipeline.NodeFactory {
	factory := pipeline.NewNodeFactory()

	factory.Register(NodeCandidatePool, func(cfg map[string]interface{}) (pipeline.Node, error) {
		if deps.Candidates == nil {
			return nil, fmt.Errorf("%s: candidate repository is required", NodeCandidatePool)
		}
		return &recall.CandidatePool{
			Repo:      deps.Candidates,
			Dimension: deps.Feed.Dimension,
			Logger:    deps.Logger,
		}, nil
	})

	factory.Register(NodeExprFilter, func(cfg map[string]interface{}) (pipeline.Node, error) {
		expr, ok := conv.ToString(cfg["expr"])
		if !ok || expr == "" {
			return nil, fmt.Errorf("%s: expr is required", NodeExprFilter)
		}
		f, err := filter.NewExprFilter(expr)
		if err != nil {
			return nil, err
		}
		return &filter.FilterNode{Filters: []filter.Filter{f}, Logger: deps.Logger}, nil
	})

	factory.Register(NodeBlacklist, func(cfg map[string]interface{}) (pipeline.Node, error) {
		ids, err := conv.ToInt64Slice(cfg["ids"])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", NodeBlacklist, err)
		}
		key, _ := conv.ToString(cfg["key"])
		return &filter.FilterNode{
			Filters: []filter.Filter{filter.NewBlacklistFilter(ids, deps.KV, key)},
			Logger:  deps.Logger,
		}, nil
	})

	factory.Register(NodePreferenceDot, func(cfg map[string]interface{}) (pipeline.Node, error) {
		workers, err := conv.IntOr(cfg, "workers", deps.Feed.ScoreWorkers)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", NodePreferenceDot, err)
		}
		w := deps.Feed.Weights
		if w.Like, err = conv.Float32Or(cfg, "like_weight", w.Like); err != nil {
			return nil, fmt.Errorf("%s: %w", NodePreferenceDot, err)
		}
		if w.Bookmark, err = conv.Float32Or(cfg, "bookmark_weight", w.Bookmark); err != nil {
			return nil, fmt.Errorf("%s: %w", NodePreferenceDot, err)
		}
		return &rank.PreferenceDotNode{Weights: w, Workers: workers}, nil
	})

	factory.Register(NodeTopN, func(cfg map[string]interface{}) (pipeline.Node, error) {
		n, err := topNOf(cfg, deps.Feed.TopN)
		if err != nil {
			return nil, err
		}
		return &rerank.TopNNode{N: n}, nil
	})

	return factory
}

// DefaultPipeline 返回默认链路配置：全量候选 → 偏好内积打分 → 稳定排序截取 TopN。
// 默认链路不做过滤。
func DefaultPipeline(feed core.FeedConfig) *pipeline.Config {
	return &pipeline.Config{
		Name: "feed",
		Nodes: []pipeline.NodeConfig{
			{Type: NodeCandidatePool},
			{Type: NodePreferenceDot, Config: map[string]interface{}{"workers": feed.ScoreWorkers}},
			{Type: NodeTopN, Config: map[string]interface{}{"n": feed.TopN}},
		},
	}
}

// BuildPipeline 用 cfg 构建 Pipeline，cfg 为 nil 或没有节点时使用 DefaultPipeline。
func BuildPipeline(cfg *pipeline.Config, deps Deps) (*pipeline.Pipeline, error) {
	if cfg == nil || len(cfg.Nodes) == 0 {
		cfg = DefaultPipeline(deps.Feed)
	}
	if err := ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	p, err := cfg.BuildPipeline(NewFactory(deps))
	if err != nil {
		return nil, err
	}
	p.Logger = deps.Logger
	return p, nil
}

// topNOf 读取 rerank.topn 的 n，缺省取 def；n 必须 > 0，与 FeedConfig.TopN 的约束一致。
func topNOf(cfg map[string]interface{}, def int) (int, error) {
	n, err := conv.IntOr(cfg, "n", def)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", NodeTopN, err)
	}
	if n <= 0 {
		return 0, core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput,
			fmt.Sprintf("%s: n must be > 0, got %d", NodeTopN, n))
	}
	return n, nil
}

// ValidatePipelineConfig 校验 pipeline 配置：
//   - 类型均已注册
//   - 以 recall.candidate_pool 开头，且只出现一次
//   - rank.preference_dot 出现在 rerank.topn 之前
//   - rerank.topn 是最后一个节点，且 n > 0（若显式配置）
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil || len(cfg.Nodes) == 0 {
		return nil
	}
	factory := NewFactory(Deps{})

	firstRank, firstTopN := -1, -1
	for i, nc := range cfg.Nodes {
		if !factory.Has(nc.Type) {
			return fmt.Errorf("unsupported node type %q (supported: %v)", nc.Type, factory.Types())
		}
		switch nc.Type {
		case NodeCandidatePool:
			if i != 0 {
				return fmt.Errorf("%s must be the first and only recall node", NodeCandidatePool)
			}
		case NodePreferenceDot:
			if firstRank < 0 {
				firstRank = i
			}
		case NodeTopN:
			if firstTopN < 0 {
				firstTopN = i
			}
			if _, ok := nc.Config["n"]; ok {
				if _, err := topNOf(nc.Config, 0); err != nil {
					return err
				}
			}
		}
	}

	switch {
	case cfg.Nodes[0].Type != NodeCandidatePool:
		return fmt.Errorf("pipeline must start with %s", NodeCandidatePool)
	case firstRank < 0:
		return fmt.Errorf("pipeline must contain %s", NodePreferenceDot)
	case firstTopN < 0:
		return fmt.Errorf("pipeline must contain %s", NodeTopN)
	case firstRank > firstTopN:
		return fmt.Errorf("%s must run before %s", NodePreferenceDot, NodeTopN)
	case firstTopN != len(cfg.Nodes)-1:
		return fmt.Errorf("%s must be the last node", NodeTopN)
	}
	return nil
}
