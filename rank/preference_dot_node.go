package rank

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/pipeline"
	"github.com/rushteam/feedcache/pkg/utils"
	"github.com/rushteam/feedcache/vector"
)

// minChunk 小于这个规模的候选池不值得拆分并发。
const minChunk = 1024

// PreferenceDotNode 用 rctx.Preference 给每个候选打分。
//
// 打分结果写回 Item：Score 为 dot(V, P)，Features["like_ratio"] 为 like ratio。
// 本节点不排序，顺序保持候选池顺序，交给 rerank.TopNNode 做稳定排序。
//
// Workers <= 1 时在调用方 goroutine 内一次遍历完成；
// Workers > 1 时把候选池切成连续分片并发打分，结果按下标写回，输出与同步打分完全一致。
type PreferenceDotNode struct {
	Weights core.Weights
	Workers int
}

func (n *PreferenceDotNode) Name() string        { return "rank.preference_dot" }
func (n *PreferenceDotNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *PreferenceDotNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if rctx == nil || rctx.Preference == nil {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput, "preference is required before scoring")
	}
	rctx.SetParam(core.ParamScoredCount, len(items))
	if len(items) == 0 {
		return items, nil
	}
	pref := rctx.Preference

	if n.Workers <= 1 || len(items) < 2*minChunk {
		if err := n.scoreRange(pref, items); err != nil {
			return nil, err
		}
		return items, nil
	}

	chunk := (len(items) + n.Workers - 1) / n.Workers
	if chunk < minChunk {
		chunk = minChunk
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(n.Workers)
	for start := 0; start < len(items); start += chunk {
		end := start + chunk
		if end > len(items) {
			end = len(items)
		}
		part := items[start:end]
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			return n.scoreRange(pref, part)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func (n *PreferenceDotNode) scoreRange(pref *core.Preference, items []*core.Item) error {
	dim := len(pref.Actor)
	for _, it := range items {
		if it == nil {
			continue
		}
		p, err := vector.Resolve(it.Embedding, dim)
		if err != nil {
			return fmt.Errorf("program %d: %w", it.ID, err)
		}
		score, ratio := ScoreCandidate(pref, p, n.Weights)
		it.Score = float64(score)
		if it.Features == nil {
			it.Features = make(map[string]float64, 1)
		}
		it.Features[core.FeatureLikeRatio] = float64(ratio)
		it.PutLabel("rank_model", utils.Label{Value: "preference_dot", Source: "rank"})
	}
	return nil
}

var _ pipeline.Node = (*PreferenceDotNode)(nil)
