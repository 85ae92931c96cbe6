package rerank

import (
	"context"
	"sort"

	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/pipeline"
)

// TopNNode 按 Score 降序稳定排序后截取前 N 个物品。
// 分数相同的物品保持输入（候选池）顺序。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &recall.CandidatePool{...},     // 全量候选
//	        &rank.PreferenceDotNode{...},   // 打分
//	        &rerank.TopNNode{N: 500},       // 排序并截取 Top 500
//	    },
//	}
type TopNNode struct {
	// N 要保留的物品数量（Top N）
	// 如果 N <= 0，则只排序不截断
	// 如果 N > len(items)，则返回全部物品，不补齐
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, it)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if n.N > 0 && len(out) > n.N {
		out = out[:n.N]
	}
	return out, nil
}

var _ pipeline.Node = (*TopNNode)(nil)
