package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/pkg/logger"
)

// Pipeline 把一次 Feed 计算拆成可组合的 Node 链：候选池 → 打分 → 截断。
// 每个 Node 的输出是下一个 Node 的输入，任一 Node 出错即中止。
type Pipeline struct {
	Name   string
	Nodes  []Node
	Logger *logger.Logger
}

// Run 依次执行各 Node。每个阶段开始前检查 ctx，错误带上出错 Node 的名字。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if p == nil || len(p.Nodes) == 0 {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput, "pipeline: no nodes")
	}
	log := logger.OrNop(p.Logger)

	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Name(), err)
		}
		log.Debug("pipeline stage done",
			"pipeline", p.Name,
			"node", node.Name(),
			"kind", string(node.Kind()),
			"in", len(cur),
			"out", len(next),
			"elapsed", time.Since(start))
		cur = next
	}
	return cur, nil
}
