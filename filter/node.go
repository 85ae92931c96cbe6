package filter

import (
	"context"

	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/pipeline"
	"github.com/rushteam/feedcache/pkg/logger"
	"github.com/rushteam/feedcache/pkg/utils"
)

// FilterNode 组合多个 Filter，任一 Filter 命中即剔除物品。
// Filter 自身出错时保留物品并告警；剔除数量累加到 rctx 的 filtered_count。
type FilterNode struct {
	Filters []Filter
	Logger  *logger.Logger
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	log := logger.OrNop(n.Logger)
	filters := n.resolve(ctx, rctx, log)
	out := make([]*core.Item, 0, len(items))
	filtered := 0

	for _, item := range items {
		if item == nil {
			continue
		}

		reason := ""
		for _, f := range filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				// 过滤器出错时保留物品，不中断流程
				log.Warn("filter failed, keep item", "filter", f.Name(), "item_id", item.ID, "error", err)
				continue
			}
			if ok {
				reason = f.Name()
				break
			}
		}

		if reason != "" {
			filtered++
			item.PutLabel("filtered", utils.Label{Value: "true", Source: reason})
			continue
		}
		out = append(out, item)
	}

	if filtered > 0 {
		if rctx != nil {
			rctx.AddIntParam(core.ParamFilteredCount, filtered)
		}
		log.Debug("items filtered", "node", n.Name(), "filtered", filtered, "kept", len(out))
	}
	return out, nil
}

// resolve 为本次运行准备过滤器：RunScoped 过滤器在这里读取一次外部数据。
// 读取失败只告警一次，使用其返回的降级过滤器；没有降级过滤器时本次跳过它。
func (n *FilterNode) resolve(ctx context.Context, rctx *core.RecommendContext, log *logger.Logger) []Filter {
	out := make([]Filter, 0, len(n.Filters))
	for _, f := range n.Filters {
		rs, ok := f.(RunScoped)
		if !ok {
			out = append(out, f)
			continue
		}
		run, err := rs.ForRun(ctx, rctx)
		if err != nil {
			log.Warn("filter data unavailable, degrade for this run", "filter", f.Name(), "error", err)
		}
		if run != nil {
			out = append(out, run)
		}
	}
	return out
}
