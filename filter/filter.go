// Package filter 提供 Pipeline 中的过滤节点。
//
// 默认 Feed 链路不做过滤（全量候选参与排序）；过滤节点只在 pipeline 配置里显式声明时生效。
package filter

import (
	"context"

	"github.com/rushteam/feedcache/core"
)

// Filter 是过滤器的抽象接口，用于判断一个 Item 是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 item 是否应该被过滤
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

// RunScoped 由依赖外部数据的过滤器实现。FilterNode 在每次 Process 开始时调用一次 ForRun，
// 本次运行内的所有物品都交给返回的 Filter 判断，外部数据只读取一次。
// 出错时返回的 Filter 仍可为非 nil，作为本次运行的降级过滤器。
type RunScoped interface {
	ForRun(ctx context.Context, rctx *core.RecommendContext) (Filter, error)
}
