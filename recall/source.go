package recall

import (
	"context"

	"github.com/rushteam/feedcache/core"
)

// Source 表示一个可复用的召回源。
// 召回源同时实现 pipeline.Node 时，可以直接放进 Pipeline。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}
