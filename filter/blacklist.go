package filter

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/rushteam/feedcache/core"
)

// BlacklistFilter 是黑名单过滤器，过滤掉运营下架的物品。
//
// 黑名单来自两处：内存中的 ItemIDs，以及 Store 中 Key 对应的 JSON 数组（例如 [1,2,3]）。
// key 不存在时只使用内存列表。放进 FilterNode 时，Store 每次运行只读取一次（见 ForRun）。
type BlacklistFilter struct {
	ItemIDs []int64

	Store core.Store
	Key   string

	ids map[int64]struct{}
}

// NewBlacklistFilter 创建一个黑名单过滤器，kv 可以为 nil。
func NewBlacklistFilter(itemIDs []int64, kv core.Store, key string) *BlacklistFilter {
	ids := make(map[int64]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		ids[id] = struct{}{}
	}
	return &BlacklistFilter{ItemIDs: itemIDs, Store: kv, Key: key, ids: ids}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

// ShouldFilter 单独判断一个物品，每次调用都会读取 Store。
func (f *BlacklistFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	run, err := f.ForRun(ctx, rctx)
	if err != nil {
		return false, err
	}
	return run.ShouldFilter(ctx, rctx, item)
}

// ForRun 读取一次动态黑名单，与内存列表合并成本次运行使用的 id 集合。
// Store 读取或解析失败时返回错误，同时返回只含内存列表的过滤器。
func (f *BlacklistFilter) ForRun(ctx context.Context, _ *core.RecommendContext) (Filter, error) {
	static := &idSetFilter{name: f.Name(), ids: f.ids}
	if f.Store == nil || f.Key == "" {
		return static, nil
	}

	data, err := f.Store.Get(ctx, f.Key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return static, nil
		}
		return static, err
	}
	var blocked []int64
	if err := json.Unmarshal(data, &blocked); err != nil {
		return static, err
	}
	if len(blocked) == 0 {
		return static, nil
	}

	merged := make(map[int64]struct{}, len(f.ids)+len(blocked))
	for id := range f.ids {
		merged[id] = struct{}{}
	}
	for _, id := range blocked {
		merged[id] = struct{}{}
	}
	return &idSetFilter{name: f.Name(), ids: merged}, nil
}

// idSetFilter 是某次运行内固定下来的黑名单。
type idSetFilter struct {
	name string
	ids  map[int64]struct{}
}

func (f *idSetFilter) Name() string { return f.name }

func (f *idSetFilter) ShouldFilter(_ context.Context, _ *core.RecommendContext, item *core.Item) (bool, error) {
	if item == nil {
		return true, nil
	}
	_, ok := f.ids[item.ID]
	return ok, nil
}

var (
	_ Filter    = (*BlacklistFilter)(nil)
	_ RunScoped = (*BlacklistFilter)(nil)
)
