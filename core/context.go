package core

// RecommendContext 承载单次 Feed 计算的用户级上下文，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID int64

	// Preference 由 rank.PreferenceBuilder 在 Pipeline 运行前写入
	Preference *Preference

	// Params 请求级参数：节点之间的回传值，filter.expr 表达式也可以读取
	Params map[string]any
}

// 节点写回 Params 的统计值。
const (
	ParamScoredCount   = "scored_count"   // 参与打分的候选数
	ParamFilteredCount = "filtered_count" // 被过滤节点剔除的候选数，多个过滤节点累加
)

// SetParam 写入请求级参数。
func (rctx *RecommendContext) SetParam(key string, v any) {
	if rctx.Params == nil {
		rctx.Params = make(map[string]any)
	}
	rctx.Params[key] = v
}

// AddIntParam 在 int 参数上累加 delta。
func (rctx *RecommendContext) AddIntParam(key string, delta int) {
	rctx.SetParam(key, rctx.IntParam(key)+delta)
}

// IntParam 读取 int 类型参数，不存在或类型不符时返回 0。
func (rctx *RecommendContext) IntParam(key string) int {
	if rctx == nil || rctx.Params == nil {
		return 0
	}
	n, _ := rctx.Params[key].(int)
	return n
}
