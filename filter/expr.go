package filter

import (
	"context"

	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/pkg/dsl"
)

// ExprFilter 用 CEL 表达式描述"保留条件"：表达式为 true 的物品保留，false 的被过滤。
//
//	item.score > 0.0 && !(item.id in rctx.params.blocked)
type ExprFilter struct {
	eval *dsl.Eval
}

// NewExprFilter 编译表达式；语法错误在构建阶段即返回。
func NewExprFilter(expr string) (*ExprFilter, error) {
	e, err := dsl.Compile(expr)
	if err != nil {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput, "filter.expr: "+err.Error())
	}
	return &ExprFilter{eval: e}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

// Expr 返回原始表达式。
func (f *ExprFilter) Expr() string {
	return f.eval.String()
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	keep, err := f.eval.Evaluate(item, rctx)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
