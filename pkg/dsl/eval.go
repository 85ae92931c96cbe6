package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/feedcache/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Eval 是编译好的 DSL 表达式，使用 CEL (Common Expression Language) 实现。
// 编译一次，可被多个 goroutine 并发 Evaluate。
//
// 表达式语法（CEL 标准语法）：
//   - 数值：item.score > 0.0 / item.like_ratio >= 0.5
//   - ID：item.id % 2 == 0 / !(item.id in rctx.params.blocked)
//   - 标签：label.recall_source == "candidate_pool"
//   - 逻辑：item.score > 0.0 && item.like_ratio > 0.2
type Eval struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式，表达式必须返回 bool。
func Compile(expr string) (*Eval, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Eval{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (e *Eval) String() string { return e.expr }

// Evaluate 对单个 item 求值。
func (e *Eval) Evaluate(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := e.prg.Eval(buildInput(item, rctx))
	if err != nil {
		// 访问不存在的 key 会报错，表达式应使用 has() 或 != null 检查存在性
		return false, fmt.Errorf("eval error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]interface{} {
	labels := make(map[string]interface{}, len(item.Labels))
	for k, v := range item.Labels {
		labels[k] = v.Value
	}

	features := make(map[string]interface{}, len(item.Features))
	for k, v := range item.Features {
		features[k] = v
	}

	in := map[string]interface{}{
		"item": map[string]interface{}{
			"id":         item.ID,
			"score":      item.Score,
			"like_ratio": float64(item.LikeRatio()),
			"features":   features,
		},
		"label": labels,
	}

	r := map[string]interface{}{}
	if rctx != nil {
		params := rctx.Params
		if params == nil {
			params = map[string]any{}
		}
		r["user_id"] = rctx.UserID
		r["params"] = params
	}
	in["rctx"] = r
	return in
}
