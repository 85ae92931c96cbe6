// Package conv 提供 pipeline 节点配置（map[string]interface{}）的类型转换工具。
//
// YAML 解出的整数是 int，JSON 解出的是 float64，这里统一兼容。
package conv

import "fmt"

// ToFloat64 将 any 转为 float64。
// 支持 float64、float32、int、int64、int32。
func ToFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	default:
		return 0, false
	}
}

// ToInt 将 any 转为 int。
// 支持 int、int64、int32、float64、float32。
func ToInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case int32:
		return int(val), true
	case float64:
		return int(val), true
	case float32:
		return int(val), true
	default:
		return 0, false
	}
}

// ToString 将 any 转为 string。
// 仅支持 string 类型，否则返回 ("", false)。
func ToString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// ToInt64Slice 将 []any / []int / []int64 转为 []int64，任一元素无法转换即失败。
func ToInt64Slice(v any) ([]int64, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []int64:
		return val, nil
	case []int:
		out := make([]int64, len(val))
		for i, x := range val {
			out[i] = int64(x)
		}
		return out, nil
	case []any:
		out := make([]int64, 0, len(val))
		for i, x := range val {
			n, ok := ToInt(x)
			if !ok {
				return nil, fmt.Errorf("conv: element %d is %T, want integer", i, x)
			}
			out = append(out, int64(n))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("conv: %T is not an integer list", v)
	}
}

// IntOr 读取 m[key] 为 int，缺失时返回 def；类型错误返回 error。
func IntOr(m map[string]any, key string, def int) (int, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return def, nil
	}
	n, ok := ToInt(v)
	if !ok {
		return 0, fmt.Errorf("conv: %s is %T, want integer", key, v)
	}
	return n, nil
}

// Float32Or 读取 m[key] 为 float32，缺失时返回 def；类型错误返回 error。
func Float32Or(m map[string]any, key string, def float32) (float32, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return def, nil
	}
	f, ok := ToFloat64(v)
	if !ok {
		return 0, fmt.Errorf("conv: %s is %T, want number", key, v)
	}
	return float32(f), nil
}
