// Package vector 提供 Feed 打分所需的单精度向量运算。
//
// 所有向量在进入打分前都经过 Resolve：nil 补零、长度校验只在这里做一次。
package vector

import (
	"fmt"

	"github.com/rushteam/feedcache/core"
)

// Zeros 返回长度为 dim 的零向量。
func Zeros(dim int) core.Vector {
	return make(core.Vector, dim)
}

// Resolve 把可能缺失的向量规整为长度 dim 的向量。
//
//   - nil / 空切片：用户或物品还没有该信号，返回零向量
//   - 长度等于 dim：原样返回
//   - 其他长度：上游数据不一致，返回 INVALID_INPUT
func Resolve(v core.Vector, dim int) (core.Vector, error) {
	if len(v) == 0 {
		return Zeros(dim), nil
	}
	if len(v) != dim {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput,
			fmt.Sprintf("vector: dimension mismatch, want %d got %d", dim, len(v)))
	}
	return v, nil
}

// Dot 计算内积。调用方保证 a、b 等长。
func Dot(a, b core.Vector) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// ScaledDot 计算 Σ a[i] * (b[i] * w)，即先按权重缩放 b 再求内积。
// 与 Dot(a, b)*w 在单精度下的舍入不同，打分时必须用这个顺序。
func ScaledDot(a, b core.Vector, w float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * (b[i] * w)
	}
	return sum
}

// Combine 按权重合成偏好向量：U*wU + L*wL + B*wB - S*wS。
// 四个输入必须已经过 Resolve。
func Combine(u, l, b, s core.Vector, w core.Weights) core.Vector {
	out := make(core.Vector, len(u))
	for i := range out {
		out[i] = u[i]*w.User + l[i]*w.Like + b[i]*w.Bookmark - s[i]*w.SeeLess
	}
	return out
}
