package rank

import (
	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/vector"
)

// ScoreCandidate 计算单个候选的排序分数与 like ratio。
//
//   - score = dot(V, P)，唯一的排序键
//   - sLiked = Σ P[i] * (L[i] * W_L)，sBookmarked = Σ P[i] * (B[i] * W_B)
//   - likeRatio = sLiked / (sLiked + sBookmarked)，分母不为正时为 0
//
// likeRatio 是相对亲和度而非概率；当某一路信号为负时商可能越界，这里截断到 [0, 1]。
// 非有限值（NaN/Inf）不做处理，原样向下传播。
func ScoreCandidate(pref *core.Preference, p core.Vector, w core.Weights) (score float32, likeRatio float32) {
	score = vector.Dot(pref.Actor, p)

	sLiked := vector.ScaledDot(p, pref.Liked, w.Like)
	sBookmarked := vector.ScaledDot(p, pref.Bookmarked, w.Bookmark)
	sum := sLiked + sBookmarked
	if !(sum > 0) {
		return score, 0
	}

	likeRatio = sLiked / sum
	if likeRatio < 0 {
		likeRatio = 0
	} else if likeRatio > 1 {
		likeRatio = 1
	}
	return score, likeRatio
}
