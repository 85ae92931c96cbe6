package core

import "github.com/rushteam/feedcache/pkg/utils"

// FeatureLikeRatio 是打分阶段写入 Item.Features 的点赞/收藏相对亲和度。
const FeatureLikeRatio = "like_ratio"

// Item 是 Pipeline 中流转的一个候选物品。
// Score 决定排序；Features 存放打分的附带产出（like_ratio）；Labels 记录经过了哪些节点。
type Item struct {
	ID        int64
	Score     float64
	Embedding Vector
	Features  map[string]float64
	Labels    map[string]utils.Label
}

func NewItem(id int64) *Item {
	return &Item{
		ID:       id,
		Features: make(map[string]float64),
		Labels:   make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label，同名 key 按 utils.MergeLabel 累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	it.Labels[key] = utils.MergeLabel(it.Labels[key], lbl)
}

// LikeRatio 返回打分阶段写入的 like ratio，未打分时为 0。
func (it *Item) LikeRatio() float32 {
	if it.Features == nil {
		return 0
	}
	return float32(it.Features[FeatureLikeRatio])
}
