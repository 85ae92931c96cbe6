package recall

import (
	"context"
	"fmt"

	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/pipeline"
	"github.com/rushteam/feedcache/pkg/logger"
	"github.com/rushteam/feedcache/pkg/utils"
	"github.com/rushteam/feedcache/vector"
)

// CandidatePool 是全量候选池召回源：每次都完整扫描 CandidateRepository。
//
// 这一层不做任何资格、时效、类目过滤，过滤属于外部关注点。
// 输出顺序与候选池顺序一致，排序阶段的稳定排序依赖这个顺序。
//
// 上游数据问题在本地消化，不向调用方报错：
//   - ID 为 nil：无法被下游引用，跳过
//   - embedding 为 nil：视为零向量
//   - embedding 长度与 Dimension 不一致：跳过并记录告警
//
// CandidatePool 同时实现了 Source 和 Node 接口。
type CandidatePool struct {
	Repo      core.CandidateRepository
	Dimension int
	Logger    *logger.Logger
}

func (r *CandidatePool) Name() string        { return "recall.candidate_pool" }
func (r *CandidatePool) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，忽略输入 items，直接返回完整候选池。
func (r *CandidatePool) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *CandidatePool) Recall(
	ctx context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Repo == nil {
		return nil, fmt.Errorf("candidate repository is required")
	}
	log := logger.OrNop(r.Logger)

	candidates, err := r.Repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	items := make([]*core.Item, 0, len(candidates))
	skipped := 0
	for i, c := range candidates {
		if c.ID == nil {
			skipped++
			log.Debug("skip candidate without id", "index", i)
			continue
		}
		emb, err := vector.Resolve(c.Embedding, r.Dimension)
		if err != nil {
			skipped++
			log.Warn("skip candidate with bad embedding", "program_id", *c.ID, "error", err)
			continue
		}

		item := core.NewItem(*c.ID)
		item.Embedding = emb
		item.PutLabel("recall_source", utils.Label{Value: "candidate_pool", Source: "recall"})
		items = append(items, item)
	}

	if skipped > 0 {
		log.Debug("candidate pool loaded", "total", len(candidates), "skipped", skipped)
	}
	return items, nil
}

var (
	_ Source        = (*CandidatePool)(nil)
	_ pipeline.Node = (*CandidatePool)(nil)
)
