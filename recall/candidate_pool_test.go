package recall

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/store"
)

func i64(v int64) *int64 { return &v }

func TestCandidatePool(t *testing.T) {
	repo := store.NewMemoryCandidateRepository(
		core.Candidate{ID: i64(3), Embedding: core.Vector{1, 2}},
		core.Candidate{ID: nil, Embedding: core.Vector{1, 1}},
		core.Candidate{ID: i64(1), Embedding: nil},
		core.Candidate{ID: i64(2), Embedding: core.Vector{1, 2, 3}},
		core.Candidate{ID: i64(4), Embedding: core.Vector{0, 5}},
	)
	pool := &CandidatePool{Repo: repo, Dimension: 2}

	items, err := pool.Process(context.Background(), &core.RecommendContext{UserID: 1}, nil)
	require.NoError(t, err)

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
		assert.Len(t, it.Embedding, 2)
		assert.Equal(t, "candidate_pool", it.Labels["recall_source"].Value)
	}
	// 保持候选池顺序；无 ID 与维度错误的候选被跳过
	assert.Equal(t, []int64{3, 1, 4}, ids)
	assert.Equal(t, core.Vector{0, 0}, items[1].Embedding)
}

type brokenRepo struct{}

func (brokenRepo) FindAll(context.Context) ([]core.Candidate, error) {
	return nil, errors.New("connection reset")
}

func TestCandidatePool_Errors(t *testing.T) {
	_, err := (&CandidatePool{Dimension: 2}).Recall(context.Background(), nil)
	assert.Error(t, err)

	_, err = (&CandidatePool{Repo: brokenRepo{}, Dimension: 2}).Recall(context.Background(), nil)
	assert.ErrorContains(t, err, "connection reset")
}
