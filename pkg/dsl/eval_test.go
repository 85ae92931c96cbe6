package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/pkg/utils"
)

func TestEval(t *testing.T) {
	item := core.NewItem(4)
	item.Score = 0.8
	item.Features[core.FeatureLikeRatio] = 0.25
	item.PutLabel("recall_source", utils.Label{Value: "candidate_pool", Source: "recall"})

	rctx := &core.RecommendContext{UserID: 7, Params: map[string]any{"min_score": 0.5}}

	tests := []struct {
		expr string
		want bool
	}{
		{`item.score > 0.7`, true},
		{`item.score > 0.9`, false},
		{`item.id % 2 == 0`, true},
		{`item.like_ratio < 0.5`, true},
		{`label.recall_source == "candidate_pool"`, true},
		{`rctx.user_id == 7 && item.score >= rctx.params.min_score`, true},
		{`has(rctx.params.blocked)`, false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e, err := Compile(tt.expr)
			require.NoError(t, err)
			got, err := e.Evaluate(item, rctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalErrors(t *testing.T) {
	_, err := Compile(`item.score >`)
	assert.Error(t, err, "syntax error")

	e, err := Compile(`item.score`)
	require.NoError(t, err)
	_, err = e.Evaluate(core.NewItem(1), nil)
	assert.Error(t, err, "non-boolean result")
}
