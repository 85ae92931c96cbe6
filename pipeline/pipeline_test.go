package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/feedcache/core"
)

type appendNode struct {
	id  int64
	err error
}

func (n *appendNode) Name() string { return "test.append" }
func (n *appendNode) Kind() Kind   { return KindRecall }
func (n *appendNode) Process(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	if n.err != nil {
		return nil, n.err
	}
	return append(items, core.NewItem(n.id)), nil
}

func TestPipelineRunChainsNodes(t *testing.T) {
	p := &Pipeline{Nodes: []Node{&appendNode{id: 1}, &appendNode{id: 2}}}

	items, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, int64(2), items[1].ID)
}

func TestPipelineRunStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	p := &Pipeline{Nodes: []Node{&appendNode{err: boom}, &appendNode{id: 2}}}

	_, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "test.append")
}

func TestPipelineRunHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &Pipeline{Nodes: []Node{&appendNode{id: 1}}}
	_, err := p.Run(ctx, &core.RecommendContext{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipelineRunRejectsEmpty(t *testing.T) {
	_, err := (&Pipeline{}).Run(context.Background(), &core.RecommendContext{}, nil)
	assert.True(t, core.IsInvalidInput(err))

	var p *Pipeline
	_, err = p.Run(context.Background(), &core.RecommendContext{}, nil)
	assert.Error(t, err)
}

func TestConfigBuildPipeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: feed
nodes:
  - type: test.append
    config:
      id: 7
`), 0o600))

	cfg, err := LoadFromYAML(path)
	require.NoError(t, err)
	assert.Equal(t, "feed", cfg.Name)

	factory := NewNodeFactory()
	factory.Register("test.append", func(c map[string]interface{}) (Node, error) {
		return &appendNode{id: int64(c["id"].(int))}, nil
	})

	p, err := cfg.BuildPipeline(factory)
	require.NoError(t, err)
	require.Len(t, p.Nodes, 1)
	assert.Equal(t, "feed", p.Name)

	items, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), items[0].ID)
}

func TestNodeFactoryUnknownType(t *testing.T) {
	factory := NewNodeFactory()
	factory.Register("b", nil)
	factory.Register("a", nil)

	assert.True(t, factory.Has("a"))
	assert.False(t, factory.Has("missing"))

	_, err := factory.Build("missing", nil)
	require.Error(t, err)
	assert.True(t, core.IsInvalidInput(err))
	assert.Contains(t, err.Error(), "[a b]")
}
