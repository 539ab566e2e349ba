package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memweave/memweave/pkg/types"
)

func TestSelector_Registry(t *testing.T) {
	sel := NewSelector()

	tests := []struct {
		contentType types.ContentType
		strategy    string
	}{
		{types.ContentEpisodic, StrategyEventBoundary},
		{types.ContentWorking, StrategyEventBoundary},
		{types.ContentSemantic, StrategySemanticBoundary},
		{types.ContentDocument, StrategySemanticBoundary},
		{types.ContentPreference, StrategyPreferenceSignal},
		{types.ContentProcedural, StrategyStepBoundary},
	}

	for _, tt := range tests {
		t.Run(string(tt.contentType), func(t *testing.T) {
			c, ok := sel.Select(tt.contentType)
			assert.True(t, ok)
			assert.Equal(t, tt.strategy, c.Name())
		})
	}
}

func TestSelector_UnknownFallsBackToSemantic(t *testing.T) {
	sel := NewSelector()

	c, ok := sel.Select(types.ContentType("mystery"))
	assert.False(t, ok)
	assert.Equal(t, StrategySemanticBoundary, c.Name())
}

func TestSelector_Deterministic(t *testing.T) {
	sel := NewSelector()

	first, _ := sel.Select(types.ContentEpisodic)
	second, _ := sel.Select(types.ContentEpisodic)
	assert.Same(t, first, second)
}

func TestSelector_ChunkDocument(t *testing.T) {
	sel := NewSelector()
	doc := &types.Document{
		ID:          "doc-1",
		Content:     phaseLog,
		ContentType: types.ContentEpisodic,
	}

	// nil config uses the selected strategy's defaults
	result, err := sel.ChunkDocument(doc, nil)
	require.NoError(t, err)
	assert.Len(t, result.Chunks, 4)
	assert.Equal(t, StrategyEventBoundary, result.Stats.Strategy)
}

func TestSelector_ChunkDocumentUnknownType(t *testing.T) {
	sel := NewSelector()
	doc := &types.Document{
		ID:          "doc-2",
		Content:     "Some prose. It has a couple of sentences.",
		ContentType: types.ContentType("banana"),
	}

	result, err := sel.ChunkDocument(doc, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Chunks)
	assert.Equal(t, StrategySemanticBoundary, result.Stats.Strategy)

	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[len(result.Warnings)-1], "banana")

	// Chunk metadata degrades the unknown tag to the generic document type.
	assert.Equal(t, types.ContentDocument, result.Chunks[0].Metadata.ContentType)
}

func TestSelector_ChunkDocumentNilDocument(t *testing.T) {
	sel := NewSelector()
	_, err := sel.ChunkDocument(nil, nil)
	assert.ErrorIs(t, err, types.ErrNilDocument)
}

func TestSelector_CustomRegistry(t *testing.T) {
	step := NewStepBoundary(nil)
	registry := map[types.ContentType]Chunker{
		types.ContentEpisodic: step,
	}
	sel := NewSelectorWithRegistry(registry, step)

	// Mutating the source map after construction has no effect.
	registry[types.ContentEpisodic] = NewEventBoundary(nil)

	c, ok := sel.Select(types.ContentEpisodic)
	assert.True(t, ok)
	assert.Same(t, step, c)
}

func TestSelector_Strategies(t *testing.T) {
	sel := NewSelector()

	strategies := sel.Strategies()
	assert.Len(t, strategies, 6)
	assert.Equal(t, StrategyStepBoundary, strategies[types.ContentProcedural])

	cts := sel.ContentTypes()
	assert.Len(t, cts, 6)
}
