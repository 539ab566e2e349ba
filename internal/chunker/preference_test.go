package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memweave/memweave/pkg/types"
)

const decisionRecord = `# Sprint planning

Decided: use SQLite for the vault index.
Alternatives considered:
- Postgres with pgvector
- Plain JSON files on disk
- An external vector database

Unrelated paragraph about the weather and the office plants.

We selected the errgroup worker pool for ingest concurrency.
It keeps cancellation propagation simple.`

func preferenceDoc(content string) *types.Document {
	return &types.Document{
		ID:          "pref-003",
		Path:        "preference/pref-003.md",
		Content:     content,
		ContentType: types.ContentPreference,
	}
}

func TestPreferenceSignal_DecisionCapture(t *testing.T) {
	p := NewPreferenceSignal(nil)

	result, err := p.Chunk(preferenceDoc(decisionRecord), p.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, result.Chunks, 2)

	first := result.Chunks[0]
	assert.Contains(t, first.Content, "Decided: use SQLite")
	// The lookahead window captures the lines after the match.
	assert.Contains(t, first.Content, "Postgres with pgvector")
	assert.Equal(t, types.LevelStrategic, first.Metadata.MemoryLevel)
	assert.Equal(t, types.BoundaryDecision, first.Metadata.Boundary)
	assert.Equal(t, StrategyPreferenceSignal, first.Metadata.Strategy)

	second := result.Chunks[1]
	assert.Contains(t, second.Content, "selected the errgroup")
	assert.Equal(t, 1, second.Metadata.SequenceIndex)
}

func TestPreferenceSignal_Alternatives(t *testing.T) {
	p := NewPreferenceSignal(nil)
	cfg := p.DefaultConfig()
	cfg.IncludeAlternatives = true

	result, err := p.Chunk(preferenceDoc(decisionRecord), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, result.Chunks)

	concepts := result.Chunks[0].Metadata.Concepts
	assert.Contains(t, concepts, "Postgres with pgvector")
	assert.Contains(t, concepts, "Plain JSON files on disk")
	assert.Contains(t, concepts, "An external vector database")
}

func TestPreferenceSignal_AlternativesDisabled(t *testing.T) {
	p := NewPreferenceSignal(nil)
	cfg := p.DefaultConfig()
	cfg.IncludeAlternatives = false

	result, err := p.Chunk(preferenceDoc(decisionRecord), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, result.Chunks)
	assert.Empty(t, result.Chunks[0].Metadata.Concepts)
}

func TestPreferenceSignal_NoDecisions(t *testing.T) {
	p := NewPreferenceSignal(nil)
	content := "A record with nothing to extract.\nJust observations about the day.\n"

	result, err := p.Chunk(preferenceDoc(content), p.DefaultConfig())
	require.NoError(t, err)
	// Expected behavior for documents with no decision content, not an error.
	assert.Empty(t, result.Chunks)
	assert.NotEmpty(t, result.Warnings)
}

func TestPreferenceSignal_RegionsNeverOverlap(t *testing.T) {
	p := NewPreferenceSignal(nil)

	// The second keyword line sits inside the first capture window, so it
	// must be consumed by the first region rather than starting a second.
	content := "decided on plan A\nline one\ndecided on plan B actually\nline two\nline three\nline four\nline five\nchose plan C later"
	result, err := p.Chunk(preferenceDoc(content), p.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, result.Chunks, 2)
	assert.Contains(t, result.Chunks[0].Content, "plan B")
	assert.Contains(t, result.Chunks[1].Content, "plan C")
	assert.NotContains(t, result.Chunks[1].Content, "decided")
}

func TestPreferenceSignal_CustomKeywords(t *testing.T) {
	p := NewPreferenceSignal(nil)
	cfg := p.DefaultConfig()
	cfg.DecisionKeywords = []string{"VERDICT"}

	content := "verdict: ship it\nfollow-up tomorrow"
	result, err := p.Chunk(preferenceDoc(content), cfg)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	assert.True(t, strings.HasPrefix(result.Chunks[0].Content, "verdict: ship it"))
}

func TestPreferenceSignal_Validate(t *testing.T) {
	p := NewPreferenceSignal(nil)

	cfg := p.DefaultConfig()
	cfg.DecisionKeywords = []string{"decision", "  "}
	vr := p.Validate(cfg)
	assert.False(t, vr.Valid)

	cfg = p.DefaultConfig()
	cfg.DecisionKeywords = nil
	vr = p.Validate(cfg)
	assert.True(t, vr.Valid)
	assert.NotEmpty(t, vr.Warnings)
}
