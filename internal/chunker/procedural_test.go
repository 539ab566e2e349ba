package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memweave/memweave/pkg/types"
)

const procedure = `## Step 1: Prepare the environment
Requires: docker, make
Install the toolchain and clone the repository.

## Step 2: Build the index
Run the ingest command against the vault directory.
Outcome: a populated SQLite index

## Step 3: Verify
Query the index and confirm chunk counts match expectations.`

func proceduralDoc(content string) *types.Document {
	return &types.Document{
		ID:          "proc-010",
		Path:        "procedural/proc-010.md",
		Content:     content,
		ContentType: types.ContentProcedural,
	}
}

func TestStepBoundary_ThreeSteps(t *testing.T) {
	s := NewStepBoundary(nil)

	result, err := s.Chunk(proceduralDoc(procedure), s.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, result.Chunks, 3)

	assert.Contains(t, result.Chunks[0].Content, "Step 1")
	assert.Contains(t, result.Chunks[1].Content, "Step 2")
	assert.Contains(t, result.Chunks[2].Content, "Step 3")

	for i, c := range result.Chunks {
		assert.Equal(t, i, c.Metadata.SequenceIndex)
		assert.Equal(t, types.LevelAtomic, c.Metadata.MemoryLevel)
		assert.Equal(t, types.BoundaryStep, c.Metadata.Boundary)
		assert.Equal(t, "proc-010", c.Metadata.ProcedureID)
	}

	// Steps are always chained, no flag involved.
	assert.Empty(t, result.Chunks[0].Metadata.PrevID)
	assert.Equal(t, result.Chunks[1].ID, result.Chunks[0].Metadata.NextID)
	assert.Equal(t, result.Chunks[0].ID, result.Chunks[1].Metadata.PrevID)
	assert.Equal(t, result.Chunks[2].ID, result.Chunks[1].Metadata.NextID)
	assert.Equal(t, result.Chunks[1].ID, result.Chunks[2].Metadata.PrevID)
	assert.Empty(t, result.Chunks[2].Metadata.NextID)
}

func TestStepBoundary_Prerequisites(t *testing.T) {
	s := NewStepBoundary(nil)

	result, err := s.Chunk(proceduralDoc(procedure), s.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, result.Chunks, 3)

	assert.Equal(t, []string{"docker", "make"}, result.Chunks[0].Metadata.Concepts)
	assert.Empty(t, result.Chunks[2].Metadata.Concepts)
}

func TestStepBoundary_Outcomes(t *testing.T) {
	s := NewStepBoundary(nil)

	result, err := s.Chunk(proceduralDoc(procedure), s.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, result.Chunks, 3)

	assert.Equal(t, "a populated SQLite index", result.Chunks[1].Metadata.Summary)
	assert.Empty(t, result.Chunks[0].Metadata.Summary)
}

func TestStepBoundary_Preamble(t *testing.T) {
	s := NewStepBoundary(nil)
	content := "This procedure rebuilds the vault index.\n\n## Step 1\nDo the thing.\n\n## Step 2\nDo the other thing."

	result, err := s.Chunk(proceduralDoc(content), s.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, result.Chunks, 3)
	assert.Contains(t, result.Chunks[0].Content, "rebuilds the vault index")
}

func TestStepBoundary_NoDelimiters(t *testing.T) {
	s := NewStepBoundary(nil)
	content := "A note that merely describes a process in prose, with no step headers."

	result, err := s.Chunk(proceduralDoc(content), s.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	assert.NotEmpty(t, result.Warnings)
}

func TestStepBoundary_EmptyDocument(t *testing.T) {
	s := NewStepBoundary(nil)

	result, err := s.Chunk(proceduralDoc("\n \n"), s.DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)
	assert.NotEmpty(t, result.Warnings)
}

func TestStepBoundary_CustomDelimiters(t *testing.T) {
	s := NewStepBoundary(nil)
	cfg := s.DefaultConfig()
	cfg.StepDelimiters = []string{"== "}

	content := "== first\nalpha\n== second\nbeta"
	result, err := s.Chunk(proceduralDoc(content), cfg)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 2)
	assert.Contains(t, result.Chunks[0].Content, "alpha")
	assert.Contains(t, result.Chunks[1].Content, "beta")
}

func TestStepBoundary_Validate(t *testing.T) {
	s := NewStepBoundary(nil)

	cfg := s.DefaultConfig()
	cfg.StepDelimiters = []string{"## Step", ""}
	vr := s.Validate(cfg)
	assert.False(t, vr.Valid)

	cfg = s.DefaultConfig()
	cfg.StepDelimiters = nil
	vr = s.Validate(cfg)
	assert.True(t, vr.Valid)
	assert.NotEmpty(t, vr.Warnings)
}
