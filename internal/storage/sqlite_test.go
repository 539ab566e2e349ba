package storage

import (
	"context"
	"crypto/sha256"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "memweave.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testVault(t *testing.T, s *SQLiteStorage) *Vault {
	t.Helper()
	vault := &Vault{RootPath: "/vault/" + t.Name(), IndexVersion: CurrentSchemaVersion}
	require.NoError(t, s.CreateVault(context.Background(), vault))
	return vault
}

func testNote(t *testing.T, s *SQLiteStorage, vaultID int64, path string) *Note {
	t.Helper()
	note := &Note{
		VaultID:     vaultID,
		NotePath:    path,
		DocumentID:  "doc-" + path,
		ContentType: "episodic",
		ContentHash: sha256.Sum256([]byte(path)),
		ModTime:     time.Now(),
		SizeBytes:   128,
	}
	require.NoError(t, s.UpsertNote(context.Background(), note))
	return note
}

func TestVaultLifecycle(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	vault := testVault(t, s)
	assert.NotZero(t, vault.ID)

	got, err := s.GetVault(ctx, vault.RootPath)
	require.NoError(t, err)
	assert.Equal(t, vault.ID, got.ID)

	got.TotalNotes = 5
	got.TotalChunks = 40
	got.LastIngestedAt = time.Now()
	require.NoError(t, s.UpdateVault(ctx, got))

	updated, err := s.GetVault(ctx, vault.RootPath)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.TotalNotes)
	assert.Equal(t, 40, updated.TotalChunks)

	_, err = s.GetVault(ctx, "/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertNote_UpdatesInPlace(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()
	vault := testVault(t, s)

	note := testNote(t, s, vault.ID, "episodic/day1.md")
	firstID := note.ID

	note.ContentHash = sha256.Sum256([]byte("changed"))
	require.NoError(t, s.UpsertNote(ctx, note))
	assert.Equal(t, firstID, note.ID, "upsert should keep the same row")

	got, err := s.GetNote(ctx, vault.ID, "episodic/day1.md")
	require.NoError(t, err)
	assert.Equal(t, note.ContentHash, got.ContentHash)

	notes, err := s.ListNotes(ctx, vault.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestDeleteNote_CascadesToChunks(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()
	vault := testVault(t, s)
	note := testNote(t, s, vault.ID, "episodic/day1.md")

	chunks := []*Chunk{
		{ID: "c1", DocumentID: note.DocumentID, SequenceIndex: 0, Content: "first",
			ContentType: "episodic", MemoryLevel: "episodic", Strategy: "event_boundary", Boundary: "event"},
	}
	require.NoError(t, s.ReplaceNoteChunks(ctx, note.ID, chunks, nil))

	require.NoError(t, s.DeleteNote(ctx, note.ID))

	_, err := s.GetChunk(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplaceNoteChunks_RoundTrip(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()
	vault := testVault(t, s)
	note := testNote(t, s, vault.ID, "procedures/deploy.md")

	ts := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	chunks := []*Chunk{
		{
			ID: "c1", DocumentID: note.DocumentID, SourcePath: note.NotePath,
			SequenceIndex: 0, Content: "## Step 1\nBuild the image.",
			TokenCount: 8, ContentType: "procedural", MemoryLevel: "atomic",
			Strategy: "step_boundary", Boundary: "step",
			ProcedureID: note.DocumentID, NextID: "c2",
			Concepts: []string{"docker", "make"}, Summary: "Image built",
			Confidence: 1.0, SourceTimestamp: &ts,
		},
		{
			ID: "c2", DocumentID: note.DocumentID, SourcePath: note.NotePath,
			SequenceIndex: 1, Content: "## Step 2\nPush the image.",
			TokenCount: 7, ContentType: "procedural", MemoryLevel: "atomic",
			Strategy: "step_boundary", Boundary: "step",
			ProcedureID: note.DocumentID, PrevID: "c1",
		},
	}
	embeddings := []*Embedding{
		{ChunkID: "c1", Vector: SerializeVector([]float32{1, 0}), Dimension: 2, Provider: "local", Model: "local-hash"},
		{ChunkID: "c2", Vector: SerializeVector([]float32{0, 1}), Dimension: 2, Provider: "local", Model: "local-hash"},
	}
	require.NoError(t, s.ReplaceNoteChunks(ctx, note.ID, chunks, embeddings))

	got, err := s.GetChunk(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c2", got.NextID)
	assert.Equal(t, []string{"docker", "make"}, got.Concepts)
	assert.Equal(t, "Image built", got.Summary)
	require.NotNil(t, got.SourceTimestamp)
	assert.True(t, ts.Equal(*got.SourceTimestamp))

	listed, err := s.ListChunksByNote(ctx, note.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "c1", listed[0].ID)
	assert.Equal(t, "c2", listed[1].ID)

	emb, err := s.GetEmbedding(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, DeserializeVector(emb.Vector))
}

func TestReplaceNoteChunks_ReplacesOldSet(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()
	vault := testVault(t, s)
	note := testNote(t, s, vault.ID, "notes/idea.md")

	base := Chunk{
		DocumentID: note.DocumentID, Content: "x", ContentType: "semantic",
		MemoryLevel: "semantic", Strategy: "semantic_boundary", Boundary: "semantic",
	}
	old := base
	old.ID = "old"
	require.NoError(t, s.ReplaceNoteChunks(ctx, note.ID, []*Chunk{&old}, nil))

	fresh := base
	fresh.ID = "fresh"
	require.NoError(t, s.ReplaceNoteChunks(ctx, note.ID, []*Chunk{&fresh}, nil))

	_, err := s.GetChunk(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)

	listed, err := s.ListChunksByNote(ctx, note.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "fresh", listed[0].ID)
}

func TestGetChunks_Batch(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()
	vault := testVault(t, s)
	note := testNote(t, s, vault.ID, "notes/idea.md")

	var chunks []*Chunk
	for i, id := range []string{"a", "b", "c"} {
		chunks = append(chunks, &Chunk{
			ID: id, DocumentID: note.DocumentID, SequenceIndex: i, Content: id,
			ContentType: "semantic", MemoryLevel: "semantic",
			Strategy: "semantic_boundary", Boundary: "semantic",
		})
	}
	require.NoError(t, s.ReplaceNoteChunks(ctx, note.ID, chunks, nil))

	got, err := s.GetChunks(ctx, []string{"a", "c", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)

	empty, err := s.GetChunks(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSearchText(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()
	vault := testVault(t, s)
	note := testNote(t, s, vault.ID, "decisions/db.md")

	chunks := []*Chunk{
		{ID: "p1", DocumentID: note.DocumentID, SequenceIndex: 0,
			Content:     "Decided to use postgres for persistence",
			ContentType: "preference", MemoryLevel: "strategic",
			Strategy: "preference_signal", Boundary: "decision"},
		{ID: "p2", DocumentID: note.DocumentID, SequenceIndex: 1,
			Content:     "Lunch options near the office",
			ContentType: "preference", MemoryLevel: "strategic",
			Strategy: "preference_signal", Boundary: "decision"},
	}
	require.NoError(t, s.ReplaceNoteChunks(ctx, note.ID, chunks, nil))

	results, err := s.SearchText(ctx, vault.ID, "postgres", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p1", results[0].ChunkID)
	assert.Greater(t, results[0].BM25Score, 0.0)
}

func TestSearchText_FilterByContentType(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()
	vault := testVault(t, s)
	note := testNote(t, s, vault.ID, "mixed.md")

	chunks := []*Chunk{
		{ID: "e1", DocumentID: note.DocumentID, SequenceIndex: 0,
			Content:     "deploy pipeline finished",
			ContentType: "episodic", MemoryLevel: "episodic",
			Strategy: "event_boundary", Boundary: "event"},
		{ID: "s1", DocumentID: note.DocumentID, SequenceIndex: 1,
			Content:     "deploy pipeline design notes",
			ContentType: "semantic", MemoryLevel: "semantic",
			Strategy: "semantic_boundary", Boundary: "semantic"},
	}
	require.NoError(t, s.ReplaceNoteChunks(ctx, note.ID, chunks, nil))

	results, err := s.SearchText(ctx, vault.ID, "deploy", 10, &SearchFilters{
		ContentTypes: []string{"semantic"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "s1", results[0].ChunkID)
}

func TestSearchVector_Fallback(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()
	vault := testVault(t, s)
	note := testNote(t, s, vault.ID, "notes/topics.md")

	chunks := []*Chunk{
		{ID: "v1", DocumentID: note.DocumentID, SequenceIndex: 0, Content: "one",
			ContentType: "semantic", MemoryLevel: "semantic",
			Strategy: "semantic_boundary", Boundary: "semantic"},
		{ID: "v2", DocumentID: note.DocumentID, SequenceIndex: 1, Content: "two",
			ContentType: "semantic", MemoryLevel: "semantic",
			Strategy: "semantic_boundary", Boundary: "semantic"},
	}
	embeddings := []*Embedding{
		{ChunkID: "v1", Vector: SerializeVector([]float32{1, 0, 0}), Dimension: 3, Provider: "local", Model: "m"},
		{ChunkID: "v2", Vector: SerializeVector([]float32{0, 1, 0}), Dimension: 3, Provider: "local", Model: "m"},
	}
	require.NoError(t, s.ReplaceNoteChunks(ctx, note.ID, chunks, embeddings))

	results, err := s.SearchVector(ctx, vault.ID, []float32{1, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v1", results[0].ChunkID)
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 0.001)
}

func TestSearchVector_MinRelevance(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()
	vault := testVault(t, s)
	note := testNote(t, s, vault.ID, "notes/topics.md")

	chunks := []*Chunk{
		{ID: "v1", DocumentID: note.DocumentID, SequenceIndex: 0, Content: "one",
			ContentType: "semantic", MemoryLevel: "semantic",
			Strategy: "semantic_boundary", Boundary: "semantic"},
	}
	embeddings := []*Embedding{
		{ChunkID: "v1", Vector: SerializeVector([]float32{0, 1}), Dimension: 2, Provider: "local", Model: "m"},
	}
	require.NoError(t, s.ReplaceNoteChunks(ctx, note.ID, chunks, embeddings))

	results, err := s.SearchVector(ctx, vault.ID, []float32{1, 0}, 10, &SearchFilters{MinRelevance: 0.5})
	require.NoError(t, err)
	assert.Empty(t, results, "orthogonal vector should fall below the relevance floor")
}

func TestGetStatus(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()
	vault := testVault(t, s)
	note := testNote(t, s, vault.ID, "episodic/day1.md")

	chunks := []*Chunk{
		{ID: "c1", DocumentID: note.DocumentID, SequenceIndex: 0, Content: "x",
			ContentType: "episodic", MemoryLevel: "episodic",
			Strategy: "event_boundary", Boundary: "event"},
	}
	embeddings := []*Embedding{
		{ChunkID: "c1", Vector: SerializeVector([]float32{1}), Dimension: 1, Provider: "local", Model: "m"},
	}
	require.NoError(t, s.ReplaceNoteChunks(ctx, note.ID, chunks, embeddings))

	status, err := s.GetStatus(ctx, vault.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.NotesCount)
	assert.Equal(t, 1, status.ChunksCount)
	assert.Equal(t, 1, status.EmbeddingsCount)
	assert.True(t, status.Health.DatabaseAccessible)
	assert.True(t, status.Health.EmbeddingsAvailable)
}
