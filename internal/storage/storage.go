package storage

import (
	"context"
	"time"

	"github.com/memweave/memweave/pkg/types"
)

// Storage persists ingested notes, their chunks, and chunk embeddings.
type Storage interface {
	// Vault operations
	CreateVault(ctx context.Context, vault *Vault) error
	GetVault(ctx context.Context, rootPath string) (*Vault, error)
	UpdateVault(ctx context.Context, vault *Vault) error

	// Note operations
	UpsertNote(ctx context.Context, note *Note) error
	GetNote(ctx context.Context, vaultID int64, notePath string) (*Note, error)
	DeleteNote(ctx context.Context, noteID int64) error
	ListNotes(ctx context.Context, vaultID int64) ([]*Note, error)

	// Chunk operations. ReplaceNoteChunks swaps a note's chunks and
	// embeddings atomically; a re-ingest never leaves a note half
	// indexed.
	ReplaceNoteChunks(ctx context.Context, noteID int64, chunks []*Chunk, embeddings []*Embedding) error
	GetChunk(ctx context.Context, chunkID string) (*Chunk, error)
	GetChunks(ctx context.Context, chunkIDs []string) ([]*Chunk, error)
	ListChunksByNote(ctx context.Context, noteID int64) ([]*Chunk, error)
	DeleteChunksByNote(ctx context.Context, noteID int64) error

	// Embedding operations
	GetEmbedding(ctx context.Context, chunkID string) (*Embedding, error)

	// Search operations
	SearchVector(ctx context.Context, vaultID int64, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error)
	SearchText(ctx context.Context, vaultID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error)

	// Status operations
	GetStatus(ctx context.Context, vaultID int64) (*VaultStatus, error)

	Close() error
}

// Vault is an indexed notes directory.
type Vault struct {
	ID             int64
	RootPath       string
	TotalNotes     int
	TotalChunks    int
	IndexVersion   string
	LastIngestedAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Note is a tracked vault file.
type Note struct {
	ID             int64
	VaultID        int64
	NotePath       string // relative to vault root
	DocumentID     string
	ContentType    string
	ContentHash    [32]byte
	ModTime        time.Time
	SizeBytes      int64
	LastIngestedAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Chunk is a stored memory chunk. IDs are the chunker-assigned UUIDs,
// not rowids, so links between chunks survive re-ingest of other notes.
type Chunk struct {
	ID              string
	NoteID          int64
	DocumentID      string
	SourcePath      string
	SequenceIndex   int
	Content         string
	TokenCount      int
	OverlapTokens   int
	ContentType     string
	MemoryLevel     string
	Strategy        string
	Boundary        string
	SessionID       string
	ProcedureID     string
	ProcessingStage string
	ParentID        string
	PrevID          string
	NextID          string
	Concepts        []string
	Entities        []string
	Summary         string
	ContextBefore   string
	ContextAfter    string
	Confidence      float64
	SourceTimestamp *time.Time
	CreatedAt       time.Time
}

// Embedding is a stored vector for a chunk.
type Embedding struct {
	ID        int64
	ChunkID   string
	Vector    []byte // serialized float32 array, little-endian
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// SearchFilters narrow search results.
type SearchFilters struct {
	ContentTypes []string
	MemoryLevels []string
	Strategies   []string
	SessionID    string
	PathPattern  string // glob on note paths
	MinRelevance float64
}

// VectorResult is one vector-similarity hit.
type VectorResult struct {
	ChunkID         string
	SimilarityScore float64
}

// TextResult is one full-text hit.
type TextResult struct {
	ChunkID   string
	BM25Score float64
}

// VaultStatus reports index statistics.
type VaultStatus struct {
	Vault           *Vault
	NotesCount      int
	ChunksCount     int
	EmbeddingsCount int
	IndexSizeMB     float64
	LastIngestedAt  time.Time
	Health          HealthStatus
}

// HealthStatus reports index health.
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	FTSIndexesBuilt     bool
}

// FromChunk converts a chunker output chunk to its storage record.
func FromChunk(c *types.Chunk, noteID int64) *Chunk {
	m := c.Metadata
	return &Chunk{
		ID:              c.ID,
		NoteID:          noteID,
		DocumentID:      m.DocumentID,
		SourcePath:      m.SourcePath,
		SequenceIndex:   m.SequenceIndex,
		Content:         c.Content,
		TokenCount:      m.TokenCount,
		OverlapTokens:   m.OverlapTokens,
		ContentType:     string(m.ContentType),
		MemoryLevel:     string(m.MemoryLevel),
		Strategy:        m.Strategy,
		Boundary:        string(m.Boundary),
		SessionID:       m.SessionID,
		ProcedureID:     m.ProcedureID,
		ProcessingStage: m.ProcessingStage,
		ParentID:        m.ParentID,
		PrevID:          m.PrevID,
		NextID:          m.NextID,
		Concepts:        m.Concepts,
		Entities:        m.Entities,
		Summary:         m.Summary,
		ContextBefore:   m.ContextBefore,
		ContextAfter:    m.ContextAfter,
		Confidence:      m.Confidence,
		SourceTimestamp: m.SourceTimestamp,
		CreatedAt:       m.CreatedAt,
	}
}

// ToChunk converts a storage record back to a chunker chunk.
func (c *Chunk) ToChunk() *types.Chunk {
	return &types.Chunk{
		ID:      c.ID,
		Content: c.Content,
		Metadata: types.ChunkMetadata{
			ChunkID:         c.ID,
			DocumentID:      c.DocumentID,
			SourcePath:      c.SourcePath,
			SequenceIndex:   c.SequenceIndex,
			ContentType:     types.ContentType(c.ContentType),
			MemoryLevel:     types.MemoryLevel(c.MemoryLevel),
			Strategy:        c.Strategy,
			Boundary:        types.BoundaryType(c.Boundary),
			TokenCount:      c.TokenCount,
			OverlapTokens:   c.OverlapTokens,
			CreatedAt:       c.CreatedAt,
			SourceTimestamp: c.SourceTimestamp,
			ParentID:        c.ParentID,
			PrevID:          c.PrevID,
			NextID:          c.NextID,
			SessionID:       c.SessionID,
			ProcedureID:     c.ProcedureID,
			ProcessingStage: c.ProcessingStage,
			Concepts:        c.Concepts,
			Entities:        c.Entities,
			Confidence:      c.Confidence,
			ContextBefore:   c.ContextBefore,
			ContextAfter:    c.ContextAfter,
			Summary:         c.Summary,
		},
	}
}
