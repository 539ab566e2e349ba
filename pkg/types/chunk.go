package types

import (
	"errors"
	"time"
)

// ContentType classifies the source document and selects a chunking strategy.
// The set is closed; unknown values fall back to semantic chunking.
type ContentType string

const (
	ContentEpisodic   ContentType = "episodic"
	ContentSemantic   ContentType = "semantic"
	ContentPreference ContentType = "preference"
	ContentProcedural ContentType = "procedural"
	ContentWorking    ContentType = "working"
	ContentDocument   ContentType = "generic_document"
)

// AllContentTypes lists every valid content type.
var AllContentTypes = []ContentType{
	ContentEpisodic,
	ContentSemantic,
	ContentPreference,
	ContentProcedural,
	ContentWorking,
	ContentDocument,
}

// MemoryLevel classifies a chunk's level of abstraction, independent of the
// content type that produced it.
type MemoryLevel string

const (
	LevelAtomic    MemoryLevel = "atomic"
	LevelEpisodic  MemoryLevel = "episodic"
	LevelSemantic  MemoryLevel = "semantic"
	LevelStrategic MemoryLevel = "strategic"
)

// BoundaryType identifies the mechanism that produced a chunk's edges.
type BoundaryType string

const (
	BoundaryEvent    BoundaryType = "event"
	BoundarySemantic BoundaryType = "semantic"
	BoundaryStep     BoundaryType = "step"
	BoundaryDecision BoundaryType = "decision"
	BoundaryFixed    BoundaryType = "fixed"
)

// ChunkMetadata carries the per-chunk attributes attached by a strategy.
// Link fields hold chunk IDs; empty means unset.
type ChunkMetadata struct {
	// Identity
	ChunkID       string
	DocumentID    string
	SourcePath    string
	SequenceIndex int // zero-based position within the document

	// Classification
	ContentType ContentType
	MemoryLevel MemoryLevel
	Strategy    string
	Boundary    BoundaryType

	// Sizing
	TokenCount    int // heuristic tokens, see chunker.TokenCounter
	OverlapTokens int

	// Timestamps
	CreatedAt       time.Time
	SourceTimestamp *time.Time

	// Hierarchical grouping
	ParentID string
	ChildIDs []string

	// Temporal chain (emission order)
	PrevID string
	NextID string

	// Cross-references
	RelatedIDs []string

	// Provenance
	SessionID       string
	ProcedureID     string
	ProcessingStage string

	// Extraction
	Concepts   []string
	Entities   []string
	Confidence float64

	// Surrounding context
	ContextBefore string
	ContextAfter  string
	Summary       string
}

// Chunk is one emitted segment of a document plus its metadata. Chunks are
// created transiently inside a single chunking call and never mutated after
// being returned.
type Chunk struct {
	ID       string
	Content  string
	Metadata ChunkMetadata
}

// Validation errors for chunks.
var (
	ErrEmptyChunkContent = errors.New("chunk content cannot be empty")
	ErrMissingChunkID    = errors.New("chunk ID is required")
	ErrInvalidSequence   = errors.New("sequence index must be >= 0")
	ErrInvalidContent    = errors.New("invalid content type")
	ErrInvalidLevel      = errors.New("invalid memory level")
	ErrInvalidBoundary   = errors.New("invalid boundary type")
)

// ValidContentType reports whether ct is a member of the closed set.
func ValidContentType(ct ContentType) bool {
	switch ct {
	case ContentEpisodic, ContentSemantic, ContentPreference, ContentProcedural, ContentWorking, ContentDocument:
		return true
	default:
		return false
	}
}

// ValidMemoryLevel reports whether ml is a member of the closed set.
func ValidMemoryLevel(ml MemoryLevel) bool {
	switch ml {
	case LevelAtomic, LevelEpisodic, LevelSemantic, LevelStrategic:
		return true
	default:
		return false
	}
}

// ValidBoundaryType reports whether bt is a member of the closed set.
func ValidBoundaryType(bt BoundaryType) bool {
	switch bt {
	case BoundaryEvent, BoundarySemantic, BoundaryStep, BoundaryDecision, BoundaryFixed:
		return true
	default:
		return false
	}
}

// Validate performs comprehensive validation of the chunk.
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return ErrMissingChunkID
	}
	if c.Content == "" {
		return ErrEmptyChunkContent
	}
	if c.Metadata.SequenceIndex < 0 {
		return ErrInvalidSequence
	}
	if !ValidContentType(c.Metadata.ContentType) {
		return ErrInvalidContent
	}
	if !ValidMemoryLevel(c.Metadata.MemoryLevel) {
		return ErrInvalidLevel
	}
	if !ValidBoundaryType(c.Metadata.Boundary) {
		return ErrInvalidBoundary
	}
	return nil
}

// FullContent returns the chunk content framed by any captured context.
// This is the text handed to the embedder.
func (c *Chunk) FullContent() string {
	result := ""
	if c.Metadata.ContextBefore != "" {
		result += c.Metadata.ContextBefore + "\n\n"
	}
	result += c.Content
	if c.Metadata.ContextAfter != "" {
		result += "\n\n" + c.Metadata.ContextAfter
	}
	return result
}
