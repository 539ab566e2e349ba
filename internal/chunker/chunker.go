package chunker

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/memweave/memweave/pkg/types"
)

// Chunker is the contract every segmentation strategy implements.
//
// Validate is authoritative: a config that fails validation must not be
// passed to Chunk. Chunk itself never fails on malformed or sparse input;
// it degrades to a best-effort result and reports via the result's
// warnings. The only error Chunk returns is a config that should have been
// rejected by Validate (or a nil document/config).
//
// Strategies are stateless between calls and treat the config as read-only,
// so one strategy instance and one config may be shared across concurrent
// calls without coordination.
type Chunker interface {
	// Name returns the strategy name recorded in chunk metadata and stats.
	Name() string

	// Chunk segments the document into an ordered chunk list with metadata
	// and aggregate statistics.
	Chunk(doc *types.Document, cfg *types.ChunkingConfig) (*types.ChunkingResult, error)

	// Validate checks a config for this strategy. Errors block chunking;
	// warnings do not.
	Validate(cfg *types.ChunkingConfig) *types.ValidationResult

	// DefaultConfig returns a config populated with this strategy's
	// defaults. The caller owns the returned value.
	DefaultConfig() *types.ChunkingConfig
}

// precheck runs the shared entry checks for a strategy's Chunk method:
// non-nil arguments and an authoritative Validate pass.
func precheck(s Chunker, doc *types.Document, cfg *types.ChunkingConfig) error {
	if doc == nil {
		return types.ErrNilDocument
	}
	if cfg == nil {
		return types.ErrNilConfig
	}
	if vr := s.Validate(cfg); !vr.Valid {
		return fmt.Errorf("%w: %s", types.ErrInvalidConfig, strings.Join(vr.Errors, "; "))
	}
	return nil
}

// validateCommon applies the config checks shared by all strategies.
func validateCommon(cfg *types.ChunkingConfig, vr *types.ValidationResult) {
	if cfg.MaxTokens <= 0 {
		vr.AddError("max_tokens must be positive")
	}
	if cfg.OverlapTokens < 0 {
		vr.AddError("overlap_tokens cannot be negative")
	}
	if cfg.MaxTokens > 0 && cfg.OverlapTokens >= cfg.MaxTokens {
		vr.AddError("overlap_tokens must be smaller than max_tokens")
	}
	if cfg.IncludeContext && cfg.ContextWindow <= 0 {
		vr.AddWarning("include_context set with non-positive context_window; context capture disabled")
	}
}

// newChunkID generates a fresh globally unique chunk identifier. IDs are
// never reused or persisted by the chunker itself.
func newChunkID() string {
	return uuid.NewString()
}

// documentID returns the document's ID, generating one when the caller
// did not assign any.
func documentID(doc *types.Document) string {
	if doc.ID != "" {
		return doc.ID
	}
	return uuid.NewString()
}

// newChunk assembles a chunk with the metadata fields every strategy
// stamps the same way. Strategy-specific fields (concepts, context,
// links) are filled in by the caller afterward.
func newChunk(doc *types.Document, docID, strategy string, level types.MemoryLevel,
	boundary types.BoundaryType, seq int, content string, tokens int) *types.Chunk {

	contentType := doc.ContentType
	if !types.ValidContentType(contentType) {
		contentType = types.ContentDocument
	}

	id := newChunkID()
	return &types.Chunk{
		ID:      id,
		Content: content,
		Metadata: types.ChunkMetadata{
			ChunkID:         id,
			DocumentID:      docID,
			SourcePath:      doc.Path,
			SequenceIndex:   seq,
			ContentType:     contentType,
			MemoryLevel:     level,
			Strategy:        strategy,
			Boundary:        boundary,
			TokenCount:      tokens,
			CreatedAt:       time.Now().UTC(),
			SourceTimestamp: doc.Timestamp,
			SessionID:       doc.SessionID,
		},
	}
}

// linkChain sets prev/next pointers so the chunks form exactly one linear
// chain matching emission order.
func linkChain(chunks []*types.Chunk) {
	for i, c := range chunks {
		if i > 0 {
			c.Metadata.PrevID = chunks[i-1].ID
		}
		if i < len(chunks)-1 {
			c.Metadata.NextID = chunks[i+1].ID
		}
	}
}

// computeStats aggregates per-call statistics over the emitted chunks.
func computeStats(chunks []*types.Chunk, strategy string, started time.Time) types.ChunkStats {
	stats := types.ChunkStats{
		ChunkCount: len(chunks),
		Strategy:   strategy,
		Duration:   time.Since(started),
	}
	if len(chunks) == 0 {
		return stats
	}

	stats.MinTokens = chunks[0].Metadata.TokenCount
	for _, c := range chunks {
		n := c.Metadata.TokenCount
		stats.TotalTokens += n
		if n < stats.MinTokens {
			stats.MinTokens = n
		}
		if n > stats.MaxTokens {
			stats.MaxTokens = n
		}
	}
	stats.AvgTokens = float64(stats.TotalTokens) / float64(len(chunks))
	return stats
}
