// Package types defines the shared data model for the memweave chunking
// engine: documents, chunks and their metadata, chunking configurations,
// and chunking results.
//
// The type system is built around three closed classifications:
//
//   - ContentType: what kind of record the source document is (episodic log,
//     reflective note, preference record, procedure, working state, or a
//     generic document). The content type selects the chunking strategy.
//   - MemoryLevel: how abstract a produced chunk is (atomic, episodic,
//     semantic, strategic), independent of content type.
//   - BoundaryType: which mechanism produced a chunk's edges (event,
//     semantic, step, decision, fixed).
//
// Chunks are immutable once returned. Their metadata carries optional
// links to other chunks of the same document: a parent/children hierarchy,
// a prev/next temporal chain matching emission order, and free-form
// related-chunk references.
//
// Token counts throughout this package are heuristic. See the chunker
// package's TokenCounter for the character-length approximation and the
// optional real-tokenizer replacement.
package types
