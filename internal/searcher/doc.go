// Package searcher answers memory queries over stored chunks.
//
// # Modes
//
// Three search modes:
//
//   - hybrid (default): vector similarity and BM25 keyword search run
//     concurrently, merged with Reciprocal Rank Fusion (k=60)
//   - vector: cosine similarity over embeddings only
//   - keyword: FTS5 BM25 only
//
// Hybrid tolerates one leg failing; a query still answers from the
// other leg. Results carry the chunk's provenance (note path, content
// type, memory level, strategy, session) and its temporal chain
// neighbors so a caller can walk the source document.
//
// # Caching
//
// Responses are cached in an LRU keyed by a hash of the query, mode,
// vault, limit, and filters, with a TTL (default 1h). The ingest
// pipeline invalidates the cache after changing the index.
package searcher
