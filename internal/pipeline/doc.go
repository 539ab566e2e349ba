// Package pipeline orchestrates vault ingest: discover notes, chunk
// them by content type, embed the chunks, and store everything.
//
// # Flow
//
// IngestVault walks the vault and processes notes concurrently with an
// errgroup worker pool (default runtime.NumCPU workers). Per note:
//
//  1. Load and classify the note (vault package)
//  2. Skip if the stored content hash matches the file
//  3. Chunk via the strategy selector
//  4. Embed chunk contents in provider-sized batches
//  5. Replace the note's chunks and embeddings atomically
//
// A failing note is recorded in the run statistics and does not stop
// the run. Chunking warnings are collected per note, prefixed with the
// note path. Only one vault ingest runs at a time; a second call fails
// fast with ErrIngestInProgress.
//
// # Watching
//
// Watcher re-ingests notes as they change, debouncing rapid editor
// writes (500ms default). Deletions and renames drop the note from the
// index. New directories are watched as they appear.
package pipeline
