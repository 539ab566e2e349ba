// Package storage persists ingested notes, chunks, and embeddings in
// SQLite.
//
// # Schema
//
// Four tables: vaults, notes, chunks, embeddings. Chunks keep the
// chunker-assigned UUID as their primary key so prev/next/parent links
// between chunks stay valid when other notes are re-ingested. Notes
// carry a content hash for incremental ingest; an unchanged hash skips
// the note entirely. Chunk content is mirrored into an FTS5 virtual
// table by triggers for BM25 keyword search.
//
// Migrations are versioned with semver and applied in order on open.
//
// # Build modes
//
// Two SQLite drivers are selected by build tag:
//
//	CGO_ENABLED=1 go build -tags "sqlite_vec,fts5"   # mattn/go-sqlite3 + sqlite-vec
//	CGO_ENABLED=0 go build -tags "purego"            # modernc.org/sqlite
//
// With sqlite-vec, cosine distance is computed in SQL. The purego build
// loads candidate vectors and ranks them in Go; same results, slower on
// large vaults.
//
// # Atomic re-ingest
//
// ReplaceNoteChunks deletes a note's chunks and inserts the replacement
// set with embeddings inside one transaction, so readers never observe
// a half-indexed note.
package storage
