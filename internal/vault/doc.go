// Package vault reads an on-disk notes directory and turns files into
// classified documents for the chunking pipeline.
//
// A note is a markdown or plain-text file, optionally opening with a
// frontmatter block:
//
//	---
//	type: episodic
//	session: session-42
//	created: 2026-08-01T09:30:00Z
//	---
//	## Perception
//	...
//
// Classification precedence: frontmatter `type:`, then the note's
// top-level directory (episodic/, procedures/, decisions/, ...), then
// generic document. Content hashes support incremental re-ingest: a note
// whose hash is unchanged is skipped by the pipeline.
package vault
