// Package mcp implements the Model Context Protocol (MCP) server for
// Memweave.
//
// The server exposes four tools to AI agents:
//   - chunk_document: Chunk a document by content type without storing it
//   - ingest_vault: Chunk, embed, and index the memory vault
//   - search_memory: Search indexed memory with hybrid/vector/keyword modes
//   - get_status: Report ingest status and index statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// stdout is reserved for protocol messages; all logging goes to stderr.
//
// # Tool: chunk_document
//
// Chunk text with the strategy registered for its content type:
//
//	Request:
//	{
//	  "name": "chunk_document",
//	  "arguments": {
//	    "content": "## Perception\nNoticed the build failing...",
//	    "content_type": "episodic",
//	    "session_id": "session-7",
//	    "config": {"max_tokens": 512, "temporal_linking": true}
//	  }
//	}
//
//	Response:
//	{
//	  "chunks": [
//	    {
//	      "id": "2f1c...",
//	      "content": "## Perception\n...",
//	      "content_type": "episodic",
//	      "memory_level": "episodic",
//	      "strategy": "event_boundary",
//	      "boundary": "event",
//	      "next_id": "8a40..."
//	    }
//	  ],
//	  "stats": {"chunk_count": 3, "strategy": "event_boundary"},
//	  "warnings": []
//	}
//
// Unknown content types fall back to semantic chunking and add a
// warning rather than failing.
//
// # Tool: ingest_vault
//
// Ingest the whole vault, or one note via the optional "note" argument:
//
//	Request:
//	{"name": "ingest_vault", "arguments": {}}
//
//	Response:
//	{
//	  "ingested": true,
//	  "notes_ingested": 42,
//	  "notes_skipped": 108,
//	  "chunks_created": 317,
//	  "embeddings_created": 317,
//	  "duration_ms": 1840
//	}
//
// Unchanged notes (matching content hash) are skipped. A second
// concurrent ingest fails with code -32002.
//
// # Tool: search_memory
//
// Search indexed chunks:
//
//	Request:
//	{
//	  "name": "search_memory",
//	  "arguments": {
//	    "query": "how did we fix the flaky deploy",
//	    "limit": 10,
//	    "search_mode": "hybrid",
//	    "filters": {"content_types": ["episodic"], "session_id": "session-7"}
//	  }
//	}
//
// Results carry chunk provenance (note path, content type, memory
// level, strategy) plus prev/next chunk IDs so callers can walk the
// temporal chain.
//
// # Tool: get_status
//
// Report vault and index statistics. Before the first ingest the
// response is {"ingested": false, ...}.
//
// # Error Handling
//
// Errors are standard JSON-RPC error responses. Codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, embedder, filesystem)
//   - -32001: Vault not ingested
//   - -32002: Ingest in progress
//   - -32004: Empty query
package mcp
