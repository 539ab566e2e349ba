package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// chunkDocumentTool returns the tool definition for chunk_document
func chunkDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "chunk_document",
		Description: "Split a document into memory chunks using the strategy for its content type, without storing anything",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Document text to chunk",
				},
				"content_type": map[string]interface{}{
					"type":        "string",
					"description": "Content classification; unknown values fall back to semantic chunking",
					"enum":        []string{"episodic", "semantic", "preference", "procedural", "working", "generic_document"},
					"default":     "generic_document",
				},
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session identifier recorded on every chunk",
				},
				"config": map[string]interface{}{
					"type":        "object",
					"description": "Optional strategy configuration; omitted fields use strategy defaults",
					"properties": map[string]interface{}{
						"max_tokens": map[string]interface{}{
							"type":        "integer",
							"description": "Maximum tokens per chunk",
						},
						"overlap_tokens": map[string]interface{}{
							"type":        "integer",
							"description": "Overlap budget carried between adjacent chunks",
						},
						"include_context": map[string]interface{}{
							"type":        "boolean",
							"description": "Attach surrounding context to chunk metadata",
						},
						"context_window": map[string]interface{}{
							"type":        "integer",
							"description": "Sentences or lines of context per side",
						},
						"similarity_threshold": map[string]interface{}{
							"type":        "number",
							"description": "Semantic strategy: boundary threshold (0.0-1.0)",
						},
						"min_chunk_tokens": map[string]interface{}{
							"type":        "integer",
							"description": "Semantic strategy: suppress boundaries below this buffer size",
						},
						"temporal_linking": map[string]interface{}{
							"type":        "boolean",
							"description": "Event strategy: link chunks in emission order",
						},
						"decision_keywords": map[string]interface{}{
							"type":        "array",
							"description": "Preference strategy: keywords marking decision points",
							"items":       map[string]interface{}{"type": "string"},
						},
						"step_delimiters": map[string]interface{}{
							"type":        "array",
							"description": "Step strategy: line prefixes that start a new step",
							"items":       map[string]interface{}{"type": "string"},
						},
					},
				},
			},
			Required: []string{"content"},
		},
	}
}

// ingestVaultTool returns the tool definition for ingest_vault
func ingestVaultTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_vault",
		Description: "Ingest the memory vault: chunk, embed, and index every changed note",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"note": map[string]interface{}{
					"type":        "string",
					"description": "Vault-relative path of a single note to ingest; omit to ingest the whole vault",
				},
			},
		},
	}
}

// searchMemoryTool returns the tool definition for search_memory
func searchMemoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_memory",
		Description: "Search indexed memory chunks with natural language or keyword queries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"search_mode": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy: hybrid (vector + keyword), vector (semantic only), or keyword (BM25 only)",
					"enum":        []string{"hybrid", "vector", "keyword"},
					"default":     "hybrid",
				},
				"filters": map[string]interface{}{
					"type":        "object",
					"description": "Optional filters to narrow search",
					"properties": map[string]interface{}{
						"content_types": map[string]interface{}{
							"type":        "array",
							"description": "Filter by chunk content type",
							"items": map[string]interface{}{
								"type": "string",
								"enum": []string{"episodic", "semantic", "preference", "procedural", "working", "generic_document"},
							},
						},
						"memory_levels": map[string]interface{}{
							"type":        "array",
							"description": "Filter by memory level",
							"items": map[string]interface{}{
								"type": "string",
								"enum": []string{"atomic", "episodic", "semantic", "strategic"},
							},
						},
						"strategies": map[string]interface{}{
							"type":        "array",
							"description": "Filter by chunking strategy",
							"items": map[string]interface{}{
								"type": "string",
								"enum": []string{"event_boundary", "semantic_boundary", "preference_signal", "step_boundary"},
							},
						},
						"session_id": map[string]interface{}{
							"type":        "string",
							"description": "Filter by session identifier",
						},
						"path_pattern": map[string]interface{}{
							"type":        "string",
							"description": "Glob pattern for note paths (e.g., 'episodic/*')",
						},
						"min_relevance": map[string]interface{}{
							"type":        "number",
							"description": "Minimum relevance score threshold (0.0-1.0)",
							"minimum":     0.0,
							"maximum":     1.0,
						},
					},
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query ingest status and statistics for the memory vault",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
