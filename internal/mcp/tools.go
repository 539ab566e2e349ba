package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/memweave/memweave/internal/pipeline"
	"github.com/memweave/memweave/internal/searcher"
	"github.com/memweave/memweave/internal/storage"
	"github.com/memweave/memweave/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeNotIngested      = -32001 // Vault has not been ingested yet
	ErrorCodeIngestInProgress = -32002 // Another ingest is already running
	ErrorCodeEmptyQuery       = -32004 // Query parameter is empty
)

// handleChunkDocument handles the chunk_document tool invocation. It
// runs the strategy selector over the supplied text and returns the
// chunks without storing anything.
func (s *Server) handleChunkDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	content, ok := args["content"].(string)
	if !ok || content == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "content parameter is required", map[string]interface{}{
			"param":  "content",
			"reason": "missing or empty",
		})
	}

	contentType := getStringDefault(args, "content_type", string(types.ContentDocument))
	sessionID := getStringDefault(args, "session_id", "")

	// A nil config lets the selector apply strategy defaults. Supplied
	// fields overlay the defaults of the strategy that will run.
	var config *types.ChunkingConfig
	if rawCfg, present := args["config"]; present {
		rawMap, ok := rawCfg.(map[string]interface{})
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, "config must be an object", map[string]interface{}{
				"param": "config",
			})
		}
		strategy, _ := s.selector.Select(types.ContentType(contentType))
		config = strategy.DefaultConfig()
		if err := applyConfigOverrides(rawMap, config); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid config", map[string]interface{}{
				"param":  "config",
				"reason": err.Error(),
			})
		}
	}

	doc := &types.Document{
		ID:          uuid.New().String(),
		Content:     content,
		ContentType: types.ContentType(contentType),
		SessionID:   sessionID,
	}

	result, err := s.selector.ChunkDocument(doc, config)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "chunking failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	chunks := make([]map[string]interface{}, 0, len(result.Chunks))
	for _, c := range result.Chunks {
		chunks = append(chunks, formatChunk(c))
	}

	response := map[string]interface{}{
		"chunks": chunks,
		"stats": map[string]interface{}{
			"chunk_count":  result.Stats.ChunkCount,
			"total_tokens": result.Stats.TotalTokens,
			"avg_tokens":   result.Stats.AvgTokens,
			"min_tokens":   result.Stats.MinTokens,
			"max_tokens":   result.Stats.MaxTokens,
			"strategy":     result.Stats.Strategy,
			"duration_ms":  result.Stats.Duration.Milliseconds(),
		},
	}
	if len(result.Warnings) > 0 {
		response["warnings"] = result.Warnings
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIngestVault handles the ingest_vault tool invocation
func (s *Server) handleIngestVault(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	var stats *pipeline.Statistics
	var err error
	if note := getStringDefault(args, "note", ""); note != "" {
		stats, err = s.pipeline.IngestNote(ctx, note)
	} else {
		stats, err = s.pipeline.IngestVault(ctx, nil)
	}
	if errors.Is(err, pipeline.ErrIngestInProgress) {
		return nil, newMCPError(ErrorCodeIngestInProgress, "an ingest is already running", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "ingest failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Stored chunks changed; cached search responses may be stale.
	s.searcher.InvalidateCache()

	response := map[string]interface{}{
		"ingested":           true,
		"notes_ingested":     stats.NotesIngested,
		"notes_skipped":      stats.NotesSkipped,
		"notes_failed":       stats.NotesFailed,
		"chunks_created":     stats.ChunksCreated,
		"embeddings_created": stats.EmbeddingsCreated,
		"duration_ms":        stats.Duration.Milliseconds(),
	}
	if len(stats.Warnings) > 0 {
		response["warnings"] = truncateList(stats.Warnings, 10)
		response["warning_count"] = len(stats.Warnings)
	}
	if len(stats.ErrorMessages) > 0 {
		response["errors"] = truncateList(stats.ErrorMessages, 5)
		response["error_count"] = len(stats.ErrorMessages)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchMemory handles the search_memory tool invocation
func (s *Server) handleSearchMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	searchMode := getStringDefault(args, "search_mode", "hybrid")
	if searchMode != "hybrid" && searchMode != "vector" && searchMode != "keyword" {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid search_mode", map[string]interface{}{
			"param":   "search_mode",
			"value":   searchMode,
			"allowed": []string{"hybrid", "vector", "keyword"},
		})
	}

	vaultRec, err := s.storage.GetVault(ctx, s.vault.Root())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotIngested, "vault not ingested; run ingest_vault first", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to resolve vault", map[string]interface{}{
			"error": err.Error(),
		})
	}

	req := searcher.SearchRequest{
		Query:    query,
		Limit:    limit,
		Mode:     searcher.SearchMode(searchMode),
		Filters:  parseSearchFilters(args),
		VaultID:  vaultRec.ID,
		UseCache: true,
	}

	resp, err := s.searcher.Search(ctx, req)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		entry := map[string]interface{}{
			"chunk_id":        r.ChunkID,
			"rank":            r.Rank,
			"relevance_score": r.RelevanceScore,
			"content":         r.Content,
			"note_path":       r.NotePath,
			"content_type":    string(r.ContentType),
			"memory_level":    string(r.MemoryLevel),
			"strategy":        r.Strategy,
		}
		if r.Context != "" {
			entry["context"] = r.Context
		}
		if r.SessionID != "" {
			entry["session_id"] = r.SessionID
		}
		if r.Summary != "" {
			entry["summary"] = r.Summary
		}
		if r.PrevID != "" {
			entry["prev_id"] = r.PrevID
		}
		if r.NextID != "" {
			entry["next_id"] = r.NextID
		}
		results = append(results, entry)
	}

	response := map[string]interface{}{
		"query":          query,
		"search_mode":    string(resp.SearchMode),
		"total_results":  resp.TotalResults,
		"vector_results": resp.VectorResults,
		"text_results":   resp.TextResults,
		"cache_hit":      resp.CacheHit,
		"duration_ms":    resp.Duration.Milliseconds(),
		"results":        results,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vaultRec, err := s.storage.GetVault(ctx, s.vault.Root())
	if errors.Is(err, storage.ErrNotFound) {
		response := map[string]interface{}{
			"ingested": false,
			"vault":    s.vault.Root(),
			"message":  "Vault not ingested. Use ingest_vault tool to build the index.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get vault status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status, err := s.storage.GetStatus(ctx, vaultRec.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"ingested": true,
		"vault": map[string]interface{}{
			"root":             vaultRec.RootPath,
			"index_version":    vaultRec.IndexVersion,
			"last_ingested_at": vaultRec.LastIngestedAt.Format("2006-01-02T15:04:05Z07:00"),
		},
		"statistics": map[string]interface{}{
			"notes_count":      status.NotesCount,
			"chunks_count":     status.ChunksCount,
			"embeddings_count": status.EmbeddingsCount,
			"index_size_mb":    fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
			"fts_indexes_built":    status.Health.FTSIndexesBuilt,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// applyConfigOverrides overlays the supplied config fields onto cfg.
// Absent keys keep their defaults.
func applyConfigOverrides(raw map[string]interface{}, cfg *types.ChunkingConfig) error {
	cfg.MaxTokens = getIntDefault(raw, "max_tokens", cfg.MaxTokens)
	cfg.OverlapTokens = getIntDefault(raw, "overlap_tokens", cfg.OverlapTokens)
	cfg.IncludeContext = getBoolDefault(raw, "include_context", cfg.IncludeContext)
	cfg.ContextWindow = getIntDefault(raw, "context_window", cfg.ContextWindow)
	cfg.TemporalLinking = getBoolDefault(raw, "temporal_linking", cfg.TemporalLinking)
	cfg.MinChunkTokens = getIntDefault(raw, "min_chunk_tokens", cfg.MinChunkTokens)

	if val, ok := raw["similarity_threshold"].(float64); ok {
		if val < 0 || val > 1 {
			return fmt.Errorf("similarity_threshold must be between 0.0 and 1.0")
		}
		cfg.SimilarityThreshold = val
	}
	if val, err := getStringSlice(raw, "decision_keywords"); err != nil {
		return err
	} else if val != nil {
		cfg.DecisionKeywords = val
	}
	if val, err := getStringSlice(raw, "step_delimiters"); err != nil {
		return err
	} else if val != nil {
		cfg.StepDelimiters = val
	}

	return nil
}

// parseSearchFilters extracts the optional filters object. Unknown keys
// are ignored; malformed values fall back to unfiltered.
func parseSearchFilters(args map[string]interface{}) *storage.SearchFilters {
	raw, ok := args["filters"].(map[string]interface{})
	if !ok {
		return nil
	}

	filters := &storage.SearchFilters{
		SessionID:   getStringDefault(raw, "session_id", ""),
		PathPattern: getStringDefault(raw, "path_pattern", ""),
	}
	filters.ContentTypes, _ = getStringSlice(raw, "content_types")
	filters.MemoryLevels, _ = getStringSlice(raw, "memory_levels")
	filters.Strategies, _ = getStringSlice(raw, "strategies")
	if val, ok := raw["min_relevance"].(float64); ok {
		filters.MinRelevance = val
	}
	return filters
}

// formatChunk flattens a chunk and its metadata for the tool response.
// Empty optional fields are omitted.
func formatChunk(c *types.Chunk) map[string]interface{} {
	m := c.Metadata
	entry := map[string]interface{}{
		"id":             c.ID,
		"content":        c.Content,
		"sequence_index": m.SequenceIndex,
		"content_type":   string(m.ContentType),
		"memory_level":   string(m.MemoryLevel),
		"strategy":       m.Strategy,
		"boundary":       string(m.Boundary),
		"token_count":    m.TokenCount,
	}
	if m.OverlapTokens > 0 {
		entry["overlap_tokens"] = m.OverlapTokens
	}
	if m.PrevID != "" {
		entry["prev_id"] = m.PrevID
	}
	if m.NextID != "" {
		entry["next_id"] = m.NextID
	}
	if m.ParentID != "" {
		entry["parent_id"] = m.ParentID
	}
	if len(m.ChildIDs) > 0 {
		entry["child_ids"] = m.ChildIDs
	}
	if len(m.RelatedIDs) > 0 {
		entry["related_ids"] = m.RelatedIDs
	}
	if m.SessionID != "" {
		entry["session_id"] = m.SessionID
	}
	if m.ProcedureID != "" {
		entry["procedure_id"] = m.ProcedureID
	}
	if len(m.Concepts) > 0 {
		entry["concepts"] = m.Concepts
	}
	if len(m.Entities) > 0 {
		entry["entities"] = m.Entities
	}
	if m.Confidence > 0 {
		entry["confidence"] = m.Confidence
	}
	if m.ContextBefore != "" {
		entry["context_before"] = m.ContextBefore
	}
	if m.ContextAfter != "" {
		entry["context_after"] = m.ContextAfter
	}
	if m.Summary != "" {
		entry["summary"] = m.Summary
	}
	return entry
}

// truncateList caps a string list for response payloads.
func truncateList(items []string, max int) []string {
	if len(items) <= max {
		return items
	}
	return items[:max]
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value.
// JSON numbers arrive as float64.
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts an array-of-strings parameter. Absent keys
// yield nil without error.
func getStringSlice(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key].([]interface{})
	if !ok {
		if _, present := args[key]; present {
			return nil, fmt.Errorf("%s must be an array of strings", key)
		}
		return nil, nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s must contain only strings", key)
		}
		out = append(out, str)
	}
	return out, nil
}
