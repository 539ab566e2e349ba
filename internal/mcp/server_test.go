package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memweave/memweave/internal/embedder"
)

const testNote = `---
type: episodic
session: session-7
---
## Perception
Noticed the deploy pipeline timing out on the migration step.

## Reasoning
The migration locks the chunks table while the old pods still write.

## Execution
Switched to an online migration and redeployed without downtime.
`

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	t.Setenv(embedder.EnvProvider, "local")

	root := t.TempDir()
	s, err := NewServer(root, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.storage.Close() })
	return s, root
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

// resultJSON decodes the text payload of a tool result.
func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func assertMCPCode(t *testing.T, err error, code int) {
	t.Helper()
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, code, mcpErr.Code)
}

func TestNewServer_Validation(t *testing.T) {
	t.Setenv(embedder.EnvProvider, "local")

	_, err := NewServer("", "")
	assert.Error(t, err)

	_, err = NewServer(filepath.Join(t.TempDir(), "does-not-exist"), "")
	assert.Error(t, err)
}

func TestHandleChunkDocument(t *testing.T) {
	s, _ := testServer(t)
	ctx := context.Background()

	res, err := s.handleChunkDocument(ctx, callRequest(map[string]interface{}{
		"content":      testNote,
		"content_type": "episodic",
		"session_id":   "session-7",
	}))
	require.NoError(t, err)

	out := resultJSON(t, res)
	chunks, ok := out["chunks"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, chunks)

	first := chunks[0].(map[string]interface{})
	assert.Equal(t, "episodic", first["content_type"])
	assert.Equal(t, "session-7", first["session_id"])
	assert.NotEmpty(t, first["id"])

	stats := out["stats"].(map[string]interface{})
	assert.Equal(t, "event_boundary", stats["strategy"])
	assert.Nil(t, out["warnings"])
}

func TestHandleChunkDocument_MissingContent(t *testing.T) {
	s, _ := testServer(t)

	_, err := s.handleChunkDocument(context.Background(), callRequest(map[string]interface{}{
		"content_type": "episodic",
	}))
	assertMCPCode(t, err, ErrorCodeInvalidParams)
}

func TestHandleChunkDocument_UnknownTypeFallsBack(t *testing.T) {
	s, _ := testServer(t)

	res, err := s.handleChunkDocument(context.Background(), callRequest(map[string]interface{}{
		"content":      "a short note with no particular structure",
		"content_type": "mystery",
	}))
	require.NoError(t, err)

	out := resultJSON(t, res)
	warnings, ok := out["warnings"].([]interface{})
	require.True(t, ok)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "mystery")

	stats := out["stats"].(map[string]interface{})
	assert.Equal(t, "semantic_boundary", stats["strategy"])
}

func TestHandleChunkDocument_ConfigOverlay(t *testing.T) {
	s, _ := testServer(t)
	ctx := context.Background()

	// Partial config keeps strategy defaults for the rest.
	res, err := s.handleChunkDocument(ctx, callRequest(map[string]interface{}{
		"content":      testNote,
		"content_type": "episodic",
		"config": map[string]interface{}{
			"max_tokens": float64(256),
		},
	}))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.NotEmpty(t, out["chunks"])

	_, err = s.handleChunkDocument(ctx, callRequest(map[string]interface{}{
		"content": testNote,
		"config": map[string]interface{}{
			"similarity_threshold": 1.5,
		},
	}))
	assertMCPCode(t, err, ErrorCodeInvalidParams)
}

func TestHandleIngestVault_ThenSearchAndStatus(t *testing.T) {
	s, root := testServer(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "episodic"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "episodic", "deploy.md"), []byte(testNote), 0644))

	res, err := s.handleIngestVault(ctx, callRequest(map[string]interface{}{}))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, true, out["ingested"])
	assert.Equal(t, float64(1), out["notes_ingested"])
	assert.Greater(t, out["chunks_created"], float64(0))

	res, err = s.handleSearchMemory(ctx, callRequest(map[string]interface{}{
		"query":       "migration locks the chunks table",
		"search_mode": "keyword",
	}))
	require.NoError(t, err)
	out = resultJSON(t, res)
	results, ok := out["results"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, results)
	first := results[0].(map[string]interface{})
	assert.Equal(t, filepath.Join("episodic", "deploy.md"), first["note_path"])
	assert.Equal(t, "session-7", first["session_id"])

	res, err = s.handleGetStatus(ctx, callRequest(nil))
	require.NoError(t, err)
	out = resultJSON(t, res)
	assert.Equal(t, true, out["ingested"])
	stats := out["statistics"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["notes_count"])
	assert.Greater(t, stats["chunks_count"], float64(0))
}

func TestHandleIngestVault_SingleNote(t *testing.T) {
	s, root := testServer(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(root, "idea.md"), []byte("caching thought"), 0644))

	res, err := s.handleIngestVault(ctx, callRequest(map[string]interface{}{
		"note": "idea.md",
	}))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, float64(1), out["notes_ingested"])
}

func TestHandleSearchMemory_NotIngested(t *testing.T) {
	s, _ := testServer(t)

	_, err := s.handleSearchMemory(context.Background(), callRequest(map[string]interface{}{
		"query": "anything",
	}))
	assertMCPCode(t, err, ErrorCodeNotIngested)
}

func TestHandleSearchMemory_Validation(t *testing.T) {
	s, _ := testServer(t)
	ctx := context.Background()

	_, err := s.handleSearchMemory(ctx, callRequest(map[string]interface{}{}))
	assertMCPCode(t, err, ErrorCodeEmptyQuery)

	_, err = s.handleSearchMemory(ctx, callRequest(map[string]interface{}{
		"query": "q",
		"limit": float64(0),
	}))
	assertMCPCode(t, err, ErrorCodeInvalidParams)

	_, err = s.handleSearchMemory(ctx, callRequest(map[string]interface{}{
		"query":       "q",
		"search_mode": "psychic",
	}))
	assertMCPCode(t, err, ErrorCodeInvalidParams)
}

func TestHandleGetStatus_NotIngested(t *testing.T) {
	s, _ := testServer(t)

	res, err := s.handleGetStatus(context.Background(), callRequest(nil))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, false, out["ingested"])
}

func TestArgumentHelpers(t *testing.T) {
	args := map[string]interface{}{
		"count":  float64(7),
		"flag":   true,
		"name":   "x",
		"list":   []interface{}{"a", "b"},
		"badarr": []interface{}{"a", 3},
	}

	assert.Equal(t, 7, getIntDefault(args, "count", 1))
	assert.Equal(t, 1, getIntDefault(args, "missing", 1))
	assert.True(t, getBoolDefault(args, "flag", false))
	assert.Equal(t, "x", getStringDefault(args, "name", "d"))

	list, err := getStringSlice(args, "list")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, list)

	missing, err := getStringSlice(args, "absent")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = getStringSlice(args, "badarr")
	assert.Error(t, err)
}

func TestMCPError(t *testing.T) {
	err := newMCPError(ErrorCodeEmptyQuery, "query is empty", nil)
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Contains(t, mcpErr.Error(), "-32004")
}

func TestTruncateList(t *testing.T) {
	items := []string{"a", "b", "c"}
	assert.Equal(t, items, truncateList(items, 5))
	assert.Equal(t, []string{"a", "b"}, truncateList(items, 2))
}
