package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/memweave/memweave/internal/chunker"
	"github.com/memweave/memweave/internal/embedder"
	"github.com/memweave/memweave/internal/pipeline"
	"github.com/memweave/memweave/internal/searcher"
	"github.com/memweave/memweave/internal/storage"
	"github.com/memweave/memweave/internal/vault"
)

const (
	// ServerName is the MCP server name
	ServerName = "memweave"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	vault    *vault.Vault
	selector *chunker.Selector
	pipeline *pipeline.Pipeline
	searcher *searcher.Searcher
}

// NewServer creates an MCP server over the given vault. An empty dbPath
// stores the index under ~/.memweave.
func NewServer(vaultRoot, dbPath string) (*Server, error) {
	if vaultRoot == "" {
		return nil, fmt.Errorf("vault root is required")
	}
	absRoot, err := filepath.Abs(vaultRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault root: %w", err)
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("vault root is not a directory: %s", absRoot)
	}

	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbDir := filepath.Join(home, ".memweave")
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dbPath = filepath.Join(dbDir, "memweave.db")
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	v := vault.New(absRoot)
	sel := chunker.NewSelector()

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		storage:  store,
		vault:    v,
		selector: sel,
		pipeline: pipeline.New(v, sel, emb, store),
		searcher: searcher.NewSearcher(store, emb),
	}
	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	return server.ServeStdio(s.mcp)
}

// Watch runs the vault file watcher until the context is cancelled.
func (s *Server) Watch(ctx context.Context) error {
	return pipeline.NewWatcher(s.pipeline).Run(ctx)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(chunkDocumentTool(), s.handleChunkDocument)
	s.mcp.AddTool(ingestVaultTool(), s.handleIngestVault)
	s.mcp.AddTool(searchMemoryTool(), s.handleSearchMemory)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
