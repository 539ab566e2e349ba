package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/memweave/memweave/internal/mcp"
	"github.com/memweave/memweave/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	vaultRoot := flag.String("vault", "", "path to the memory vault (or MEMWEAVE_VAULT)")
	dbPath := flag.String("db", "", "path to the index database (default ~/.memweave/memweave.db)")
	watch := flag.Bool("watch", false, "re-ingest notes as they change on disk")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Memweave MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		fmt.Printf("Vector Extension: %v\n", storage.VectorExtensionAvailable)
		os.Exit(0)
	}

	// Log startup info to stderr (stdout reserved for MCP protocol)
	log.SetOutput(os.Stderr)
	log.Printf("Memweave MCP Server v%s starting...", version)
	log.Printf("Build Mode: %s, Driver: %s, Vector Extension: %v",
		storage.BuildMode, storage.DriverName, storage.VectorExtensionAvailable)

	root := *vaultRoot
	if root == "" {
		root = os.Getenv("MEMWEAVE_VAULT")
	}
	if root == "" {
		log.Fatal("vault root is required: pass -vault or set MEMWEAVE_VAULT")
	}

	db := *dbPath
	if db == "" {
		db = os.Getenv("MEMWEAVE_DB_PATH")
	}

	server, err := mcp.NewServer(root, db)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if *watch {
		go func() {
			log.Printf("Watching vault %s for changes...", root)
			if err := server.Watch(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Watcher stopped: %v", err)
			}
		}()
	}

	errChan := make(chan error, 1)
	go func() {
		log.Println("MCP server ready, listening on stdio...")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}

	log.Println("Server stopped")
}
