package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/memweave/memweave/internal/chunker"
	"github.com/memweave/memweave/internal/embedder"
	"github.com/memweave/memweave/internal/storage"
	"github.com/memweave/memweave/internal/vault"
	"github.com/memweave/memweave/pkg/types"
)

// ErrIngestInProgress is returned when an ingest run is already active.
var ErrIngestInProgress = errors.New("ingest already in progress")

// Pipeline coordinates the ingest flow: discover -> chunk -> embed -> store.
type Pipeline struct {
	vault    *vault.Vault
	selector *chunker.Selector
	embedder embedder.Embedder
	storage  storage.Storage

	workers int
	lock    IngestLock
}

// Config contains configuration for an ingest run.
type Config struct {
	Workers        int // concurrent note workers (default: runtime.NumCPU())
	EmbedBatchSize int // texts per embedding call (default: embedder.DefaultBatchSize)

	// Overrides replaces the strategy default config per content type.
	// Absent entries use each strategy's defaults.
	Overrides map[types.ContentType]*types.ChunkingConfig
}

// Statistics summarizes an ingest run.
type Statistics struct {
	NotesIngested     int
	NotesSkipped      int
	NotesFailed       int
	ChunksCreated     int
	EmbeddingsCreated int
	Duration          time.Duration
	Warnings          []string
	ErrorMessages     []string
}

// New creates a Pipeline.
func New(v *vault.Vault, sel *chunker.Selector, emb embedder.Embedder, store storage.Storage) *Pipeline {
	return &Pipeline{
		vault:    v,
		selector: sel,
		embedder: emb,
		storage:  store,
		workers:  runtime.NumCPU(),
	}
}

// IngestVault ingests every note in the vault. Notes whose content hash
// is unchanged are skipped. Only one ingest runs at a time.
func (p *Pipeline) IngestVault(ctx context.Context, config *Config) (*Statistics, error) {
	if !p.lock.TryAcquire() {
		return nil, ErrIngestInProgress
	}
	defer p.lock.Release()

	if config == nil {
		config = &Config{}
	}
	workers := config.Workers
	if workers <= 0 {
		workers = p.workers
	}

	startTime := time.Now()
	stats := &Statistics{}

	vaultRec, err := p.getOrCreateVault(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create vault: %w", err)
	}

	paths, err := p.vault.Discover()
	if err != nil {
		return nil, fmt.Errorf("failed to discover notes: %w", err)
	}

	var (
		ingested, skipped, failed int32
		chunks, embeddings        int32
		mu                        sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, relPath := range paths {
		relPath := relPath
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			res, err := p.ingestNote(gctx, vaultRec.ID, relPath, config)
			if err != nil {
				atomic.AddInt32(&failed, 1)
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", relPath, err))
				mu.Unlock()
				return nil // one bad note does not stop the run
			}
			if res.skipped {
				atomic.AddInt32(&skipped, 1)
				return nil
			}
			atomic.AddInt32(&ingested, 1)
			atomic.AddInt32(&chunks, int32(res.chunks))
			atomic.AddInt32(&embeddings, int32(res.embeddings))
			if len(res.warnings) > 0 {
				mu.Lock()
				for _, w := range res.warnings {
					stats.Warnings = append(stats.Warnings, fmt.Sprintf("%s: %s", relPath, w))
				}
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.NotesIngested = int(ingested)
	stats.NotesSkipped = int(skipped)
	stats.NotesFailed = int(failed)
	stats.ChunksCreated = int(chunks)
	stats.EmbeddingsCreated = int(embeddings)
	stats.Duration = time.Since(startTime)

	if err := p.updateVaultStats(ctx, vaultRec); err != nil {
		return nil, fmt.Errorf("failed to update vault stats: %w", err)
	}

	return stats, nil
}

// IngestNote ingests one note by its vault-relative path. Used by the
// watcher and the single-note tool path; bypasses the run lock.
func (p *Pipeline) IngestNote(ctx context.Context, relPath string) (*Statistics, error) {
	startTime := time.Now()

	vaultRec, err := p.getOrCreateVault(ctx)
	if err != nil {
		return nil, err
	}

	res, err := p.ingestNote(ctx, vaultRec.ID, relPath, &Config{})
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		ChunksCreated:     res.chunks,
		EmbeddingsCreated: res.embeddings,
		Warnings:          res.warnings,
		Duration:          time.Since(startTime),
	}
	if res.skipped {
		stats.NotesSkipped = 1
	} else {
		stats.NotesIngested = 1
	}

	if err := p.updateVaultStats(ctx, vaultRec); err != nil {
		return nil, err
	}
	return stats, nil
}

// RemoveNote drops a deleted note and its chunks from the index.
func (p *Pipeline) RemoveNote(ctx context.Context, relPath string) error {
	vaultRec, err := p.storage.GetVault(ctx, p.vault.Root())
	if err == storage.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	note, err := p.storage.GetNote(ctx, vaultRec.ID, relPath)
	if err == storage.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	if err := p.storage.DeleteNote(ctx, note.ID); err != nil {
		return err
	}
	return p.updateVaultStats(ctx, vaultRec)
}

type noteResult struct {
	skipped    bool
	chunks     int
	embeddings int
	warnings   []string
}

func (p *Pipeline) ingestNote(ctx context.Context, vaultID int64, relPath string, config *Config) (*noteResult, error) {
	note, err := p.vault.Load(relPath)
	if err != nil {
		return nil, err
	}

	// Unchanged notes are skipped without chunking.
	existing, err := p.storage.GetNote(ctx, vaultID, relPath)
	if err != nil && err != storage.ErrNotFound {
		return nil, err
	}
	if existing != nil && existing.ContentHash == note.ContentHash {
		return &noteResult{skipped: true}, nil
	}

	doc := note.Document
	result, err := p.selector.ChunkDocument(doc, config.Overrides[doc.ContentType])
	if err != nil {
		return nil, fmt.Errorf("failed to chunk note: %w", err)
	}

	record := &storage.Note{
		VaultID:     vaultID,
		NotePath:    relPath,
		DocumentID:  doc.ID,
		ContentType: string(doc.ContentType),
		ContentHash: note.ContentHash,
		ModTime:     note.ModTime,
		SizeBytes:   note.SizeBytes,
	}
	if err := p.storage.UpsertNote(ctx, record); err != nil {
		return nil, err
	}

	embeddings, err := p.embedChunks(ctx, result.Chunks, config)
	if err != nil {
		return nil, err
	}

	storageChunks := make([]*storage.Chunk, len(result.Chunks))
	for i, c := range result.Chunks {
		sc := storage.FromChunk(c, record.ID)
		sc.SourcePath = relPath
		storageChunks[i] = sc
	}

	if err := p.storage.ReplaceNoteChunks(ctx, record.ID, storageChunks, embeddings); err != nil {
		return nil, err
	}

	return &noteResult{
		chunks:     len(storageChunks),
		embeddings: len(embeddings),
		warnings:   result.Warnings,
	}, nil
}

// embedChunks embeds chunk contents in provider-sized batches. The text
// sent is FullContent, so captured context frames the embedding.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []*types.Chunk, config *Config) ([]*storage.Embedding, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	batchSize := config.EmbedBatchSize
	if batchSize <= 0 || batchSize > embedder.MaxBatchSize {
		batchSize = embedder.DefaultBatchSize
	}

	embeddings := make([]*storage.Embedding, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.FullContent()
		}

		resp, err := p.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(resp.Embeddings) != len(batch) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(resp.Embeddings), len(batch))
		}

		for i, emb := range resp.Embeddings {
			embeddings = append(embeddings, &storage.Embedding{
				ChunkID:   batch[i].ID,
				Vector:    storage.SerializeVector(emb.Vector),
				Dimension: emb.Dimension,
				Provider:  emb.Provider,
				Model:     emb.Model,
			})
		}
	}

	return embeddings, nil
}

func (p *Pipeline) getOrCreateVault(ctx context.Context) (*storage.Vault, error) {
	vaultRec, err := p.storage.GetVault(ctx, p.vault.Root())
	if err == nil {
		return vaultRec, nil
	}
	if err != storage.ErrNotFound {
		return nil, err
	}

	vaultRec = &storage.Vault{
		RootPath:     p.vault.Root(),
		IndexVersion: storage.CurrentSchemaVersion,
	}
	if err := p.storage.CreateVault(ctx, vaultRec); err != nil {
		return nil, err
	}
	return vaultRec, nil
}

func (p *Pipeline) updateVaultStats(ctx context.Context, vaultRec *storage.Vault) error {
	status, err := p.storage.GetStatus(ctx, vaultRec.ID)
	if err != nil {
		return err
	}

	vaultRec.TotalNotes = status.NotesCount
	vaultRec.TotalChunks = status.ChunksCount
	vaultRec.LastIngestedAt = time.Now()
	return p.storage.UpdateVault(ctx, vaultRec)
}
