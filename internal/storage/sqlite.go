package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Vault operations

func (s *SQLiteStorage) CreateVault(ctx context.Context, vault *Vault) error {
	query := `
		INSERT INTO vaults (root_path, index_version, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`
	now := time.Now()
	result, err := s.db.ExecContext(ctx, query, vault.RootPath, vault.IndexVersion, now, now)
	if err != nil {
		return fmt.Errorf("failed to create vault: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	vault.ID = id
	vault.CreatedAt = now
	vault.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) GetVault(ctx context.Context, rootPath string) (*Vault, error) {
	query := `
		SELECT id, root_path, total_notes, total_chunks, index_version,
		       last_ingested_at, created_at, updated_at
		FROM vaults
		WHERE root_path = ?
	`
	var vault Vault
	var lastIngestedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, rootPath).Scan(
		&vault.ID, &vault.RootPath, &vault.TotalNotes, &vault.TotalChunks,
		&vault.IndexVersion, &lastIngestedAt, &vault.CreatedAt, &vault.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastIngestedAt.Valid {
		vault.LastIngestedAt = lastIngestedAt.Time
	}
	return &vault, nil
}

func (s *SQLiteStorage) UpdateVault(ctx context.Context, vault *Vault) error {
	query := `
		UPDATE vaults
		SET total_notes = ?, total_chunks = ?, index_version = ?,
		    last_ingested_at = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		vault.TotalNotes, vault.TotalChunks, vault.IndexVersion,
		vault.LastIngestedAt, now, vault.ID)
	if err != nil {
		return fmt.Errorf("failed to update vault: %w", err)
	}
	vault.UpdatedAt = now
	return nil
}

// Note operations

func (s *SQLiteStorage) UpsertNote(ctx context.Context, note *Note) error {
	query := `
		INSERT INTO notes (vault_id, note_path, document_id, content_type, content_hash,
		                   mod_time, size_bytes, last_ingested_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(vault_id, note_path) DO UPDATE SET
			document_id = excluded.document_id,
			content_type = excluded.content_type,
			content_hash = excluded.content_hash,
			mod_time = excluded.mod_time,
			size_bytes = excluded.size_bytes,
			last_ingested_at = excluded.last_ingested_at,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		note.VaultID, note.NotePath, note.DocumentID, note.ContentType,
		note.ContentHash[:], note.ModTime, note.SizeBytes, now, now, now).Scan(&note.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert note: %w", err)
	}

	note.LastIngestedAt = now
	note.UpdatedAt = now
	return nil
}

const noteColumns = `id, vault_id, note_path, document_id, content_type, content_hash,
       mod_time, size_bytes, last_ingested_at, created_at, updated_at`

func scanNote(row interface{ Scan(...interface{}) error }) (*Note, error) {
	var note Note
	var hash []byte
	err := row.Scan(
		&note.ID, &note.VaultID, &note.NotePath, &note.DocumentID, &note.ContentType,
		&hash, &note.ModTime, &note.SizeBytes, &note.LastIngestedAt,
		&note.CreatedAt, &note.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	copy(note.ContentHash[:], hash)
	return &note, nil
}

func (s *SQLiteStorage) GetNote(ctx context.Context, vaultID int64, notePath string) (*Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE vault_id = ? AND note_path = ?`
	note, err := scanNote(s.db.QueryRowContext(ctx, query, vaultID, notePath))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return note, err
}

func (s *SQLiteStorage) DeleteNote(ctx context.Context, noteID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", noteID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListNotes(ctx context.Context, vaultID int64) ([]*Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE vault_id = ? ORDER BY note_path`
	rows, err := s.db.QueryContext(ctx, query, vaultID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var notes []*Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// Chunk operations

const chunkColumns = `id, note_id, document_id, source_path, sequence_index, content,
       token_count, overlap_tokens, content_type, memory_level, strategy, boundary,
       session_id, procedure_id, processing_stage, parent_id, prev_id, next_id,
       concepts, entities, summary, context_before, context_after, confidence,
       source_timestamp, created_at`

// ReplaceNoteChunks deletes a note's existing chunks and inserts the new
// set with embeddings in one transaction.
func (s *SQLiteStorage) ReplaceNoteChunks(ctx context.Context, noteID int64, chunks []*Chunk, embeddings []*Embedding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE note_id = ?", noteID); err != nil {
		return fmt.Errorf("failed to delete old chunks: %w", err)
	}

	insertChunk := `
		INSERT INTO chunks (` + chunkColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := tx.ExecContext(ctx, insertChunk,
			c.ID, noteID, c.DocumentID, c.SourcePath, c.SequenceIndex, c.Content,
			c.TokenCount, c.OverlapTokens, c.ContentType, c.MemoryLevel, c.Strategy, c.Boundary,
			c.SessionID, c.ProcedureID, c.ProcessingStage, c.ParentID, c.PrevID, c.NextID,
			marshalStrings(c.Concepts), marshalStrings(c.Entities), c.Summary,
			c.ContextBefore, c.ContextAfter, c.Confidence, c.SourceTimestamp, createdAt)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}

	insertEmbedding := `
		INSERT INTO embeddings (chunk_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, e := range embeddings {
		if _, err := tx.ExecContext(ctx, insertEmbedding,
			e.ChunkID, e.Vector, e.Dimension, e.Provider, e.Model, now); err != nil {
			return fmt.Errorf("failed to insert embedding for chunk %s: %w", e.ChunkID, err)
		}
	}

	return tx.Commit()
}

func scanChunk(row interface{ Scan(...interface{}) error }) (*Chunk, error) {
	var c Chunk
	var concepts, entities sql.NullString
	var sourceTimestamp sql.NullTime
	var sourcePath, sessionID, procedureID, stage sql.NullString
	var parentID, prevID, nextID, summary, ctxBefore, ctxAfter sql.NullString
	err := row.Scan(
		&c.ID, &c.NoteID, &c.DocumentID, &sourcePath, &c.SequenceIndex, &c.Content,
		&c.TokenCount, &c.OverlapTokens, &c.ContentType, &c.MemoryLevel, &c.Strategy, &c.Boundary,
		&sessionID, &procedureID, &stage, &parentID, &prevID, &nextID,
		&concepts, &entities, &summary, &ctxBefore, &ctxAfter, &c.Confidence,
		&sourceTimestamp, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.SourcePath = sourcePath.String
	c.SessionID = sessionID.String
	c.ProcedureID = procedureID.String
	c.ProcessingStage = stage.String
	c.ParentID = parentID.String
	c.PrevID = prevID.String
	c.NextID = nextID.String
	c.Summary = summary.String
	c.ContextBefore = ctxBefore.String
	c.ContextAfter = ctxAfter.String
	c.Concepts = unmarshalStrings(concepts.String)
	c.Entities = unmarshalStrings(entities.String)
	if sourceTimestamp.Valid {
		ts := sourceTimestamp.Time
		c.SourceTimestamp = &ts
	}
	return &c, nil
}

func (s *SQLiteStorage) GetChunk(ctx context.Context, chunkID string) (*Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE id = ?`
	chunk, err := scanChunk(s.db.QueryRowContext(ctx, query, chunkID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return chunk, err
}

// GetChunks fetches several chunks by ID. Missing IDs are silently
// absent from the result; order follows document position.
func (s *SQLiteStorage) GetChunks(ctx context.Context, chunkIDs []string) ([]*Chunk, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(chunkIDs))
	placeholders = placeholders[:len(placeholders)-1]
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE id IN (` + placeholders + `)
	          ORDER BY document_id, sequence_index`

	args := make([]interface{}, len(chunkIDs))
	for i, id := range chunkIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectChunks(rows)
}

func (s *SQLiteStorage) ListChunksByNote(ctx context.Context, noteID int64) ([]*Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE note_id = ? ORDER BY sequence_index`
	rows, err := s.db.QueryContext(ctx, query, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectChunks(rows)
}

func collectChunks(rows *sql.Rows) ([]*Chunk, error) {
	var chunks []*Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) DeleteChunksByNote(ctx context.Context, noteID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE note_id = ?", noteID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// Embedding operations

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, chunkID string) (*Embedding, error) {
	query := `
		SELECT id, chunk_id, vector, dimension, provider, model, created_at
		FROM embeddings
		WHERE chunk_id = ?
	`
	var e Embedding
	err := s.db.QueryRowContext(ctx, query, chunkID).Scan(
		&e.ID, &e.ChunkID, &e.Vector, &e.Dimension, &e.Provider, &e.Model, &e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, vaultID int64, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	return searchVector(ctx, s.db, vaultID, vector, limit, filters)
}

func (s *SQLiteStorage) SearchText(ctx context.Context, vaultID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return searchText(ctx, s.db, vaultID, query, limit, filters)
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context, vaultID int64) (*VaultStatus, error) {
	var vault Vault
	var lastIngestedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, root_path, total_notes, total_chunks, index_version,
		       last_ingested_at, created_at, updated_at
		FROM vaults WHERE id = ?
	`, vaultID).Scan(
		&vault.ID, &vault.RootPath, &vault.TotalNotes, &vault.TotalChunks,
		&vault.IndexVersion, &lastIngestedAt, &vault.CreatedAt, &vault.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastIngestedAt.Valid {
		vault.LastIngestedAt = lastIngestedAt.Time
	}

	status := &VaultStatus{
		Vault:          &vault,
		LastIngestedAt: vault.LastIngestedAt,
		Health: HealthStatus{
			DatabaseAccessible: true,
			FTSIndexesBuilt:    true,
		},
	}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notes WHERE vault_id = ?", vaultID).Scan(&status.NotesCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chunks c
		INNER JOIN notes n ON c.note_id = n.id
		WHERE n.vault_id = ?
	`, vaultID).Scan(&status.ChunksCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM embeddings e
		INNER JOIN chunks c ON e.chunk_id = c.id
		INNER JOIN notes n ON c.note_id = n.id
		WHERE n.vault_id = ?
	`, vaultID).Scan(&status.EmbeddingsCount); err != nil {
		return nil, err
	}
	status.Health.EmbeddingsAvailable = status.EmbeddingsCount > 0

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
		}
	}

	return status, nil
}

// marshalStrings serializes a string slice as JSON; empty slices store NULL.
func marshalStrings(values []string) interface{} {
	if len(values) == 0 {
		return nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return string(data)
}

func unmarshalStrings(data string) []string {
	if data == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil
	}
	return values
}
