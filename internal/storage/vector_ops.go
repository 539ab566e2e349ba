package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// searchVector performs vector similarity search using cosine similarity
func searchVector(ctx context.Context, db *sql.DB, vaultID int64, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	// Use SQL-based search when sqlite-vec is available
	if VectorExtensionAvailable {
		return searchVectorOptimized(ctx, db, vaultID, queryVector, limit, filters)
	}
	// Fall back to Go-based computation for purego builds
	return searchVectorFallback(ctx, db, vaultID, queryVector, limit, filters)
}

// searchVectorOptimized uses the sqlite-vec extension to compute cosine
// distance at the database layer. Distance is converted to similarity
// (1 - distance) so both paths return the same scale.
func searchVectorOptimized(ctx context.Context, db *sql.DB, vaultID int64, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	queryVectorBlob := serializeVector(queryVector)

	query := `
		SELECT
			c.id as chunk_id,
			1.0 - vec_distance_cosine(e.vector, ?) as similarity
		FROM chunks c
		INNER JOIN embeddings e ON c.id = e.chunk_id
		INNER JOIN notes n ON c.note_id = n.id
		WHERE n.vault_id = ?
	`
	args := []interface{}{queryVectorBlob, vaultID}

	query, args = applyChunkFilters(query, args, filters)

	if filters != nil && filters.MinRelevance > 0 {
		query += " AND (1.0 - vec_distance_cosine(e.vector, ?)) >= ?"
		args = append(args, queryVectorBlob, filters.MinRelevance)
	}

	query += " ORDER BY similarity DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if limit <= 0 {
		return []VectorResult{}, nil
	}
	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var result VectorResult
		if err := rows.Scan(&result.ChunkID, &result.SimilarityScore); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// searchVectorFallback computes cosine similarity in Go. Used when the
// sqlite-vec extension is not available (purego builds).
func searchVectorFallback(ctx context.Context, db *sql.DB, vaultID int64, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	query := `
		SELECT
			c.id as chunk_id,
			e.vector
		FROM chunks c
		INNER JOIN embeddings e ON c.id = e.chunk_id
		INNER JOIN notes n ON c.note_id = n.id
		WHERE n.vault_id = ?
	`
	args := []interface{}{vaultID}

	query, args = applyChunkFilters(query, args, filters)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates, err := computeSimilarityScores(rows, queryVector, filters)
	if err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	return buildVectorResults(candidates, limit), nil
}

// searchText performs BM25 full-text search using FTS5
func searchText(ctx context.Context, db *sql.DB, vaultID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, fmt.Errorf("empty search query")
	}

	sqlQuery := `
		SELECT
			c.id as chunk_id,
			bm25(chunks_fts) as score
		FROM chunks_fts
		INNER JOIN chunks c ON c.rowid = chunks_fts.rowid
		INNER JOIN notes n ON c.note_id = n.id
		WHERE chunks_fts MATCH ?
		AND n.vault_id = ?
	`
	args := []interface{}{sanitized, vaultID}

	sqlQuery, args = applyChunkFilters(sqlQuery, args, filters)

	// BM25 scores ascend toward relevance (lower is better)
	sqlQuery += " ORDER BY score LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTextResults(rows, filters)
}

// applyChunkFilters adds WHERE clause filters shared by vector and text
// search.
func applyChunkFilters(query string, args []interface{}, filters *SearchFilters) (string, []interface{}) {
	if filters == nil {
		return query, args
	}

	query, args = appendInFilter(query, args, "c.content_type", filters.ContentTypes)
	query, args = appendInFilter(query, args, "c.memory_level", filters.MemoryLevels)
	query, args = appendInFilter(query, args, "c.strategy", filters.Strategies)

	if filters.SessionID != "" {
		query += " AND c.session_id = ?"
		args = append(args, filters.SessionID)
	}
	if filters.PathPattern != "" {
		query += " AND n.note_path GLOB ?"
		args = append(args, filters.PathPattern)
	}
	return query, args
}

func appendInFilter(query string, args []interface{}, column string, values []string) (string, []interface{}) {
	if len(values) == 0 || values[0] == "" {
		return query, args
	}
	query += " AND " + column + " IN ("
	for i, v := range values {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, v)
	}
	query += ")"
	return query, args
}

// computeSimilarityScores processes rows and computes cosine similarity
func computeSimilarityScores(rows *sql.Rows, queryVector []float32, filters *SearchFilters) ([]candidate, error) {
	candidates := make([]candidate, 0, 1000)

	for rows.Next() {
		var chunkID string
		var vectorBlob []byte
		if err := rows.Scan(&chunkID, &vectorBlob); err != nil {
			return nil, err
		}

		vector := deserializeVector(vectorBlob)
		if len(vector) != len(queryVector) {
			continue // dimension mismatch, skip
		}

		similarity := cosineSimilarity(queryVector, vector)
		if filters != nil && filters.MinRelevance > 0 && similarity < filters.MinRelevance {
			continue
		}

		candidates = append(candidates, candidate{chunkID: chunkID, score: similarity})
	}

	return candidates, rows.Err()
}

// buildVectorResults creates VectorResult slice from candidates
func buildVectorResults(candidates []candidate, limit int) []VectorResult {
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}

	results := make([]VectorResult, limit)
	for i := 0; i < limit; i++ {
		results[i] = VectorResult{
			ChunkID:         candidates[i].chunkID,
			SimilarityScore: candidates[i].score,
		}
	}
	return results
}

// collectTextResults processes text search results and normalizes scores
func collectTextResults(rows *sql.Rows, filters *SearchFilters) ([]TextResult, error) {
	results := make([]TextResult, 0)

	for rows.Next() {
		var result TextResult
		if err := rows.Scan(&result.ChunkID, &result.BM25Score); err != nil {
			return nil, err
		}

		// BM25 scores are negative, lower is better, typically in
		// [-50, 0]. Normalize to a positive (0, 1] score.
		normalizedScore := 1.0 / (1.0 + math.Abs(result.BM25Score)/50.0)
		result.BM25Score = normalizedScore

		if filters != nil && filters.MinRelevance > 0 && result.BM25Score < filters.MinRelevance {
			continue
		}

		results = append(results, result)
	}

	return results, rows.Err()
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// candidate represents a chunk with its similarity score
type candidate struct {
	chunkID string
	score   float64
}

// sortCandidates sorts candidates by score in descending order
func sortCandidates(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
}

// FTS5 operator pattern for escaping Boolean operators
var ftsOperatorPattern = regexp.MustCompile(`\b(AND|OR|NOT|NEAR)\b`)

// sanitizeFTSQuery escapes FTS5 operators and special characters so user
// queries cannot inject match syntax.
func sanitizeFTSQuery(query string) string {
	if query == "" {
		return ""
	}

	replacer := strings.NewReplacer(
		`"`, `\"`,
		`*`, `\*`,
		`(`, `\(`,
		`)`, `\)`,
	)
	escaped := replacer.Replace(query)

	escaped = ftsOperatorPattern.ReplaceAllStringFunc(escaped, func(match string) string {
		return `\` + match
	})

	return escaped
}

// SerializeVector is an exported helper for callers that store vectors
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for callers that read vectors
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for similarity scoring
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
