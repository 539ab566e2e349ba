package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/memweave/memweave/internal/embedder"
	"github.com/memweave/memweave/internal/storage"
	"github.com/memweave/memweave/pkg/types"
)

// SearchMode defines how search is performed
type SearchMode string

const (
	SearchModeHybrid  SearchMode = "hybrid"  // Vector + BM25 with RRF
	SearchModeVector  SearchMode = "vector"  // Vector similarity only
	SearchModeKeyword SearchMode = "keyword" // BM25 text search only
)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query       string
	Limit       int
	Mode        SearchMode
	Filters     *storage.SearchFilters
	VaultID     int64
	UseCache    bool
	CacheTTL    time.Duration
	RRFConstant float64 // k value for Reciprocal Rank Fusion (default 60)
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results       []types.SearchResult
	TotalResults  int
	SearchMode    SearchMode
	Duration      time.Duration
	CacheHit      bool
	VectorResults int
	TextResults   int
}

// cacheEntry is a cached response with its expiry.
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher coordinates vector and keyword search over stored chunks.
type Searcher struct {
	storage  storage.Storage
	embedder embedder.Embedder
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// NewSearcher creates a Searcher.
func NewSearcher(storage storage.Storage, embedder embedder.Embedder) *Searcher {
	cache, err := lru.New[[32]byte, *cacheEntry](1000)
	if err != nil {
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		storage:  storage,
		embedder: embedder,
		cache:    cache,
	}
}

// Search runs a query per the request parameters.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not initialized")
	}
	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	if req.UseCache {
		if cached, err := s.checkCache(req); err == nil && cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	var response *SearchResponse
	var err error
	switch req.Mode {
	case SearchModeHybrid:
		response, err = s.hybridSearch(ctx, req)
	case SearchModeVector:
		response, err = s.vectorSearch(ctx, req)
	case SearchModeKeyword:
		response, err = s.keywordSearch(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported search mode: %s", req.Mode)
	}
	if err != nil {
		return nil, err
	}

	response.Duration = time.Since(startTime)
	response.SearchMode = req.Mode

	if req.UseCache && len(response.Results) > 0 {
		s.storeInCache(req, response)
	}

	return response, nil
}

// searchResult holds results from concurrent search operations
type searchResult struct {
	vectorResults []storage.VectorResult
	textResults   []storage.TextResult
	err           error
}

func (s *Searcher) runVectorSearch(ctx context.Context, req SearchRequest, resultChan chan<- searchResult) {
	var res searchResult
	embedding, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query})
	if err != nil {
		res.err = fmt.Errorf("failed to generate query embedding: %w", err)
	} else {
		res.vectorResults, res.err = s.storage.SearchVector(ctx, req.VaultID, embedding.Vector, req.Limit*2, req.Filters)
	}
	select {
	case resultChan <- res:
	case <-ctx.Done():
	}
}

func (s *Searcher) runTextSearch(ctx context.Context, req SearchRequest, resultChan chan<- searchResult) {
	var res searchResult
	res.textResults, res.err = s.storage.SearchText(ctx, req.VaultID, req.Query, req.Limit*2, req.Filters)
	select {
	case resultChan <- res:
	case <-ctx.Done():
	}
}

// hybridSearch combines vector and BM25 search using Reciprocal Rank
// Fusion. The two searches run concurrently; one may fail as long as
// the other succeeds.
func (s *Searcher) hybridSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	vectorChan := make(chan searchResult, 1)
	textChan := make(chan searchResult, 1)

	go s.runVectorSearch(ctx, req, vectorChan)
	go s.runTextSearch(ctx, req, textChan)

	var vectorRes, textRes searchResult
	var vectorDone, textDone bool
	for !vectorDone || !textDone {
		select {
		case vectorRes = <-vectorChan:
			vectorDone = true
		case textRes = <-textChan:
			textDone = true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if vectorRes.err != nil && textRes.err != nil {
		return nil, fmt.Errorf("both searches failed: vector=%w, text=%v", vectorRes.err, textRes.err)
	}

	rrf := applyRRF(vectorRes.vectorResults, textRes.textResults, req.RRFConstant)
	results, err := s.fetchResults(ctx, rrf, req.Limit)
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		Results:       results,
		TotalResults:  len(results),
		VectorResults: len(vectorRes.vectorResults),
		TextResults:   len(textRes.textResults),
	}, nil
}

func (s *Searcher) vectorSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	embedding, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	vectorResults, err := s.storage.SearchVector(ctx, req.VaultID, embedding.Vector, req.Limit, req.Filters)
	if err != nil {
		return nil, err
	}

	ranked := make([]rankedResult, len(vectorResults))
	for i, vr := range vectorResults {
		ranked[i] = rankedResult{chunkID: vr.ChunkID, score: vr.SimilarityScore, rank: i + 1}
	}

	results, err := s.fetchResults(ctx, ranked, req.Limit)
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		Results:       results,
		TotalResults:  len(results),
		VectorResults: len(vectorResults),
	}, nil
}

func (s *Searcher) keywordSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	textResults, err := s.storage.SearchText(ctx, req.VaultID, req.Query, req.Limit, req.Filters)
	if err != nil {
		return nil, err
	}

	ranked := make([]rankedResult, len(textResults))
	for i, tr := range textResults {
		ranked[i] = rankedResult{chunkID: tr.ChunkID, score: tr.BM25Score, rank: i + 1}
	}

	results, err := s.fetchResults(ctx, ranked, req.Limit)
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		Results:      results,
		TotalResults: len(results),
		TextResults:  len(textResults),
	}, nil
}

// rankedResult is a chunk with its relevance score and rank.
type rankedResult struct {
	chunkID string
	score   float64
	rank    int
}

// applyRRF merges vector and text rankings.
// RRF formula: RRF(d) = sum over rankings of 1/(k + rank(d))
func applyRRF(vectorResults []storage.VectorResult, textResults []storage.TextResult, k float64) []rankedResult {
	if k == 0 {
		k = 60
	}

	scores := make(map[string]float64)
	for rank, vr := range vectorResults {
		scores[vr.ChunkID] += 1.0 / (k + float64(rank+1))
	}
	for rank, tr := range textResults {
		scores[tr.ChunkID] += 1.0 / (k + float64(rank+1))
	}

	results := make([]rankedResult, 0, len(scores))
	for chunkID, score := range scores {
		results = append(results, rankedResult{chunkID: chunkID, score: score})
	}

	sortRankedResults(results)
	for i := range results {
		results[i].rank = i + 1
	}
	return results
}

// fetchResults loads full chunk rows for the top ranked hits.
func (s *Searcher) fetchResults(ctx context.Context, ranked []rankedResult, limit int) ([]types.SearchResult, error) {
	if limit > len(ranked) {
		limit = len(ranked)
	}
	if limit == 0 {
		return []types.SearchResult{}, nil
	}

	ids := make([]string, limit)
	for i := 0; i < limit; i++ {
		ids[i] = ranked[i].chunkID
	}

	chunks, err := s.storage.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	byID := make(map[string]*storage.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	results := make([]types.SearchResult, 0, limit)
	for i := 0; i < limit; i++ {
		rr := ranked[i]
		chunk, ok := byID[rr.chunkID]
		if !ok {
			continue // chunk deleted between rank and fetch
		}

		context := chunk.ContextBefore
		if chunk.ContextAfter != "" {
			if context != "" {
				context += "\n\n"
			}
			context += chunk.ContextAfter
		}

		results = append(results, types.SearchResult{
			ChunkID:        rr.chunkID,
			Rank:           rr.rank,
			RelevanceScore: rr.score,
			Content:        chunk.Content,
			Context:        context,
			NotePath:       chunk.SourcePath,
			ContentType:    types.ContentType(chunk.ContentType),
			MemoryLevel:    types.MemoryLevel(chunk.MemoryLevel),
			Strategy:       chunk.Strategy,
			SessionID:      chunk.SessionID,
			Summary:        chunk.Summary,
			PrevID:         chunk.PrevID,
			NextID:         chunk.NextID,
		})
	}

	return results, nil
}

// validateRequest normalizes a search request in place.
func (s *Searcher) validateRequest(req *SearchRequest) error {
	if req.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}
	if req.Limit > 100 {
		req.Limit = 100
	}
	if req.Mode == "" {
		req.Mode = SearchModeHybrid
	}
	if req.RRFConstant == 0 {
		req.RRFConstant = 60
	}
	if req.CacheTTL == 0 {
		req.CacheTTL = 1 * time.Hour
	}
	return nil
}

func (s *Searcher) checkCache(req SearchRequest) (*SearchResponse, error) {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil, fmt.Errorf("cache miss")
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()
		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil, fmt.Errorf("cache expired")
	}

	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()
	return response, nil
}

func (s *Searcher) storeInCache(req SearchRequest, response *SearchResponse) {
	hash := computeQueryHash(req)
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(hash, entry)
	s.cacheMu.Unlock()
}

// copySearchResponse deep copies a response so cached entries cannot be
// mutated by callers.
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}

	dst := &SearchResponse{
		TotalResults:  src.TotalResults,
		SearchMode:    src.SearchMode,
		Duration:      src.Duration,
		CacheHit:      src.CacheHit,
		VectorResults: src.VectorResults,
		TextResults:   src.TextResults,
		Results:       make([]types.SearchResult, len(src.Results)),
	}
	copy(dst.Results, src.Results)
	return dst
}

// computeQueryHash derives a stable cache key for a request.
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(string(req.Mode))
	data.WriteString("|")
	fmt.Fprintf(&data, "%d|%d", req.VaultID, req.Limit)

	if req.Filters != nil {
		data.WriteString("|filters:")
		data.WriteString(strings.Join(req.Filters.ContentTypes, ","))
		data.WriteString("|")
		data.WriteString(strings.Join(req.Filters.MemoryLevels, ","))
		data.WriteString("|")
		data.WriteString(strings.Join(req.Filters.Strategies, ","))
		data.WriteString("|")
		data.WriteString(req.Filters.SessionID)
		data.WriteString("|")
		data.WriteString(req.Filters.PathPattern)
		data.WriteString("|")
		fmt.Fprintf(&data, "%.2f", req.Filters.MinRelevance)
	}

	return sha256.Sum256([]byte(data.String()))
}

func sortRankedResults(results []rankedResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
}

// InvalidateCache drops all cached queries. Called after an ingest run
// changes the index; the LRU has no per-vault filtering, so the whole
// cache goes.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}
