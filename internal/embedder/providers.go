package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderLocal  = "local"

	// Default models
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultOllamaModel = "nomic-embed-text"

	// Endpoints; Ollama exposes an OpenAI-compatible /v1 surface.
	OpenAIEndpoint        = "https://api.openai.com/v1/embeddings"
	DefaultOllamaEndpoint = "http://localhost:11434/v1/embeddings"

	// Dimensions
	OpenAIDimension = 1536
	OllamaDimension = 768
	LocalDimension  = 384

	// Batch limits
	DefaultBatchSize = 50
	MaxBatchSize     = 100

	// Cache
	DefaultCacheSize = 10000

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// HTTPProvider implements Embedder against any OpenAI-compatible
// embeddings endpoint. OpenAI and Ollama both speak this shape.
type HTTPProvider struct {
	name       string
	endpoint   string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
	cache      *Cache
}

// NewOpenAIProvider creates an embedder backed by the OpenAI API.
func NewOpenAIProvider(apiKey, model string, cache *Cache) (*HTTPProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return newHTTPProvider(ProviderOpenAI, OpenAIEndpoint, apiKey, model, OpenAIDimension, cache), nil
}

// NewOllamaProvider creates an embedder backed by a local Ollama server.
// No API key is required.
func NewOllamaProvider(endpoint, model string, cache *Cache) (*HTTPProvider, error) {
	if endpoint == "" {
		endpoint = DefaultOllamaEndpoint
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return newHTTPProvider(ProviderOllama, endpoint, "", model, OllamaDimension, cache), nil
}

func newHTTPProvider(name, endpoint, apiKey, model string, dimension int, cache *Cache) *HTTPProvider {
	return &HTTPProvider{
		name:      name,
		endpoint:  endpoint,
		apiKey:    apiKey,
		model:     model,
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
	}
}

func (p *HTTPProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	if p.cache != nil {
		if emb, ok := p.cache.Get(hash); ok {
			return emb, nil
		}
	}

	// Single embeds go through the batch path so caching and retry
	// behave identically.
	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: req.Model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}
	return resp.Embeddings[0], nil
}

func (p *HTTPProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	config := DefaultRetryConfig()
	embeddings, err := retryWithBackoff(ctx, config, func() ([]*Embedding, error) {
		return p.callAPI(ctx, req.Texts, model)
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, config.MaxRetries, err)
	}

	if p.cache != nil {
		for i, emb := range embeddings {
			hash := ComputeHash(req.Texts[i])
			emb.Hash = hash
			p.cache.Set(hash, emb)
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   p.name,
		Model:      model,
	}, nil
}

func (p *HTTPProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		embeddings[i] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  p.name,
			Model:     apiResp.Model,
		}
	}
	return embeddings, nil
}

func (p *HTTPProvider) Dimension() int {
	return p.dimension
}

func (p *HTTPProvider) Provider() string {
	return p.name
}

func (p *HTTPProvider) Model() string {
	return p.model
}

func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider is a deterministic hash-based embedder. It produces the
// same vector for the same text with no network, which makes it the
// default for tests and offline vaults.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates a local embedder.
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model: "local-hash",
		cache: cache,
	}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	hash := ComputeHash(req.Text)
	if l.cache != nil {
		if emb, ok := l.cache.Get(hash); ok {
			return emb, nil
		}
	}

	// Fill the vector by repeatedly hashing the text so every position
	// is populated, then normalize for cosine distance.
	vector := make([]float32, LocalDimension)
	seed := sha256.Sum256([]byte(req.Text))
	for i := 0; i < LocalDimension; i += len(seed) {
		for j := 0; j < len(seed) && i+j < LocalDimension; j++ {
			vector[i+j] = float32(seed[j])/127.5 - 1.0
		}
		seed = sha256.Sum256(seed[:])
	}
	vector = NormalizeVector(vector)

	emb := &Embedding{
		Vector:    vector,
		Dimension: LocalDimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Hash:      hash,
	}
	if l.cache != nil {
		l.cache.Set(hash, emb)
	}
	return emb, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// NormalizeVector scales a vector to unit length for cosine similarity.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}
	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}
	return result
}
