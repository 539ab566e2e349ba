package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables read by NewFromEnv.
const (
	EnvProvider       = "MEMWEAVE_EMBEDDING_PROVIDER"
	EnvModel          = "MEMWEAVE_EMBEDDING_MODEL"
	EnvOllamaEndpoint = "MEMWEAVE_OLLAMA_ENDPOINT"
	EnvOpenAIAPIKey   = "OPENAI_API_KEY"
)

// Config holds embedder configuration.
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	Endpoint  string // Ollama only
	CacheSize int
}

// NewFromEnv creates an embedder from environment variables.
// Priority:
//  1. MEMWEAVE_EMBEDDING_PROVIDER (openai, ollama, local)
//  2. OPENAI_API_KEY present selects openai
//  3. local otherwise
func NewFromEnv() (Embedder, error) {
	cfg := Config{
		Provider:  os.Getenv(EnvProvider),
		APIKey:    os.Getenv(EnvOpenAIAPIKey),
		Model:     os.Getenv(EnvModel),
		Endpoint:  os.Getenv(EnvOllamaEndpoint),
		CacheSize: DefaultCacheSize,
	}
	if cfg.Provider == "" {
		cfg.Provider = DetectProvider()
	}
	return New(cfg)
}

// New creates an embedder with explicit configuration.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cache)
	case ProviderOllama:
		return NewOllamaProvider(cfg.Endpoint, cfg.Model, cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// DetectProvider returns the provider NewFromEnv would pick.
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}
