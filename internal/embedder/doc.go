// Package embedder generates vector embeddings for memory chunks.
//
// # Providers
//
// Three providers implement the Embedder interface:
//
//   - openai: the OpenAI embeddings API (requires OPENAI_API_KEY)
//   - ollama: a local Ollama server via its OpenAI-compatible /v1
//     endpoint (no key required)
//   - local: a deterministic hash-based embedder with no network
//     dependency, used for tests and offline vaults
//
// OpenAI and Ollama share one HTTP implementation since they speak the
// same wire format. Provider selection happens in NewFromEnv:
// MEMWEAVE_EMBEDDING_PROVIDER wins, then an OPENAI_API_KEY implies
// openai, then local.
//
// # Caching
//
// Embeddings are cached in an LRU keyed by the SHA-256 of the text.
// Re-ingesting an unchanged vault hits the cache for every chunk. Cache
// reads return deep copies so callers cannot mutate cached vectors.
//
// # Retry
//
// HTTP providers retry failed calls with exponential backoff (3
// attempts, 100ms base, 2x multiplier, 5s cap). Context cancellation
// aborts the retry loop immediately.
package embedder
