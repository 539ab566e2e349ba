package embedder

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbeddingServer mimics an OpenAI-compatible /v1/embeddings
// endpoint, returning a fixed-width vector per input.
func fakeEmbeddingServer(t *testing.T, dim int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type datum struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Data  []datum `json:"data"`
			Model string  `json:"model"`
		}{Model: req.Model}

		for i := range req.Input {
			vec := make([]float32, dim)
			for j := range vec {
				vec[j] = float32(i + 1)
			}
			resp.Data = append(resp.Data, datum{Embedding: vec, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestHTTPProvider_GenerateBatch(t *testing.T) {
	srv := fakeEmbeddingServer(t, 8, nil)
	defer srv.Close()

	p := newHTTPProvider(ProviderOllama, srv.URL, "", DefaultOllamaModel, 8, nil)
	defer func() { _ = p.Close() }()

	resp, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{
		Texts: []string{"first chunk", "second chunk"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 2)
	assert.Equal(t, ProviderOllama, resp.Provider)
	assert.Equal(t, 8, resp.Embeddings[0].Dimension)
	assert.Equal(t, float32(1), resp.Embeddings[0].Vector[0])
	assert.Equal(t, float32(2), resp.Embeddings[1].Vector[0])
}

func TestHTTPProvider_CacheHitSkipsAPI(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddingServer(t, 4, &calls)
	defer srv.Close()

	p := newHTTPProvider(ProviderOllama, srv.URL, "", DefaultOllamaModel, 4, NewCache(10))
	defer func() { _ = p.Close() }()

	ctx := context.Background()
	_, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "repeat"})
	require.NoError(t, err)
	_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "repeat"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPProvider_BatchTooLarge(t *testing.T) {
	p := newHTTPProvider(ProviderOpenAI, "http://unused", "key", DefaultOpenAIModel, OpenAIDimension, nil)

	texts := make([]string, MaxBatchSize+1)
	for i := range texts {
		texts[i] = "x"
	}
	_, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: texts})
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestHTTPProvider_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := newHTTPProvider(ProviderOpenAI, srv.URL, "key", DefaultOpenAIModel, OpenAIDimension, nil)
	_, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider("", "", nil)
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestLocalProvider_Deterministic(t *testing.T) {
	l, err := NewLocalProvider(nil)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: "the same text"})
	require.NoError(t, err)
	second, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: "the same text"})
	require.NoError(t, err)
	other, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: "something else"})
	require.NoError(t, err)

	assert.Equal(t, first.Vector, second.Vector)
	assert.NotEqual(t, first.Vector, other.Vector)
	assert.Len(t, first.Vector, LocalDimension)
}

func TestLocalProvider_UnitLength(t *testing.T) {
	l, err := NewLocalProvider(nil)
	require.NoError(t, err)

	emb, err := l.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "normalize me"})
	require.NoError(t, err)

	var sum float64
	for _, v := range emb.Vector {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 0.001)
}

func TestLocalProvider_Batch(t *testing.T) {
	l, err := NewLocalProvider(NewCache(10))
	require.NoError(t, err)

	resp, err := l.GenerateBatch(context.Background(), BatchEmbeddingRequest{
		Texts: []string{"a", "b", "c"},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Embeddings, 3)
	assert.Equal(t, ProviderLocal, resp.Provider)
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 0.001)
	assert.InDelta(t, 0.8, v[1], 0.001)

	zero := NormalizeVector([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestRetryWithBackoff_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: 1, MaxDelay: 10, Multiplier: 2}

	result, err := retryWithBackoff(context.Background(), cfg, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, assert.AnError
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultRetryConfig()
	_, err := retryWithBackoff(ctx, cfg, func() (int, error) {
		return 0, assert.AnError
	})
	assert.ErrorIs(t, err, context.Canceled)
}
