package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verr "github.com/vellumsearch/vellum/internal/errors"
)

func testServer(t *testing.T, dims int, failFirst int32) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		require.Equal(t, "/api/embed", r.URL.Path)

		if n <= failFirst {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		vecs := make([][]float32, len(req.Input))
		for i := range vecs {
			vec := make([]float32, dims)
			vec[0] = float32(i + 1)
			vecs[i] = vec
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: vecs})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestEmbedBatchOrder(t *testing.T) {
	srv, _ := testServer(t, 4, 0)
	e := NewHTTPEmbedder(Config{Endpoint: srv.URL, Model: "test-model", Dimensions: 4})
	defer func() { _ = e.Close() }()

	vecs, err := e.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, float32(1), vecs[0][0])
	assert.Equal(t, float32(2), vecs[1][0])
	assert.Equal(t, float32(3), vecs[2][0])
}

func TestEmbedBlankTextIsZeroVector(t *testing.T) {
	srv, calls := testServer(t, 4, 0)
	e := NewHTTPEmbedder(Config{Endpoint: srv.URL, Model: "test-model", Dimensions: 4})
	defer func() { _ = e.Close() }()

	vecs, err := e.EmbedBatch(context.Background(), []string{"  ", "text"})
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 4), vecs[0])
	assert.Equal(t, float32(1), vecs[1][0])
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestEmbedRetriesTransientFailures(t *testing.T) {
	srv, calls := testServer(t, 4, 2)
	e := NewHTTPEmbedder(Config{
		Endpoint:   srv.URL,
		Model:      "test-model",
		Dimensions: 4,
		MaxRetries: 3,
		RetryBase:  time.Millisecond,
	})
	defer func() { _ = e.Close() }()

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestEmbedFailsAfterExhaustion(t *testing.T) {
	srv, calls := testServer(t, 4, 99)
	e := NewHTTPEmbedder(Config{
		Endpoint:   srv.URL,
		Model:      "test-model",
		Dimensions: 4,
		MaxRetries: 3,
		RetryBase:  time.Millisecond,
	})
	defer func() { _ = e.Close() }()

	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, verr.ErrCodeEmbeddingFailed, verr.GetCode(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestEmbedRejectsWrongDimension(t *testing.T) {
	srv, _ := testServer(t, 8, 0)
	e := NewHTTPEmbedder(Config{Endpoint: srv.URL, Model: "test-model", Dimensions: 4})
	defer func() { _ = e.Close() }()

	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, verr.ErrCodeDimensionMismatch, verr.GetCode(err))
}

// countingEmbedder fakes the provider and counts texts it is asked for.
type countingEmbedder struct {
	dims  int
	calls int
	texts int
}

func (f *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.texts += len(texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, f.dims)
		vec[0] = float32(len(texts[i]))
		out[i] = vec
	}
	return out, nil
}

func (f *countingEmbedder) Dimensions() int   { return f.dims }
func (f *countingEmbedder) ModelName() string { return "counting" }
func (f *countingEmbedder) Close() error      { return nil }

func TestCachedEmbedderHitsCache(t *testing.T) {
	inner := &countingEmbedder{dims: 4}
	c := NewCachedEmbedder(inner, 16)
	ctx := context.Background()

	first, err := c.Embed(ctx, "repeated query")
	require.NoError(t, err)
	second, err := c.Embed(ctx, "repeated query")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedderBatchesOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{dims: 4}
	c := NewCachedEmbedder(inner, 16)
	ctx := context.Background()

	_, err := c.Embed(ctx, "cached")
	require.NoError(t, err)

	vecs, err := c.EmbedBatch(ctx, []string{"cached", "fresh one", "fresh two"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	// One call for the initial fill, one for the two misses.
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 3, inner.texts)
}
