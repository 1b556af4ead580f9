// Package embed provides the gateway to the external embedding provider:
// batched HTTP calls with retry, an LRU cache keyed by content hash, and
// the vector literal codec used by the store.
package embed

import (
	"context"
	"time"
)

const (
	// DefaultBatchSize is the number of texts sent per embedding request.
	DefaultBatchSize = 16

	// DefaultMaxRetries bounds attempts per batch.
	DefaultMaxRetries = 3

	// DefaultRetryBase is the initial backoff between attempts; it doubles
	// on each retry.
	DefaultRetryBase = time.Second

	// DefaultDimensions matches the default embedding model (bge-m3).
	DefaultDimensions = 1024
)

// Embedder generates dense vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. The result has
	// the same length and order as the input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}
