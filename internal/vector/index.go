// Package vector provides the embedding index: id to unit-normalized vector,
// with exact k-nearest-neighbor search by dot product. Callers normalize
// vectors once at ingestion; implementations never re-normalize, so the dot
// product is the cosine similarity.
package vector

import "context"

// Hit is one search result: the image id and its similarity score.
type Hit struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
}

// Index is the vector store contract. Implementations must be safe for
// concurrent use by many readers and occasional writers.
type Index interface {
	// Upsert replaces any existing entry for id. The vector must already be
	// unit-normalized and match the index dimension.
	Upsert(ctx context.Context, id string, vec []float32) error

	// Delete removes an entry; deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// Get returns the stored vector and whether the id is present.
	Get(ctx context.Context, id string) ([]float32, bool, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Search scores query against every stored vector and returns at most k
	// hits in descending score order. Equal scores keep a deterministic
	// order so repeated identical queries are reproducible. An empty index
	// yields an empty slice, never an error.
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)

	// Close releases backend resources.
	Close() error
}
