package extractor

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Bounded wraps a FeatureExtractor with a concurrency limit so bulk ingestion
// cannot overwhelm the inference endpoint.
type Bounded struct {
	inner FeatureExtractor
	sem   *semaphore.Weighted
}

// NewBounded limits concurrent Extract calls to maxConcurrent.
func NewBounded(inner FeatureExtractor, maxConcurrent int) *Bounded {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Bounded{
		inner: inner,
		sem:   semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

func (b *Bounded) Extract(ctx context.Context, image []byte, mimeType string) ([]float32, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)
	return b.inner.Extract(ctx, image, mimeType)
}

func (b *Bounded) Dimensions() int {
	return b.inner.Dimensions()
}
