// Package extractor turns image bytes into fixed-length feature vectors by
// calling a remote inference endpoint. Vectors are normalized to unit length
// before indexing so the similarity index can score with a plain dot product.
package extractor

import (
	"context"
	"fmt"
	"math"
)

// FeatureExtractor produces an embedding for an image.
type FeatureExtractor interface {
	// Extract returns the raw (not necessarily normalized) feature vector
	// for the given image bytes.
	Extract(ctx context.Context, image []byte, mimeType string) ([]float32, error)

	// Dimensions returns the vector length this extractor emits.
	Dimensions() int
}

// Normalize scales v to unit length in place and returns it. A zero vector
// has no direction and cannot be normalized.
func Normalize(v []float32) ([]float32, error) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return nil, fmt.Errorf("cannot normalize zero vector")
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v, nil
}
