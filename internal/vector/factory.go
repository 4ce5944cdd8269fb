package vector

import (
	"context"
	"fmt"

	"github.com/timmy/picseek/internal/config"
)

// New builds the configured Index backend. The in-memory index is the
// default; qdrant gives the same contract with durable storage.
func New(ctx context.Context, cfg *config.VectorConfig) (Index, error) {
	switch cfg.Backend {
	case "memory", "":
		return NewMemoryIndex(cfg.Dimensions), nil
	case "qdrant":
		return NewQdrantIndex(ctx, &QdrantConfig{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			Collection: cfg.Qdrant.Collection,
			APIKey:     cfg.Qdrant.APIKey,
			UseTLS:     cfg.Qdrant.UseTLS,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Backend)
	}
}
