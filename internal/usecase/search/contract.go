package search

import (
	"context"

	"github.com/kailas-cloud/quotemuse/internal/domain"
	"github.com/kailas-cloud/quotemuse/internal/domain/search"
)

// Repository defines the storage contract for quote search.
type Repository interface {
	SearchKNN(ctx context.Context, f search.Filter, vector []float32, limit int) ([]search.Match, error)
}

// Embedder vectorizes query text into an embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
