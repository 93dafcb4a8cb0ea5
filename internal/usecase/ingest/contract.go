package ingest

import (
	"context"

	"github.com/kailas-cloud/quotemuse/internal/domain"
	"github.com/kailas-cloud/quotemuse/internal/domain/quote"
)

// Repository defines the storage contract for quote ingestion.
type Repository interface {
	InsertBatch(ctx context.Context, batch []quote.Quote) (int, error)
}

// Embedder vectorizes a chunk of texts in a single provider call.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
