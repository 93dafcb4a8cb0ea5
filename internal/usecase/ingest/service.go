package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/quotemuse/internal/domain"
	"github.com/kailas-cloud/quotemuse/internal/domain/quote"
)

// Service ingests raw quote records: validate, chunk, embed, insert.
type Service struct {
	repo         Repository
	embed        Embedder
	tagDelimiter string
	logger       *zap.Logger
}

// New creates an ingestion service. tagDelimiter splits Record.TagsRaw;
// empty means quote.DefaultTagDelimiter.
func New(repo Repository, embed Embedder, tagDelimiter string, logger *zap.Logger) *Service {
	if tagDelimiter == "" {
		tagDelimiter = quote.DefaultTagDelimiter
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, embed: embed, tagDelimiter: tagDelimiter, logger: logger}
}

// Ingest embeds and stores records in chunks of batchSize, preserving input
// order within each chunk. Returns how many quotes were stored. On failure
// the count covers fully inserted chunks: earlier chunks stay stored, no
// rollback is attempted.
func (s *Service) Ingest(ctx context.Context, records []quote.Record, batchSize int) (int, error) {
	if batchSize < 1 {
		return 0, fmt.Errorf("batch size must be >= 1, got %d: %w", batchSize, domain.ErrInvalidArgument)
	}
	if len(records) == 0 {
		return 0, nil
	}

	// Validate everything before the first provider call so a bad record
	// cannot waste embedding tokens.
	quotes := make([]quote.Quote, 0, len(records))
	for i, rec := range records {
		q, err := quote.New(
			uuid.NewString(),
			rec.Text,
			rec.Author,
			quote.ParseTags(rec.TagsRaw, s.tagDelimiter),
		)
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		quotes = append(quotes, q)
	}

	var inserted int
	for start := 0; start < len(quotes); start += batchSize {
		end := min(start+batchSize, len(quotes))
		chunk := quotes[start:end]

		n, err := s.ingestChunk(ctx, chunk)
		inserted += n
		if err != nil {
			s.logger.Warn("Ingestion stopped mid-stream",
				zap.Int("inserted", inserted),
				zap.Int("total", len(quotes)),
				zap.Error(err),
			)
			return inserted, err
		}
	}

	s.logger.Info("Ingestion complete", zap.Int("inserted", inserted))
	return inserted, nil
}

func (s *Service) ingestChunk(ctx context.Context, chunk []quote.Quote) (int, error) {
	texts := make([]string, len(chunk))
	for i := range chunk {
		texts[i] = chunk[i].Text()
	}

	res, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunk: %w", err)
	}
	if len(res.Embeddings) != len(chunk) {
		return 0, fmt.Errorf(
			"embedding count mismatch: sent %d texts, got %d vectors: %w",
			len(chunk), len(res.Embeddings), domain.ErrEmbeddingProvider,
		)
	}

	for i := range chunk {
		chunk[i].SetVector(res.Embeddings[i])
	}

	n, err := s.repo.InsertBatch(ctx, chunk)
	if err != nil {
		return n, fmt.Errorf("insert chunk: %w", err)
	}
	return n, nil
}
