package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quotemuse/internal/domain"
	"github.com/kailas-cloud/quotemuse/internal/domain/search"
)

// Service handles semantic quote search.
type Service struct {
	repo   Repository
	embed  Embedder
	logger *zap.Logger
}

// New creates a search service.
func New(repo Repository, embed Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, embed: embed, logger: logger}
}

// Search embeds the query text and runs a filtered KNN search. Matches come
// back in non-increasing score order; MinScore (if > 0) drops entries below
// the cutoff. An empty result is not an error.
func (s *Service) Search(ctx context.Context, q search.Query) ([]search.Match, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("query text is required: %w", domain.ErrInvalidArgument)
	}
	if q.Limit < 1 {
		return nil, fmt.Errorf("limit must be >= 1, got %d: %w", q.Limit, domain.ErrInvalidArgument)
	}

	f, err := search.NewFilter(q.Author, q.Tags)
	if err != nil {
		return nil, err
	}

	embResult, err := s.embed.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	matches, err := s.repo.SearchKNN(ctx, f, embResult.Embedding, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	if q.MinScore > 0 {
		filtered := matches[:0]
		for _, m := range matches {
			if m.Score() >= q.MinScore {
				filtered = append(filtered, m)
			}
		}
		matches = filtered
	}

	if len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}

	s.logger.Debug("Search complete",
		zap.Int("matches", len(matches)),
		zap.Int("limit", q.Limit),
		zap.Float64("min_score", q.MinScore),
	)
	return matches, nil
}
