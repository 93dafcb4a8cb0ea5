package generate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quotemuse/internal/domain"
	"github.com/kailas-cloud/quotemuse/internal/domain/search"
)

// DefaultQuoteCount is used when the caller asks for fewer than one quote.
const DefaultQuoteCount = 2

// Service generates new quotes grounded in retrieved examples.
type Service struct {
	searcher       Searcher
	generator      Generator
	retrievalLimit int // 0 = retrieve as many grounding quotes as are requested
	defaultQuotes  int
	logger         *zap.Logger
}

// New creates a generation service.
func New(searcher Searcher, generator Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		searcher:      searcher,
		generator:     generator,
		defaultQuotes: DefaultQuoteCount,
		logger:        logger,
	}
}

// WithRetrievalLimit pins how many grounding quotes are retrieved, instead
// of matching the requested quote count.
func (s *Service) WithRetrievalLimit(limit int) *Service {
	if limit >= 1 {
		s.retrievalLimit = limit
	}
	return s
}

// WithDefaultQuotes overrides the fallback quote count.
func (s *Service) WithDefaultQuotes(n int) *Service {
	if n >= 1 {
		s.defaultQuotes = n
	}
	return s
}

// Generate retrieves quotes about topic (optionally filtered by author and
// tags) and asks the completion provider for n new ones in the same spirit.
// When retrieval finds nothing to ground on, it returns ok=false without
// calling the provider: ungrounded generation is worse than no answer.
func (s *Service) Generate(
	ctx context.Context, topic string, n int, author string, tags []string,
) (string, bool, error) {
	if strings.TrimSpace(topic) == "" {
		return "", false, fmt.Errorf("topic is required: %w", domain.ErrInvalidArgument)
	}
	if n < 1 {
		n = s.defaultQuotes
	}

	limit := n
	if s.retrievalLimit >= 1 {
		limit = s.retrievalLimit
	}
	matches, err := s.searcher.Search(ctx, search.Query{
		Text:   topic,
		Limit:  limit,
		Author: author,
		Tags:   tags,
	})
	if err != nil {
		return "", false, fmt.Errorf("retrieve grounding quotes: %w", err)
	}

	if len(matches) == 0 {
		s.logger.Info("No grounding quotes found, skipping generation",
			zap.String("topic", topic),
			zap.String("author", author),
		)
		return "", false, nil
	}

	prompt := buildPrompt(topic, n, matches)

	result, err := s.generator.Complete(ctx, prompt)
	if err != nil {
		return "", false, fmt.Errorf("complete: %w", err)
	}

	s.logger.Debug("Generation complete",
		zap.Int("grounding_quotes", len(matches)),
		zap.Int("completion_tokens", result.CompletionTokens),
	)
	return cleanOutput(result.Text), true, nil
}
