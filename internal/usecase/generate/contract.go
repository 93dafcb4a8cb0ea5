package generate

import (
	"context"

	"github.com/kailas-cloud/quotemuse/internal/domain"
	"github.com/kailas-cloud/quotemuse/internal/domain/search"
)

// Searcher retrieves grounding quotes for the prompt.
type Searcher interface {
	Search(ctx context.Context, q search.Query) ([]search.Match, error)
}

// Generator produces a completion from a prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (domain.GenerationResult, error)
}
