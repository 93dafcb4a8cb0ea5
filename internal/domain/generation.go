package domain

import "context"

// Generator is the text generation contract between layers.
type Generator interface {
	Complete(ctx context.Context, prompt string) (GenerationResult, error)
}

// GenerationResult carries the completion text and token usage.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}
