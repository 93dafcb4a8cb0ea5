package quotemuse

import "context"

// Record is a raw quote to ingest. Tags must not contain the ";" tag
// delimiter; a tag that does is stored as separate tags split on it.
type Record struct {
	Text   string
	Author string
	Tags   []string
}

// Match is a single search hit.
type Match struct {
	ID     string
	Text   string
	Author string
	Tags   []string
	// Score is cosine similarity rescaled to [0, 1]:
	// 1 is an identical direction, 0 an opposite one.
	Score float64
}

// SearchOptions configures a search query.
type SearchOptions struct {
	Limit    int
	Author   string
	Tags     []string
	MinScore float64
}

// GenerateOptions configures quote generation.
type GenerateOptions struct {
	Count  int
	Author string
	Tags   []string
}

// EmbeddingResult carries an embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries one vector per input text, in input order.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes text. Implement this to plug in a custom provider.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder is an optional extension of Embedder for providers with
// native batch support. Without it, ingestion embeds one text at a time.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// GenerationResult carries a completion and its token usage.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Generator produces completions. Implement this to plug in a custom provider.
type Generator interface {
	Complete(ctx context.Context, prompt string) (GenerationResult, error)
}
