package quotemuse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/quotemuse/internal/db/redis"
	"github.com/kailas-cloud/quotemuse/internal/domain"
	"github.com/kailas-cloud/quotemuse/internal/domain/quote"
	"github.com/kailas-cloud/quotemuse/internal/domain/search"
	chromemrepo "github.com/kailas-cloud/quotemuse/internal/repository/chromem"
	quotesrepo "github.com/kailas-cloud/quotemuse/internal/repository/quotes"
	openaiTransport "github.com/kailas-cloud/quotemuse/internal/transport/openai"
	generateuc "github.com/kailas-cloud/quotemuse/internal/usecase/generate"
	ingestuc "github.com/kailas-cloud/quotemuse/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/quotemuse/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// repository is the storage contract both drivers satisfy.
type repository interface {
	Setup(ctx context.Context) error
	Teardown(ctx context.Context) error
	InsertBatch(ctx context.Context, batch []quote.Quote) (int, error)
	SearchKNN(ctx context.Context, f search.Filter, vector []float32, limit int) ([]search.Match, error)
	Count(ctx context.Context) (int, error)
}

// Client is the quotemuse SDK entry point.
type Client struct {
	store       *dbRedis.Store // nil for the chromem driver
	repo        repository
	ingestSvc   *ingestuc.Service
	searchSvc   *searchuc.Service
	generateSvc *generateuc.Service
	batchSize   int
}

// New creates a quotemuse Client and connects to the configured store.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		collection:     "quotes",
		dimensions:     1536,
		batchSize:      50,
		embeddingModel: "text-embedding-3-small",
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.generationModel == "" {
		cfg.generationModel = "gpt-4o-mini"
	}

	if cfg.driver == "" {
		return nil, errors.New("quotemuse: storage driver required (use WithRedis or WithChromem)")
	}

	c := &Client{batchSize: cfg.batchSize}

	switch cfg.driver {
	case "redis":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("quotemuse: create redis store: %w", err)
		}
		if err := store.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("quotemuse: store not ready: %w", err)
		}
		repo := quotesrepo.New(store, cfg.collection, cfg.dimensions)
		if cfg.keyPrefix != "" {
			repo = repo.WithKeyPrefix(cfg.keyPrefix)
		}
		if cfg.hnswM > 0 || cfg.hnswEFConstruct > 0 {
			repo = repo.WithHNSW(quotesrepo.HNSWConfig{
				M:           cfg.hnswM,
				EFConstruct: cfg.hnswEFConstruct,
			})
		}
		c.store = store
		c.repo = repo
	case "chromem":
		repo, err := chromemrepo.New(cfg.path, cfg.collection, cfg.dimensions)
		if err != nil {
			return nil, fmt.Errorf("quotemuse: create chromem store: %w", err)
		}
		c.repo = repo
	default:
		return nil, fmt.Errorf("quotemuse: unknown driver %q", cfg.driver)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	generator, err := buildGenerator(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.ingestSvc = ingestuc.New(c.repo, &batchEmbedderAdapter{inner: embedder}, "", cfg.logger)
	c.searchSvc = searchuc.New(c.repo, &embedderAdapter{inner: embedder}, cfg.logger)
	c.generateSvc = generateuc.New(c.searchSvc, &generatorAdapter{inner: generator}, cfg.logger)

	return c, nil
}

func buildEmbedder(cfg *clientConfig) (Embedder, error) {
	if cfg.embedder != nil {
		return cfg.embedder, nil
	}
	if cfg.openaiAPIKey == "" {
		return nil, errors.New("quotemuse: embedder required (use WithOpenAI or WithEmbedder)")
	}
	e := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.openaiAPIKey,
		BaseURL:    cfg.openaiBaseURL,
		Model:      cfg.embeddingModel,
		Dimensions: cfg.dimensions,
		Provider:   "openai",
		Logger:     cfg.logger,
	})
	return &internalEmbedder{inner: e}, nil
}

func buildGenerator(cfg *clientConfig) (Generator, error) {
	if cfg.generator != nil {
		return cfg.generator, nil
	}
	if cfg.openaiAPIKey == "" {
		return nil, errors.New("quotemuse: generator required (use WithOpenAI or WithGenerator)")
	}
	g := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:          cfg.openaiAPIKey,
		BaseURL:         cfg.openaiBaseURL,
		Model:           cfg.generationModel,
		Temperature:     0.7,
		MaxOutputTokens: 320,
		Provider:        "openai",
		Logger:          cfg.logger,
	})
	return &internalGenerator{inner: g}, nil
}

// Setup creates the vector index. Idempotent.
func (c *Client) Setup(ctx context.Context) error {
	if err := c.repo.Setup(ctx); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	return nil
}

// Teardown drops the index and all stored quotes.
func (c *Client) Teardown(ctx context.Context) error {
	if err := c.repo.Teardown(ctx); err != nil {
		return fmt.Errorf("teardown: %w", err)
	}
	return nil
}

// Ingest embeds and stores records. Returns how many quotes were stored; on
// failure earlier chunks stay stored and the count reflects them.
func (c *Client) Ingest(ctx context.Context, records []Record) (int, error) {
	recs := make([]quote.Record, len(records))
	for i, r := range records {
		recs[i] = quote.Record{
			Text:    r.Text,
			Author:  r.Author,
			TagsRaw: joinTags(r.Tags),
		}
	}
	n, err := c.ingestSvc.Ingest(ctx, recs, c.batchSize)
	if err != nil {
		return n, fmt.Errorf("ingest: %w", err)
	}
	return n, nil
}

// Search runs a filtered semantic search.
func (c *Client) Search(ctx context.Context, query string, opts *SearchOptions) ([]Match, error) {
	if opts == nil {
		opts = &SearchOptions{}
	}
	limit := opts.Limit
	if limit == 0 {
		limit = 5
	}

	matches, err := c.searchSvc.Search(ctx, search.Query{
		Text:     query,
		Limit:    limit,
		Author:   opts.Author,
		Tags:     opts.Tags,
		MinScore: opts.MinScore,
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out := make([]Match, len(matches))
	for i := range matches {
		out[i] = Match{
			ID:     matches[i].ID(),
			Text:   matches[i].Text(),
			Author: matches[i].Author(),
			Tags:   matches[i].Tags(),
			Score:  matches[i].Score(),
		}
	}
	return out, nil
}

// Generate writes new quotes grounded in stored ones. ok is false when no
// stored quotes matched the topic and nothing was generated.
func (c *Client) Generate(ctx context.Context, topic string, opts *GenerateOptions) (string, bool, error) {
	if opts == nil {
		opts = &GenerateOptions{}
	}
	text, ok, err := c.generateSvc.Generate(ctx, topic, opts.Count, opts.Author, opts.Tags)
	if err != nil {
		return "", false, fmt.Errorf("generate: %w", err)
	}
	return text, ok, nil
}

// Count returns the number of stored quotes.
func (c *Client) Count(ctx context.Context) (int, error) {
	n, err := c.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Ping checks store connectivity. Always nil for the chromem driver.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

func joinTags(tags []string) string {
	return strings.Join(tags, quote.DefaultTagDelimiter)
}

// --- Adapters between the public and internal contracts ---

// embedderAdapter wraps a public Embedder to satisfy the internal contract.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// batchEmbedderAdapter prefers native batch support, falling back to
// one-at-a-time embedding.
type batchEmbedderAdapter struct {
	inner Embedder
}

func (a *batchEmbedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := a.inner.(BatchEmbedder); ok {
		r, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return domain.BatchEmbeddingResult{}, err
		}
		return domain.BatchEmbeddingResult{
			Embeddings:   r.Embeddings,
			PromptTokens: r.PromptTokens,
			TotalTokens:  r.TotalTokens,
		}, nil
	}
	return domain.BatchFallback(ctx, &embedderAdapter{inner: a.inner}, texts)
}

// generatorAdapter wraps a public Generator to satisfy the internal contract.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Complete(ctx context.Context, prompt string) (domain.GenerationResult, error) {
	r, err := a.inner.Complete(ctx, prompt)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	return domain.GenerationResult{
		Text:             r.Text,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
	}, nil
}

// internalEmbedder exposes the transport embedder through the public contract.
type internalEmbedder struct {
	inner *openaiTransport.Embedder
}

func (e *internalEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	r, err := e.inner.Embed(ctx, text)
	if err != nil {
		return EmbeddingResult{}, err
	}
	return EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (e *internalEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	r, err := e.inner.BatchEmbed(ctx, texts)
	if err != nil {
		return BatchEmbeddingResult{}, err
	}
	return BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// internalGenerator exposes the transport generator through the public contract.
type internalGenerator struct {
	inner *openaiTransport.Generator
}

func (g *internalGenerator) Complete(ctx context.Context, prompt string) (GenerationResult, error) {
	r, err := g.inner.Complete(ctx, prompt)
	if err != nil {
		return GenerationResult{}, err
	}
	return GenerationResult{
		Text:             r.Text,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
	}, nil
}
