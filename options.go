package quotemuse

import "go.uber.org/zap"

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	driver   string // "redis" or "chromem"
	addrs    []string
	password string
	path     string // chromem persistence dir, empty = in-memory

	openaiAPIKey    string
	openaiBaseURL   string
	embeddingModel  string
	generationModel string

	embedder  Embedder
	generator Generator

	collection      string
	keyPrefix       string
	dimensions      int
	batchSize       int
	hnswM           int
	hnswEFConstruct int

	logger *zap.Logger
}

// WithRedis configures the client to store quotes in a Redis instance
// (requires the RediSearch module).
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithChromem configures the client to store quotes in an embedded chromem-go
// database. An empty path keeps everything in memory.
func WithChromem(path string) Option {
	return func(c *clientConfig) {
		c.driver = "chromem"
		c.path = path
	}
}

// WithOpenAI configures OpenAI-compatible embedding and generation providers
// with the given API key.
func WithOpenAI(apiKey string) Option {
	return func(c *clientConfig) {
		c.openaiAPIKey = apiKey
	}
}

// WithOpenAIBaseURL points the OpenAI-compatible providers at a different
// endpoint (proxies, self-hosted gateways).
func WithOpenAIBaseURL(baseURL string) Option {
	return func(c *clientConfig) {
		c.openaiBaseURL = baseURL
	}
}

// WithEmbeddingModel overrides the embedding model name.
// Default: text-embedding-3-small.
func WithEmbeddingModel(model string) Option {
	return func(c *clientConfig) {
		c.embeddingModel = model
	}
}

// WithGenerationModel overrides the completion model name.
// Default: gpt-4o-mini.
func WithGenerationModel(model string) Option {
	return func(c *clientConfig) {
		c.generationModel = model
	}
}

// WithEmbedder sets a custom embedding provider. Takes precedence over
// WithOpenAI for embeddings.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithGenerator sets a custom completion provider. Takes precedence over
// WithOpenAI for generation.
func WithGenerator(g Generator) Option {
	return func(c *clientConfig) {
		c.generator = g
	}
}

// WithCollection sets the collection name. Default: "quotes".
func WithCollection(name string) Option {
	return func(c *clientConfig) {
		c.collection = name
	}
}

// WithKeyPrefix sets the storage key prefix. Default: "quotemuse:".
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) {
		c.keyPrefix = prefix
	}
}

// WithDimensions sets the embedding dimension. Default: 1536.
func WithDimensions(dim int) Option {
	return func(c *clientConfig) {
		c.dimensions = dim
	}
}

// WithBatchSize sets the ingestion chunk size. Default: 50.
func WithBatchSize(size int) Option {
	return func(c *clientConfig) {
		c.batchSize = size
	}
}

// WithHNSW configures HNSW index parameters for the redis driver.
// Defaults: M=32, EFConstruct=400.
func WithHNSW(m, efConstruct int) Option {
	return func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	}
}

// WithLogger enables structured logging for SDK operations.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}
