package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/quotemuse/internal/config"
	"github.com/kailas-cloud/quotemuse/internal/db"
	dbRedis "github.com/kailas-cloud/quotemuse/internal/db/redis"
	"github.com/kailas-cloud/quotemuse/internal/domain"
	"github.com/kailas-cloud/quotemuse/internal/domain/quote"
	"github.com/kailas-cloud/quotemuse/internal/domain/search"
	logpkg "github.com/kailas-cloud/quotemuse/internal/logger"
	"github.com/kailas-cloud/quotemuse/internal/metrics"
	chromemrepo "github.com/kailas-cloud/quotemuse/internal/repository/chromem"
	"github.com/kailas-cloud/quotemuse/internal/repository/embcache"
	quotesrepo "github.com/kailas-cloud/quotemuse/internal/repository/quotes"
	chiTransport "github.com/kailas-cloud/quotemuse/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/quotemuse/internal/transport/openai"
	generateuc "github.com/kailas-cloud/quotemuse/internal/usecase/generate"
	healthuc "github.com/kailas-cloud/quotemuse/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/quotemuse/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/quotemuse/internal/usecase/search"
	"github.com/kailas-cloud/quotemuse/internal/version"
)

// quoteRepository is what the usecases need from either storage driver.
type quoteRepository interface {
	Setup(ctx context.Context) error
	InsertBatch(ctx context.Context, batch []quote.Quote) (int, error)
	SearchKNN(ctx context.Context, f search.Filter, vector []float32, limit int) ([]search.Match, error)
	Count(ctx context.Context) (int, error)
}

func main() {
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting quotemuse API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx := context.Background()

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()

	// Storage driver
	var store db.Store
	var quoteRepo quoteRepository
	switch cfg.Database.Driver {
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		defer s.Close()
		if err := s.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Store not ready", zap.Error(err))
		}
		store = s
		quoteRepo = quotesrepo.New(s, cfg.Storage.Collection, cfg.Embedding.Dimensions).
			WithKeyPrefix(cfg.Storage.KeyPrefix).
			WithHNSW(quotesrepo.HNSWConfig{
				M:           cfg.Storage.HNSWM,
				EFConstruct: cfg.Storage.HNSWEFConstruct,
			})
	case "chromem":
		r, err := chromemrepo.New(cfg.Database.Path, cfg.Storage.Collection, cfg.Embedding.Dimensions)
		if err != nil {
			logger.Fatal("Failed to create chromem store", zap.Error(err))
		}
		quoteRepo = r
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	logger.Info("Storage ready", zap.String("driver", cfg.Database.Driver))

	if err := quoteRepo.Setup(ctx); err != nil {
		logger.Fatal("Failed to create vector index", zap.Error(err))
	}

	// Embedder chain — composition root
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	docEmbedder := buildEmbedder(baseEmbedder, cfg.Embedding.DocumentInstruction, cfg, store, logger)
	queryEmbedder := buildEmbedder(baseEmbedder, cfg.Embedding.QueryInstruction, cfg, store, logger)
	logger.Info("Embedders created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:          cfg.Generation.APIKey,
		BaseURL:         cfg.Generation.BaseURL,
		Model:           cfg.Generation.Model,
		Temperature:     cfg.Generation.Temperature,
		MaxOutputTokens: cfg.Generation.MaxOutputTokens,
		Provider:        "openai",
		Logger:          logger,
	})

	// Use case services
	ingestSvc := ingestuc.New(quoteRepo, asBatchEmbedder(docEmbedder), cfg.Storage.TagDelimiter, logger)
	searchSvc := searchuc.New(quoteRepo, queryEmbedder, logger)
	generateSvc := generateuc.New(searchSvc, generator, logger).
		WithDefaultQuotes(cfg.Generation.DefaultQuotes)

	var pinger healthuc.StorePinger
	if store != nil {
		pinger = store
	}
	healthSvc := healthuc.New(pinger, newEmbeddingHealthChecker(docEmbedder))

	// HTTP server
	server := chiTransport.NewServer(ingestSvc, searchSvc, generateSvc, healthSvc,
		chiTransport.Limits{
			DefaultLimit: cfg.Storage.DefaultLimit,
			MaxLimit:     cfg.Storage.MaxLimit,
			BatchSize:    cfg.Storage.BatchSize,
		}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Routes())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction.
func buildEmbedder(
	base *openaiTransport.Embedder,
	instruction string,
	cfg config.Config,
	store db.Store,
	logger *zap.Logger,
) domain.Embedder {
	var embedder domain.Embedder = base
	if cfg.Embedding.CacheEnabled && store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	// Instruction prefix (outermost — cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}

	return embedder
}

// asBatchEmbedder returns native batch support when the chain provides it,
// falling back to one-at-a-time embedding otherwise.
func asBatchEmbedder(e domain.Embedder) ingestuc.Embedder {
	if be, ok := e.(domain.BatchEmbedder); ok {
		return be
	}
	return &fallbackBatchEmbedder{inner: e}
}

type fallbackBatchEmbedder struct {
	inner domain.Embedder
}

func (f *fallbackBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return domain.BatchFallback(ctx, f.inner, texts)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
