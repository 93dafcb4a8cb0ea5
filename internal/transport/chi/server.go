package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/quotemuse/internal/domain"
	"github.com/kailas-cloud/quotemuse/internal/domain/quote"
	"github.com/kailas-cloud/quotemuse/internal/domain/search"
	generateuc "github.com/kailas-cloud/quotemuse/internal/usecase/generate"
	healthuc "github.com/kailas-cloud/quotemuse/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/quotemuse/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/quotemuse/internal/usecase/search"
	"github.com/kailas-cloud/quotemuse/internal/version"
)

const maxIngestQuotes = 1000

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Limits hold per-request bounds taken from configuration.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
	BatchSize    int
}

// Server exposes the quote pipeline over HTTP.
type Server struct {
	ingest        *ingestuc.Service
	search        *searchuc.Service
	generate      *generateuc.Service
	health        *healthuc.Service
	limits        Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	search *searchuc.Service,
	generate *generateuc.Service,
	health *healthuc.Service,
	limits Limits,
	logger *zap.Logger,
) *Server {
	if limits.DefaultLimit < 1 {
		limits.DefaultLimit = 5
	}
	if limits.MaxLimit < 1 {
		limits.MaxLimit = 100
	}
	if limits.BatchSize < 1 {
		limits.BatchSize = 50
	}
	s := &Server{
		ingest:   ingest,
		search:   search,
		generate: generate,
		health:   health,
		limits:   limits,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeVectorDimMismatch),
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrCollectionNotFound, http.StatusNotFound, codeCollectionNotFound),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrGenerationProvider, http.StatusBadGateway, codeGenerationProviderError),
	}
	return s
}

// Routes mounts all handlers on a fresh chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Post("/quotes", s.IngestQuotes)
		r.Post("/search", s.SearchQuotes)
		r.Post("/generate", s.GenerateQuotes)
	})
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	return r
}

// IngestQuotes handles POST /v1/quotes.
func (s *Server) IngestQuotes(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Quotes) == 0 || len(req.Quotes) > maxIngestQuotes {
		writeErrorf(w, http.StatusBadRequest, codeValidationFailed,
			"quotes count must be between 1 and %d", maxIngestQuotes)
		return
	}

	batchSize := req.BatchSize
	if batchSize == 0 {
		batchSize = s.limits.BatchSize
	}

	records := make([]quote.Record, len(req.Quotes))
	for i, item := range req.Quotes {
		records[i] = quote.Record{
			Text:    item.Text,
			Author:  item.Author,
			TagsRaw: strings.Join(item.Tags, quote.DefaultTagDelimiter),
		}
	}

	inserted, err := s.ingest.Ingest(r.Context(), records, batchSize)
	if err != nil {
		// Earlier chunks may already be stored; surface the count.
		s.logger.Warn("Ingestion failed", zap.Int("inserted", inserted), zap.Error(err))
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ingestResponse{
		Inserted: inserted,
		Total:    len(req.Quotes),
	})
}

// SearchQuotes handles POST /v1/search.
func (s *Server) SearchQuotes(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	limit := req.Limit
	if limit == 0 {
		limit = s.limits.DefaultLimit
	}
	if limit > s.limits.MaxLimit {
		writeErrorf(w, http.StatusBadRequest, codeValidationFailed,
			"limit must be between 1 and %d", s.limits.MaxLimit)
		return
	}

	matches, err := s.search.Search(r.Context(), search.Query{
		Text:     req.Query,
		Limit:    limit,
		Author:   req.Author,
		Tags:     req.Tags,
		MinScore: req.MinScore,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(matches))
	for i := range matches {
		items[i] = searchResultItem{
			ID:     matches[i].ID(),
			Text:   matches[i].Text(),
			Author: matches[i].Author(),
			Tags:   matches[i].Tags(),
			Score:  matches[i].Score(),
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{Items: items, Total: len(items)})
}

// GenerateQuotes handles POST /v1/generate.
func (s *Server) GenerateQuotes(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	text, generated, err := s.generate.Generate(r.Context(), req.Topic, req.Count, req.Author, req.Tags)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{Quotes: text, Generated: generated})
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Checks:  checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func writeErrorf(w http.ResponseWriter, status int, code errorCode, format string, args ...any) {
	writeError(w, status, code, fmt.Sprintf(format, args...))
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidArgument,
		domain.ErrVectorDimMismatch,
		domain.ErrCollectionNotFound,
		domain.ErrEmbeddingProvider,
		domain.ErrGenerationProvider,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
