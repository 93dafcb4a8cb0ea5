package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quotemuse/internal/domain"
	"github.com/kailas-cloud/quotemuse/internal/domain/quote"
	"github.com/kailas-cloud/quotemuse/internal/domain/search"
	generateuc "github.com/kailas-cloud/quotemuse/internal/usecase/generate"
	healthuc "github.com/kailas-cloud/quotemuse/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/quotemuse/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/quotemuse/internal/usecase/search"
)

// --- Mocks behind the usecase services ---

type mockRepo struct {
	insertFn func(ctx context.Context, batch []quote.Quote) (int, error)
	searchFn func(ctx context.Context, f search.Filter, vector []float32, limit int) ([]search.Match, error)
	lastK    int
}

func (m *mockRepo) InsertBatch(ctx context.Context, batch []quote.Quote) (int, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, batch)
	}
	return len(batch), nil
}

func (m *mockRepo) SearchKNN(
	ctx context.Context, f search.Filter, vector []float32, limit int,
) ([]search.Match, error) {
	m.lastK = limit
	if m.searchFn != nil {
		return m.searchFn(ctx, f, vector, limit)
	}
	return nil, nil
}

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{1, 0}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
}

type mockGenerator struct {
	text string
	err  error
}

func (m *mockGenerator) Complete(_ context.Context, _ string) (domain.GenerationResult, error) {
	if m.err != nil {
		return domain.GenerationResult{}, m.err
	}
	return domain.GenerationResult{Text: m.text}, nil
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type testHarness struct {
	repo      *mockRepo
	embedder  *mockEmbedder
	generator *mockGenerator
	pinger    *mockPinger
	router    http.Handler
}

func newTestServer(t *testing.T) *testHarness {
	t.Helper()
	h := &testHarness{
		repo:      &mockRepo{},
		embedder:  &mockEmbedder{},
		generator: &mockGenerator{text: "A generated quote."},
		pinger:    &mockPinger{},
	}

	logger := zap.NewNop()
	ingestSvc := ingestuc.New(h.repo, h.embedder, "", logger)
	searchSvc := searchuc.New(h.repo, h.embedder, logger)
	generateSvc := generateuc.New(searchSvc, h.generator, logger)
	healthSvc := healthuc.New(h.pinger, nil)

	srv := NewServer(ingestSvc, searchSvc, generateSvc, healthSvc,
		Limits{DefaultLimit: 5, MaxLimit: 100, BatchSize: 50}, logger)
	h.router = srv.Routes()
	return h
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeErr(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return e
}

// --- Ingest ---

func TestIngestQuotes_Created(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h.router, "POST", "/v1/quotes", ingestRequest{
		Quotes: []ingestQuoteItem{
			{Text: "Know thyself.", Author: "socrates", Tags: []string{"wisdom"}},
			{Text: "Time flies.", Author: "virgil"},
		},
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	var resp ingestResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Inserted != 2 || resp.Total != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestIngestQuotes_InvalidBody(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest("POST", "/v1/quotes", bytes.NewBufferString("{broken"))
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestIngestQuotes_EmptyList(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h.router, "POST", "/v1/quotes", ingestRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if e := decodeErr(t, rr); e.Code != codeValidationFailed {
		t.Errorf("error code: got %s, want %s", e.Code, codeValidationFailed)
	}
}

func TestIngestQuotes_BlankText_400(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h.router, "POST", "/v1/quotes", ingestRequest{
		Quotes: []ingestQuoteItem{{Text: "   "}},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if e := decodeErr(t, rr); e.Code != codeValidationFailed {
		t.Errorf("error code: got %s, want %s", e.Code, codeValidationFailed)
	}
}

func TestIngestQuotes_EmbeddingFailure_502(t *testing.T) {
	h := newTestServer(t)
	h.embedder.err = domain.ErrEmbeddingProvider

	rr := doJSON(t, h.router, "POST", "/v1/quotes", ingestRequest{
		Quotes: []ingestQuoteItem{{Text: "x"}},
	})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadGateway)
	}
	if e := decodeErr(t, rr); e.Code != codeEmbeddingProviderError {
		t.Errorf("error code: got %s, want %s", e.Code, codeEmbeddingProviderError)
	}
}

// --- Search ---

func TestSearchQuotes_OK(t *testing.T) {
	h := newTestServer(t)
	h.repo.searchFn = func(_ context.Context, _ search.Filter, _ []float32, _ int) ([]search.Match, error) {
		return []search.Match{
			search.NewMatch("q1", "Know thyself.", "socrates", []string{"wisdom"}, 0.93),
		}, nil
	}

	rr := doJSON(t, h.router, "POST", "/v1/search", searchRequest{Query: "self knowledge", Limit: 3})
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || len(resp.Items) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	item := resp.Items[0]
	if item.ID != "q1" || item.Author != "socrates" || item.Score != 0.93 {
		t.Errorf("unexpected item: %+v", item)
	}
}

func TestSearchQuotes_DefaultLimit(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h.router, "POST", "/v1/search", searchRequest{Query: "x"})
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusOK)
	}
	if h.repo.lastK != 5 {
		t.Errorf("expected default limit 5, repo saw %d", h.repo.lastK)
	}
}

func TestSearchQuotes_LimitAboveMax(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h.router, "POST", "/v1/search", searchRequest{Query: "x", Limit: 1000})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSearchQuotes_BlankQuery_400(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h.router, "POST", "/v1/search", searchRequest{Query: "  "})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if e := decodeErr(t, rr); e.Code != codeValidationFailed {
		t.Errorf("error code: got %s, want %s", e.Code, codeValidationFailed)
	}
}

func TestSearchQuotes_TooManyTags_400(t *testing.T) {
	h := newTestServer(t)

	tags := make([]string, search.MaxFilterTags+1)
	for i := range tags {
		tags[i] = "tag" + strconv.Itoa(i)
	}

	rr := doJSON(t, h.router, "POST", "/v1/search", searchRequest{Query: "x", Tags: tags})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
	if e := decodeErr(t, rr); e.Code != codeValidationFailed {
		t.Errorf("error code: got %s, want %s", e.Code, codeValidationFailed)
	}
}

func TestSearchQuotes_UnknownCollection_404(t *testing.T) {
	h := newTestServer(t)
	h.repo.searchFn = func(_ context.Context, _ search.Filter, _ []float32, _ int) ([]search.Match, error) {
		return nil, domain.ErrCollectionNotFound
	}

	rr := doJSON(t, h.router, "POST", "/v1/search", searchRequest{Query: "x"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestSearchQuotes_EmbeddingFailure_502(t *testing.T) {
	h := newTestServer(t)
	h.embedder.err = domain.ErrEmbeddingProvider

	rr := doJSON(t, h.router, "POST", "/v1/search", searchRequest{Query: "x"})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadGateway)
	}
}

// --- Generate ---

func TestGenerateQuotes_OK(t *testing.T) {
	h := newTestServer(t)
	h.repo.searchFn = func(_ context.Context, _ search.Filter, _ []float32, _ int) ([]search.Match, error) {
		return []search.Match{
			search.NewMatch("q1", "Know thyself.", "socrates", nil, 0.9),
		}, nil
	}

	rr := doJSON(t, h.router, "POST", "/v1/generate", generateRequest{Topic: "wisdom", Count: 2})
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp generateResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Generated {
		t.Fatal("expected generated=true")
	}
	if resp.Quotes != "A generated quote." {
		t.Errorf("unexpected quotes: %q", resp.Quotes)
	}
}

func TestGenerateQuotes_NoGrounding(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h.router, "POST", "/v1/generate", generateRequest{Topic: "obscure"})
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusOK)
	}

	var resp generateResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Generated || resp.Quotes != "" {
		t.Errorf("expected empty ungrounded response, got %+v", resp)
	}
}

func TestGenerateQuotes_BlankTopic_400(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h.router, "POST", "/v1/generate", generateRequest{Topic: " "})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestGenerateQuotes_ProviderFailure_502(t *testing.T) {
	h := newTestServer(t)
	h.repo.searchFn = func(_ context.Context, _ search.Filter, _ []float32, _ int) ([]search.Match, error) {
		return []search.Match{
			search.NewMatch("q1", "Know thyself.", "socrates", nil, 0.9),
		}, nil
	}
	h.generator.err = domain.ErrGenerationProvider

	rr := doJSON(t, h.router, "POST", "/v1/generate", generateRequest{Topic: "wisdom"})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadGateway)
	}
	if e := decodeErr(t, rr); e.Code != codeGenerationProviderError {
		t.Errorf("error code: got %s, want %s", e.Code, codeGenerationProviderError)
	}
}

// --- Health ---

func TestHealthCheck_OK(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h.router, "GET", "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusOK)
	}

	var resp healthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Checks["store"] != "ok" {
		t.Errorf("unexpected report: %+v", resp)
	}
}

func TestHealthCheck_Degraded_503(t *testing.T) {
	h := newTestServer(t)
	h.pinger.err = context.DeadlineExceeded

	rr := doJSON(t, h.router, "GET", "/healthz", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}
