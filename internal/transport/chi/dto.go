package chi

// errorCode identifies an API error class in responses.
type errorCode string

const (
	codeBadRequest              errorCode = "bad_request"
	codeUnauthorized            errorCode = "unauthorized"
	codeValidationFailed        errorCode = "validation_failed"
	codeCollectionNotFound      errorCode = "collection_not_found"
	codeVectorDimMismatch       errorCode = "vector_dim_mismatch"
	codeEmbeddingProviderError  errorCode = "embedding_provider_error"
	codeGenerationProviderError errorCode = "generation_provider_error"
	codeInternalError           errorCode = "internal_error"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// ingestQuoteItem is a single quote in an ingestion request.
type ingestQuoteItem struct {
	Text   string   `json:"text"`
	Author string   `json:"author,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// ingestRequest is the body of POST /v1/quotes.
type ingestRequest struct {
	Quotes    []ingestQuoteItem `json:"quotes"`
	BatchSize int               `json:"batch_size,omitempty"`
}

// ingestResponse reports how many quotes were stored. On partial failure the
// error body carries Inserted alongside the error fields.
type ingestResponse struct {
	Inserted int `json:"inserted"`
	Total    int `json:"total"`
}

// searchRequest is the body of POST /v1/search.
type searchRequest struct {
	Query    string   `json:"query"`
	Limit    int      `json:"limit,omitempty"`
	Author   string   `json:"author,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	MinScore float64  `json:"min_score,omitempty"`
}

// searchResultItem is a single search hit.
type searchResultItem struct {
	ID     string   `json:"id"`
	Text   string   `json:"text"`
	Author string   `json:"author,omitempty"`
	Tags   []string `json:"tags,omitempty"`
	Score  float64  `json:"score"`
}

// searchResponse is the body returned by POST /v1/search.
type searchResponse struct {
	Items []searchResultItem `json:"items"`
	Total int                `json:"total"`
}

// generateRequest is the body of POST /v1/generate.
type generateRequest struct {
	Topic  string   `json:"topic"`
	Count  int      `json:"count,omitempty"`
	Author string   `json:"author,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// generateResponse is the body returned by POST /v1/generate. Generated is
// false when no stored quotes matched the topic and nothing was produced.
type generateResponse struct {
	Quotes    string `json:"quotes,omitempty"`
	Generated bool   `json:"generated"`
}

// healthResponse is the body returned by GET /healthz.
type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}
