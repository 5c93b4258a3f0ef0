package chi

import (
	"time"

	domprofile "github.com/kailas-cloud/profilesearch/internal/domain/profile"
)

// ErrorResponseCode is a machine-readable error code.
type ErrorResponseCode string

// Error codes returned in ErrorResponse.Code.
const (
	ErrorResponseCodeBadRequest             ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed       ErrorResponseCode = "validation_failed"
	ErrorResponseCodeUnauthorized           ErrorResponseCode = "unauthorized"
	ErrorResponseCodeNotFound               ErrorResponseCode = "not_found"
	ErrorResponseCodeMethodNotAllowed       ErrorResponseCode = "method_not_allowed"
	ErrorResponseCodeIndexNotReady          ErrorResponseCode = "index_not_ready"
	ErrorResponseCodeInvalidQuery           ErrorResponseCode = "invalid_query"
	ErrorResponseCodeVectorDimMismatch      ErrorResponseCode = "vector_dim_mismatch"
	ErrorResponseCodeIngestionFailed        ErrorResponseCode = "ingestion_failed"
	ErrorResponseCodeRateLimited            ErrorResponseCode = "rate_limited"
	ErrorResponseCodeEmbeddingProviderError ErrorResponseCode = "embedding_provider_error"
	ErrorResponseCodeInternalError          ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// SearchRequest is the body of POST /api/v1/search. K omitted or 0 selects the default.
type SearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

// SearchResultItem is one ranked profile.
type SearchResultItem struct {
	Position int                `json:"position"`
	Fields   []domprofile.Field `json:"fields"`
	Score    float64            `json:"score"`
}

// SearchResponse lists ranked profiles, best first.
type SearchResponse struct {
	Backend string             `json:"backend"`
	Metric  string             `json:"metric"`
	Items   []SearchResultItem `json:"items"`
	Total   int                `json:"total"`
}

// CorpusResponse describes the live snapshot.
type CorpusResponse struct {
	State      string     `json:"state"`
	Backend    string     `json:"backend,omitempty"`
	Metric     string     `json:"metric,omitempty"`
	Records    int        `json:"records"`
	Dimensions int        `json:"dimensions"`
	Source     string     `json:"source,omitempty"`
	Generation uint64     `json:"generation"`
	LoadedAt   *time.Time `json:"loaded_at,omitempty"`
}

// ReloadResponse is returned after a successful re-ingestion.
type ReloadResponse struct {
	Records    int    `json:"records"`
	Dimensions int    `json:"dimensions"`
	Generation uint64 `json:"generation"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
