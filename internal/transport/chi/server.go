package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/profilesearch/internal/corpus"
	"github.com/kailas-cloud/profilesearch/internal/domain"
	"github.com/kailas-cloud/profilesearch/internal/domain/search/result"
	"github.com/kailas-cloud/profilesearch/internal/logger"
	healthuc "github.com/kailas-cloud/profilesearch/internal/usecase/health"
	profileuc "github.com/kailas-cloud/profilesearch/internal/usecase/profile"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the profile search API.
type Server struct {
	profiles      *profileuc.Service
	health        *healthuc.Service
	source        corpus.Source
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. source is re-read on reload; nil disables reload.
func NewServer(
	profiles *profileuc.Service,
	health *healthuc.Service,
	source corpus.Source,
	logger *zap.Logger,
) *Server {
	s := &Server{
		profiles: profiles,
		health:   health,
		source:   source,
		logger:   logger,
	}
	// Order matters: ingestion and query errors wrap embedding and dimension errors.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotReady, http.StatusServiceUnavailable, ErrorResponseCodeIndexNotReady),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrQuery, http.StatusBadRequest, ErrorResponseCodeInvalidQuery),
		sentinelHandler(domain.ErrIngestion, http.StatusUnprocessableEntity, ErrorResponseCodeIngestionFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorResponseCodeRateLimited),
		sentinelHandler(domain.ErrEmbedding, http.StatusBadGateway, ErrorResponseCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, ErrorResponseCodeVectorDimMismatch),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.SearchProfiles)
		r.Get("/corpus", s.GetCorpus)
		r.Post("/corpus/reload", s.ReloadCorpus)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorResponseCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorResponseCodeMethodNotAllowed, "method not allowed")
	})
}

// SearchProfiles handles POST /api/v1/search.
func (s *Server) SearchProfiles(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	page, err := s.profiles.SearchPage(ctx, req.Query, req.K)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]SearchResultItem, len(page.Results))
	for i := range page.Results {
		items[i] = searchResultToDTO(&page.Results[i])
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, SearchResponse{
		Backend: page.Backend,
		Metric:  string(page.Metric),
		Items:   items,
		Total:   len(items),
	})
}

// GetCorpus handles GET /api/v1/corpus.
func (s *Server) GetCorpus(w http.ResponseWriter, _ *http.Request) {
	stats := s.profiles.Stats()
	resp := CorpusResponse{
		State:      string(stats.State),
		Backend:    stats.Backend,
		Metric:     string(stats.Metric),
		Records:    stats.Records,
		Dimensions: stats.Dimensions,
		Source:     stats.Source,
		Generation: stats.Generation,
	}
	if !stats.LoadedAt.IsZero() {
		t := stats.LoadedAt.UTC()
		resp.LoadedAt = &t
	}
	writeJSON(w, http.StatusOK, resp)
}

// ReloadCorpus handles POST /api/v1/corpus/reload.
func (s *Server) ReloadCorpus(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "no corpus source configured")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	stats, err := s.profiles.Load(ctx, s.source)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, ReloadResponse{
		Records:    stats.Records,
		Dimensions: stats.Dimensions,
		Generation: stats.Generation,
	})
}

// HealthCheck handles GET /health.
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

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotReady,
		domain.ErrInvalidRequest,
		domain.ErrQuery,
		domain.ErrIngestion,
		domain.ErrRateLimited,
		domain.ErrEmbedding,
		domain.ErrVectorDimMismatch,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

func searchResultToDTO(r *result.Result) SearchResultItem {
	rec := r.Record()
	return SearchResultItem{
		Position: rec.Position(),
		Fields:   rec.Fields(),
		Score:    r.Score(),
	}
}
