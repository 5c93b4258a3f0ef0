package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure; searches may still be served.
	Degraded Status = "degraded"
	// Unhealthy indicates no index is live.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentIndex     = "index"
	ComponentDatabase  = "database"
	ComponentEmbedding = "embedding"
	ComponentCache     = "cache"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index     Pinger
	db        Pinger
	embedding EmbeddingChecker
	cache     Pinger
}

// Option adds an optional component to the checks.
type Option func(*Service)

// WithDatabase checks the persisted index store.
func WithDatabase(p Pinger) Option { return func(s *Service) { s.db = p } }

// WithEmbedding checks the embedding provider.
func WithEmbedding(c EmbeddingChecker) Option { return func(s *Service) { s.embedding = c } }

// WithCache checks the embedding cache store.
func WithCache(p Pinger) Option { return func(s *Service) { s.cache = p } }

// New creates a Service. index reports whether a snapshot is live.
func New(index Pinger, opts ...Option) *Service {
	s := &Service{index: index}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks[ComponentIndex] = result(s.index.Ping(ctx))
	if s.db != nil {
		checks[ComponentDatabase] = result(s.db.Ping(ctx))
	}
	if s.embedding != nil {
		checks[ComponentEmbedding] = result(s.embedding.HealthCheck(ctx))
	}
	if s.cache != nil {
		checks[ComponentCache] = result(s.cache.Ping(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentIndex] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
