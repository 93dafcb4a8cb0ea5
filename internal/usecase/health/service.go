package health

import "context"

// Status is the aggregated service health.
type Status string

const (
	// Healthy means every checked component responded.
	Healthy Status = "ok"
	// Degraded means at least one component failed its check.
	Degraded Status = "degraded"
)

// CheckResult is a single component's outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Report is what /healthz serves.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service probes the store and the embedding provider.
type Service struct {
	store     StorePinger
	embedding EmbeddingChecker
}

// New creates a Service. Either dependency can be nil: the embedded driver
// has no store to ping, and the embedding check is optional.
func New(store StorePinger, embedding EmbeddingChecker) *Service {
	return &Service{store: store, embedding: embedding}
}

// Check probes every configured component and aggregates the results. A
// single failing component degrades the whole report.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.store != nil {
		checks["store"] = resultOf(s.store.Ping(ctx))
	}
	if s.embedding != nil {
		checks["embedding"] = resultOf(s.embedding.HealthCheck(ctx))
	}

	status := Healthy
	for _, r := range checks {
		if r == CheckError {
			status = Degraded
			break
		}
	}
	return Report{Status: status, Checks: checks}
}

func resultOf(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
