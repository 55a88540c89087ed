package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckDisabled marks a component that is switched off by configuration.
	CheckDisabled CheckResult = "disabled"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	provider ProviderChecker
	cache    CachePinger
	index    IndexState
}

// New creates a Service. cache is nil when no KV store is configured;
// index is nil when retrieval runs degraded.
func New(provider ProviderChecker, cache CachePinger, index IndexState) *Service {
	return &Service{provider: provider, cache: cache, index: index}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.provider.HealthCheck(ctx); err != nil {
		checks["provider"] = CheckError
	} else {
		checks["provider"] = CheckOK
	}

	switch {
	case s.cache == nil:
		checks["cache"] = CheckDisabled
	case s.cache.Ping(ctx) != nil:
		checks["cache"] = CheckError
	default:
		checks["cache"] = CheckOK
	}

	if s.index == nil || s.index.Len() == 0 {
		checks["index"] = CheckError
	} else {
		checks["index"] = CheckOK
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
