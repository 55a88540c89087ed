package health

import "context"

// CachePinger checks KV store availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks model provider availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexState reports whether retrieval is serving.
type IndexState interface {
	Len() int
}
