package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askme/internal/domain"
	"github.com/kailas-cloud/askme/internal/metrics"
)

// Default backoff policy: 10 attempts, waits of 1s, 2s, 4s, ... between them.
const (
	DefaultMaxAttempts = 10
	DefaultInitialWait = time.Second
)

// RetryPolicy configures rate-limit backoff.
type RetryPolicy struct {
	MaxAttempts int
	InitialWait time.Duration
	// MaxWait caps a single wait. Zero means no cap.
	MaxWait time.Duration
}

// WaitFor returns the wait after the given 0-based failed attempt: InitialWait * 2^attempt.
func (p RetryPolicy) WaitFor(attempt int) time.Duration {
	wait := p.InitialWait
	for range attempt {
		if p.MaxWait > 0 && wait >= p.MaxWait {
			break
		}
		if wait >= time.Duration(1<<62) {
			break
		}
		wait *= 2
	}
	if p.MaxWait > 0 && wait > p.MaxWait {
		wait = p.MaxWait
	}
	return wait
}

// Notice describes a retry event surfaced to the operator.
type Notice struct {
	Attempt     int // 1-based attempt that failed
	MaxAttempts int
	Wait        time.Duration // zero when Exhausted
	Exhausted   bool
	Err         error
}

// Notifier receives retry events, e.g. to show a warning to an interactive user.
type Notifier func(Notice)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryOption customizes a RetryingEmbedder.
type RetryOption func(*RetryingEmbedder)

// WithNotifier registers a callback for retry warnings and the final give-up.
func WithNotifier(n Notifier) RetryOption {
	return func(r *RetryingEmbedder) { r.notify = n }
}

// WithSleep replaces the wait implementation; tests use it to simulate time.
func WithSleep(s SleepFunc) RetryOption {
	return func(r *RetryingEmbedder) { r.sleep = s }
}

// RetryingEmbedder retries rate-limited embedding calls with exponential backoff.
// Any other failure is returned on the first attempt.
type RetryingEmbedder struct {
	inner  domain.Embedder
	policy RetryPolicy
	sleep  SleepFunc
	notify Notifier
	logger *zap.Logger
}

// NewRetryingEmbedder wraps inner with the given policy. Zero fields fall back to the defaults.
func NewRetryingEmbedder(
	inner domain.Embedder, policy RetryPolicy, logger *zap.Logger, opts ...RetryOption,
) *RetryingEmbedder {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.InitialWait <= 0 {
		policy.InitialWait = DefaultInitialWait
	}
	r := &RetryingEmbedder{
		inner:  inner,
		policy: policy,
		sleep:  sleepContext,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Embed vectorizes a single text, retrying on rate limits.
func (r *RetryingEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	var out domain.EmbeddingResult
	err := r.do(ctx, 1, func(ctx context.Context) error {
		res, err := r.inner.Embed(ctx, text)
		if err != nil {
			return err //nolint:wrapcheck // classified and wrapped by do
		}
		out = res
		return nil
	})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return out, nil
}

// BatchEmbed vectorizes texts as one unit: the whole batch is retried, and on
// exhaustion no vectors are returned.
func (r *RetryingEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	var out domain.BatchEmbeddingResult
	err := r.do(ctx, len(texts), func(ctx context.Context) error {
		var (
			res domain.BatchEmbeddingResult
			err error
		)
		if be, ok := r.inner.(domain.BatchEmbedder); ok {
			res, err = be.BatchEmbed(ctx, texts)
		} else {
			res, err = domain.BatchFallback(ctx, r.inner, texts)
		}
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	return out, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (r *RetryingEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := r.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (r *RetryingEmbedder) do(ctx context.Context, batchSize int, call func(context.Context) error) error {
	var lastErr error

	for attempt := range r.policy.MaxAttempts {
		err := call(ctx)
		if err == nil {
			if attempt > 0 {
				r.logger.Info("Embedding succeeded after rate limiting",
					zap.Int("attempt", attempt+1),
					zap.Int("batch_size", batchSize),
				)
			}
			return nil
		}
		if !errors.Is(err, domain.ErrEmbeddingRateLimited) {
			return fmt.Errorf("embed: %w", err)
		}
		lastErr = err

		if attempt == r.policy.MaxAttempts-1 {
			break
		}

		wait := r.policy.WaitFor(attempt)
		metrics.EmbeddingRetriesTotal.WithLabelValues("retry").Inc()
		r.logger.Warn("Embedding rate limited, backing off",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", r.policy.MaxAttempts),
			zap.Duration("wait", wait),
			zap.Int("batch_size", batchSize),
			zap.Error(err),
		)
		r.emit(Notice{Attempt: attempt + 1, MaxAttempts: r.policy.MaxAttempts, Wait: wait, Err: err})

		if err := r.sleep(ctx, wait); err != nil {
			return fmt.Errorf("embedding backoff interrupted: %w", err)
		}
	}

	metrics.EmbeddingRetriesTotal.WithLabelValues("exhausted").Inc()
	r.logger.Error("Embedding failed: rate limit persisted across all attempts",
		zap.Int("max_attempts", r.policy.MaxAttempts),
		zap.Int("batch_size", batchSize),
		zap.Error(lastErr),
	)
	r.emit(Notice{
		Attempt:     r.policy.MaxAttempts,
		MaxAttempts: r.policy.MaxAttempts,
		Exhausted:   true,
		Err:         lastErr,
	})

	return fmt.Errorf("gave up after %d attempts: %w: %w",
		r.policy.MaxAttempts, domain.ErrEmbeddingExhausted, lastErr)
}

func (r *RetryingEmbedder) emit(n Notice) {
	if r.notify != nil {
		r.notify(n)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // caller wraps
	case <-t.C:
		return nil
	}
}
