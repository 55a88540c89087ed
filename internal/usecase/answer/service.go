// Package answer runs the question pipeline: retrieve, assemble the prompt, generate.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/askme/internal/domain"
	"github.com/kailas-cloud/askme/internal/logger"
	"github.com/kailas-cloud/askme/internal/metrics"
)

// Outcome labels for the questions metric.
const (
	outcomeAnswered = "answered"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// Config tunes the pipeline.
type Config struct {
	TopK        int
	MaxInFlight int64
}

// Service answers questions. It is safe for concurrent use; at most
// MaxInFlight questions run at once.
type Service struct {
	retriever Retriever
	prompts   PromptBuilder
	completer Completer
	budget    BudgetChecker
	sem       *semaphore.Weighted
	topK      int
	logger    *zap.Logger
}

// New creates the pipeline. retriever may be nil, in which case questions are
// answered without retrieved context. budget may be nil.
func New(
	retriever Retriever,
	prompts PromptBuilder,
	completer Completer,
	budget BudgetChecker,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.TopK < 1 {
		cfg.TopK = domain.DefaultTopK
	}
	if cfg.MaxInFlight < 1 {
		cfg.MaxInFlight = 1
	}
	return &Service{
		retriever: retriever,
		prompts:   prompts,
		completer: completer,
		budget:    budget,
		sem:       semaphore.NewWeighted(cfg.MaxInFlight),
		topK:      cfg.TopK,
		logger:    logger,
	}
}

// Degraded reports whether questions are answered without retrieval.
func (s *Service) Degraded() bool { return s.retriever == nil }

// Submit answers one question. A blank question fails with
// domain.ErrEmptyQuestion before any remote call. Stage failures are returned
// as *domain.StageError.
func (s *Service) Submit(ctx context.Context, question string) (domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		metrics.QuestionsTotal.WithLabelValues(outcomeRejected, "").Inc()
		return domain.Answer{}, domain.ErrEmptyQuestion
	}

	// Admission failures happen before any stage runs and stay untagged.
	if err := s.sem.Acquire(ctx, 1); err != nil {
		metrics.QuestionsTotal.WithLabelValues(outcomeRejected, "").Inc()
		return domain.Answer{}, fmt.Errorf("wait for pipeline: %w: %w", domain.ErrBusy, err)
	}
	defer s.sem.Release(1)

	start := time.Now()
	ctx, usage := domain.NewContextWithUsage(ctx)
	id := uuid.NewString()
	log := logger.FromContext(ctx, s.logger).With(zap.String("answer_id", id))

	contextTexts, err := s.retrieve(ctx, question, log)
	if err != nil {
		return domain.Answer{}, s.fail(log, domain.StageRetrieval, err, start)
	}

	completion, err := s.generate(ctx, question, contextTexts)
	if err != nil {
		return domain.Answer{}, s.fail(log, domain.StageGeneration, err, start)
	}
	usage.AddCompletionTokens(completion.TotalTokens)

	duration := time.Since(start)
	metrics.QuestionsTotal.WithLabelValues(outcomeAnswered, "").Inc()
	metrics.QuestionDuration.Observe(duration.Seconds())

	log.Info("Question answered",
		zap.Int("context_records", len(contextTexts)),
		zap.Int("embedding_tokens", usage.EmbeddingTokens),
		zap.Int("completion_tokens", usage.CompletionTokens),
		zap.Duration("duration", duration),
	)

	return domain.Answer{
		ID:      id,
		Text:    completion.Text,
		Context: contextTexts,
		Usage:   *usage,
	}, nil
}

func (s *Service) retrieve(ctx context.Context, question string, log *zap.Logger) ([]string, error) {
	if s.retriever == nil {
		log.Warn("Retrieval unavailable, answering without context")
		return nil, nil
	}
	texts, err := s.retriever.Search(ctx, question, s.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	return texts, nil
}

func (s *Service) generate(ctx context.Context, question string, contextTexts []string) (domain.Completion, error) {
	if s.budget != nil {
		if err := s.budget.Check(ctx); err != nil {
			return domain.Completion{}, err //nolint:wrapcheck // already wrapped by the tracker
		}
	}

	p := s.prompts.Build(question, contextTexts)

	completion, err := s.completer.Generate(ctx, p.String())
	if err != nil {
		return domain.Completion{}, fmt.Errorf("generate answer: %w", err)
	}
	if s.budget != nil {
		s.budget.Record(int64(completion.TotalTokens))
	}
	return completion, nil
}

func (s *Service) fail(log *zap.Logger, stage domain.Stage, err error, start time.Time) error {
	metrics.QuestionsTotal.WithLabelValues(outcomeFailed, string(stage)).Inc()
	metrics.QuestionDuration.Observe(time.Since(start).Seconds())

	level := log.Error
	if errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrBudgetExceeded) {
		level = log.Warn
	}
	level("Question failed", zap.String("stage", string(stage)), zap.Error(err))

	return domain.NewStageError(stage, err)
}
