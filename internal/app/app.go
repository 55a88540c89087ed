// Package app is the composition root: it builds every long-lived component
// once at startup and owns them until shutdown.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askme/internal/config"
	"github.com/kailas-cloud/askme/internal/corpus"
	"github.com/kailas-cloud/askme/internal/db"
	dbRedis "github.com/kailas-cloud/askme/internal/db/redis"
	"github.com/kailas-cloud/askme/internal/domain"
	"github.com/kailas-cloud/askme/internal/metrics"
	"github.com/kailas-cloud/askme/internal/prompt"
	budgetrepo "github.com/kailas-cloud/askme/internal/repository/budget"
	"github.com/kailas-cloud/askme/internal/repository/embcache"
	"github.com/kailas-cloud/askme/internal/transport/openai"
	answeruc "github.com/kailas-cloud/askme/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/askme/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/askme/internal/usecase/health"
	retrievaluc "github.com/kailas-cloud/askme/internal/usecase/retrieval"
	usageuc "github.com/kailas-cloud/askme/internal/usecase/usage"
	"github.com/kailas-cloud/askme/internal/vectorindex"
)

// budgetScope namespaces budget counters in the KV store.
const budgetScope = "openai"

// App holds the components shared by the HTTP server and the CLI.
type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Answers *answeruc.Service
	Health  *healthuc.Service
	Usage   *usageuc.Service
	Budget  *embeddinguc.BudgetTracker // nil when no limits are configured
	Index   vectorindex.Searcher       // nil when retrieval is degraded

	store db.Store
}

// Option customizes Build.
type Option func(*options)

type options struct {
	notifier embeddinguc.Notifier
}

// WithRetryNotifier forwards embedding rate-limit warnings, e.g. to a terminal.
func WithRetryNotifier(n embeddinguc.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// Build loads the corpus, embeds it, builds the index and wires the pipeline.
// Any error is a startup failure.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterAnswerMetrics()

	a := &App{Config: cfg, Logger: logger}

	store, err := openStore(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	a.store = store

	// Pass nil interface (not typed nil pointer) when no budget is configured.
	var (
		budgetChecker embeddinguc.BudgetChecker
		budgetReader  usageuc.BudgetReader
	)
	if cfg.Budget.DailyTokenLimit > 0 || cfg.Budget.MonthlyTokenLimit > 0 {
		a.Budget = embeddinguc.NewBudgetTracker(
			budgetScope, cfg.Budget.DailyTokenLimit, cfg.Budget.MonthlyTokenLimit,
			embeddinguc.BudgetAction(cfg.Budget.Action), logger,
		)
		if store != nil {
			a.Budget.WithStore(ctx, budgetrepo.New(store, 0, 0))
		}
		budgetChecker = a.Budget
		budgetReader = a.Budget
	}
	a.Usage = usageuc.New(budgetReader)

	embedder := buildEmbedder(cfg, store, budgetChecker, o.notifier, logger)
	completer := openai.NewCompleter(&openai.Config{
		APIKey:    cfg.OpenAI.APIKey,
		BaseURL:   cfg.OpenAI.BaseURL,
		Model:     cfg.Completion.Model,
		MaxTokens: cfg.Completion.MaxTokens,
		Logger:    logger,
	})

	prompts, err := buildPrompt(cfg.Prompt)
	if err != nil {
		a.Close()
		return nil, err
	}

	index, err := buildIndex(ctx, cfg, embedder, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Interfaces stay nil when degraded so the pipeline and health see "no index".
	var (
		retriever  answeruc.Retriever
		indexState healthuc.IndexState
	)
	if index != nil {
		a.Index = index
		retriever = retrievaluc.New(embedder, index)
		indexState = index
		metrics.IndexRecords.Set(float64(index.Len()))
	}

	a.Answers = answeruc.New(retriever, prompts, completer, budgetChecker, answeruc.Config{
		TopK:        cfg.Index.TopK,
		MaxInFlight: int64(cfg.Pipeline.MaxInFlight),
	}, logger)

	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	a.Health = healthuc.New(completer, cachePinger, indexState)

	return a, nil
}

// Close releases the KV store connection.
func (a *App) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

func openStore(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (db.Store, error) {
	if cfg.Driver == "" {
		logger.Info("Embedding cache disabled")
		return nil, nil
	}

	// Valkey speaks the Redis protocol; one rueidis client serves both.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
	}
	logger.Info("Connected to cache", zap.String("driver", cfg.Driver), zap.Strings("addrs", cfg.Addrs))
	return store, nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Retrying -> Cached -> Instrumented.
// The cache sits outside the retry loop so hits never wait on backoff.
func buildEmbedder(
	cfg config.Config,
	store db.Store,
	budget embeddinguc.BudgetChecker,
	notifier embeddinguc.Notifier,
	logger *zap.Logger,
) *embeddinguc.InstrumentedEmbedder {
	base := openai.NewEmbedder(&openai.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	var retryOpts []embeddinguc.RetryOption
	if notifier != nil {
		retryOpts = append(retryOpts, embeddinguc.WithNotifier(notifier))
	}
	var embedder domain.Embedder = embeddinguc.NewRetryingEmbedder(base, embeddinguc.RetryPolicy{
		MaxAttempts: cfg.Embedding.Retry.MaxAttempts,
		InitialWait: time.Duration(cfg.Embedding.Retry.InitialWaitMS) * time.Millisecond,
		MaxWait:     time.Duration(cfg.Embedding.Retry.MaxWaitMS) * time.Millisecond,
	}, logger, retryOpts...)

	if store != nil {
		embedder = embcache.New(
			embedder, store, cfg.Embedding.Model, cfg.Embedding.Dimensions,
			time.Duration(cfg.Cache.TTLHours)*time.Hour, metrics.EmbeddingCacheTotal, logger,
		)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Embedding.Model, budget, logger)
}

func buildPrompt(cfg config.PromptConfig) (*prompt.Assembler, error) {
	if cfg.TemplateFile != "" {
		tmpl, err := prompt.LoadTemplateFile(cfg.TemplateFile)
		if err != nil {
			return nil, err //nolint:wrapcheck // already carries the path
		}
		return prompt.New(tmpl, cfg.Persona) //nolint:wrapcheck // domain.ErrConfiguration
	}
	return prompt.NewVariant(prompt.Variant(cfg.Variant), cfg.Persona) //nolint:wrapcheck // domain.ErrConfiguration
}

// buildIndex returns a nil index when embedding fails and the configuration
// allows answering without retrieval.
func buildIndex(
	ctx context.Context, cfg config.Config, embedder domain.BatchEmbedder, logger *zap.Logger,
) (vectorindex.Searcher, error) {
	records, err := corpus.Load(cfg.Corpus.Path)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	logger.Info("Corpus loaded", zap.String("path", cfg.Corpus.Path), zap.Int("records", len(records)))

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}

	start := time.Now()
	batch, err := embedder.BatchEmbed(ctx, texts)
	if err != nil {
		if cfg.Index.OnEmbeddingFailure == "degrade" {
			logger.Error("Corpus embedding failed, answering without retrieval", zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("embed corpus: %w", err)
	}

	var index vectorindex.Searcher
	switch cfg.Index.Backend {
	case "chromem":
		index, err = vectorindex.BuildChromem(ctx, records, batch.Embeddings)
	default:
		index, err = vectorindex.Build(records, batch.Embeddings)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s index: %w", cfg.Index.Backend, err)
	}

	logger.Info("Index built",
		zap.String("backend", cfg.Index.Backend),
		zap.Int("records", index.Len()),
		zap.Int("embedding_tokens", batch.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return index, nil
}
