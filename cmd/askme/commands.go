package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askme/internal/app"
	"github.com/kailas-cloud/askme/internal/config"
	logpkg "github.com/kailas-cloud/askme/internal/logger"
	chiTransport "github.com/kailas-cloud/askme/internal/transport/chi"
	embeddinguc "github.com/kailas-cloud/askme/internal/usecase/embedding"
	"github.com/kailas-cloud/askme/internal/version"
)

type globalFlags struct {
	configPath string
	corpusPath string
}

func loadConfig(flags *globalFlags) (config.Config, string, error) {
	env := config.GetEnv()

	var (
		cfg config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, "", fmt.Errorf("load config: %w", err)
	}
	if flags.corpusPath != "" {
		cfg.Corpus.Path = flags.corpusPath
	}
	return cfg, env, nil
}

func createServeCommand(flags *globalFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Build the index once and serve the question, usage, health and metrics endpoints until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, env, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.HTTP.Port = port
			}
			return serve(cmd.Context(), cfg, env)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override http.port")

	return cmd
}

func serve(ctx context.Context, cfg config.Config, env string) error {
	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting askme API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("corpus", cfg.Corpus.Path),
		zap.String("index_backend", cfg.Index.Backend),
		zap.String("cache_driver", cfg.Cache.Driver),
	)

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Startup failed", zap.Error(err))
	}
	defer a.Close()

	server := chiTransport.NewServer(
		a.Answers, a.Health,
		time.Duration(cfg.Pipeline.QuestionTimeoutSec)*time.Second, logger,
	).WithUsage(a.Usage)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func createAskCommand(flags *globalFlags) *cobra.Command {
	var showContext bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question and exit",
		Long:  "Build the index, answer one question on stdout and exit. Rate-limit warnings go to stderr.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, env, err := loadConfig(flags)
			if err != nil {
				return err
			}
			// The terminal is for the answer; keep logs quiet unless asked.
			if cfg.Logging.Level == "" {
				cfg.Logging.Level = "warn"
			}
			logger, err := logpkg.New(env, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			stderr := cmd.ErrOrStderr()
			a, err := app.Build(ctx, cfg, logger, app.WithRetryNotifier(func(n embeddinguc.Notice) {
				if n.Exhausted {
					fmt.Fprintln(stderr, "Rate limit exceeded. Please check your plan and billing details.")
					return
				}
				fmt.Fprintf(stderr, "Rate limit exceeded. Retrying in %s...\n", n.Wait)
			}))
			if err != nil {
				return fmt.Errorf("startup: %w", err)
			}
			defer a.Close()

			fmt.Fprintln(stderr, "Thinking...")
			ans, err := a.Answers.Submit(ctx, strings.Join(args, " "))
			if err != nil {
				return err //nolint:wrapcheck // already tagged with its stage
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ans.Text)
			if showContext {
				fmt.Fprintln(out, "\n--- context ---")
				for i, c := range ans.Context {
					fmt.Fprintf(out, "[%d] %s\n", i+1, c)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showContext, "show-context", false, "Print the retrieved records after the answer")

	return cmd
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "askme %s (commit %s, built %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}
