package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/api/handlers"
	"github.com/cloo-solutions/docqa/internal/cli"
	"github.com/cloo-solutions/docqa/internal/config"
	"github.com/cloo-solutions/docqa/internal/database"
	"github.com/cloo-solutions/docqa/internal/logger"
	"github.com/cloo-solutions/docqa/internal/repository"
	"github.com/cloo-solutions/docqa/internal/server"
	"github.com/cloo-solutions/docqa/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the docqa API server. With DOCQA_DATABASE_URL set the store is
persisted to Postgres and restored on start; with DOCQA_S3_* set tables can be
archived to object storage.`,
		RunE: runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides DOCQA_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", database.DefaultMigrationsSource, "Migration source URL")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	log, err := logger.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.ContextWithLogger(ctx, log)

	shutdownTelemetry, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.SentryTracesSampleRate,
		Debug:            cfg.Debug,
	}, log)
	if err != nil {
		log.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
	} else {
		defer shutdownTelemetry()
	}

	var opts cli.StackOptions
	if cfg.HasDatabase() {
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL}, log)
		if err != nil {
			return err
		}
		defer pool.Close()

		if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate {
			source, _ := cmd.Flags().GetString("migrations")
			if _, err := database.Migrate(cfg.DatabaseURL, source, log); err != nil {
				return err
			}
		}

		opts.Records = repository.NewRecordRepository(pool)
		opts.Questions = repository.NewQuestionLogRepository(pool)
	} else {
		log.Warn("DOCQA_DATABASE_URL not set, the store lives in memory only")
	}
	opts.EnsureBucket = true

	stack, err := cli.BuildStack(ctx, cfg, opts)
	if err != nil {
		return err
	}
	if stack.Storage != nil {
		log.Info("table archive ready", zap.String("bucket", stack.Storage.Bucket()))
	}
	if !cfg.HasOpenAI() {
		log.Warn("DOCQA_OPENAI_API_KEY not set, requests must send their own key")
	}

	restoreCtx, span := telemetry.StartTransaction(ctx, "restore store", "startup")
	err = stack.Session.Restore(restoreCtx)
	if err != nil {
		span.SetError(err)
	}
	span.End()
	if err != nil {
		return err
	}

	var archives handlers.ArchiveService
	if stack.Archiver != nil {
		archives = stack.Archiver
	}

	router := server.NewRouter(server.RouterConfig{
		QAHandler:         handlers.NewQAHandler(stack.Session, archives),
		Logger:            log,
		DefaultCredential: cfg.OpenAIAPIKey,
		MaxUploadBytes:    cfg.MaxUploadMB << 20,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}
