package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/acct-ai/internal/config"
	infraBQ "github.com/dvloznov/acct-ai/internal/infra/bigquery"
	"github.com/dvloznov/acct-ai/internal/ledgerapi"
	"github.com/dvloznov/acct-ai/internal/logger"
	"github.com/dvloznov/acct-ai/internal/narrator"
	"github.com/dvloznov/acct-ai/internal/objectstore"
)

func main() {
	cfg := config.Load()

	var (
		port    = flag.String("port", cfg.LedgerPort, "HTTP server port (or set LEDGER_PORT env)")
		backend = flag.String("backend", cfg.LedgerBackend, "Transaction backend: memory or bigquery (or set LEDGER_BACKEND env)")
		seed    = flag.String("seed", cfg.SeedFile, "JSON seed file for the memory backend (or set SEED_FILE env)")
	)
	flag.Parse()
	cfg.LedgerPort = *port
	cfg.LedgerBackend = *backend
	cfg.SeedFile = *seed

	log := logger.NewWithConfig(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := cfg.ValidateLedger(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	repo, closeRepo := openRepository(ctx, cfg, log)
	defer closeRepo()

	store, acceptUploads, closeStore := openObjectStore(ctx, cfg, log)
	defer closeStore()

	opts := []ledgerapi.Option{}
	if cfg.GenAIModel != "" {
		gemini, err := narrator.NewGemini(ctx, cfg.GenAIModel)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GenAI client")
		}
		opts = append(opts, ledgerapi.WithNarrator(narrator.Fallback{
			Primary: gemini,
			Log:     logger.Component(log, "narrator"),
		}))
		log.Info().Str("model", cfg.GenAIModel).Msg("Summaries narrated by GenAI")
	}

	handler := ledgerapi.NewHandler(repo, store, cfg.SummaryPrefix, log, opts...)
	router := ledgerapi.NewRouter(ledgerapi.RouterConfig{
		Handler:       handler,
		AllowedOrigin: cfg.AllowedOrigin,
		AcceptUploads: acceptUploads,
		Log:           log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.LedgerPort,
		Handler:      router,
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.LedgerPort).
			Str("backend", cfg.LedgerBackend).
			Msg("Starting ledger API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func openRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ledgerapi.Repository, func()) {
	if cfg.LedgerBackend == "bigquery" {
		repo, err := infraBQ.NewTransactionRepository(ctx, cfg.GCPProject, cfg.BQDataset, cfg.BQTable,
			logger.Component(log, "bigquery"))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create transaction repository")
		}
		return repo, func() {
			if err := repo.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close BigQuery client")
			}
		}
	}

	repo, err := ledgerapi.LoadMemoryRepository(cfg.SeedFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load seed file")
	}
	log.Info().Str("seed_file", cfg.SeedFile).Msg("Serving transactions from memory")
	return repo, func() {}
}

func openObjectStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (objectstore.Store, bool, func()) {
	if cfg.GCSBucket != "" {
		gcs, err := objectstore.NewGCS(ctx, cfg.GCSBucket, logger.Component(log, "gcs"))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		return gcs, false, func() {
			if err := gcs.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close storage client")
			}
		}
	}

	log.Warn().Msg("No GCS bucket configured - uploads and summaries are kept in memory")
	return objectstore.NewMemory(cfg.PublicBaseURL), true, func() {}
}
