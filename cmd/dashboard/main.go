package main

import (
	"context"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/acct-ai/internal/api/middleware"
	"github.com/dvloznov/acct-ai/internal/apiclient"
	"github.com/dvloznov/acct-ai/internal/config"
	"github.com/dvloznov/acct-ai/internal/dashboard"
	"github.com/dvloznov/acct-ai/internal/logger"
	"github.com/dvloznov/acct-ai/internal/session"
	"github.com/dvloznov/acct-ai/internal/uploads"
	"github.com/dvloznov/acct-ai/internal/uploads/inmemory"
	"github.com/dvloznov/acct-ai/internal/uploads/sqlite"
)

func main() {
	cfg := config.Load()

	port := flag.String("port", cfg.DashboardPort, "HTTP server port (or set DASHBOARD_PORT env)")
	flag.Parse()
	cfg.DashboardPort = *port

	log := logger.NewWithConfig(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := cfg.ValidateDashboard(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	client := apiclient.New(cfg.APIBaseURL, log)

	sessions, err := session.NewCookieStore(cfg.SessionSecret, cfg.SessionCookieName, cfg.SessionTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session store")
	}

	var store uploads.Store
	if cfg.UploadsDBPath != "" {
		sqliteStore, err := sqlite.NewStore(cfg.UploadsDBPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.UploadsDBPath).Msg("Failed to open upload history database")
		}
		store = sqliteStore
		log.Info().Str("path", cfg.UploadsDBPath).Msg("Upload history stored in SQLite")
	} else {
		store = inmemory.NewStore()
		log.Warn().Msg("No UPLOADS_DB_PATH configured - upload history is kept in memory only")
	}

	coord := uploads.NewCoordinator(client, store, log,
		uploads.WithConcurrency(cfg.UploadConcurrency))
	svc := dashboard.NewService(client, cfg.SnapshotCacheTTL, log)

	guard := middleware.DefaultGuard()
	handler := dashboard.NewHandler(svc, coord, sessions, guard, log)
	router := dashboard.NewRouter(dashboard.RouterConfig{
		Handler:             handler,
		Sessions:            sessions,
		Guard:               guard,
		StaticDir:           cfg.StaticDir,
		AllowedOrigin:       cfg.AllowedOrigin,
		UploadRatePerMinute: cfg.UploadRatePerMinute,
		Log:                 log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.DashboardPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.DashboardPort).
			Str("api_base_url", cfg.APIBaseURL).
			Msg("Starting dashboard server")
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

	if closer, ok := store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close upload history store")
		}
	}

	log.Info().Msg("Server exited")
}
