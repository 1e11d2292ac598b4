package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/dvloznov/acct-ai/internal/config"
	"github.com/dvloznov/acct-ai/internal/logger"
	"github.com/dvloznov/acct-ai/internal/uploads/sqlite"
)

func main() {
	cfg := config.Load()

	dbPath := flag.String("db", cfg.UploadsDBPath, "Path to the upload history database (or set UPLOADS_DB_PATH env)")
	flag.Parse()

	log := logger.NewWithConfig(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if *dbPath == "" {
		log.Fatal().Msg("Error: -db flag is required. Please specify the upload history database path.")
	}

	if dir := filepath.Dir(*dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("Failed to create database directory")
		}
	}

	log.Info().Str("db", *dbPath).Msg("Applying upload history migrations")

	if err := sqlite.RunMigrations(*dbPath); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	log.Info().Msg("Upload history schema is up to date")
}
