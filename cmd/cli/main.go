package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/acct-ai/internal/apiclient"
	"github.com/dvloznov/acct-ai/internal/config"
	"github.com/dvloznov/acct-ai/internal/dashboard"
	"github.com/dvloznov/acct-ai/internal/ledger"
	"github.com/dvloznov/acct-ai/internal/logger"
	"github.com/dvloznov/acct-ai/internal/uploads"
	"github.com/dvloznov/acct-ai/internal/uploads/inmemory"
)

// cliSlot is the upload history slot used for command line batches.
const cliSlot = "cli"

func main() {
	cfg := config.Load()
	log := logger.NewWithConfig(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: os.Stderr})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "upload":
		runUpload(cfg, log)
	case "series":
		runSeries(cfg, log)
	case "summary":
		runSummary(cfg, log)
	case "predict":
		runPredict(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("acct-ai CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  upload    Upload one or more statements (-file PATH, repeatable)")
	fmt.Println("  series    Print the monthly inflow/outflow series")
	fmt.Println("  summary   Print the ledger summary and recent transactions")
	fmt.Println("  predict   Print the next-month cash-flow projection")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nEvery command accepts -api URL (or set API_BASE_URL env).")
}

// fileList collects repeated -file flags.
type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }

func (f *fileList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func newClient(cfg *config.Config, log zerolog.Logger) *apiclient.Client {
	if cfg.APIBaseURL == "" {
		log.Fatal().Msg("Error: -api or API_BASE_URL is required")
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if err := cfg.ValidateClient(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	return apiclient.New(cfg.APIBaseURL, log)
}

func runUpload(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	api := fs.String("api", cfg.APIBaseURL, "API base URL")
	concurrency := fs.Int("concurrency", cfg.UploadConcurrency, "Maximum parallel uploads")
	var files fileList
	fs.Var(&files, "file", "Path to a statement file (repeatable)")
	fs.Parse(os.Args[2:])
	cfg.APIBaseURL = *api

	if len(files) == 0 {
		log.Fatal().Msg("Usage: cli upload -file PATH [-file PATH ...]")
	}

	client := newClient(cfg, log)
	coord := uploads.NewCoordinator(client, inmemory.NewStore(), log,
		uploads.WithConcurrency(*concurrency))

	sources := make([]uploads.File, 0, len(files))
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("Cannot read file")
		}
		sources = append(sources, uploads.File{
			Name: filepath.Base(path),
			Size: info.Size(),
			Open: func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	batch := coord.UploadAll(ctx, cliSlot, sources)

	for _, item := range batch.Items {
		line := fmt.Sprintf("%-8s %s", item.Status, item.Filename)
		if item.Key != "" {
			line += "  -> " + item.Key
		}
		if item.Error != "" {
			line += "  (" + item.Error + ")"
		}
		fmt.Println(line)
	}
	fmt.Printf("\n%d synced, %d failed\n", batch.Synced, batch.Failed)

	if batch.Failed > 0 {
		os.Exit(1)
	}
}

func runSeries(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("series", flag.ExitOnError)
	api := fs.String("api", cfg.APIBaseURL, "API base URL")
	fs.Parse(os.Args[2:])
	cfg.APIBaseURL = *api

	client := newClient(cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	payload, err := client.FetchTransactions(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("class", apiclient.Classify(err)).Msg("Failed to fetch transactions")
	}

	txs := ledger.NormalizeAll(payload.Transactions)
	series := ledger.BuildMonthlySeries(txs)
	metrics := ledger.BuildMetrics(payload.Stats, txs, time.Now())

	fmt.Printf("Transactions:    %s\n", metrics.TransactionCount)
	fmt.Printf("Total spend:     %s\n", metrics.TotalSpend)
	fmt.Printf("Top vendor:      %s\n", metrics.TopVendor)
	fmt.Printf("Latest activity: %s\n", metrics.LatestActivity)

	if len(series) == 0 {
		fmt.Printf("\n%s\n", ledger.AwaitingUploads)
		return
	}

	fmt.Printf("\n%-10s %14s %14s\n", "Month", "Inflow", "Outflow")
	for _, p := range series {
		fmt.Printf("%-10s %14s %14s\n", p.Period, ledger.FormatCurrency(p.Inflow), ledger.FormatCurrency(p.Outflow))
	}
}

func runSummary(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	api := fs.String("api", cfg.APIBaseURL, "API base URL")
	limit := fs.Int("limit", 10, "Number of transactions to list (0 for all)")
	fs.Parse(os.Args[2:])
	cfg.APIBaseURL = *api

	client := newClient(cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	payload, err := client.FetchSummary(ctx, *limit)
	if err != nil {
		log.Fatal().Err(err).Str("class", apiclient.Classify(err)).Msg("Failed to fetch summary")
	}

	summary := payload.Summary
	if summary == "" {
		summary = ledger.Placeholder
	}
	fmt.Println(summary)
	if payload.SummaryKey != "" {
		fmt.Printf("(saved as %s)\n", payload.SummaryKey)
	}

	rows := ledger.BuildRows(ledger.NormalizeAll(payload.Transactions))
	if len(rows) == 0 {
		return
	}

	fmt.Printf("\n%-14s %-24s %-16s %12s\n", "Date", "Vendor", "Category", "Amount")
	for _, row := range rows {
		fmt.Printf("%-14s %-24s %-16s %12s\n", row.Date, row.Vendor, row.Category, row.Amount)
	}
}

func runPredict(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	api := fs.String("api", cfg.APIBaseURL, "API base URL")
	fs.Parse(os.Args[2:])
	cfg.APIBaseURL = *api

	client := newClient(cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	resp, err := client.Predict(ctx, nil)
	if err != nil {
		log.Fatal().Err(err).Str("class", apiclient.Classify(err)).Msg("Failed to fetch prediction")
	}

	view := dashboard.RenderPrediction(resp, time.Now())
	fmt.Printf("Next period:       %s\n", view.NextPeriod)
	fmt.Printf("Projected inflow:  %s\n", view.ProjectedInflow)
	fmt.Printf("Projected outflow: %s\n", view.ProjectedOutflow)
	fmt.Printf("Projected net:     %s\n", view.ProjectedNet)
	fmt.Printf("Trend:             %s\n", view.Trend)
	fmt.Printf("Confidence:        %s\n", view.Confidence)
	fmt.Printf("Months considered: %s\n", view.MonthsConsidered)
	fmt.Printf("Generated:         %s\n", view.GeneratedAt)
	if view.Message != "" {
		fmt.Printf("\n%s\n", view.Message)
	}
}
