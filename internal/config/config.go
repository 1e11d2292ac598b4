package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const minSessionSecretLen = 32

type Config struct {
	// Logging
	LogLevel  string
	LogFormat string

	// Dashboard server
	DashboardPort       string
	APIBaseURL          string
	SessionSecret       string
	SessionCookieName   string
	SessionTTL          time.Duration
	UploadsDBPath       string
	UploadConcurrency   int
	SnapshotCacheTTL    time.Duration
	StaticDir           string
	AllowedOrigin       string
	UploadRatePerMinute int

	// Ledger API server
	LedgerPort    string
	LedgerBackend string
	GCPProject    string
	BQDataset     string
	BQTable       string
	GCSBucket     string
	SummaryPrefix string
	SeedFile      string
	GenAIModel    string
	PublicBaseURL string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() *Config {
	return &Config{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		DashboardPort:       getEnv("DASHBOARD_PORT", "8080"),
		APIBaseURL:          strings.TrimRight(getEnv("API_BASE_URL", ""), "/"),
		SessionSecret:       getEnv("SESSION_SECRET", ""),
		SessionCookieName:   getEnv("SESSION_COOKIE_NAME", "acct_session"),
		SessionTTL:          getEnvDuration("SESSION_TTL", 24*time.Hour),
		UploadsDBPath:       getEnv("UPLOADS_DB_PATH", ""),
		UploadConcurrency:   getEnvInt("UPLOAD_CONCURRENCY", 4),
		SnapshotCacheTTL:    getEnvDuration("SNAPSHOT_CACHE_TTL", 10*time.Minute),
		StaticDir:           getEnv("STATIC_DIR", ""),
		AllowedOrigin:       getEnv("ALLOWED_ORIGIN", "*"),
		UploadRatePerMinute: getEnvInt("UPLOAD_RATE_PER_MINUTE", 30),

		LedgerPort:    getEnv("LEDGER_PORT", "8090"),
		LedgerBackend: getEnv("LEDGER_BACKEND", "memory"),
		GCPProject:    getEnv("GCP_PROJECT", ""),
		BQDataset:     getEnv("BQ_DATASET", "finance"),
		BQTable:       getEnv("BQ_TABLE", "transactions"),
		GCSBucket:     getEnv("GCS_BUCKET", ""),
		SummaryPrefix: getEnv("SUMMARY_PREFIX", "summaries/"),
		SeedFile:      getEnv("SEED_FILE", ""),
		GenAIModel:    getEnv("GENAI_MODEL", ""),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
	}
}

// ValidateClient checks the settings every API consumer needs.
func (c *Config) ValidateClient() error {
	var errors []string
	errors = append(errors, c.validateAPIBaseURL()...)
	return combine(errors)
}

// ValidateDashboard checks the settings of the dashboard server.
func (c *Config) ValidateDashboard() error {
	var errors []string

	errors = append(errors, validatePort("DASHBOARD_PORT", c.DashboardPort)...)
	errors = append(errors, c.validateAPIBaseURL()...)

	if len(c.SessionSecret) < minSessionSecretLen {
		errors = append(errors, fmt.Sprintf("SESSION_SECRET must be at least %d bytes", minSessionSecretLen))
	}
	if c.SessionCookieName == "" {
		errors = append(errors, "SESSION_COOKIE_NAME cannot be empty")
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.UploadConcurrency < 1 || c.UploadConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid upload concurrency %d: must be between 1 and 64", c.UploadConcurrency))
	}
	if c.SnapshotCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid snapshot cache TTL %v: must be positive", c.SnapshotCacheTTL))
	}
	if c.UploadRatePerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid upload rate %d: must be at least 1 per minute", c.UploadRatePerMinute))
	}
	if c.StaticDir != "" {
		if info, err := os.Stat(c.StaticDir); err != nil || !info.IsDir() {
			errors = append(errors, fmt.Sprintf("STATIC_DIR '%s' is not a directory", c.StaticDir))
		}
	}

	return combine(errors)
}

// ValidateLedger checks the settings of the ledger API server.
func (c *Config) ValidateLedger() error {
	var errors []string

	errors = append(errors, validatePort("LEDGER_PORT", c.LedgerPort)...)

	switch c.LedgerBackend {
	case "memory":
		if c.SeedFile != "" {
			if _, err := os.Stat(c.SeedFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("seed file does not exist: %s", c.SeedFile))
			}
		}
	case "bigquery":
		if c.GCPProject == "" {
			errors = append(errors, "GCP_PROJECT is required when using bigquery backend")
		}
		if c.BQDataset == "" || c.BQTable == "" {
			errors = append(errors, "BQ_DATASET and BQ_TABLE are required when using bigquery backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of [memory bigquery]", c.LedgerBackend))
	}

	if c.GenAIModel != "" && c.GCPProject == "" && os.Getenv("GOOGLE_API_KEY") == "" && os.Getenv("GEMINI_API_KEY") == "" {
		errors = append(errors, "GENAI_MODEL requires GOOGLE_API_KEY, GEMINI_API_KEY or GCP_PROJECT")
	}
	if c.PublicBaseURL != "" {
		if _, err := url.ParseRequestURI(c.PublicBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid PUBLIC_BASE_URL '%s': %v", c.PublicBaseURL, err))
		}
	}

	return combine(errors)
}

func (c *Config) validateAPIBaseURL() []string {
	if c.APIBaseURL == "" {
		return []string{"API_BASE_URL is required"}
	}
	parsed, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return []string{fmt.Sprintf("invalid API_BASE_URL '%s': %v", c.APIBaseURL, err)}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return []string{fmt.Sprintf("invalid API_BASE_URL scheme '%s': must be 'http' or 'https'", parsed.Scheme)}
	}
	return nil
}

func validatePort(name, value string) []string {
	port, err := strconv.Atoi(value)
	if err != nil {
		return []string{fmt.Sprintf("invalid %s '%s': must be a number", name, value)}
	}
	if port < 1 || port > 65535 {
		return []string{fmt.Sprintf("invalid %s %d: must be between 1 and 65535", name, port)}
	}
	return nil
}

func combine(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
