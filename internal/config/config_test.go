package config

import (
	"strings"
	"testing"
	"time"
)

func validDashboard() *Config {
	return &Config{
		DashboardPort:       "8080",
		APIBaseURL:          "https://api.example.com",
		SessionSecret:       strings.Repeat("s", 32),
		SessionCookieName:   "acct_session",
		SessionTTL:          time.Hour,
		UploadConcurrency:   4,
		SnapshotCacheTTL:    time.Minute,
		UploadRatePerMinute: 30,
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com/")
	t.Setenv("UPLOAD_CONCURRENCY", "not-a-number")
	t.Setenv("SESSION_TTL", "2h")

	cfg := FromEnv()

	if cfg.APIBaseURL != "https://api.example.com" {
		t.Errorf("APIBaseURL = %q, trailing slash should be trimmed", cfg.APIBaseURL)
	}
	if cfg.UploadConcurrency != 4 {
		t.Errorf("UploadConcurrency = %d, want default 4", cfg.UploadConcurrency)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("SessionTTL = %v, want 2h", cfg.SessionTTL)
	}
	if cfg.LedgerBackend != "memory" {
		t.Errorf("LedgerBackend = %q, want memory", cfg.LedgerBackend)
	}
	if cfg.SummaryPrefix != "summaries/" {
		t.Errorf("SummaryPrefix = %q", cfg.SummaryPrefix)
	}
}

func TestValidateDashboard(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.DashboardPort = "http" }, wantErr: "DASHBOARD_PORT"},
		{name: "missing base url", mutate: func(c *Config) { c.APIBaseURL = "" }, wantErr: "API_BASE_URL is required"},
		{name: "bad scheme", mutate: func(c *Config) { c.APIBaseURL = "ftp://x" }, wantErr: "scheme"},
		{name: "short secret", mutate: func(c *Config) { c.SessionSecret = "abc" }, wantErr: "SESSION_SECRET"},
		{name: "zero concurrency", mutate: func(c *Config) { c.UploadConcurrency = 0 }, wantErr: "upload concurrency"},
		{name: "missing static dir", mutate: func(c *Config) { c.StaticDir = "/does/not/exist" }, wantErr: "STATIC_DIR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDashboard()
			tt.mutate(cfg)
			err := cfg.ValidateDashboard()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDashboard_CollectsAllErrors(t *testing.T) {
	cfg := &Config{DashboardPort: "0"}
	err := cfg.ValidateDashboard()
	if err == nil {
		t.Fatal("expected error")
	}
	if got := strings.Count(err.Error(), "\n- "); got < 4 {
		t.Errorf("expected several collected errors, got %d in %q", got, err.Error())
	}
}

func TestValidateLedger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "memory default", cfg: Config{LedgerPort: "8090", LedgerBackend: "memory"}},
		{name: "bigquery without project", cfg: Config{LedgerPort: "8090", LedgerBackend: "bigquery", BQDataset: "finance", BQTable: "transactions"}, wantErr: true},
		{name: "bigquery ok", cfg: Config{LedgerPort: "8090", LedgerBackend: "bigquery", GCPProject: "p", BQDataset: "finance", BQTable: "transactions"}},
		{name: "unknown backend", cfg: Config{LedgerPort: "8090", LedgerBackend: "sheets"}, wantErr: true},
		{name: "missing seed", cfg: Config{LedgerPort: "8090", LedgerBackend: "memory", SeedFile: "/nope.json"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateLedger()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLedger() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
