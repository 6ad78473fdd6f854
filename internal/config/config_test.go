package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Scrape.PageTemplate != "query" {
		t.Fatalf("expected query template default, got %q", cfg.Scrape.PageTemplate)
	}
	if cfg.Scrape.MaxPages != 5 || cfg.Scrape.StartPage != 1 {
		t.Fatalf("expected paging defaults, got %+v", cfg.Scrape)
	}
	if cfg.Rescrape.BatchSize != 200 || cfg.Rescrape.CursorName != "rescrape_progress" {
		t.Fatalf("expected rescrape defaults, got %+v", cfg.Rescrape)
	}
	if cfg.Blob.Backend != "none" {
		t.Fatalf("expected blob backend none, got %q", cfg.Blob.Backend)
	}
	if got := cfg.HTTPTimeout(); got != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %v", got)
	}
	if got := cfg.BatchDelay(); got != 200*time.Millisecond {
		t.Fatalf("expected 200ms batch delay, got %v", got)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
scrape:
  base_url: https://www.gov.uk/residential-property-tribunal-decisions
  page_template: path
  start_page: 2
  max_pages: 20
  tribunal: Upper Tribunal (Lands Chamber)
  download: false
  persist: true
  output_dir: /tmp/pdfs
http:
  user_agent: housing-research-bot
  timeout_seconds: 45
  max_retries: 5
  backoff_initial_ms: 100
  backoff_max_ms: 2000
db:
  dsn: postgres://scraper@localhost/tribunals
  documents_table: tribunal_documents
rescrape:
  batch_size: 50
  delay_ms: 500
  cursor_name: housing_rescrape
blob:
  backend: gcs
  bucket: tribunal-pdfs
  prefix: housing
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Scrape.PageTemplate != "path" || cfg.Scrape.StartPage != 2 {
		t.Fatalf("expected scrape overrides to apply: %+v", cfg.Scrape)
	}
	if cfg.Scrape.Download || !cfg.Scrape.Persist {
		t.Fatalf("expected download/persist toggles to apply: %+v", cfg.Scrape)
	}
	if cfg.DB.DocumentsTable != "tribunal_documents" {
		t.Fatalf("expected documents table override, got %q", cfg.DB.DocumentsTable)
	}
	if cfg.DB.CasesTable != "cases" {
		t.Fatalf("expected cases table default to survive, got %q", cfg.DB.CasesTable)
	}
	if cfg.Rescrape.BatchSize != 50 || cfg.Rescrape.CursorName != "housing_rescrape" {
		t.Fatalf("expected rescrape overrides to apply: %+v", cfg.Rescrape)
	}
	if cfg.Blob.Backend != "gcs" || cfg.Blob.Bucket != "tribunal-pdfs" {
		t.Fatalf("expected blob overrides to apply: %+v", cfg.Blob)
	}
	if got := cfg.HTTPTimeout(); got != 45*time.Second {
		t.Fatalf("expected 45s timeout, got %v", got)
	}
	if cfg.Logging.Development {
		t.Fatal("expected production logging")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Scrape:   ScrapeConfig{PageTemplate: "query", StartPage: 1, MaxPages: 5},
		HTTP:     HTTPConfig{TimeoutSeconds: 30},
		Rescrape: RescrapeConfig{BatchSize: 200, CursorName: "rescrape_progress"},
		Blob:     BlobConfig{Backend: "none"},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid page template",
			cfg: func() Config {
				c := base
				c.Scrape.PageTemplate = "offset"
				return c
			}(),
			want: "scrape.page_template",
		},
		{
			name: "invalid max pages",
			cfg: func() Config {
				c := base
				c.Scrape.MaxPages = 0
				return c
			}(),
			want: "scrape.max_pages",
		},
		{
			name: "invalid timeout",
			cfg: func() Config {
				c := base
				c.HTTP.TimeoutSeconds = 0
				return c
			}(),
			want: "http.timeout_seconds",
		},
		{
			name: "invalid batch size",
			cfg: func() Config {
				c := base
				c.Rescrape.BatchSize = 0
				return c
			}(),
			want: "rescrape.batch_size",
		},
		{
			name: "gcs without bucket",
			cfg: func() Config {
				c := base
				c.Blob.Backend = "gcs"
				return c
			}(),
			want: "blob.bucket",
		},
		{
			name: "unknown blob backend",
			cfg: func() Config {
				c := base
				c.Blob.Backend = "s3"
				return c
			}(),
			want: "blob.backend",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
