// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	DB       DBConfig       `mapstructure:"db"`
	Rescrape RescrapeConfig `mapstructure:"rescrape"`
	Blob     BlobConfig     `mapstructure:"blob"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ScrapeConfig governs the listing scrape pipeline.
type ScrapeConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	PageTemplate string `mapstructure:"page_template"`
	StartPage    int    `mapstructure:"start_page"`
	MaxPages     int    `mapstructure:"max_pages"`
	Tribunal     string `mapstructure:"tribunal"`
	Download     bool   `mapstructure:"download"`
	Persist      bool   `mapstructure:"persist"`
	OutputDir    string `mapstructure:"output_dir"`
}

// HTTPConfig configures the fetch client and its retry behavior.
type HTTPConfig struct {
	UserAgent        string `mapstructure:"user_agent"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MaxRetries       int    `mapstructure:"max_retries"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN            string `mapstructure:"dsn"`
	DocumentsTable string `mapstructure:"documents_table"`
	CasesTable     string `mapstructure:"cases_table"`
	CursorsTable   string `mapstructure:"cursors_table"`
	MaxConns       int    `mapstructure:"max_conns"`
}

// RescrapeConfig governs the cursor-tracked batch walker.
type RescrapeConfig struct {
	BatchSize  int    `mapstructure:"batch_size"`
	DelayMs    int    `mapstructure:"delay_ms"`
	MaxBatches int    `mapstructure:"max_batches"`
	CursorName string `mapstructure:"cursor_name"`
	StoreBytes bool   `mapstructure:"store_bytes"`
}

// BlobConfig selects the off-site copy backend for downloaded PDFs.
type BlobConfig struct {
	Backend string `mapstructure:"backend"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRIBUNAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scrape.page_template", "query")
	v.SetDefault("scrape.start_page", 1)
	v.SetDefault("scrape.max_pages", 5)
	v.SetDefault("scrape.tribunal", "First-tier Tribunal (Housing)")
	v.SetDefault("scrape.download", true)
	v.SetDefault("scrape.persist", false)
	v.SetDefault("scrape.output_dir", "outputs")
	v.SetDefault("http.user_agent", "tribunal-scraper/0.1 (research)")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_initial_ms", 500)
	v.SetDefault("http.backoff_max_ms", 10000)
	v.SetDefault("db.documents_table", "documents")
	v.SetDefault("db.cases_table", "cases")
	v.SetDefault("db.cursors_table", "cursors")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("rescrape.batch_size", 200)
	v.SetDefault("rescrape.delay_ms", 200)
	v.SetDefault("rescrape.max_batches", 100000)
	v.SetDefault("rescrape.cursor_name", "rescrape_progress")
	v.SetDefault("rescrape.store_bytes", true)
	v.SetDefault("blob.backend", "none")
	v.SetDefault("blob.prefix", "pdfs")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Scrape.PageTemplate {
	case "query", "path":
	default:
		return fmt.Errorf("scrape.page_template must be query or path")
	}
	if c.Scrape.StartPage <= 0 {
		return fmt.Errorf("scrape.start_page must be > 0")
	}
	if c.Scrape.MaxPages <= 0 {
		return fmt.Errorf("scrape.max_pages must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.Rescrape.BatchSize <= 0 {
		return fmt.Errorf("rescrape.batch_size must be > 0")
	}
	if c.Rescrape.CursorName == "" {
		return fmt.Errorf("rescrape.cursor_name must be set")
	}
	switch c.Blob.Backend {
	case "none", "local":
	case "gcs":
		if c.Blob.Bucket == "" {
			return fmt.Errorf("blob.bucket must be set when blob.backend is gcs")
		}
	default:
		return fmt.Errorf("blob.backend must be none, local, or gcs")
	}
	return nil
}

// HTTPTimeout converts the HTTP timeout config into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// BackoffInitial converts the initial backoff config into a duration.
func (c Config) BackoffInitial() time.Duration {
	return time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond
}

// BackoffMax converts the backoff ceiling config into a duration.
func (c Config) BackoffMax() time.Duration {
	return time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond
}

// BatchDelay converts the inter-batch delay config into a duration.
func (c Config) BatchDelay() time.Duration {
	return time.Duration(c.Rescrape.DelayMs) * time.Millisecond
}
