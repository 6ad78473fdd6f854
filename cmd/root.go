// Package cmd defines the CLI commands for the tribunal-scraper
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/housingdocs/tribunal-scraper/internal/config"
	"github.com/housingdocs/tribunal-scraper/internal/fetcher"
	collyfetcher "github.com/housingdocs/tribunal-scraper/internal/fetcher/colly"
	"github.com/housingdocs/tribunal-scraper/internal/logging"
	"github.com/housingdocs/tribunal-scraper/internal/scraper"
	"github.com/housingdocs/tribunal-scraper/internal/storage"
	"github.com/housingdocs/tribunal-scraper/internal/storage/gcs"
	"github.com/housingdocs/tribunal-scraper/internal/storage/local"
	"github.com/housingdocs/tribunal-scraper/internal/store/postgres"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tribunal-scraper",
		Short: "Scrapes housing tribunal decision listings and PDFs",
		Long: `tribunal-scraper collects housing tribunal decisions from public
listing pages. The scrape command walks paginated listings and captures
newly published decision PDFs; the rescrape command revisits every known
case page in cursor-tracked batches to refresh metadata and pick up
late-published documents.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (TRIBUNAL_* env vars also apply)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newRescrapeCmd())
	return cmd
}

// Execute runs the root command with signal-aware cancellation.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// buildFetcher stacks the retry policy on the colly HTTP client.
func buildFetcher(cfg config.Config, logger *zap.Logger) scraper.Fetcher {
	base := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
	})
	return fetcher.NewRetrying(base, fetcher.RetryConfig{
		MaxAttempts: cfg.HTTP.MaxRetries + 1,
		Initial:     cfg.BackoffInitial(),
		Max:         cfg.BackoffMax(),
	}, logger)
}

// buildBlobStore returns the configured off-site copy backend, or nil
// when uploads are disabled. For the local backend, blob.bucket is the
// base directory.
func buildBlobStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.BlobStore, error) {
	switch cfg.Blob.Backend {
	case "none", "":
		return nil, nil
	case "local":
		dir := cfg.Blob.Bucket
		if dir == "" {
			dir = "blobs"
		}
		return local.New(local.Config{BaseDir: dir})
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		logger.Info("uploading PDFs to GCS", zap.String("bucket", cfg.Blob.Bucket))
		return gcs.New(client, gcs.Config{Bucket: cfg.Blob.Bucket})
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Blob.Backend)
	}
}

func openStore(ctx context.Context, cfg config.Config) (*postgres.Store, error) {
	if cfg.DB.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return postgres.New(connectCtx, postgres.Config{
		DSN:            cfg.DB.DSN,
		DocumentsTable: cfg.DB.DocumentsTable,
		CasesTable:     cfg.DB.CasesTable,
		CursorsTable:   cfg.DB.CursorsTable,
		MaxConns:       int32(cfg.DB.MaxConns),
	})
}
