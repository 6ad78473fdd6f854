package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/housingdocs/tribunal-scraper/internal/download"
	"github.com/housingdocs/tribunal-scraper/internal/hash/sha256"
	"github.com/housingdocs/tribunal-scraper/internal/listing"
	"github.com/housingdocs/tribunal-scraper/internal/progress"
	"github.com/housingdocs/tribunal-scraper/internal/scrape"
	"github.com/housingdocs/tribunal-scraper/internal/scraper"
	"github.com/housingdocs/tribunal-scraper/internal/store"
)

func newScrapeCmd() *cobra.Command {
	var (
		baseURL  string
		maxPages int
		persist  bool
		noFiles  bool
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Walk the decision listing pages and capture new PDFs",
		Long: `Fetches listing pages in order starting from the configured base
URL, extracts decision records, downloads each decision PDF under a
checksum-derived filename, and optionally persists the records to
Postgres. Pages already fully captured yield duplicate no-ops, so the
command is safe to re-run on a schedule.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush

			if baseURL != "" {
				cfg.Scrape.BaseURL = baseURL
			}
			if maxPages > 0 {
				cfg.Scrape.MaxPages = maxPages
			}
			if persist {
				cfg.Scrape.Persist = true
			}
			if noFiles {
				cfg.Scrape.Download = false
			}
			if cfg.Scrape.BaseURL == "" {
				return fmt.Errorf("scrape.base_url is required")
			}

			template, err := scraper.ParsePageTemplate(cfg.Scrape.PageTemplate)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client := buildFetcher(cfg, logger)
			parser := listing.NewParser(cfg.Scrape.Tribunal, listing.Rules{}, logger)

			var downloads *download.Manager
			if cfg.Scrape.Download {
				blob, err := buildBlobStore(ctx, cfg, logger)
				if err != nil {
					return err
				}
				downloads, err = download.New(client, sha256.New(), blob, download.Config{
					OutputDir:  cfg.Scrape.OutputDir,
					BlobPrefix: cfg.Blob.Prefix,
				}, logger)
				if err != nil {
					return err
				}
			}

			var docs store.DocumentStore
			if cfg.Scrape.Persist {
				pg, err := openStore(ctx, cfg)
				if err != nil {
					return err
				}
				defer pg.Close()
				docs = pg
			}

			driver, err := scrape.New(client, parser, downloads, docs,
				progress.NewReporter(logger, 0),
				scrape.Config{
					BaseURL:   cfg.Scrape.BaseURL,
					Template:  template,
					StartPage: cfg.Scrape.StartPage,
					MaxPages:  cfg.Scrape.MaxPages,
				}, logger)
			if err != nil {
				return err
			}

			totals, err := driver.Run(ctx)
			if err != nil {
				return fmt.Errorf("scrape run: %w", err)
			}
			logger.Info("scrape finished",
				zap.Int("pages", totals.Pages),
				zap.Int("records", totals.Records),
				zap.Int("downloaded", totals.PDFsDownloaded),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "listing base URL (overrides scrape.base_url)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "page limit (overrides scrape.max_pages)")
	cmd.Flags().BoolVar(&persist, "persist", false, "write records to Postgres")
	cmd.Flags().BoolVar(&noFiles, "no-download", false, "skip PDF downloads, metadata only")
	return cmd
}
