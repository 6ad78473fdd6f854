package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/housingdocs/tribunal-scraper/internal/download"
	"github.com/housingdocs/tribunal-scraper/internal/hash/sha256"
	"github.com/housingdocs/tribunal-scraper/internal/listing"
	"github.com/housingdocs/tribunal-scraper/internal/progress"
	"github.com/housingdocs/tribunal-scraper/internal/rescrape"
)

func newRescrapeCmd() *cobra.Command {
	var (
		batchSize  int
		maxBatches int
		reset      bool
	)

	cmd := &cobra.Command{
		Use:   "rescrape",
		Short: "Revisit known case pages in cursor-tracked batches",
		Long: `Walks the cases table in ascending ID order, re-fetching each
case page to refresh its stored metadata and capture PDFs published
after the original scrape. Progress is checkpointed in a cursor row
after every batch, so an interrupted run resumes from where it
stopped instead of starting over.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush

			if batchSize > 0 {
				cfg.Rescrape.BatchSize = batchSize
			}
			if maxBatches > 0 {
				cfg.Rescrape.MaxBatches = maxBatches
			}

			ctx := cmd.Context()
			pg, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer pg.Close()

			client := buildFetcher(cfg, logger)
			parser := listing.NewParser(cfg.Scrape.Tribunal, listing.Rules{}, logger)

			var downloads *download.Manager
			if cfg.Rescrape.StoreBytes {
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

			walker, err := rescrape.New(client, parser, downloads, pg, pg, pg,
				progress.NewReporter(logger, 0),
				rescrape.Config{
					CursorName:  cfg.Rescrape.CursorName,
					BatchSize:   cfg.Rescrape.BatchSize,
					BatchDelay:  cfg.BatchDelay(),
					MaxBatches:  cfg.Rescrape.MaxBatches,
					ResetCursor: reset,
				}, logger)
			if err != nil {
				return err
			}

			totals, err := walker.Walk(ctx)
			if err != nil {
				return fmt.Errorf("rescrape run: %w", err)
			}
			logger.Info("rescrape finished",
				zap.Int("cases", totals.Records),
				zap.Int("new_documents", totals.RowsInserted),
				zap.Int("skipped", totals.Skipped),
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "cases per batch (overrides rescrape.batch_size)")
	cmd.Flags().IntVar(&maxBatches, "max-batches", 0, "batch limit (overrides rescrape.max_batches)")
	cmd.Flags().BoolVar(&reset, "reset-cursor", false, "ignore the saved cursor and start from the beginning")
	return cmd
}
