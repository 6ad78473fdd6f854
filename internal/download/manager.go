// Package download fetches PDF binaries and stores them under
// checksum-derived filenames. The checksum is the deduplication key:
// identical content always maps to the same path, so re-downloading
// is a no-op on storage.
package download

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/housingdocs/tribunal-scraper/internal/hash/sha256"
	"github.com/housingdocs/tribunal-scraper/internal/scraper"
	"github.com/housingdocs/tribunal-scraper/internal/storage"
)

// Config controls where downloaded binaries land.
type Config struct {
	// OutputDir is the directory for checksum-named PDF files.
	OutputDir string
	// BlobPrefix prefixes object paths when a blob store is attached.
	BlobPrefix string
}

// Manager downloads PDFs idempotently.
type Manager struct {
	fetcher scraper.Fetcher
	hasher  *sha256.Hasher
	blob    storage.BlobStore
	cfg     Config
	logger  *zap.Logger
}

// New builds a Manager. blob may be nil when off-site upload is
// disabled. The output directory is created if missing.
func New(fetcher scraper.Fetcher, hasher *sha256.Hasher, blob storage.BlobStore, cfg Config, logger *zap.Logger) (*Manager, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if hasher == nil {
		hasher = sha256.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "outputs"
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Manager{
		fetcher: fetcher,
		hasher:  hasher,
		blob:    blob,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Download fetches pdfURL, checksums the bytes, and writes the file
// unless a file with the same checksum-derived path already exists.
// The returned result describes the stored file either way.
func (m *Manager) Download(ctx context.Context, pdfURL string) (scraper.DownloadResult, error) {
	resp, err := m.fetcher.Fetch(ctx, scraper.FetchRequest{URL: pdfURL})
	if err != nil {
		return scraper.DownloadResult{}, fmt.Errorf("download %s: %w", pdfURL, err)
	}

	sum := m.hasher.Hash(resp.Body)
	filename := sum + ".pdf"
	path := filepath.Join(m.cfg.OutputDir, filename)

	result := scraper.DownloadResult{
		URL:    pdfURL,
		SHA256: sum,
		Path:   path,
		Bytes:  int64(len(resp.Body)),
		MIME:   contentType(resp),
	}

	if _, statErr := os.Stat(path); statErr == nil {
		result.Existing = true
	} else {
		if err := os.WriteFile(path, resp.Body, 0o600); err != nil {
			return scraper.DownloadResult{}, fmt.Errorf("write %s: %w", path, err)
		}
		scraper.TotalPDFDownloads.Inc()
	}

	if m.blob != nil {
		objectPath := filename
		if m.cfg.BlobPrefix != "" {
			objectPath = m.cfg.BlobPrefix + "/" + filename
		}
		uri, blobErr := m.blob.PutObject(ctx, objectPath, result.MIME, bytes.NewReader(resp.Body))
		if blobErr != nil {
			// Upload is best effort; the local copy is authoritative.
			m.logger.Warn("blob upload failed",
				zap.String("url", pdfURL),
				zap.String("object", objectPath),
				zap.Error(blobErr),
			)
		} else {
			result.BlobURL = uri
		}
	}

	return result, nil
}

func contentType(resp scraper.FetchResponse) string {
	if resp.Headers != nil {
		if ct := resp.Headers.Get("Content-Type"); ct != "" {
			return ct
		}
	}
	return "application/pdf"
}
