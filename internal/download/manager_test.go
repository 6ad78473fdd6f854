package download

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/housingdocs/tribunal-scraper/internal/hash/sha256"
	"github.com/housingdocs/tribunal-scraper/internal/scraper"
)

type stubFetcher struct {
	body    []byte
	headers http.Header
	err     error
	calls   int
}

func (f *stubFetcher) Fetch(_ context.Context, _ scraper.FetchRequest) (scraper.FetchResponse, error) {
	f.calls++
	if f.err != nil {
		return scraper.FetchResponse{}, f.err
	}
	return scraper.FetchResponse{
		StatusCode: http.StatusOK,
		Body:       f.body,
		Headers:    f.headers,
	}, nil
}

func newTestManager(t *testing.T, fetcher scraper.Fetcher) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	m, err := New(fetcher, sha256.New(), nil, Config{OutputDir: dir}, zap.NewNop())
	require.NoError(t, err)
	return m, dir
}

func TestDownloadStoresChecksumNamedFile(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{
		body:    []byte("%PDF-1.4 decision body"),
		headers: http.Header{"Content-Type": {"application/pdf"}},
	}
	m, dir := newTestManager(t, fetcher)

	result, err := m.Download(context.Background(), "https://example.org/decision.pdf")
	require.NoError(t, err)

	wantSum := sha256.New().Hash(fetcher.body)
	assert.Equal(t, wantSum, result.SHA256)
	assert.Equal(t, filepath.Join(dir, wantSum+".pdf"), result.Path)
	assert.Equal(t, int64(len(fetcher.body)), result.Bytes)
	assert.Equal(t, "application/pdf", result.MIME)
	assert.False(t, result.Existing)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, fetcher.body, data)
}

func TestDownloadIdenticalContentIsIdempotent(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{body: []byte("%PDF-1.4 same bytes")}
	m, dir := newTestManager(t, fetcher)

	first, err := m.Download(context.Background(), "https://example.org/a.pdf")
	require.NoError(t, err)
	second, err := m.Download(context.Background(), "https://mirror.example.org/b.pdf")
	require.NoError(t, err)

	assert.Equal(t, first.Path, second.Path)
	assert.False(t, first.Existing)
	assert.True(t, second.Existing)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDownloadFetchFailure(t *testing.T) {
	t.Parallel()

	wantErr := &scraper.ExhaustedError{URL: "https://example.org/x.pdf", Attempts: 4, Last: errors.New("timeout")}
	m, dir := newTestManager(t, &stubFetcher{err: wantErr})

	_, err := m.Download(context.Background(), "https://example.org/x.pdf")
	var exhausted *scraper.ExhaustedError
	require.ErrorAs(t, err, &exhausted)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadDefaultsMIME(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, &stubFetcher{body: []byte("bytes")})
	result, err := m.Download(context.Background(), "https://example.org/d.pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.MIME)
}
