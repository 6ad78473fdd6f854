package scrape

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/housingdocs/tribunal-scraper/internal/download"
	"github.com/housingdocs/tribunal-scraper/internal/hash/sha256"
	"github.com/housingdocs/tribunal-scraper/internal/listing"
	"github.com/housingdocs/tribunal-scraper/internal/scraper"
	"github.com/housingdocs/tribunal-scraper/internal/store"
)

type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
	seen  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, req scraper.FetchRequest) (scraper.FetchResponse, error) {
	f.seen = append(f.seen, req.URL)
	if err, ok := f.errs[req.URL]; ok {
		return scraper.FetchResponse{}, err
	}
	body, ok := f.pages[req.URL]
	if !ok {
		return scraper.FetchResponse{}, &scraper.StatusError{URL: req.URL, StatusCode: 404}
	}
	return scraper.FetchResponse{StatusCode: 200, Body: []byte(body)}, nil
}

type fakeDocStore struct {
	rows     []store.DocumentRow
	existing map[string]bool
	err      error
}

func (s *fakeDocStore) UpsertDocument(_ context.Context, row store.DocumentRow) (store.UpsertOutcome, error) {
	if s.err != nil {
		return store.Conflicted, s.err
	}
	if s.existing[row.PDFURL] {
		return store.Conflicted, nil
	}
	if s.existing == nil {
		s.existing = map[string]bool{}
	}
	s.existing[row.PDFURL] = true
	s.rows = append(s.rows, row)
	return store.Inserted, nil
}

func (s *fakeDocStore) UpsertDocuments(ctx context.Context, rows []store.DocumentRow) (int, int, error) {
	inserted, conflicted := 0, 0
	for _, row := range rows {
		outcome, err := s.UpsertDocument(ctx, row)
		if err != nil {
			return inserted, conflicted, err
		}
		if outcome == store.Inserted {
			inserted++
		} else {
			conflicted++
		}
	}
	return inserted, conflicted, nil
}

func (s *fakeDocStore) CountDocuments(context.Context) (int64, error) {
	return int64(len(s.rows)), nil
}

func listingPage(n int, withNext bool) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<article><a href="/decisions/doc-%d.pdf">Decision %d</a></article>`, i, i)
	}
	if withNext {
		b.WriteString(`<a rel="next" href="?page=2">Next</a>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func newDriver(t *testing.T, fetcher scraper.Fetcher, docs store.DocumentStore, cfg Config) *Driver {
	t.Helper()
	parser := listing.NewParser("Test Tribunal", listing.Rules{}, zap.NewNop())
	d, err := New(fetcher, parser, nil, docs, nil, cfg, zap.NewNop())
	require.NoError(t, err)
	return d
}

func TestRunStopsAfterEmptyPage(t *testing.T) {
	t.Parallel()

	base := "https://tribunals.example.org/decisions"
	fetcher := &fakeFetcher{pages: map[string]string{
		base:             listingPage(20, true),
		base + "?page=2": listingPage(0, false),
	}}
	docs := &fakeDocStore{}
	d := newDriver(t, fetcher, docs, Config{BaseURL: base, MaxPages: 5})

	totals, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Pages)
	assert.Equal(t, 20, totals.Records)
	assert.Equal(t, 20, totals.RowsInserted)
	assert.Len(t, fetcher.seen, 2)
}

func TestRunHonorsPageLimit(t *testing.T) {
	t.Parallel()

	base := "https://tribunals.example.org/decisions"
	pages := map[string]string{base: listingPage(3, true)}
	for i := 2; i <= 10; i++ {
		pages[fmt.Sprintf("%s?page=%d", base, i)] = listingPage(3, true)
	}
	fetcher := &fakeFetcher{pages: pages}
	d := newDriver(t, fetcher, &fakeDocStore{}, Config{BaseURL: base, MaxPages: 4})

	totals, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, totals.Pages)
	assert.Equal(t, 12, totals.Records)
}

func TestRunFirstPageFailureTerminates(t *testing.T) {
	t.Parallel()

	base := "https://tribunals.example.org/decisions"
	fetcher := &fakeFetcher{errs: map[string]error{
		base: &scraper.ExhaustedError{URL: base, Attempts: 4},
	}}
	d := newDriver(t, fetcher, &fakeDocStore{}, Config{BaseURL: base})

	_, err := d.Run(context.Background())
	require.Error(t, err)
	var exhausted *scraper.ExhaustedError
	assert.ErrorAs(t, err, &exhausted)
}

func TestRunLaterPageFailureKeepsPartialResults(t *testing.T) {
	t.Parallel()

	base := "https://tribunals.example.org/decisions"
	fetcher := &fakeFetcher{
		pages: map[string]string{base: listingPage(5, true)},
		errs: map[string]error{
			base + "?page=2": &scraper.ExhaustedError{URL: base + "?page=2", Attempts: 4},
		},
	}
	docs := &fakeDocStore{}
	d := newDriver(t, fetcher, docs, Config{BaseURL: base, MaxPages: 5})

	totals, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Pages)
	assert.Equal(t, 5, totals.Records)
	assert.Equal(t, 5, totals.RowsInserted)
	assert.Equal(t, 1, totals.Errors)
	assert.Len(t, docs.rows, 5)
}

func TestRunIdempotentAgainstUnchangedListing(t *testing.T) {
	t.Parallel()

	base := "https://tribunals.example.org/decisions"
	fetcher := &fakeFetcher{pages: map[string]string{
		base:             listingPage(4, false),
		base + "?page=2": listingPage(0, false),
	}}
	docs := &fakeDocStore{}
	cfg := Config{BaseURL: base, MaxPages: 5}

	d := newDriver(t, fetcher, docs, cfg)
	first, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, first.RowsInserted)

	d2 := newDriver(t, fetcher, docs, cfg)
	second, err := d2.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.RowsInserted)
	assert.Equal(t, 4, second.RowsConflicted)
	assert.Len(t, docs.rows, 4)
}

func TestRunMetadataOnlyLeavesBinaryFieldsNil(t *testing.T) {
	t.Parallel()

	base := "https://tribunals.example.org/decisions"
	fetcher := &fakeFetcher{pages: map[string]string{
		base: listingPage(2, false),
	}}
	docs := &fakeDocStore{}
	d := newDriver(t, fetcher, docs, Config{BaseURL: base, MaxPages: 1})

	_, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, docs.rows, 2)
	for _, row := range docs.rows {
		assert.Nil(t, row.SHA256)
		assert.Nil(t, row.Bytes)
		assert.Nil(t, row.DownloadedAt)
		require.NotNil(t, row.Filename)
		assert.Contains(t, *row.Filename, ".pdf")
		assert.Regexp(t, `^https://`, row.PDFURL)
	}
}

func TestRunDownloadFailureStillPersistsMetadata(t *testing.T) {
	t.Parallel()

	base := "https://tribunals.example.org/decisions"
	pageFetcher := &fakeFetcher{pages: map[string]string{
		base: `<html><body><article><a href="/files/broken.pdf">Decision</a></article></body></html>`,
	}}
	pdfFetcher := &fakeFetcher{errs: map[string]error{
		"https://tribunals.example.org/files/broken.pdf": &scraper.ExhaustedError{Attempts: 4},
	}}

	manager, err := download.New(pdfFetcher, sha256.New(), nil, download.Config{OutputDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)

	parser := listing.NewParser("Test Tribunal", listing.Rules{}, zap.NewNop())
	docs := &fakeDocStore{}
	d, err := New(pageFetcher, parser, manager, docs, nil, Config{BaseURL: base, MaxPages: 1}, zap.NewNop())
	require.NoError(t, err)

	totals, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Errors)
	assert.Equal(t, 0, totals.PDFsDownloaded)
	require.Len(t, docs.rows, 1)
	assert.Nil(t, docs.rows[0].SHA256)
}

func TestRunWithDownloadsAttachesBinaryReference(t *testing.T) {
	t.Parallel()

	base := "https://tribunals.example.org/decisions"
	pdfBody := "%PDF-1.4 decision"
	pageFetcher := &fakeFetcher{pages: map[string]string{
		base: `<html><body><article><a href="/files/doc.pdf">Decision</a></article></body></html>`,
	}}
	pdfFetcher := &fakeFetcher{pages: map[string]string{
		"https://tribunals.example.org/files/doc.pdf": pdfBody,
	}}

	manager, err := download.New(pdfFetcher, sha256.New(), nil, download.Config{OutputDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)

	parser := listing.NewParser("Test Tribunal", listing.Rules{}, zap.NewNop())
	docs := &fakeDocStore{}
	d, err := New(pageFetcher, parser, manager, docs, nil, Config{BaseURL: base, MaxPages: 1}, zap.NewNop())
	require.NoError(t, err)

	totals, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, totals.PDFsDownloaded)
	require.Len(t, docs.rows, 1)
	row := docs.rows[0]
	require.NotNil(t, row.SHA256)
	assert.Equal(t, sha256.New().Hash([]byte(pdfBody)), *row.SHA256)
	require.NotNil(t, row.Filename)
	assert.Equal(t, *row.SHA256+".pdf", *row.Filename)
	require.NotNil(t, row.DownloadedAt)
}

func TestRunPathTemplate(t *testing.T) {
	t.Parallel()

	base := "https://tribunals.example.org/decisions/page/{page}"
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://tribunals.example.org/decisions/page/1": listingPage(1, false),
		"https://tribunals.example.org/decisions/page/2": listingPage(0, false),
	}}
	d := newDriver(t, fetcher, &fakeDocStore{}, Config{BaseURL: base, Template: scraper.TemplatePath, MaxPages: 5})

	totals, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Pages)
	assert.Equal(t, 1, totals.Records)
	assert.Equal(t, []string{
		"https://tribunals.example.org/decisions/page/1",
		"https://tribunals.example.org/decisions/page/2",
	}, fetcher.seen)
}
