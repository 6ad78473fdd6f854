// Package collyfetcher implements scraper.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/housingdocs/tribunal-scraper/internal/scraper"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher issues single HTTP GET attempts via a Colly collector. Retry
// policy lives in the fetcher package wrapper, not here.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher with a pooled transport shared across clones.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true

	transport := newHTTPTransport()
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// Fetch executes one HTTP GET. A response with a non-2xx status is
// returned together with a *scraper.StatusError so the caller can
// decide on retryability; transport failures return only the error.
func (f *Fetcher) Fetch(ctx context.Context, req scraper.FetchRequest) (scraper.FetchResponse, error) {
	var (
		result   scraper.FetchResponse
		fetchErr error
	)
	start := time.Now()
	collector := f.buildCollector(req, start, &result, &fetchErr)

	scraper.TotalRequests.Inc()
	if err := f.runCollector(ctx, collector, req.URL, &fetchErr); err != nil {
		scraper.TotalRequestErrors.Inc()
		return result, err
	}
	return result, nil
}

func (f *Fetcher) buildCollector(
	req scraper.FetchRequest,
	start time.Time,
	result *scraper.FetchResponse,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	collector.WithTransport(f.transport)

	f.configureCollectorHooks(collector, req, start, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	req scraper.FetchRequest,
	start time.Time,
	result *scraper.FetchResponse,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		f.copyHeaders(req, r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		*result = capture(r, start)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			*result = capture(r, start)
			retryAfter := ""
			if r.Headers != nil {
				retryAfter = r.Headers.Get("Retry-After")
			}
			if r.StatusCode == http.StatusTooManyRequests {
				scraper.TotalRateLimitHits.Inc()
			}
			*fetchErr = &scraper.StatusError{
				URL:        req.URL,
				StatusCode: r.StatusCode,
				RetryAfter: retryAfter,
			}
			return
		}
		*fetchErr = err
	})
}

func capture(r *colly.Response, start time.Time) scraper.FetchResponse {
	resp := scraper.FetchResponse{
		StatusCode: r.StatusCode,
		Body:       append([]byte(nil), r.Body...),
		Duration:   time.Since(start),
	}
	if r.Request != nil && r.Request.URL != nil {
		resp.URL = r.Request.URL.String()
	}
	if r.Headers != nil {
		resp.Headers = r.Headers.Clone()
	}
	return resp
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return *fetchErr
		}
		if err != nil {
			return fmt.Errorf("visit %s: %w", url, err)
		}
		return nil
	}
}

func (f *Fetcher) copyHeaders(req scraper.FetchRequest, r *colly.Request) {
	if req.Headers == nil {
		return
	}
	for key, values := range req.Headers {
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
