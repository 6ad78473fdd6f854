// Package fetcher layers retry and backoff policy over a raw
// scraper.Fetcher implementation.
package fetcher

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/housingdocs/tribunal-scraper/internal/scraper"
)

// RetryConfig bounds the retry schedule. Backoff doubles per attempt
// from Initial up to Max, with up to 25% random jitter so repeated
// runs do not hammer the remote site in lockstep.
type RetryConfig struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 4
	}
	if c.Initial <= 0 {
		c.Initial = 500 * time.Millisecond
	}
	if c.Max <= 0 {
		c.Max = 10 * time.Second
	}
	return c
}

// Retrying wraps a Fetcher with bounded exponential backoff. Transient
// failures (network errors, 5xx, 429) are retried; other 4xx statuses
// fail immediately.
type Retrying struct {
	inner  scraper.Fetcher
	cfg    RetryConfig
	logger *zap.Logger

	// sleep is overridable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrying builds a Retrying fetcher around inner.
func NewRetrying(inner scraper.Fetcher, cfg RetryConfig, logger *zap.Logger) *Retrying {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{
		inner:  inner,
		cfg:    cfg.withDefaults(),
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Fetch performs the GET, retrying transient failures until the
// attempt budget is spent, then returns *scraper.ExhaustedError
// wrapping the last cause.
func (r *Retrying) Fetch(ctx context.Context, req scraper.FetchRequest) (scraper.FetchResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		resp, err := r.inner.Fetch(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return resp, ctx.Err()
		}
		if scraper.IsPermanent(err) {
			return resp, err
		}
		lastErr = err

		if attempt == r.cfg.MaxAttempts {
			break
		}
		delay := r.delayFor(attempt, err)
		r.logger.Warn("transient fetch failure, retrying",
			zap.String("url", req.URL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if serr := r.sleep(ctx, delay); serr != nil {
			return scraper.FetchResponse{}, serr
		}
	}

	return scraper.FetchResponse{}, &scraper.ExhaustedError{
		URL:      req.URL,
		Attempts: r.cfg.MaxAttempts,
		Last:     lastErr,
	}
}

func (r *Retrying) delayFor(attempt int, err error) time.Duration {
	if hint, ok := retryAfterHint(err); ok {
		if hint > r.cfg.Max {
			return r.cfg.Max
		}
		return hint
	}
	delay := r.cfg.Initial << (attempt - 1)
	if delay > r.cfg.Max {
		delay = r.cfg.Max
	}
	// jitter in [delay, delay*1.25)
	return delay + time.Duration(rand.Int63n(int64(delay)/4+1))
}

func retryAfterHint(err error) (time.Duration, bool) {
	var se *scraper.StatusError
	if !errors.As(err, &se) || se.RetryAfter == "" {
		return 0, false
	}
	if secs, perr := strconv.Atoi(se.RetryAfter); perr == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if at, perr := time.Parse(time.RFC1123, se.RetryAfter); perr == nil {
		if d := time.Until(at); d > 0 {
			return d, true
		}
	}
	return 0, false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
