package scraper

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusErrorRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, (&StatusError{StatusCode: 503}).Retryable())
	assert.True(t, (&StatusError{StatusCode: 429}).Retryable())
	assert.False(t, (&StatusError{StatusCode: 404}).Retryable())
	assert.False(t, (&StatusError{StatusCode: 403}).Retryable())
}

func TestIsPermanent(t *testing.T) {
	t.Parallel()

	notFound := &StatusError{URL: "https://example.org/x.pdf", StatusCode: 404}
	assert.True(t, IsPermanent(notFound))
	assert.True(t, IsPermanent(fmt.Errorf("fetch: %w", notFound)))
	assert.False(t, IsPermanent(&StatusError{StatusCode: 500}))
	assert.False(t, IsPermanent(errors.New("connection reset")))
}

func TestExhaustedErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := &StatusError{URL: "https://example.org", StatusCode: 503}
	err := &ExhaustedError{URL: "https://example.org", Attempts: 4, Last: cause}

	var se *StatusError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, 503, se.StatusCode)
}
