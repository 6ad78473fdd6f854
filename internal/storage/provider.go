// Package storage defines the blob store abstraction used for
// optional off-site copies of downloaded PDFs. Implementations exist
// for the local filesystem and Google Cloud Storage.
package storage

import (
	"context"
	"io"
)

// BlobStore uploads an object and returns a URI describing where it
// landed (file:// or gs://).
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// NoOp is a BlobStore that discards uploads. Used when blob upload is
// disabled but the pipeline still asks for a store.
type NoOp struct{}

// PutObject discards the data and returns an empty URI.
func (NoOp) PutObject(_ context.Context, _ string, _ string, _ io.Reader) (string, error) {
	return "", nil
}
