// Package objectstore stores company verification documents in an
// S3-compatible object store.
package objectstore

import (
	"context"
	"io"
)

// DocumentStore persists uploaded verification documents and returns keys
// that application records reference.
type DocumentStore interface {
	// Put uploads a document and returns its object key.
	Put(ctx context.Context, companyName, filename string, r io.Reader, size int64, contentType string) (string, error)

	// Get retrieves a document by key. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a document by key.
	Delete(ctx context.Context, key string) error
}
