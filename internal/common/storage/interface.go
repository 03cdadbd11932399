// Package storage reads objects from S3-compatible storage.
package storage

import (
	"context"
	"io"
)

// ObjectStorage defines the object reads the test-case source needs.
type ObjectStorage interface {
	// GetObject opens a reader for an object. Caller must close it.
	GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error)
}
