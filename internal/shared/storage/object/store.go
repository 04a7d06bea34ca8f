package object

import (
	"context"
	"io"
)

// Saved describes an object written by a store.
type Saved struct {
	Key       string
	SizeBytes int64
	MimeType  string
}

// ObjectStore persists raw uploaded bytes. Keys are opaque to callers.
type ObjectStore interface {
	Save(ctx context.Context, userID string, fileName string, r io.Reader) (Saved, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}
