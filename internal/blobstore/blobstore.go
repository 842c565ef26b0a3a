// Package blobstore abstracts the object storage holding media files.
package blobstore

import (
	"context"
	"errors"
	"io"

	"github.com/tagwing/birdtag/internal/bloburl"
)

// ErrBatchTooLarge is returned when a batch delete exceeds the store limit.
var ErrBatchTooLarge = errors.New("too many objects in one batch delete")

// FailedObject records an object that could not be deleted.
type FailedObject struct {
	Coord bloburl.Coord
	Err   error
}

// BatchDeleteResult reports per-object outcomes of a batch delete.
type BatchDeleteResult struct {
	Deleted []bloburl.Coord
	Failed  []FailedObject
}

// Store is the object storage used for uploaded media and thumbnails.
type Store interface {
	// Upload stores an object under the key with the given content type
	// and returns its public URL.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)

	// Download returns the object body. Callers must close it.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// BatchDelete removes up to the batch limit of objects, attempting
	// every object independently. Missing objects count as deleted.
	BatchDelete(ctx context.Context, coords []bloburl.Coord) (*BatchDeleteResult, error)

	// PresignPut returns a URL a client can use to upload the object
	// directly, valid for a limited time.
	PresignPut(ctx context.Context, key string, contentType string) (string, error)

	// PublicURL returns the URL under which the object is served.
	PublicURL(key string) string
}
