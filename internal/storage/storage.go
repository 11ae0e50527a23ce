// Package storage defines the interface for remote object storage.
// Implementations cover any S3-compatible provider (MinIO, ArvanCloud,
// AWS S3) and Bunny Storage's plain HTTP API. The remote store offers
// only write, read, and remove — there is no rename; callers that need
// one compose it from these three.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrWriteFailed is returned when the store rejects or fails a write.
var ErrWriteFailed = errors.New("storage: write failed")

// ErrReadFailed is returned when a read fails for a reason other than absence.
var ErrReadFailed = errors.New("storage: read failed")

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// ErrDeleteFailed is returned when the store fails to remove an object.
// Deleting an already-absent object is not a failure.
var ErrDeleteFailed = errors.New("storage: delete failed")

// Storage is the interface for remote object operations. Keys are
// hierarchical strings like "owner-folder/file.jpg"; the storage zone
// (bucket) is fixed per instance.
type Storage interface {
	// Upload streams data to the store under the given key. size must be
	// the exact byte count so implementations never buffer whole files.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Fetch opens a streaming read of the object at key.
	Fetch(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object at key. Absent objects delete successfully.
	Delete(ctx context.Context, key string) error
	// PublicURL constructs the CDN-servable URL for a given key.
	PublicURL(key string) string
}
