// Package storage reads and writes binary objects in bucket/path form.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/zeebo/errs"
)

// Error classifies object store failures other than a missing object.
var Error = errs.Class("storage")

// ErrObjectNotFound is returned when the requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Object is a stored binary being streamed back to a caller. Body must be closed.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// ObjectStore is the narrow surface of the object storage backend.
type ObjectStore interface {
	// Put writes data at bucket/path, overwriting any existing object.
	Put(ctx context.Context, bucket, path string, data []byte, contentType string) error
	Get(ctx context.Context, bucket, path string) (*Object, error)
	Delete(ctx context.Context, bucket, path string) error
}
