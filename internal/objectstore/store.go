// Package objectstore abstracts the bucket the pipeline reads application
// JSON from and writes summaries to.
package objectstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("object not found")

// Object is a fetched object and the content type it was stored with.
type Object struct {
	Body        []byte
	ContentType string
}

// Store is the object store the pipeline depends on.
type Store interface {
	Get(ctx context.Context, bucket, key string) (*Object, error)
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
}
