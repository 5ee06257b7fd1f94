// Package gcp holds the Google Cloud backends of the pipeline's collaborators.
package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/Lllllllleong/applicationsummaryflow/internal/objectstore"
)

// GCSStore is an objectstore.Store on Cloud Storage.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a Storage client. STORAGE_EMULATOR_HOST is honoured by
// the client library itself.
func NewGCSStore(ctx context.Context, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

// Get reads the whole object along with the content type it was stored with.
func (s *GCSStore) Get(ctx context.Context, bucket, key string) (*objectstore.Object, error) {
	reader, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("gs://%s/%s: %w", bucket, key, objectstore.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, key, err)
	}
	defer reader.Close()

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object gs://%s/%s: %w", bucket, key, err)
	}
	return &objectstore.Object{Body: body, ContentType: reader.Attrs.ContentType}, nil
}

// Put streams body into the object, replacing any existing generation.
func (s *GCSStore) Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	writer := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, body); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write to GCS object gs://%s/%s: %w", bucket, key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS write for gs://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func isNotFound(err error) bool {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return true
	}
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
