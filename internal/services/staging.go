package services

import (
	"context"
	"fmt"
	"os"

	"github.com/Lllllllleong/applicationsummaryflow/internal/objectstore"
)

// stager writes outputs to the work dir and uploads them from there.
type stager struct {
	dir string
}

func newStager(dir string) (*stager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work dir %s: %w", dir, err)
	}
	return &stager{dir: dir}, nil
}

// upload stages data and streams the staged file to the store. The staged
// file is removed whether or not the upload succeeds.
func (s *stager) upload(ctx context.Context, store objectstore.Store, bucket, key, contentType string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "summary-*")
	if err != nil {
		return fmt.Errorf("failed to create staging file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write staging file %s: %w", path, err)
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to rewind staging file %s: %w", path, err)
	}
	defer tmp.Close()

	return store.Put(ctx, bucket, key, tmp, contentType)
}
