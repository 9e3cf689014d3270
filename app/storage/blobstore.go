package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Logical buckets for archived artifacts.
const (
	BucketRawPDFs       = "raw-pdfs"
	BucketAPIResponses  = "api-responses"
	BucketParsedData    = "parsed-data"
	BucketHTMLSnapshots = "html-snapshots"
)

// BlobStore is the object storage interface the archive writes through.
// Paths are write-once: a Put to an existing path is a no-op.
type BlobStore interface {
	Put(ctx context.Context, bucket, path string, data []byte) error
	Get(ctx context.Context, bucket, path string) ([]byte, error)
	Delete(ctx context.Context, bucket, path string) error
	Exists(ctx context.Context, bucket, path string) (bool, error)
}

// FSStore keeps blobs on the local filesystem under root/bucket/path.
// Used in development and tests; production deployments use the S3 backend.
type FSStore struct {
	root string
}

var _ BlobStore = (*FSStore)(nil)

func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

func (s *FSStore) Put(ctx context.Context, bucket, path string, data []byte) error {
	fullPath := filepath.Join(s.root, bucket, filepath.FromSlash(path))

	if _, err := os.Stat(fullPath); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}

	return nil
}

func (s *FSStore) Get(ctx context.Context, bucket, path string) ([]byte, error) {
	fullPath := filepath.Join(s.root, bucket, filepath.FromSlash(path))

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}

	return data, nil
}

func (s *FSStore) Delete(ctx context.Context, bucket, path string) error {
	fullPath := filepath.Join(s.root, bucket, filepath.FromSlash(path))

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}

	return nil
}

func (s *FSStore) Exists(ctx context.Context, bucket, path string) (bool, error) {
	fullPath := filepath.Join(s.root, bucket, filepath.FromSlash(path))

	_, err := os.Stat(fullPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat blob: %w", err)
	}

	return true, nil
}
