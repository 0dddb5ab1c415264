package catalog

import (
	"context"
	"fmt"

	"speechwriter/internal/storage"
)

type objectBackend interface {
	DownloadBytes(ctx context.Context, key string) ([]byte, error)
	UploadBytes(ctx context.Context, key string, data []byte, contentType, cacheControl string) error
	Key(name string) string
}

var _ objectBackend = (*storage.Bucket)(nil)

// ObjectStore keeps the catalog as one JSON object in S3.
type ObjectStore struct {
	backend objectBackend
	key     string
}

func NewObjectStore(backend objectBackend) *ObjectStore {
	return &ObjectStore{backend: backend, key: backend.Key(DefaultFileName)}
}

func (s *ObjectStore) Key() string { return s.key }

func (s *ObjectStore) Load(ctx context.Context) (map[string]string, error) {
	data, err := s.backend.DownloadBytes(ctx, s.key)
	if err != nil {
		if storage.IsNotFound(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("download styles: %w", err)
	}
	return decodeStyles(data)
}

func (s *ObjectStore) Save(ctx context.Context, styles map[string]string) error {
	data, err := encodeStyles(styles)
	if err != nil {
		return err
	}
	if err := s.backend.UploadBytes(ctx, s.key, data, "application/json", "no-cache"); err != nil {
		return fmt.Errorf("upload styles: %w", err)
	}
	return nil
}
