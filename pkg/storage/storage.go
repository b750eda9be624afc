package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/noah-isme/admin-api/pkg/config"
)

// FileStore persists the objects referenced by file and image fields.
type FileStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

// New builds the store selected by STORAGE_DRIVER.
func New(cfg config.StorageConfig) (FileStore, error) {
	switch cfg.Driver {
	case "", config.StorageLocal:
		return NewLocalStorage(cfg.LocalDir, cfg.PublicBaseURL, NewMediaSigner(cfg.SignedURLSecret, cfg.SignedURLTTL))
	case config.StorageMinio:
		return NewMinioStorage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
