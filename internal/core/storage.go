package core

import (
	blobcore "careops/internal/infra/blob/core"
	blobfs "careops/internal/infra/blob/fs"
	blobmem "careops/internal/infra/blob/memory"
	blobs3 "careops/internal/infra/blob/s3"
	"careops/internal/infra/persistence/memory"
	"careops/internal/infra/persistence/postgres"
	"careops/internal/infra/persistence/sqlite"
	"careops/pkg/domain"
	"context"
	"fmt"
	"strings"
)

// StorageConfig selects and parameterizes the persistence backend.
type StorageConfig struct {
	// Driver is one of "memory", "sqlite", "postgres". Empty selects sqlite.
	Driver      string
	SQLitePath  string
	PostgresDSN string
}

// BlobConfig selects and parameterizes the blob backend.
type BlobConfig struct {
	// Driver is one of "fs", "s3", "memory". Empty selects fs.
	Driver string
	FSRoot string
	S3     blobs3.Config
}

// OpenPersistentStore opens the configured persistence backend.
func OpenPersistentStore(cfg StorageConfig) (domain.PersistentStore, func() error, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "memory":
		return memory.NewStore(), func() error { return nil }, nil
	case "", "sqlite":
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, store.Close, nil
	case "postgres":
		store, err := postgres.NewStore(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// OpenBlobStore opens the configured blob backend.
func OpenBlobStore(ctx context.Context, cfg BlobConfig) (blobcore.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "memory":
		return blobmem.New(), nil
	case "", "fs":
		store, err := blobfs.New(cfg.FSRoot)
		if err != nil {
			return nil, fmt.Errorf("open filesystem blob store: %w", err)
		}
		return store, nil
	case "s3":
		store, err := blobs3.New(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("open s3 blob store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
