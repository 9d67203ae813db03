package storage

import (
	"context"
	"fmt"

	"github.com/deepfake-detector/detector-console/internal/config"
)

// FromConfig opens the archive selected by STORAGE_BACKEND. It returns a
// nil StorageInterface when archiving is disabled.
func FromConfig(ctx context.Context, cfg *config.Config) (StorageInterface, error) {
	switch cfg.StorageBackend {
	case config.StorageNone, "":
		return nil, nil
	case config.StorageLocal:
		local, err := NewLocalStorage(cfg.LocalStorageDir)
		if err != nil {
			return nil, err
		}
		return local, nil
	case config.StorageAzure:
		azure, err := NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			return nil, err
		}
		return azure, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
