package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/keepvault/onboard/internal/config"
	"github.com/keepvault/onboard/internal/nats"
)

// Open builds the Backend selected by cfg.Store. The returned close function
// releases whatever the backend holds (database handle, embedded NATS server)
// and is always non-nil.
func Open(ctx context.Context, cfg *config.Config) (Backend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case config.StoreMemory:
		return NewMemoryBackend(), noop, nil

	case config.StoreFile, "":
		return NewFileBackend(filepath.Join(cfg.DataDir, "wizards")), noop, nil

	case config.StoreSQLite:
		b, err := OpenSQLite(ctx, filepath.Join(cfg.DataDir, "onboard.db"))
		if err != nil {
			return nil, noop, err
		}
		return b, b.Close, nil

	case config.StoreNATS:
		bucket, err := nats.OpenWizardBucket(ctx, filepath.Join(cfg.DataDir, "nats"), cfg.ResumeWindow)
		if err != nil {
			return nil, noop, err
		}
		return NewKVBackend(bucket.KV), bucket.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}
