package main

import (
	"context"
	"fmt"

	"github.com/keepvault/onboard/internal/config"
	"github.com/keepvault/onboard/internal/logger"
	"github.com/keepvault/onboard/internal/onboarding"
	"github.com/keepvault/onboard/internal/store"
	"github.com/spf13/cobra"
)

var storeFlags struct {
	store   string
	dataDir string
}

// addStoreFlags registers the flags that select where progress is kept.
func addStoreFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&storeFlags.store, "store", "", "Progress store: file, sqlite, nats or memory (default: from config)")
	cmd.PersistentFlags().StringVar(&storeFlags.dataDir, "data-dir", "", "Directory for saved progress (default: from config)")
}

// app bundles the loaded config and the opened record store.
type app struct {
	cfg     *config.Config
	records *store.Store
	close   func() error
}

// openApp loads configuration, applies flag overrides, configures logging
// and opens the progress store.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if storeFlags.store != "" {
		cfg.Store = storeFlags.store
	}
	if storeFlags.dataDir != "" {
		cfg.DataDir = storeFlags.dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if level, err := logger.ParseLevel(cfg.LogLevel); err == nil {
		logger.Default.SetLevel(level)
	}
	if cfg.LogFile != "" {
		if err := logger.Default.OpenFile(cfg.LogFile); err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
	}

	backend, closeFn, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	logger.Debug("Opened %s store in %s", cfg.Store, cfg.DataDir)

	return &app{
		cfg:     cfg,
		records: store.New(backend, onboarding.WizardID, store.WithWindow(cfg.ResumeWindow)),
		close:   closeFn,
	}, nil
}

func (a *app) Close() {
	if a.close == nil {
		return
	}
	if err := a.close(); err != nil {
		logger.Warn("Closing store: %v", err)
	}
}
