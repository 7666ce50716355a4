// Package setup builds the stores and completion clients shared by the
// citebot subcommands.
package setup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/papercomputeco/citebot/pkg/completion"
	"github.com/papercomputeco/citebot/pkg/completion/azure"
	"github.com/papercomputeco/citebot/pkg/completion/vertex"
	"github.com/papercomputeco/citebot/pkg/config"
	"github.com/papercomputeco/citebot/pkg/state"
	"github.com/papercomputeco/citebot/pkg/state/firestore"
	"github.com/papercomputeco/citebot/pkg/storage"
	"github.com/papercomputeco/citebot/pkg/storage/bolt"
	"github.com/papercomputeco/citebot/pkg/storage/inmemory"
	"github.com/papercomputeco/citebot/pkg/storage/sqlite"
)

const dataDir = ".citebot"

// ResolveDBPath returns path when set, otherwise the default database file for
// backend under ~/.citebot.
func ResolveDBPath(path, backend string) (string, error) {
	if path != "" {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}

	name := "citebot.db"
	if backend == config.BackendBolt {
		name = "citebot.bolt"
	}
	return filepath.Join(home, dataDir, name), nil
}

// OpenDriver opens the node driver for a local backend.
func OpenDriver(ctx context.Context, cfg config.StorageConfig) (storage.Driver, error) {
	if cfg.Backend == config.BackendMemory {
		return inmemory.NewDriver(), nil
	}

	path, err := ResolveDBPath(cfg.Path, cfg.Backend)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case config.BackendSQLite:
		return sqlite.NewDriver(ctx, path)
	case config.BackendBolt:
		return bolt.NewDriver(path)
	default:
		return nil, fmt.Errorf("backend %q has no node driver", cfg.Backend)
	}
}

// OpenStore opens the transcript store selected by cfg.
func OpenStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (state.Store, error) {
	if cfg.Backend == config.BackendFirestore {
		return firestore.NewStore(ctx, cfg.FirestoreProject, cfg.FirestoreCollection)
	}

	driver, err := OpenDriver(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("could not open %s storage: %w", cfg.Backend, err)
	}

	logger.Debug("opened transcript storage",
		zap.String("backend", cfg.Backend),
		zap.String("path", cfg.Path),
	)
	return state.NewDAGStore(driver, logger), nil
}

// NewCompletions creates the completion client for the configured provider.
func NewCompletions(ctx context.Context, cfg *config.Config, logger *zap.Logger) (completion.Service, error) {
	switch cfg.Provider {
	case config.ProviderVertex:
		return vertex.New(ctx, vertex.Config{
			Project:  cfg.Vertex.Project,
			Location: cfg.Vertex.Location,
		}, logger)
	default:
		return azure.New(azure.Config{
			Endpoint:   cfg.OpenAI.Endpoint,
			APIKey:     cfg.OpenAI.APIKey,
			APIVersion: cfg.OpenAI.APIVersion,
		}, logger)
	}
}
