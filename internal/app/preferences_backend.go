package app

import (
	"anthrometer/clients/gist"
	"anthrometer/config"
	"anthrometer/internal/kvstore"
	"anthrometer/internal/prefs"
	"context"
	"fmt"

	"go.uber.org/zap"
)

// OpenPreferenceBackend opens the key-value backend named by the config.
func OpenPreferenceBackend(cfg *config.Config, storage gist.Storage) (kvstore.Store, error) {
	switch cfg.Prefs.Backend {
	case config.BackendSQLite:
		return kvstore.OpenSQLite(cfg.Prefs.DBPath)
	case config.BackendGist:
		return kvstore.NewGist(storage)
	case config.BackendMemory:
		return kvstore.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown preference backend %q", cfg.Prefs.Backend)
}

// OpenPreferences opens the backend and loads the preference store from it.
// The caller closes the returned backend.
func OpenPreferences(ctx context.Context, logger *zap.Logger, cfg *config.Config, storage gist.Storage) (*prefs.Store, kvstore.Store, error) {
	kv, err := OpenPreferenceBackend(cfg, storage)
	if err != nil {
		return nil, nil, fmt.Errorf("open preference backend: %w", err)
	}

	dark := cfg.Prefs.PrefersDark
	store := prefs.Open(ctx, logger, kv, cfg.Prefs.Key, func() bool { return dark })
	return store, kv, nil
}
