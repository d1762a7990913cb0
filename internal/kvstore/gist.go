package kvstore

import (
	"anthrometer/clients/gist"
	"context"
	"errors"
	"fmt"
)

// Gist stores each key as a "<key>.json" file of one GitHub Gist.
type Gist struct {
	storage gist.Storage
}

// NewGist wraps a gist client. The client must be enabled.
func NewGist(storage gist.Storage) (*Gist, error) {
	if storage == nil || !storage.IsEnabled() {
		return nil, fmt.Errorf("gist storage not configured")
	}
	return &Gist{storage: storage}, nil
}

func fileName(key string) string {
	return key + ".json"
}

// Get returns the stored value.
func (g *Gist) Get(ctx context.Context, key string) (string, error) {
	content, err := g.storage.Load(ctx, fileName(key))
	if errors.Is(err, gist.ErrFileNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return content, nil
}

// Put stores value under key.
func (g *Gist) Put(ctx context.Context, key, value string) error {
	return g.storage.Save(ctx, fileName(key), value)
}

// Close is a no-op.
func (g *Gist) Close() error { return nil }
