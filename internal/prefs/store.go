package prefs

import (
	"anthrometer/internal/kvstore"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultKey is the KV entry holding the serialized preferences.
const DefaultKey = "prefs"

// KV is the durable key-value store preferences are persisted to. Get
// returns kvstore.ErrNotFound for a key that was never written.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
}

// Observer is notified after every successful change.
type Observer interface {
	OnPreferencesUpdate(p Preferences)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(p Preferences)

func (f ObserverFunc) OnPreferencesUpdate(p Preferences) { f(p) }

// Store owns the session's preferences. Every mutation is validated, kept in
// memory, written back in full, and then announced to observers; concurrent
// mutations are applied one at a time.
type Store struct {
	logger *zap.Logger
	kv     KV
	key    string
	probe  ThemeProbe

	// updateMu serializes read-modify-persist-notify sequences.
	updateMu sync.Mutex

	mu          sync.RWMutex
	current     Preferences
	lastUpdated time.Time
	source      string

	obsMu     sync.RWMutex
	observers []Observer
}

// Open loads preferences from kv. It never fails: a missing entry, a read
// error or a corrupt blob all fall back to computed defaults.
func Open(ctx context.Context, logger *zap.Logger, kv KV, key string, probe ThemeProbe) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = DefaultKey
	}

	s := &Store{
		logger: logger,
		kv:     kv,
		key:    key,
		probe:  probe,
	}
	s.current, s.source = s.load(ctx)
	s.lastUpdated = time.Now()

	logger.Info("preferences loaded",
		zap.String("source", s.source),
		zap.String("lineColor", string(s.current.LineColor)),
		zap.Int("lineWeight", s.current.LineWeight),
		zap.String("range", string(s.current.Range)),
		zap.Bool("darkMode", s.current.DarkMode),
	)
	return s
}

func (s *Store) load(ctx context.Context) (Preferences, string) {
	defaults := Defaults(s.probe)
	if s.kv == nil {
		return defaults, "default"
	}

	blob, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return defaults, "default"
	}
	if err != nil {
		s.logger.Warn("failed to read preferences, using defaults",
			zap.String("key", s.key),
			zap.Error(err),
		)
		return defaults, "default"
	}

	p, err := Decode([]byte(blob), defaults)
	if err != nil {
		s.logger.Warn("stored preferences are corrupt, using defaults",
			zap.String("key", s.key),
			zap.Int("bytes", len(blob)),
			zap.Error(err),
		)
		return defaults, "default"
	}
	return p, "stored"
}

// Get returns the current preferences.
func (s *Store) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// LastUpdated returns when preferences were last loaded or changed.
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// Source reports where the current record came from: "stored", "default" or
// "updated".
func (s *Store) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Update applies fn to a copy of the current record. An invalid result is
// rejected with ValidationErrors and nothing changes.
func (s *Store) Update(ctx context.Context, fn func(p *Preferences)) (Preferences, error) {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	next := s.Get()
	fn(&next)
	if err := next.Validate(); err != nil {
		return s.Get(), err
	}
	s.apply(ctx, next, "updated")
	return next, nil
}

// Reset restores computed defaults.
func (s *Store) Reset(ctx context.Context) Preferences {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	next := Defaults(s.probe)
	s.apply(ctx, next, "default")
	return next
}

func (s *Store) apply(ctx context.Context, next Preferences, source string) {
	s.mu.Lock()
	s.current = next
	s.lastUpdated = time.Now()
	s.source = source
	s.mu.Unlock()

	if err := s.persist(ctx, next); err != nil {
		// The in-memory change stands; the next successful write catches up.
		s.logger.Error("failed to persist preferences", zap.Error(err))
	}

	s.notifyObservers(next)
}

func (s *Store) persist(ctx context.Context, p Preferences) error {
	if s.kv == nil {
		return nil
	}
	blob, err := Encode(p)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := s.kv.Put(ctx, s.key, string(blob)); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	s.logger.Debug("persisted preferences", zap.String("key", s.key), zap.Int("bytes", len(blob)))
	return nil
}

// AddObserver registers an observer to be notified of changes.
func (s *Store) AddObserver(obs Observer) {
	if obs == nil {
		return
	}
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, obs)
}

func (s *Store) notifyObservers(p Preferences) {
	s.obsMu.RLock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.obsMu.RUnlock()

	for _, obs := range observers {
		obs.OnPreferencesUpdate(p)
	}
}
