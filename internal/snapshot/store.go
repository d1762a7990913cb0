package snapshot

import (
	"sync/atomic"
)

// Store holds the latest merged snapshot. Readers always see either the
// previous or the next snapshot in full, never a mix.
type Store struct {
	current atomic.Pointer[Snapshot]
	version atomic.Uint64
}

// NewStore creates a store holding an empty snapshot.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{})
	return s
}

// Load returns the current snapshot. The result must not be modified.
func (s *Store) Load() *Snapshot {
	return s.current.Load()
}

// Current implements the lookup source used by the overlay controller.
func (s *Store) Current() *Snapshot {
	return s.Load()
}

// Replace swaps in next wholesale and returns the new version number.
func (s *Store) Replace(next *Snapshot) uint64 {
	if next == nil {
		next = &Snapshot{}
	}
	s.current.Store(next)
	return s.version.Add(1)
}

// Version counts successful replacements.
func (s *Store) Version() uint64 {
	return s.version.Load()
}

// Token returns the freshness token of the current snapshot.
func (s *Store) Token() string {
	return s.Load().Token()
}
