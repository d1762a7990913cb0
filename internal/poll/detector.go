// Package poll decides when the dashboard data must be reloaded and drives
// the periodic status checks that feed that decision.
package poll

import "sync"

// Detector compares freshness tokens. Any difference from the last applied
// token counts as a change, including an apparent step backwards.
type Detector struct {
	mu     sync.Mutex
	token  string
	primed bool
}

// NewDetector returns a detector with no stored token.
func NewDetector() *Detector {
	return &Detector{}
}

// Prime stores the token of the data currently on display.
func (d *Detector) Prime(token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.token = token
	d.primed = true
}

// Observe reports whether token calls for a reload. The empty token never
// does. Observe does not store token; Prime does, once the reload applied.
func (d *Detector) Observe(token string) bool {
	if token == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.primed || token != d.token
}

// Token returns the last primed token.
func (d *Detector) Token() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.token
}
