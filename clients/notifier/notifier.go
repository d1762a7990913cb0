package notifier

import (
	"time"
)

// IndexUpdate describes a newly published index snapshot.
type IndexUpdate struct {
	// Freshness tokens before and after the reload
	PreviousToken string
	Token         string

	// Headline figure
	Year      int
	Value     int
	HasData   bool
	DeltaText string // e.g. "▲ 1.64% vs 30d"

	Note         string
	DashboardURL string
	Timestamp    time.Time
}

// Title is the short headline shared by every channel.
func (u IndexUpdate) Title() string {
	if u.PreviousToken == "" {
		return "📈 Good Times Index published"
	}
	return "📈 Good Times Index updated"
}

// Notifier is the interface for announcing index updates on a channel.
type Notifier interface {
	// SendIndexUpdate sends an index update notification.
	SendIndexUpdate(update IndexUpdate)

	// Close cleans up any resources.
	Close() error
}

// MultiNotifier broadcasts updates to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a new MultiNotifier with the given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	// Filter out nil notifiers
	var active []Notifier
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &MultiNotifier{notifiers: active}
}

// SendIndexUpdate sends the update to all registered notifiers.
func (m *MultiNotifier) SendIndexUpdate(update IndexUpdate) {
	for _, n := range m.notifiers {
		n.SendIndexUpdate(update)
	}
}

// Close closes all registered notifiers.
func (m *MultiNotifier) Close() error {
	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Count returns the number of active notifiers.
func (m *MultiNotifier) Count() int {
	return len(m.notifiers)
}
