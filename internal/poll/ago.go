package poll

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// AgoRefresher periodically recomputes the "updated N ago" text. It only
// reads the last seen token; it never fetches and never touches the driver.
type AgoRefresher struct {
	logger   *zap.Logger
	interval time.Duration
	token    func() string
	format   func(token string, now time.Time) string
	publish  func(text string)
	now      func() time.Time
}

// NewAgoRefresher creates a refresher. token supplies the latest token,
// format turns it into display text and publish receives the result.
func NewAgoRefresher(logger *zap.Logger, interval time.Duration, token func() string, format func(string, time.Time) string, publish func(string)) *AgoRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &AgoRefresher{
		logger:   logger,
		interval: interval,
		token:    token,
		format:   format,
		publish:  publish,
		now:      time.Now,
	}
}

// Refresh recomputes and publishes the text once.
func (a *AgoRefresher) Refresh() string {
	text := a.format(a.token(), a.now())
	if a.publish != nil {
		a.publish(text)
	}
	return text
}

// Run refreshes at the configured interval until ctx is cancelled.
func (a *AgoRefresher) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Debug("ago refresher started", zap.Duration("interval", a.interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Refresh()
		}
	}
}
