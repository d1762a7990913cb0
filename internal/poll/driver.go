package poll

import (
	"anthrometer/internal/snapshot"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Fetcher is the data source the driver polls.
type Fetcher interface {
	FetchStatus(ctx context.Context) (*snapshot.Status, error)
	FetchAll(ctx context.Context) *snapshot.Snapshot
}

// State is the driver's position in a poll cycle.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateApplying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateApplying:
		return "applying"
	}
	return "unknown"
}

// TickResult is the outcome of one Tick.
type TickResult int

const (
	TickSkipped   TickResult = iota // auto-refresh disabled
	TickDropped                     // a cycle was already in flight
	TickFailed                      // status fetch failed or reload cancelled
	TickUnchanged                   // token equal to the one on display
	TickChanged                     // full reload applied
)

func (r TickResult) String() string {
	switch r {
	case TickSkipped:
		return "skipped"
	case TickDropped:
		return "dropped"
	case TickFailed:
		return "failed"
	case TickUnchanged:
		return "unchanged"
	case TickChanged:
		return "changed"
	}
	return "unknown"
}

// DriverConfig holds configuration for the poll driver.
type DriverConfig struct {
	Interval time.Duration // Time between status checks
	Enabled  bool          // Initial auto-refresh state

	// OnSeen is called after every successful status read, whether or not
	// the token changed.
	OnSeen func(token string)

	// OnChange is called once per applied reload with the new snapshot.
	OnChange func(snap *snapshot.Snapshot)
}

// DefaultDriverConfig returns the dashboard's standard cadence.
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		Interval: 60 * time.Second,
		Enabled:  true,
	}
}

// Driver polls the status resource and reloads everything when the
// freshness token changes. At most one cycle runs at a time.
type Driver struct {
	logger   *zap.Logger
	fetcher  Fetcher
	store    *snapshot.Store
	detector *Detector
	interval time.Duration
	onSeen   func(token string)
	onChange func(snap *snapshot.Snapshot)

	enabled  atomic.Bool
	inFlight atomic.Bool
	state    atomic.Int32

	seenMu    sync.RWMutex
	lastSeen  string
	lastCheck time.Time
}

// NewDriver creates a driver.
func NewDriver(logger *zap.Logger, fetcher Fetcher, store *snapshot.Store, detector *Detector, cfg DriverConfig) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultDriverConfig().Interval
	}
	d := &Driver{
		logger:   logger,
		fetcher:  fetcher,
		store:    store,
		detector: detector,
		interval: cfg.Interval,
		onSeen:   cfg.OnSeen,
		onChange: cfg.OnChange,
	}
	d.enabled.Store(cfg.Enabled)
	d.lastSeen = detector.Token()
	return d
}

// SetEnabled turns auto-refresh on or off. A cycle already in flight is
// allowed to finish.
func (d *Driver) SetEnabled(enabled bool) {
	if d.enabled.Swap(enabled) != enabled {
		d.logger.Info("auto-refresh toggled", zap.Bool("enabled", enabled))
	}
}

// Enabled reports whether auto-refresh is on.
func (d *Driver) Enabled() bool {
	return d.enabled.Load()
}

// State returns the current cycle state.
func (d *Driver) State() State {
	return State(d.state.Load())
}

// LastSeenToken returns the token from the most recent successful status
// read, or the primed token before the first one.
func (d *Driver) LastSeenToken() string {
	d.seenMu.RLock()
	defer d.seenMu.RUnlock()
	return d.lastSeen
}

// LastCheck returns when the status was last read successfully.
func (d *Driver) LastCheck() time.Time {
	d.seenMu.RLock()
	defer d.seenMu.RUnlock()
	return d.lastCheck
}

// Tick runs one poll cycle.
func (d *Driver) Tick(ctx context.Context) TickResult {
	if !d.enabled.Load() {
		return TickSkipped
	}
	if !d.inFlight.CompareAndSwap(false, true) {
		d.logger.Debug("poll tick dropped, previous cycle still running")
		return TickDropped
	}
	defer func() {
		d.state.Store(int32(StateIdle))
		d.inFlight.Store(false)
	}()

	d.state.Store(int32(StateFetching))
	status, err := d.fetcher.FetchStatus(ctx)
	if err != nil {
		d.logger.Warn("status poll failed", zap.Error(err))
		return TickFailed
	}

	token := status.Token()
	d.seenMu.Lock()
	if token != "" {
		d.lastSeen = token
	}
	d.lastCheck = time.Now()
	d.seenMu.Unlock()

	if d.onSeen != nil {
		d.onSeen(token)
	}

	d.state.Store(int32(StateApplying))
	if !d.detector.Observe(token) {
		return TickUnchanged
	}

	d.logger.Info("freshness token changed, reloading",
		zap.String("previous", d.detector.Token()),
		zap.String("current", token),
	)

	snap := d.fetcher.FetchAll(ctx)
	if err := ctx.Err(); err != nil {
		// Cancelled mid-reload: every resource fell back, so keep the
		// snapshot on display and leave the detector unprimed.
		d.logger.Warn("reload abandoned", zap.Error(err))
		return TickFailed
	}
	if snap == nil {
		snap = &snapshot.Snapshot{}
	}
	version := d.store.Replace(snap)
	d.detector.Prime(snap.Token())

	d.logger.Info("snapshot replaced",
		zap.Uint64("version", version),
		zap.Int("points", len(snap.Series)),
	)

	if d.onChange != nil {
		d.onChange(snap)
	}
	return TickChanged
}

// Run ticks at the configured interval until ctx is cancelled. Each tick runs
// on its own goroutine so a slow cycle causes later ticks to be dropped
// rather than queued.
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("poll driver started", zap.Duration("interval", d.interval))

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("poll driver shutting down")
			return
		case <-ticker.C:
			wg.Add(1)
			go func() {
				defer wg.Done()
				if res := d.Tick(ctx); res != TickSkipped {
					d.logger.Debug("poll tick", zap.Stringer("result", res))
				}
			}()
		}
	}
}
