// Package overlay drives the year detail panel shown when a chart point is
// selected, including its timed auto-dismissal.
package overlay

import (
	"anthrometer/internal/snapshot"
	"math"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Placeholder values shown when the snapshot has nothing for a year.
const (
	ValueUnavailable = "unavailable"
	EventNone        = "none"
	SummaryPending   = "pending"
)

// DefaultDwell is how long the panel stays open without a new selection.
const DefaultDwell = 10 * time.Second

// Source gives access to the snapshot on display at the time of a lookup.
type Source interface {
	Current() *snapshot.Snapshot
}

// Detail is the content of an open panel.
type Detail struct {
	Year    int    `json:"year"`
	Value   string `json:"value"`
	Event   string `json:"event"`
	Summary string `json:"summary"`
}

// Preview is the lightweight hover readout.
type Preview struct {
	Year int    `json:"year,omitempty"`
	Text string `json:"text,omitempty"`
}

// State is a copy of the controller state.
type State struct {
	Visible   bool      `json:"visible"`
	Detail    *Detail   `json:"detail,omitempty"`
	Preview   Preview   `json:"preview"`
	DismissAt time.Time `json:"dismissAt,omitzero"`
}

type timer interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) timer

func realAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// Controller is the Hidden/Visible state machine. At most one dismissal
// timer is live; a timer that fires after being superseded is ignored.
type Controller struct {
	logger *zap.Logger
	source Source
	dwell  time.Duration

	afterFunc afterFunc
	now       func() time.Time

	// notifyMu is held across a transition and its callback so observers
	// see transitions in the order they happened.
	notifyMu sync.Mutex

	mu         sync.Mutex
	state      State
	timer      timer
	generation uint64

	onChange func(State)
}

// NewController creates a hidden controller. A non-positive dwell uses
// DefaultDwell.
func NewController(logger *zap.Logger, source Source, dwell time.Duration) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dwell <= 0 {
		dwell = DefaultDwell
	}
	return &Controller{
		logger:    logger,
		source:    source,
		dwell:     dwell,
		afterFunc: realAfterFunc,
		now:       time.Now,
	}
}

// OnChange registers a callback run after every state transition.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyState()
}

func (c *Controller) copyState() State {
	s := c.state
	if s.Detail != nil {
		d := *s.Detail
		s.Detail = &d
	}
	return s
}

// Select opens (or re-targets) the panel on year and restarts the dismissal
// timer from now.
func (c *Controller) Select(year int) State {
	detail := c.lookup(year)

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.stopTimerLocked()
	c.generation++
	gen := c.generation

	c.state.Visible = true
	c.state.Detail = &detail
	c.state.Preview = Preview{Year: year, Text: detail.Event}
	c.state.DismissAt = c.now().Add(c.dwell)
	c.timer = c.afterFunc(c.dwell, func() { c.expire(gen) })

	out := c.copyState()
	fn := c.onChange
	c.mu.Unlock()

	c.logger.Debug("overlay opened", zap.Int("year", year))
	if fn != nil {
		fn(out)
	}
	return out
}

// Dismiss closes the panel immediately and cancels the timer.
func (c *Controller) Dismiss() State {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.stopTimerLocked()
	c.generation++
	changed := c.state.Visible
	c.hideLocked()
	out := c.copyState()
	fn := c.onChange
	c.mu.Unlock()

	if changed && fn != nil {
		fn(out)
	}
	return out
}

// Hover updates the preview for year when the year has an event. It never
// opens the panel and never touches the timer.
func (c *Controller) Hover(year int) (State, bool) {
	event, ok := c.event(year)
	if !ok {
		return c.State(), false
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.state.Preview = Preview{Year: year, Text: event}
	out := c.copyState()
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(out)
	}
	return out, true
}

func (c *Controller) expire(gen uint64) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if gen != c.generation || !c.state.Visible {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.hideLocked()
	out := c.copyState()
	fn := c.onChange
	c.mu.Unlock()

	c.logger.Debug("overlay dismissed after dwell")
	if fn != nil {
		fn(out)
	}
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) hideLocked() {
	c.state.Visible = false
	c.state.Detail = nil
	c.state.DismissAt = time.Time{}
}

func (c *Controller) current() *snapshot.Snapshot {
	if c.source == nil {
		return nil
	}
	return c.source.Current()
}

func (c *Controller) lookup(year int) Detail {
	d := Detail{
		Year:    year,
		Value:   ValueUnavailable,
		Event:   EventNone,
		Summary: SummaryPending,
	}
	snap := c.current()
	if snap == nil {
		return d
	}
	if v, ok := snap.Series.ValueAt(year); ok && !math.IsNaN(v) {
		d.Value = strconv.Itoa(int(math.Round(v)))
	}
	if text, ok := snap.Events.Lookup(year); ok {
		d.Event = text
	}
	if text, ok := snap.Summaries.Lookup(year); ok {
		d.Summary = text
	}
	return d
}

func (c *Controller) event(year int) (string, bool) {
	snap := c.current()
	if snap == nil {
		return "", false
	}
	return snap.Events.Lookup(year)
}
