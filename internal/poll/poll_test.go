package poll

import (
	"anthrometer/internal/snapshot"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu        sync.Mutex
	token     string
	statusErr error

	statusCalls atomic.Int32
	allCalls    atomic.Int32

	// When set, FetchStatus signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeFetcher) setToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeFetcher) FetchStatus(ctx context.Context) (*snapshot.Status, error) {
	f.statusCalls.Add(1)
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &snapshot.Status{UpdatedISO: f.token}, nil
}

func (f *fakeFetcher) FetchAll(ctx context.Context) *snapshot.Snapshot {
	f.allCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return &snapshot.Snapshot{
		Series: snapshot.Series{{Year: 2025, Value: 310}},
		Status: &snapshot.Status{UpdatedISO: f.token},
	}
}

func newTestDriver(f *fakeFetcher, initial string, onChange func(*snapshot.Snapshot)) (*Driver, *snapshot.Store, *Detector) {
	store := snapshot.NewStore()
	det := NewDetector()
	det.Prime(initial)
	cfg := DefaultDriverConfig()
	cfg.OnChange = onChange
	return NewDriver(nil, f, store, det, cfg), store, det
}

func TestDetector(t *testing.T) {
	d := NewDetector()

	assert.True(t, d.Observe("2025-01-01T00:00:00Z"), "nothing stored yet")
	assert.False(t, d.Observe(""), "empty token never reloads")

	d.Prime("2025-01-02T00:00:00Z")
	assert.False(t, d.Observe("2025-01-02T00:00:00Z"))
	assert.True(t, d.Observe("2025-01-03T00:00:00Z"))
	assert.True(t, d.Observe("2025-01-01T00:00:00Z"), "regression is still a change")
	assert.Equal(t, "2025-01-02T00:00:00Z", d.Token())
}

func TestDriver_EqualTokensNoReload(t *testing.T) {
	f := &fakeFetcher{token: "2025-06-01T12:00:00Z"}
	changes := 0
	d, store, _ := newTestDriver(f, "2025-06-01T12:00:00Z", func(*snapshot.Snapshot) { changes++ })

	ctx := context.Background()
	assert.Equal(t, TickUnchanged, d.Tick(ctx))
	assert.Equal(t, TickUnchanged, d.Tick(ctx))

	assert.Equal(t, int32(2), f.statusCalls.Load())
	assert.Equal(t, int32(0), f.allCalls.Load())
	assert.Equal(t, uint64(0), store.Version())
	assert.Equal(t, 0, changes)
	assert.Equal(t, StateIdle, d.State())
}

func TestDriver_ChangedTokenReloadsOnce(t *testing.T) {
	for _, next := range []string{"2025-06-02T00:00:00Z", "2025-05-01T00:00:00Z"} {
		t.Run(next, func(t *testing.T) {
			f := &fakeFetcher{token: next}
			var got []*snapshot.Snapshot
			d, store, det := newTestDriver(f, "2025-06-01T12:00:00Z", func(s *snapshot.Snapshot) { got = append(got, s) })

			ctx := context.Background()
			assert.Equal(t, TickChanged, d.Tick(ctx))
			assert.Equal(t, TickUnchanged, d.Tick(ctx))

			assert.Equal(t, int32(1), f.allCalls.Load())
			assert.Equal(t, uint64(1), store.Version())
			assert.Equal(t, next, det.Token())
			assert.Equal(t, next, store.Token())
			require.Len(t, got, 1)
			assert.Same(t, store.Load(), got[0])
		})
	}
}

func TestDriver_FailureIsSwallowed(t *testing.T) {
	f := &fakeFetcher{token: "a", statusErr: errors.New("timeout")}
	d, _, _ := newTestDriver(f, "a", nil)

	ctx := context.Background()
	assert.Equal(t, TickFailed, d.Tick(ctx))
	assert.True(t, d.Enabled())
	assert.Equal(t, StateIdle, d.State())

	f.mu.Lock()
	f.statusErr = nil
	f.token = "b"
	f.mu.Unlock()
	assert.Equal(t, TickChanged, d.Tick(ctx))
}

func TestDriver_DisabledSkips(t *testing.T) {
	f := &fakeFetcher{token: "b"}
	d, _, _ := newTestDriver(f, "a", nil)

	d.SetEnabled(false)
	assert.Equal(t, TickSkipped, d.Tick(context.Background()))
	assert.Equal(t, int32(0), f.statusCalls.Load())

	d.SetEnabled(true)
	assert.Equal(t, TickChanged, d.Tick(context.Background()))
}

func TestDriver_SlowFetchDropsOverlappingTick(t *testing.T) {
	f := &fakeFetcher{
		token:   "a",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	d, _, _ := newTestDriver(f, "a", nil)
	ctx := context.Background()

	first := make(chan TickResult, 1)
	go func() { first <- d.Tick(ctx) }()

	<-f.entered
	assert.Equal(t, StateFetching, d.State())

	// The first cycle is still blocked in FetchStatus.
	assert.Equal(t, TickDropped, d.Tick(ctx))
	assert.Equal(t, TickDropped, d.Tick(ctx))

	close(f.release)
	assert.Equal(t, TickUnchanged, <-first)
	assert.Equal(t, int32(1), f.statusCalls.Load())
	assert.Equal(t, StateIdle, d.State())
}

func TestDriver_RecordsLastSeenToken(t *testing.T) {
	f := &fakeFetcher{token: "2025-06-01T12:00:00Z"}
	d, _, _ := newTestDriver(f, "2025-06-01T12:00:00Z", nil)

	assert.Equal(t, "2025-06-01T12:00:00Z", d.LastSeenToken())
	assert.True(t, d.LastCheck().IsZero())

	d.Tick(context.Background())
	assert.False(t, d.LastCheck().IsZero())
}

func TestDriver_EqualTokenRefreshesOnlyAgoText(t *testing.T) {
	f := &fakeFetcher{token: "2025-06-01T12:00:00Z"}
	store := snapshot.NewStore()
	store.Replace(&snapshot.Snapshot{Status: &snapshot.Status{UpdatedISO: "2025-06-01T12:00:00Z"}})
	det := NewDetector()
	det.Prime("2025-06-01T12:00:00Z")

	var published []string
	var ago *AgoRefresher
	cfg := DefaultDriverConfig()
	cfg.OnSeen = func(string) { ago.Refresh() }
	d := NewDriver(nil, f, store, det, cfg)

	ago = NewAgoRefresher(nil, time.Second, d.LastSeenToken,
		func(token string, now time.Time) string {
			ts, err := snapshot.ParseToken(token)
			if err != nil {
				return ""
			}
			return now.Sub(ts).String()
		},
		func(text string) { published = append(published, text) },
	)
	base := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	ago.now = func() time.Time { return base }

	assert.Equal(t, TickUnchanged, d.Tick(context.Background()))
	ago.now = func() time.Time { return base.Add(time.Minute) }
	assert.Equal(t, TickUnchanged, d.Tick(context.Background()))

	assert.Equal(t, []string{"5m0s", "6m0s"}, published)
	assert.Equal(t, int32(0), f.allCalls.Load())
	assert.Equal(t, uint64(1), store.Version())
	assert.Equal(t, int32(2), f.statusCalls.Load())
}

func TestDriver_OnSeenSkippedWhenStatusFails(t *testing.T) {
	f := &fakeFetcher{statusErr: errors.New("boom")}
	det := NewDetector()
	det.Prime("a")

	seen := 0
	cfg := DefaultDriverConfig()
	cfg.OnSeen = func(string) { seen++ }
	d := NewDriver(nil, f, snapshot.NewStore(), det, cfg)

	assert.Equal(t, TickFailed, d.Tick(context.Background()))
	assert.Zero(t, seen)
}

// cancellingFetcher reports a new token, then has its context cancelled
// while the full reload is running. Every resource falls back to empty.
type cancellingFetcher struct {
	cancel   context.CancelFunc
	allCalls atomic.Int32
}

func (f *cancellingFetcher) FetchStatus(ctx context.Context) (*snapshot.Status, error) {
	return &snapshot.Status{UpdatedISO: "2025-01-02T00:00:00Z"}, nil
}

func (f *cancellingFetcher) FetchAll(ctx context.Context) *snapshot.Snapshot {
	if f.allCalls.Add(1) == 1 {
		f.cancel()
		<-ctx.Done()
		return &snapshot.Snapshot{Status: &snapshot.Status{UpdatedISO: "2025-01-02T00:00:00Z"}}
	}
	return &snapshot.Snapshot{
		Series: snapshot.Series{{Year: 2024, Value: 300}, {Year: 2025, Value: 310}},
		Status: &snapshot.Status{UpdatedISO: "2025-01-02T00:00:00Z"},
	}
}

func TestDriver_CancelledReloadKeepsSnapshot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &cancellingFetcher{cancel: cancel}

	store := snapshot.NewStore()
	store.Replace(&snapshot.Snapshot{
		Series: snapshot.Series{{Year: 2024, Value: 300}, {Year: 2025, Value: 305}},
		Status: &snapshot.Status{UpdatedISO: "2025-01-01T00:00:00Z"},
	})
	det := NewDetector()
	det.Prime("2025-01-01T00:00:00Z")

	changes := 0
	cfg := DefaultDriverConfig()
	cfg.OnChange = func(*snapshot.Snapshot) { changes++ }
	d := NewDriver(nil, f, store, det, cfg)

	assert.Equal(t, TickFailed, d.Tick(ctx))
	assert.Len(t, store.Current().Series, 2)
	assert.Equal(t, uint64(1), store.Version())
	assert.Equal(t, "2025-01-01T00:00:00Z", det.Token())
	assert.Zero(t, changes)
	assert.Equal(t, StateIdle, d.State())

	// The next cycle still sees the new token and reloads.
	assert.Equal(t, TickChanged, d.Tick(context.Background()))
	assert.Equal(t, "2025-01-02T00:00:00Z", det.Token())
	assert.Equal(t, 310.0, store.Current().Series[1].Value)
	assert.Equal(t, 1, changes)
}

func TestDriver_RunStopsOnCancel(t *testing.T) {
	f := &fakeFetcher{token: "a"}
	store := snapshot.NewStore()
	det := NewDetector()
	det.Prime("a")
	d := NewDriver(nil, f, store, det, DriverConfig{Interval: 5 * time.Millisecond, Enabled: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return f.statusCalls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestTickResult_String(t *testing.T) {
	assert.Equal(t, "dropped", TickDropped.String())
	assert.Equal(t, "changed", TickChanged.String())
	assert.Equal(t, "fetching", StateFetching.String())
}
