package app

import (
	clts "anthrometer/clients"
	"anthrometer/clients/notifier"
	"anthrometer/config"
	"anthrometer/internal/overlay"
	"anthrometer/internal/poll"
	"anthrometer/internal/prefs"
	"anthrometer/internal/snapshot"
	"anthrometer/internal/widgets"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Build info - populated from embedded VCS info at init time
var (
	BuildCommit = "dev"
	BuildTime   = "unknown"
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if setting.Value != "" {
					BuildCommit = setting.Value
				}
			case "vcs.time":
				BuildTime = setting.Value
			}
		}
	}
}

// Runner owns the dashboard engine: the snapshot, the poll loop, the
// preference store, the overlay and the HTTP surface that exposes them.
type Runner struct {
	clients *clts.Clients
	cfg     *config.Config
	logger  *zap.Logger

	fetcher  poll.Fetcher
	store    *snapshot.Store
	detector *poll.Detector
	driver   *poll.Driver
	ago      *poll.AgoRefresher
	prefs    *prefs.Store
	overlay  *overlay.Controller
	hub      *Hub

	server    *http.Server
	startTime time.Time

	mu        sync.RWMutex
	agoText   string
	announced string // token of the last snapshot announced to notifiers
}

// ServiceStats holds process and engine statistics.
type ServiceStats struct {
	// Build info
	Build struct {
		Commit    string `json:"commit"`
		Time      string `json:"time,omitempty"`
		GoVersion string `json:"go_version"`
	} `json:"build"`

	// Service info
	StartTime string `json:"start_time"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_seconds"`

	// Poll driver
	Poll struct {
		AutoRefresh   bool   `json:"auto_refresh"`
		State         string `json:"state"`
		Interval      string `json:"interval"`
		LastCheckAt   string `json:"last_check_at,omitempty"`
		LastSeenToken string `json:"last_seen_token,omitempty"`
	} `json:"poll"`

	// Snapshot
	Snapshot struct {
		Version   uint64 `json:"version"`
		Token     string `json:"token,omitempty"`
		Points    int    `json:"points"`
		FetchedAt string `json:"fetched_at,omitempty"`
	} `json:"snapshot"`

	// WebSocket clients
	Viewers int `json:"viewers"`

	// Notification status
	Notifications struct {
		DiscordEnabled   bool   `json:"discord_enabled"`
		DiscordChannelID string `json:"discord_channel_id,omitempty"`
		TelegramEnabled  bool   `json:"telegram_enabled"`
		TelegramChatID   string `json:"telegram_chat_id,omitempty"`
	} `json:"notifications"`

	// Runtime stats
	Runtime struct {
		Goroutines int    `json:"goroutines"`
		HeapAlloc  uint64 `json:"heap_alloc"` // bytes currently allocated on heap
		NumGC      uint32 `json:"num_gc"`     // number of completed GC cycles
		GoVersion  string `json:"go_version"`
		GOOS       string `json:"goos"`
		GOARCH     string `json:"goarch"`
	} `json:"runtime"`
}

func NewRunner(clients *clts.Clients, cfg *config.Config, prefsStore *prefs.Store) *Runner {
	logger := clients.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Runner{
		clients:  clients,
		cfg:      cfg,
		logger:   logger,
		fetcher:  clients.Resources,
		store:    snapshot.NewStore(),
		detector: poll.NewDetector(),
		prefs:    prefsStore,
		hub:      NewHub(logger),
	}

	r.driver = poll.NewDriver(logger, r.fetcher, r.store, r.detector, poll.DriverConfig{
		Interval: cfg.Poll.Interval,
		Enabled:  cfg.Poll.AutoRefresh,
		OnSeen:   func(string) { r.ago.Refresh() },
		OnChange: r.onSnapshotChange,
	})
	r.ago = poll.NewAgoRefresher(logger, cfg.Poll.AgoInterval, r.seenToken, widgets.AgoText, r.setAgoText)

	r.overlay = overlay.NewController(logger, r.store, cfg.Overlay.Dwell)
	r.overlay.OnChange(func(st overlay.State) {
		r.hub.Broadcast(Message{Type: MessageOverlay, Payload: st})
	})

	prefsStore.AddObserver(prefs.ObserverFunc(func(p prefs.Preferences) {
		r.logger.Debug("preferences changed, replotting", zap.String("range", string(p.Range)))
		r.publishView()
	}))

	return r
}

// Load performs the initial full fetch and primes the change detector.
func (r *Runner) Load(ctx context.Context) {
	snap := r.fetcher.FetchAll(ctx)
	r.store.Replace(snap)
	r.detector.Prime(snap.Token())

	r.mu.Lock()
	r.announced = snap.Token()
	r.mu.Unlock()

	r.ago.Refresh()
	r.logger.Info("initial snapshot loaded",
		zap.String("token", snap.Token()),
		zap.Int("points", len(snap.Series)),
	)
}

func (r *Runner) Run(ctx context.Context) error {
	r.startTime = time.Now()
	logger := r.logger

	logger.Info("starting dashboard engine",
		zap.String("dataBaseURL", r.clients.Resources.BaseURL()),
		zap.Duration("pollInterval", r.cfg.Poll.Interval),
		zap.Duration("agoInterval", r.cfg.Poll.AgoInterval),
		zap.Bool("autoRefresh", r.driver.Enabled()),
	)

	r.Load(ctx)

	if r.cfg.Server.Enabled {
		if err := r.startServer(r.cfg.Server.Port); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.driver.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		r.ago.Run(ctx)
	}()

	<-ctx.Done()
	logger.Info("shutting down dashboard engine")

	if r.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown error", zap.Error(err))
		}
		cancel()
	}
	r.hub.Close()
	r.overlay.Dismiss()
	wg.Wait()

	return nil
}

// startServer binds the port synchronously so an unusable port fails
// startup, then serves in the background.
func (r *Runner) startServer(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", port, err)
	}

	r.server = &http.Server{
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := r.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("dashboard server error", zap.Error(err))
		}
	}()

	r.logger.Info("dashboard server listening", zap.Int("port", port))
	return nil
}

func (r *Runner) onSnapshotChange(snap *snapshot.Snapshot) {
	view := r.View()
	r.hub.Broadcast(Message{Type: MessageView, Payload: view})

	r.mu.Lock()
	previous := r.announced
	r.announced = snap.Token()
	r.mu.Unlock()

	r.clients.Notifier.SendIndexUpdate(notifier.IndexUpdate{
		PreviousToken: previous,
		Token:         snap.Token(),
		Year:          view.KPI.Year,
		Value:         view.KPI.Value,
		HasData:       view.KPI.HasData,
		DeltaText:     view.KPI.DeltaText,
		Note:          view.Note,
		DashboardURL:  r.dashboardURL(),
		Timestamp:     time.Now(),
	})
}

func (r *Runner) dashboardURL() string {
	if !r.cfg.Server.Enabled {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d/", r.cfg.Server.Port)
}

// seenToken is the most recent token observed by a poll, falling back to the
// token of the loaded snapshot before the first poll.
func (r *Runner) seenToken() string {
	if t := r.driver.LastSeenToken(); t != "" {
		return t
	}
	return r.store.Token()
}

func (r *Runner) setAgoText(text string) {
	r.mu.Lock()
	changed := text != r.agoText
	r.agoText = text
	r.mu.Unlock()

	if changed {
		r.hub.Broadcast(Message{Type: MessageAgo, Payload: text})
	}
}

// AgoText returns the latest "updated N ago" text.
func (r *Runner) AgoText() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agoText
}

// View builds the current view from the current snapshot and preferences.
func (r *Runner) View() View {
	snap := r.store.Current()
	v := buildView(r.logger, snap, r.prefs.Get())
	v.Version = r.store.Version()
	v.UpdatedAgo = r.AgoText()
	v.AutoRefresh = r.driver.Enabled()
	v.Overlay = r.overlay.State()
	return v
}

func (r *Runner) publishView() {
	r.hub.Broadcast(Message{Type: MessageView, Payload: r.View()})
}

// SetAutoRefresh toggles the poll driver.
func (r *Runner) SetAutoRefresh(enabled bool) {
	r.driver.SetEnabled(enabled)
	r.logger.Info("auto-refresh toggled", zap.Bool("enabled", enabled))
	r.publishView()
}

// Refresh runs one poll cycle immediately.
func (r *Runner) Refresh(ctx context.Context) poll.TickResult {
	return r.driver.Tick(ctx)
}

// GetStats returns the current service statistics.
func (r *Runner) GetStats() ServiceStats {
	var stats ServiceStats

	stats.Build.Commit = BuildCommit
	stats.Build.Time = BuildTime
	stats.Build.GoVersion = runtime.Version()

	if !r.startTime.IsZero() {
		uptime := time.Since(r.startTime)
		stats.StartTime = r.startTime.Format(time.RFC3339)
		stats.Uptime = uptime.Round(time.Second).String()
		stats.UptimeSec = int64(uptime.Seconds())
	}

	stats.Poll.AutoRefresh = r.driver.Enabled()
	stats.Poll.State = r.driver.State().String()
	stats.Poll.Interval = r.cfg.Poll.Interval.String()
	stats.Poll.LastSeenToken = r.driver.LastSeenToken()
	if last := r.driver.LastCheck(); !last.IsZero() {
		stats.Poll.LastCheckAt = last.Format(time.RFC3339)
	}

	stats.Snapshot.Version = r.store.Version()
	if snap := r.store.Current(); snap != nil {
		stats.Snapshot.Token = snap.Token()
		stats.Snapshot.Points = len(snap.Series)
		if !snap.FetchedAt.IsZero() {
			stats.Snapshot.FetchedAt = snap.FetchedAt.Format(time.RFC3339)
		}
	}

	stats.Viewers = r.hub.Count()

	stats.Notifications.DiscordEnabled = r.clients.Discord != nil && r.clients.Discord.Enabled()
	stats.Notifications.DiscordChannelID = r.cfg.Discord.ChannelID
	stats.Notifications.TelegramEnabled = r.clients.Telegram != nil && r.clients.Telegram.Enabled()
	stats.Notifications.TelegramChatID = r.cfg.Telegram.ChatID

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats.Runtime.Goroutines = runtime.NumGoroutine()
	stats.Runtime.HeapAlloc = m.HeapAlloc
	stats.Runtime.NumGC = m.NumGC
	stats.Runtime.GoVersion = runtime.Version()
	stats.Runtime.GOOS = runtime.GOOS
	stats.Runtime.GOARCH = runtime.GOARCH

	return stats
}
