package app

import (
	"anthrometer/internal/chart"
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// refreshTimeout bounds a manual refresh cycle.
const refreshTimeout = 30 * time.Second

// Handler returns the dashboard HTTP surface.
func (r *Runner) Handler() http.Handler {
	mux := http.NewServeMux()

	NewPreferencesHandler(r.logger, r.prefs).RegisterRoutes(mux)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// JSON stats endpoint
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(r.logger, w, http.StatusOK, r.GetStats())
	})

	mux.HandleFunc("/api/view", r.handleView)
	mux.HandleFunc("/api/chart", r.handleChart)
	mux.HandleFunc("/api/status/raw", r.handleRawStatus)
	mux.HandleFunc("/api/auto-refresh", r.handleAutoRefresh)
	mux.HandleFunc("/api/refresh", r.handleRefresh)
	mux.HandleFunc("/api/overlay/select", r.handleOverlaySelect)
	mux.HandleFunc("/api/overlay/hover", r.handleOverlayHover)
	mux.HandleFunc("/api/overlay/dismiss", r.handleOverlayDismiss)

	// WebSocket endpoint for view pushes
	mux.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		r.hub.ServeWS(w, req, Message{Type: MessageView, Payload: r.View()})
	})

	// HTML dashboard
	mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/" {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(dashboardHTML))
	})

	return mux
}

func (r *Runner) handleView(w http.ResponseWriter, req *http.Request) {
	if !allowMethods(w, req, http.MethodGet) {
		return
	}
	writeJSON(r.logger, w, http.StatusOK, r.View())
}

// handleChart returns the chart configuration for the current snapshot and
// preferences, or 404 when there is nothing to plot.
func (r *Runner) handleChart(w http.ResponseWriter, req *http.Request) {
	if !allowMethods(w, req, http.MethodGet) {
		return
	}
	snap := r.store.Current()
	cfg, err := chart.Assemble(snap.Series, snap.Events, r.prefs.Get())
	if errors.Is(err, chart.ErrNoData) {
		writeError(r.logger, w, http.StatusNotFound, "no_data", "No data available")
		return
	}
	if err != nil {
		r.logger.Error("failed to assemble chart", zap.Error(err))
		writeError(r.logger, w, http.StatusInternalServerError, "chart_failed", err.Error())
		return
	}
	writeJSON(r.logger, w, http.StatusOK, cfg)
}

func (r *Runner) handleRawStatus(w http.ResponseWriter, req *http.Request) {
	if !allowMethods(w, req, http.MethodGet) {
		return
	}
	status := r.store.Current().Status
	if status == nil {
		writeError(r.logger, w, http.StatusNotFound, "no_status", "Status unavailable")
		return
	}
	writeJSON(r.logger, w, http.StatusOK, status)
}

type autoRefreshBody struct {
	Enabled *bool `json:"enabled"`
}

func (r *Runner) handleAutoRefresh(w http.ResponseWriter, req *http.Request) {
	if !allowMethods(w, req, http.MethodGet, http.MethodPost) {
		return
	}
	if req.Method == http.MethodPost {
		var body autoRefreshBody
		if err := decodeBody(req, &body); err != nil {
			writeError(r.logger, w, http.StatusBadRequest, "invalid_body", err.Error())
			return
		}
		if body.Enabled == nil {
			writeError(r.logger, w, http.StatusBadRequest, "invalid_body", "enabled is required")
			return
		}
		r.SetAutoRefresh(*body.Enabled)
	}
	writeJSON(r.logger, w, http.StatusOK, map[string]any{"enabled": r.driver.Enabled()})
}

// handleRefresh runs one poll cycle now, subject to the same toggle and
// overlap rules as the timer.
func (r *Runner) handleRefresh(w http.ResponseWriter, req *http.Request) {
	if !allowMethods(w, req, http.MethodPost) {
		return
	}
	// A client hanging up must not cut a reload short.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(req.Context()), refreshTimeout)
	defer cancel()

	res := r.Refresh(ctx)
	writeJSON(r.logger, w, http.StatusOK, map[string]any{
		"result":     res.String(),
		"checked_at": time.Now(),
	})
}

type overlayBody struct {
	Year *int `json:"year"`
}

func (r *Runner) overlayYear(w http.ResponseWriter, req *http.Request) (int, bool) {
	if !allowMethods(w, req, http.MethodPost) {
		return 0, false
	}
	var body overlayBody
	if err := decodeBody(req, &body); err != nil {
		writeError(r.logger, w, http.StatusBadRequest, "invalid_body", err.Error())
		return 0, false
	}
	if body.Year == nil {
		writeError(r.logger, w, http.StatusBadRequest, "invalid_body", "year is required")
		return 0, false
	}
	return *body.Year, true
}

func (r *Runner) handleOverlaySelect(w http.ResponseWriter, req *http.Request) {
	year, ok := r.overlayYear(w, req)
	if !ok {
		return
	}
	writeJSON(r.logger, w, http.StatusOK, r.overlay.Select(year))
}

func (r *Runner) handleOverlayHover(w http.ResponseWriter, req *http.Request) {
	year, ok := r.overlayYear(w, req)
	if !ok {
		return
	}
	st, updated := r.overlay.Hover(year)
	writeJSON(r.logger, w, http.StatusOK, map[string]any{
		"updated": updated,
		"state":   st,
	})
}

func (r *Runner) handleOverlayDismiss(w http.ResponseWriter, req *http.Request) {
	if !allowMethods(w, req, http.MethodPost) {
		return
	}
	writeJSON(r.logger, w, http.StatusOK, r.overlay.Dismiss())
}
