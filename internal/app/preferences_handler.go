package app

import (
	"anthrometer/internal/prefs"
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// PreferencesHandler handles preference-related HTTP requests.
type PreferencesHandler struct {
	logger *zap.Logger
	store  *prefs.Store
}

// NewPreferencesHandler creates a new PreferencesHandler.
func NewPreferencesHandler(logger *zap.Logger, store *prefs.Store) *PreferencesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferencesHandler{
		logger: logger,
		store:  store,
	}
}

// RegisterRoutes registers the preference routes on the given mux.
func (h *PreferencesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/preferences", h.handlePreferencesAPI)
	mux.HandleFunc("/api/preferences/reset", h.handlePreferencesReset)
	mux.HandleFunc("/api/preferences/info", h.handlePreferencesInfo)
}

// handlePreferencesAPI handles GET and POST requests for preferences.
func (h *PreferencesHandler) handlePreferencesAPI(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(h.logger, w, http.StatusOK, h.store.Get())
	case http.MethodPost:
		h.updatePreferences(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// PreferencesPatch carries the fields a client wants to change. Absent
// fields keep their current value.
type PreferencesPatch struct {
	LineColor       *prefs.LineColor `json:"lineColor"`
	LineWeight      *int             `json:"lineWeight"`
	Range           *prefs.RangeMode `json:"range"`
	DarkMode        *bool            `json:"darkMode"`
	HighlightDecade *bool            `json:"highlightDecade"`
}

// Apply copies the set fields onto p.
func (patch PreferencesPatch) Apply(p *prefs.Preferences) {
	if patch.LineColor != nil {
		p.LineColor = *patch.LineColor
	}
	if patch.LineWeight != nil {
		p.LineWeight = *patch.LineWeight
	}
	if patch.Range != nil {
		p.Range = *patch.Range
	}
	if patch.DarkMode != nil {
		p.DarkMode = *patch.DarkMode
	}
	if patch.HighlightDecade != nil {
		p.HighlightDecade = *patch.HighlightDecade
	}
}

// updatePreferences applies a partial update from the request body.
func (h *PreferencesHandler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	var patch PreferencesPatch
	if err := decodeBody(r, &patch); err != nil {
		h.logger.Debug("failed to decode preferences", zap.Error(err))
		writeError(h.logger, w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	updated, err := h.store.Update(ctx, patch.Apply)
	var verrs prefs.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(h.logger, w, http.StatusBadRequest, map[string]any{
			"success": false,
			"errors":  verrs,
		})
		return
	}
	if err != nil {
		h.logger.Error("failed to update preferences", zap.Error(err))
		http.Error(w, "Failed to update preferences: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.logger.Info("preferences updated via API")

	writeJSON(h.logger, w, http.StatusOK, map[string]any{
		"success":     true,
		"preferences": updated,
		"applied_at":  time.Now(),
	})
}

// handlePreferencesReset resets preferences to computed defaults.
func (h *PreferencesHandler) handlePreferencesReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	defaults := h.store.Reset(ctx)

	h.logger.Info("preferences reset to defaults via API")

	writeJSON(h.logger, w, http.StatusOK, map[string]any{
		"success":     true,
		"preferences": defaults,
		"applied_at":  time.Now(),
	})
}

// handlePreferencesInfo returns metadata about preference state.
func (h *PreferencesHandler) handlePreferencesInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(h.logger, w, http.StatusOK, map[string]any{
		"source":       h.store.Source(),
		"last_updated": h.store.LastUpdated(),
		"line_colors":  prefs.LineColors,
		"ranges":       prefs.RangeModes,
		"line_weight":  map[string]int{"min": prefs.MinLineWeight, "max": prefs.MaxLineWeight},
	})
}
