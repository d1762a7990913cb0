package app

import (
	"anthrometer/internal/chart"
	"anthrometer/internal/overlay"
	"anthrometer/internal/prefs"
	"anthrometer/internal/snapshot"
	"anthrometer/internal/widgets"
	"errors"

	"go.uber.org/zap"
)

// View is everything the page needs to draw itself.
type View struct {
	Version uint64 `json:"version"`

	// Chart is nil when the series is empty; the page shows a placeholder.
	Chart  *chart.Config `json:"chart,omitempty"`
	NoData bool          `json:"noData"`

	KPI        widgets.KPI           `json:"kpi"`
	Signals    []widgets.SignalRow   `json:"signals"`
	Note       string                `json:"note"`
	Categories []widgets.CategoryRow `json:"categories"`
	Sources    *snapshot.Sources     `json:"sources,omitempty"`

	UpdatedAgo  string            `json:"updatedAgo"`
	AutoRefresh bool              `json:"autoRefresh"`
	Preferences prefs.Preferences `json:"preferences"`
	Overlay     overlay.State     `json:"overlay"`
}

// buildView composes the snapshot-derived parts of a view. Preferences are
// passed in as read at call time.
func buildView(logger *zap.Logger, snap *snapshot.Snapshot, p prefs.Preferences) View {
	v := View{
		Preferences: p,
		Signals:     widgets.Signals(nil),
		Categories:  widgets.Categories(nil),
		Note:        widgets.Note(nil),
		NoData:      true,
	}
	if snap == nil {
		return v
	}

	cfg, err := chart.Assemble(snap.Series, snap.Events, p)
	switch {
	case err == nil:
		v.Chart = cfg
		v.NoData = false
	case errors.Is(err, chart.ErrNoData):
	default:
		logger.Error("failed to assemble chart", zap.Error(err))
	}

	v.KPI = widgets.BuildKPI(snap)
	v.Signals = widgets.Signals(snap.Status)
	v.Note = widgets.Note(snap.Status)
	v.Categories = widgets.Categories(snap.Categories)
	v.Sources = snap.Sources
	return v
}
