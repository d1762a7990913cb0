// Package widgets derives the secondary dashboard panels (signals,
// categories, headline figures) from a snapshot.
package widgets

import (
	"anthrometer/internal/snapshot"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// Unavailable is shown in place of a missing reading.
const Unavailable = "unavailable"

// DefaultNote is the signals footnote when the status carries none.
const DefaultNote = "Signals compare to recent baselines."

// SignalRow is one line of the signals panel.
type SignalRow struct {
	Group     string   `json:"group"`
	Key       string   `json:"key"`
	Label     string   `json:"label"`
	Value     *float64 `json:"value"`
	Text      string   `json:"text"`
	Available bool     `json:"available"`
}

type signalDef struct {
	group   string
	key     string
	label   string
	percent bool // stored as a fraction, shown ×100 with a % sign
}

var coreSignals = []signalDef{
	{group: "planetary", key: "co2_ppm", label: "CO₂ (ppm)"},
	{group: "planetary", key: "gistemp_anom_c", label: "Temp anomaly (°C)"},
	{group: "sentiment", key: "avg_tone_30d", label: "News tone (30d avg)"},
	{group: "markets", key: "acwi_ret30", label: "ACWI (30d return)", percent: true},
	{group: "markets", key: "vix", label: "VIX (level)"},
	{group: "markets", key: "brent_vol30", label: "Brent 30d vol", percent: true},
}

var coreGroups = map[string]bool{"planetary": true, "sentiment": true, "markets": true}

// Signals lists the signal readings as raw levels. A group missing from the
// status contributes no rows; a missing value inside a present group gives
// an unavailable row. Optional groups follow the core ones, sorted by name.
func Signals(status *snapshot.Status) []SignalRow {
	rows := []SignalRow{}
	if status == nil {
		return rows
	}

	for _, def := range coreSignals {
		group, ok := status.Group(def.group)
		if !ok {
			continue
		}
		rows = append(rows, signalRow(def, group))
	}

	var extra []string
	for name := range status.Groups {
		if !coreGroups[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		group := status.Groups[name]
		for _, key := range group.Names() {
			rows = append(rows, signalRow(signalDef{group: name, key: key, label: name + " " + key}, group))
		}
	}
	return rows
}

func signalRow(def signalDef, group snapshot.SignalGroup) SignalRow {
	row := SignalRow{Group: def.group, Key: def.key, Label: def.label, Text: Unavailable}
	v, ok := group.Value(def.key)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return row
	}
	row.Value = &v
	row.Available = true
	if def.percent {
		row.Text = fmt.Sprintf("%.2f%%", v*100)
	} else {
		row.Text = fmt.Sprintf("%.2f", v)
	}
	return row
}

// Note returns the signals footnote.
func Note(status *snapshot.Status) string {
	if status != nil && status.Note != "" {
		return status.Note
	}
	return DefaultNote
}

// CategoryOrder is the fixed display order of the category scores.
var CategoryOrder = []string{
	"Planetary Health",
	"Economic Wellbeing",
	"Global Peace & Conflict",
	"Public Health",
	"Civic Freedom & Rights",
	"Technological Progress",
	"Sentiment & Culture",
	"Entropy Index",
}

// CategoryRow is one category score.
type CategoryRow struct {
	Name      string   `json:"name"`
	Score     *float64 `json:"score"`
	Text      string   `json:"text"`
	Available bool     `json:"available"`
}

// Categories returns one row per category in CategoryOrder. Scores missing
// from c are unavailable.
func Categories(c *snapshot.Categories) []CategoryRow {
	rows := make([]CategoryRow, 0, len(CategoryOrder))
	for _, name := range CategoryOrder {
		row := CategoryRow{Name: name, Text: Unavailable}
		if c != nil {
			if v, ok := c.Scores[name]; ok {
				row.Score = &v
				row.Available = true
				row.Text = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// KPI is the headline figure.
type KPI struct {
	HasData   bool     `json:"hasData"`
	Year      int      `json:"year,omitempty"`
	Value     int      `json:"value,omitempty"`
	Updated   string   `json:"updated,omitempty"`
	DeltaPct  *float64 `json:"deltaPct,omitempty"`
	DeltaText string   `json:"deltaText,omitempty"`
}

// BuildKPI reads the latest year and its rounded value from the series, the
// update time from the status (or the series document when the status has
// none) and the change against the 30 day average.
func BuildKPI(snap *snapshot.Snapshot) KPI {
	var k KPI
	if snap == nil {
		return k
	}
	if n := len(snap.Series); n > 0 {
		last := snap.Series[n-1]
		k.HasData = true
		k.Year = last.Year
		k.Value = int(math.Round(last.Value))
	}

	if ts, err := snap.Status.UpdatedAt(); err == nil {
		k.Updated = ts.UTC().Format(http1123)
	} else if ts, err := snap.IndexUpdatedAt(); err == nil {
		k.Updated = ts.UTC().Format(http1123)
	}

	if st := snap.Status; st != nil && st.GTILast != nil && st.GTI30dAvg != nil {
		var pct float64
		if avg := *st.GTI30dAvg; avg != 0 {
			pct = (*st.GTILast - avg) / avg * 100
		}
		k.DeltaPct = &pct
		arrow := "▲"
		if pct < 0 {
			arrow = "▼"
		}
		k.DeltaText = fmt.Sprintf("%s %.2f%% vs 30d", arrow, pct)
	}
	return k
}

const http1123 = "Mon, 02 Jan 2006 15:04:05 GMT"

// AgoText renders "updated 5 minutes ago" for a freshness token, or "" when
// the token is not a timestamp.
func AgoText(token string, now time.Time) string {
	ts, err := snapshot.ParseToken(token)
	if err != nil {
		return ""
	}
	return "updated " + humanize.RelTime(ts, now, "ago", "from now")
}
