// Package chart turns a series and the display preferences into a
// Plotly-shaped chart configuration.
package chart

import (
	"anthrometer/internal/prefs"
	"anthrometer/internal/snapshot"
	"errors"
	"fmt"
)

// ErrNoData is returned for an empty series; callers show a placeholder.
var ErrNoData = errors.New("chart: no data")

const (
	annotationOffsetY = -40
	hoverTemplate     = "Year: %{x}<br>GTI: %{y:.0f}<extra></extra>"
)

// Config is handed unchanged to the plotting engine.
type Config struct {
	Data    []Trace `json:"data"`
	Layout  Layout  `json:"layout"`
	Options Options `json:"config"`
}

// Trace is a single line trace.
type Trace struct {
	X             []int     `json:"x"`
	Y             []float64 `json:"y"`
	CustomData    []string  `json:"customdata,omitempty"`
	Type          string    `json:"type"`
	Mode          string    `json:"mode"`
	Name          string    `json:"name"`
	HoverTemplate string    `json:"hovertemplate"`
	Line          Line      `json:"line"`
}

// Line styles a trace. An empty Color leaves the choice to the engine.
type Line struct {
	Color string `json:"color,omitempty"`
	Width int    `json:"width"`
}

type Layout struct {
	Title        Text         `json:"title"`
	Margin       Margin       `json:"margin"`
	XAxis        Axis         `json:"xaxis"`
	YAxis        Axis         `json:"yaxis"`
	Annotations  []Annotation `json:"annotations"`
	Shapes       []Shape      `json:"shapes"`
	PaperBGColor string       `json:"paper_bgcolor"`
	PlotBGColor  string       `json:"plot_bgcolor"`
	Font         Font         `json:"font"`
}

type Text struct {
	Text string `json:"text"`
}

type Margin struct {
	L int `json:"l"`
	R int `json:"r"`
	T int `json:"t"`
	B int `json:"b"`
}

// Axis range is nil when the axis is unbounded.
type Axis struct {
	Title     Text   `json:"title"`
	ShowGrid  bool   `json:"showgrid"`
	GridColor string `json:"gridcolor"`
	Range     []int  `json:"range,omitempty"`
}

type Annotation struct {
	X         int     `json:"x"`
	Y         float64 `json:"y"`
	Text      string  `json:"text"`
	ShowArrow bool    `json:"showarrow"`
	ArrowHead int     `json:"arrowhead"`
	AX        int     `json:"ax"`
	AY        int     `json:"ay"`
}

type Shape struct {
	Type      string    `json:"type"`
	XRef      string    `json:"xref"`
	YRef      string    `json:"yref"`
	X0        int       `json:"x0"`
	X1        int       `json:"x1"`
	Y0        float64   `json:"y0"`
	Y1        float64   `json:"y1"`
	FillColor string    `json:"fillcolor"`
	Line      ShapeLine `json:"line"`
}

type ShapeLine struct {
	Width int `json:"width"`
}

type Font struct {
	Color string `json:"color"`
}

type Options struct {
	DisplayModeBar bool `json:"displayModeBar"`
	Responsive     bool `json:"responsive"`
}

// VisibleRange returns the [from, to] year window for mode, or nil for an
// unbounded view.
func VisibleRange(mode prefs.RangeMode, lastYear int) []int {
	n, ok := mode.Years()
	if !ok {
		return nil
	}
	return []int{lastYear - n + 1, lastYear}
}

// Assemble builds the chart configuration. It is pure: the same inputs always
// produce the same configuration. events supplies per-point hover text and
// may be nil.
func Assemble(series snapshot.Series, events snapshot.YearText, p prefs.Preferences) (*Config, error) {
	lastYear, ok := series.LastYear()
	if !ok {
		return nil, ErrNoData
	}
	firstYear := series[0].Year
	theme := ThemeFor(p.DarkMode)

	xs := make([]int, len(series))
	ys := make([]float64, len(series))
	var custom []string
	if len(events) > 0 {
		custom = make([]string, len(series))
	}
	for i, pt := range series {
		xs[i] = pt.Year
		ys[i] = pt.Value
		if custom != nil {
			custom[i] = events[pt.Year]
		}
	}

	xRange := VisibleRange(p.Range, lastYear)

	cfg := &Config{
		Data: []Trace{{
			X:             xs,
			Y:             ys,
			CustomData:    custom,
			Type:          "scatter",
			Mode:          "lines",
			Name:          "GTI",
			HoverTemplate: hoverTemplate,
			Line: Line{
				Color: LineColorHex(p.LineColor),
				Width: p.LineWeight,
			},
		}},
		Layout: Layout{
			Title:  Text{Text: fmt.Sprintf("Good Times Index (GTI): %d to %d", firstYear, lastYear)},
			Margin: Margin{L: 60, R: 20, T: 50, B: 40},
			XAxis: Axis{
				Title:     Text{Text: "Year"},
				ShowGrid:  true,
				GridColor: theme.Grid,
				Range:     xRange,
			},
			YAxis: Axis{
				Title:     Text{Text: "GTI Index (Unbounded)"},
				ShowGrid:  true,
				GridColor: theme.Grid,
			},
			Annotations:  annotations(series),
			Shapes:       []Shape{},
			PaperBGColor: theme.Paper,
			PlotBGColor:  theme.Plot,
			Font:         Font{Color: theme.Font},
		},
		Options: Options{DisplayModeBar: false, Responsive: true},
	}

	// The band would double up with a range that already narrows the view.
	if xRange == nil && p.HighlightDecade {
		cfg.Layout.Shapes = append(cfg.Layout.Shapes, Shape{
			Type:      "rect",
			XRef:      "x",
			YRef:      "paper",
			X0:        lastYear - 9,
			X1:        lastYear,
			Y0:        0,
			Y1:        1,
			FillColor: theme.Highlight,
			Line:      ShapeLine{Width: 0},
		})
	}

	return cfg, nil
}

func annotations(series snapshot.Series) []Annotation {
	out := []Annotation{}
	for _, m := range Milestones {
		v, ok := series.ValueAt(m.Year)
		if !ok {
			continue
		}
		out = append(out, Annotation{
			X:         m.Year,
			Y:         v,
			Text:      m.Label,
			ShowArrow: true,
			ArrowHead: 2,
			AX:        0,
			AY:        annotationOffsetY,
		})
	}
	return out
}
