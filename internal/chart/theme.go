package chart

import "anthrometer/internal/prefs"

// Theme holds the colours a chart takes from the active page theme.
type Theme struct {
	Paper     string `json:"paper"`
	Plot      string `json:"plot"`
	Font      string `json:"font"`
	Grid      string `json:"grid"`
	Highlight string `json:"highlight"`
}

var (
	LightTheme = Theme{
		Paper:     "#f8fafc",
		Plot:      "#ffffff",
		Font:      "#0f172a",
		Grid:      "#e2e8f0",
		Highlight: "rgba(2,132,199,0.08)",
	}
	DarkTheme = Theme{
		Paper:     "#0b1220",
		Plot:      "#111827",
		Font:      "#e5e7eb",
		Grid:      "#1f2937",
		Highlight: "rgba(148,163,184,0.10)",
	}
)

// ThemeFor returns the palette for the dark mode flag.
func ThemeFor(dark bool) Theme {
	if dark {
		return DarkTheme
	}
	return LightTheme
}

var lineColors = map[prefs.LineColor]string{
	prefs.LineColorBlue:   "#2563eb",
	prefs.LineColorGreen:  "#059669",
	prefs.LineColorPurple: "#7c3aed",
	prefs.LineColorOrange: "#ea580c",
	prefs.LineColorRed:    "#dc2626",
}

// LineColorHex resolves a colour choice. Auto (and anything unknown) returns
// "" so the plotting engine picks its own default.
func LineColorHex(c prefs.LineColor) string {
	return lineColors[c]
}

// Milestone is a fixed historical marker drawn when its year is in the series.
type Milestone struct {
	Year  int
	Label string
}

// Milestones is sorted by year.
var Milestones = []Milestone{
	{Year: 1918, Label: "1918: Flu Pandemic"},
	{Year: 1945, Label: "1945: WWII Ends"},
	{Year: 2008, Label: "2008: Financial Crisis"},
	{Year: 2020, Label: "2020: COVID-19"},
}
