// Package prefs loads, validates and persists the user's display preferences.
package prefs

import (
	"encoding/json"
	"fmt"
	"strings"
)

// LineColor selects the index line colour.
type LineColor string

const (
	LineColorAuto   LineColor = "auto"
	LineColorBlue   LineColor = "blue"
	LineColorGreen  LineColor = "green"
	LineColorPurple LineColor = "purple"
	LineColorOrange LineColor = "orange"
	LineColorRed    LineColor = "red"
)

// LineColors lists every accepted colour choice, auto first.
var LineColors = []LineColor{LineColorAuto, LineColorBlue, LineColorGreen, LineColorPurple, LineColorOrange, LineColorRed}

// Valid reports whether c is a known choice.
func (c LineColor) Valid() bool {
	for _, v := range LineColors {
		if v == c {
			return true
		}
	}
	return false
}

// RangeMode selects how much of the series is visible.
type RangeMode string

const (
	RangeAll    RangeMode = "all"
	Range5y     RangeMode = "5y"
	Range20y    RangeMode = "20y"
	RangeDecade RangeMode = "decade"
)

// RangeModes lists every accepted range mode.
var RangeModes = []RangeMode{RangeAll, Range5y, Range20y, RangeDecade}

// Valid reports whether m is a known mode.
func (m RangeMode) Valid() bool {
	for _, v := range RangeModes {
		if v == m {
			return true
		}
	}
	return false
}

// Years returns the window width for a bounded mode. ok is false for "all".
func (m RangeMode) Years() (n int, ok bool) {
	switch m {
	case Range5y:
		return 5, true
	case Range20y:
		return 20, true
	case RangeDecade:
		return 10, true
	}
	return 0, false
}

const (
	DefaultLineColor  = LineColorAuto
	DefaultLineWeight = 3
	DefaultRange      = RangeAll
	DefaultHighlight  = true

	MinLineWeight = 1
	MaxLineWeight = 10
)

// Preferences is the full persisted record.
type Preferences struct {
	LineColor       LineColor `json:"lineColor"`
	LineWeight      int       `json:"lineWeight"`
	Range           RangeMode `json:"range"`
	DarkMode        bool      `json:"darkMode"`
	HighlightDecade bool      `json:"highlightDecade"`
}

// ThemeProbe reports whether the environment prefers a dark theme.
type ThemeProbe func() bool

// Defaults computes the default record. The probe is consulted for the
// theme only; a nil probe means light.
func Defaults(probe ThemeProbe) Preferences {
	dark := false
	if probe != nil {
		dark = probe()
	}
	return Preferences{
		LineColor:       DefaultLineColor,
		LineWeight:      DefaultLineWeight,
		Range:           DefaultRange,
		DarkMode:        dark,
		HighlightDecade: DefaultHighlight,
	}
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned when an update would leave the record invalid.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "preferences validation failed"
	}
	parts := make([]string, 0, len(e))
	for _, v := range e {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "preferences validation failed: " + strings.Join(parts, "; ")
}

// Validate checks every field.
func (p Preferences) Validate() error {
	var errs ValidationErrors
	if !p.LineColor.Valid() {
		errs = append(errs, ValidationError{Field: "lineColor", Message: fmt.Sprintf("unknown colour %q", p.LineColor)})
	}
	if p.LineWeight < MinLineWeight || p.LineWeight > MaxLineWeight {
		errs = append(errs, ValidationError{Field: "lineWeight", Message: fmt.Sprintf("must be between %d and %d", MinLineWeight, MaxLineWeight)})
	}
	if !p.Range.Valid() {
		errs = append(errs, ValidationError{Field: "range", Message: fmt.Sprintf("unknown range %q", p.Range)})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// storedPreferences mirrors Preferences with every field optional so that
// absent fields can be told apart from zero values.
type storedPreferences struct {
	LineColor       *LineColor `json:"lineColor"`
	LineWeight      *int       `json:"lineWeight"`
	Range           *RangeMode `json:"range"`
	DarkMode        *bool      `json:"darkMode"`
	HighlightDecade *bool      `json:"highlightDecade"`
}

// Decode merges a persisted blob onto defaults. Absent or invalid fields take
// their default; a blob that is not a JSON object yields the defaults and an
// error describing why.
func Decode(blob []byte, defaults Preferences) (Preferences, error) {
	out := defaults
	if len(strings.TrimSpace(string(blob))) == 0 {
		return out, nil
	}

	var stored storedPreferences
	if err := json.Unmarshal(blob, &stored); err != nil {
		return defaults, fmt.Errorf("decode preferences: %w", err)
	}

	if stored.LineColor != nil && stored.LineColor.Valid() {
		out.LineColor = *stored.LineColor
	}
	if stored.LineWeight != nil && *stored.LineWeight >= MinLineWeight && *stored.LineWeight <= MaxLineWeight {
		out.LineWeight = *stored.LineWeight
	}
	if stored.Range != nil && stored.Range.Valid() {
		out.Range = *stored.Range
	}
	if stored.DarkMode != nil {
		out.DarkMode = *stored.DarkMode
	}
	if stored.HighlightDecade != nil {
		out.HighlightDecade = *stored.HighlightDecade
	}
	return out, nil
}

// Encode serializes the full record.
func Encode(p Preferences) ([]byte, error) {
	return json.Marshal(p)
}
