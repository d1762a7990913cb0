// Package snapshot holds the data model for the dashboard resources and the
// process-wide store for the latest merged view of them.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Point is one yearly reading of the index.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"gti"`
}

// UnmarshalJSON rejects a point without a numeric year and value. A null
// reading is missing data, not zero.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw struct {
		Year  *int     `json:"year"`
		Value *float64 `json:"gti"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("series point: %w", err)
	}
	if raw.Year == nil {
		return fmt.Errorf("series point: missing year")
	}
	if raw.Value == nil {
		return fmt.Errorf("series point %d: missing gti", *raw.Year)
	}
	p.Year, p.Value = *raw.Year, *raw.Value
	return nil
}

// Series is ordered strictly by increasing year with no duplicates.
type Series []Point

// Validate reports whether the series is strictly increasing by year.
func (s Series) Validate() error {
	for i := 1; i < len(s); i++ {
		if s[i].Year <= s[i-1].Year {
			return fmt.Errorf("series not strictly increasing at index %d (year %d after %d)", i, s[i].Year, s[i-1].Year)
		}
	}
	return nil
}

// LastYear returns the maximum year present. ok is false for an empty series.
func (s Series) LastYear() (year int, ok bool) {
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1].Year, true
}

// ValueAt returns the value recorded for year.
func (s Series) ValueAt(year int) (float64, bool) {
	i := sort.Search(len(s), func(i int) bool { return s[i].Year >= year })
	if i < len(s) && s[i].Year == year {
		return s[i].Value, true
	}
	return 0, false
}

// Contains reports whether year has an entry.
func (s Series) Contains(year int) bool {
	_, ok := s.ValueAt(year)
	return ok
}

// IndexDocument is the gti.json payload.
type IndexDocument struct {
	Updated string `json:"updated"`
	Series  Series `json:"series"`
}

// YearText maps a year to descriptive text. On the wire the keys are
// stringified years; a key that is not an integer makes the payload invalid.
type YearText map[int]string

// UnmarshalJSON decodes {"1918": "..."}.
func (yt *YearText) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(YearText, len(raw))
	for k, v := range raw {
		year, err := strconv.Atoi(k)
		if err != nil {
			return fmt.Errorf("invalid year key %q: %w", k, err)
		}
		out[year] = v
	}
	*yt = out
	return nil
}

// Lookup returns the text for year. Empty text counts as absent.
func (yt YearText) Lookup(year int) (string, bool) {
	v, ok := yt[year]
	return v, ok && v != ""
}

// SignalGroup maps a signal name to its reading. A nil entry means the
// signal was present but unavailable.
type SignalGroup map[string]*float64

// Value returns the reading and whether it is available.
func (g SignalGroup) Value(name string) (float64, bool) {
	v, ok := g[name]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// Names returns the signal names in sorted order.
func (g SignalGroup) Names() []string {
	names := make([]string, 0, len(g))
	for k := range g {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Status is the status.json payload. Any object-valued top-level field is
// treated as a named signal group.
type Status struct {
	UpdatedISO string
	GTILast    *float64
	GTI30dAvg  *float64
	Note       string
	Groups     map[string]SignalGroup

	// Raw holds the payload exactly as fetched.
	Raw json.RawMessage
}

// Token returns the freshness token carried by the status.
func (s *Status) Token() string {
	if s == nil {
		return ""
	}
	return s.UpdatedISO
}

// Group returns a named signal group, if present.
func (s *Status) Group(name string) (SignalGroup, bool) {
	if s == nil {
		return nil, false
	}
	g, ok := s.Groups[name]
	return g, ok
}

// UpdatedAt parses the freshness token as a timestamp.
func (s *Status) UpdatedAt() (time.Time, error) {
	return ParseToken(s.Token())
}

// UnmarshalJSON decodes a status document.
func (s *Status) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("status document is null")
	}

	out := Status{
		Groups: make(map[string]SignalGroup),
		Raw:    append(json.RawMessage(nil), data...),
	}
	for key, raw := range fields {
		switch key {
		case "updated_iso":
			if err := json.Unmarshal(raw, &out.UpdatedISO); err != nil {
				return fmt.Errorf("updated_iso: %w", err)
			}
		case "note":
			if err := json.Unmarshal(raw, &out.Note); err != nil {
				return fmt.Errorf("note: %w", err)
			}
		case "gti_last":
			out.GTILast = optionalNumber(raw)
		case "gti_30d_avg":
			out.GTI30dAvg = optionalNumber(raw)
		default:
			trimmed := bytes.TrimSpace(raw)
			if len(trimmed) == 0 || trimmed[0] != '{' {
				continue
			}
			var members map[string]json.RawMessage
			if err := json.Unmarshal(trimmed, &members); err != nil {
				return fmt.Errorf("group %s: %w", key, err)
			}
			group := make(SignalGroup, len(members))
			for name, v := range members {
				group[name] = optionalNumber(v)
			}
			out.Groups[key] = group
		}
	}

	*s = out
	return nil
}

// MarshalJSON re-emits the payload as fetched.
func (s Status) MarshalJSON() ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	return []byte("{}"), nil
}

func optionalNumber(raw json.RawMessage) *float64 {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

// Categories is the categories.json payload.
type Categories struct {
	Updated string             `json:"updated,omitempty"`
	Scores  map[string]float64 `json:"scores"`
}

// Source is one entry of the data source listing.
type Source struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Link     string `json:"link"`
	Notes    string `json:"notes"`
}

// Sources is the sources.json payload.
type Sources struct {
	Sources     []Source `json:"sources"`
	Methodology []string `json:"methodology"`
}

// Snapshot is the merged result of one round of fetching every resource.
// A snapshot is never modified after it is built.
type Snapshot struct {
	Updated    string
	Series     Series
	Events     YearText
	Summaries  YearText
	Status     *Status
	Categories *Categories
	Sources    *Sources
	FetchedAt  time.Time
}

// Token returns the freshness token of the snapshot's status, or "".
func (s *Snapshot) Token() string {
	if s == nil {
		return ""
	}
	return s.Status.Token()
}

// IndexUpdatedAt parses the update time published with the series. It
// accepts a full timestamp or a bare date.
func (s *Snapshot) IndexUpdatedAt() (time.Time, error) {
	if s == nil || s.Updated == "" {
		return time.Time{}, fmt.Errorf("no index update time")
	}
	if t, err := time.Parse(time.DateOnly, s.Updated); err == nil {
		return t, nil
	}
	return ParseToken(s.Updated)
}

// ParseToken interprets a freshness token as an RFC 3339 timestamp.
func ParseToken(token string) (time.Time, error) {
	if token == "" {
		return time.Time{}, fmt.Errorf("empty token")
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, token); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", token)
}
