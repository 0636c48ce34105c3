package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// QuarterKind tags which representation a QuarterEntry carries.
type QuarterKind int

const (
	QuarterLegacy QuarterKind = iota
	QuarterStructured
)

// Quarter is the structured form of a billing quarter definition.
type Quarter struct {
	Name       string `json:"name"`
	Number     int    `json:"number"`
	MonthRange string `json:"monthRange"`
	Active     bool   `json:"active"`
}

// QuarterEntry is either a legacy bare string or a structured Quarter.
// Structured entries remember whether "active" was present on the wire so
// that normalization can default it.
type QuarterEntry struct {
	Kind      QuarterKind
	Legacy    string
	Quarter   Quarter
	activeSet bool
}

// defaultQuarterCycle is indexed by position modulo 4.
var defaultQuarterCycle = [4]string{"Apr-Jun", "Jul-Sep", "Oct-Dec", "Jan-Mar"}

var monthToken = regexp.MustCompile(`(?i)(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`)

// LegacyQuarter wraps a bare quarter name.
func LegacyQuarter(name string) QuarterEntry {
	return QuarterEntry{Kind: QuarterLegacy, Legacy: name}
}

// StructuredQuarter wraps a fully specified quarter.
func StructuredQuarter(q Quarter) QuarterEntry {
	return QuarterEntry{Kind: QuarterStructured, Quarter: q, activeSet: true}
}

// Name returns the display name regardless of representation.
func (e QuarterEntry) Name() string {
	if e.Kind == QuarterLegacy {
		return e.Legacy
	}
	return e.Quarter.Name
}

// DisplayName renders "name (monthRange)" for structured quarters.
func (e QuarterEntry) DisplayName() string {
	if e.Kind == QuarterStructured && e.Quarter.MonthRange != "" {
		return fmt.Sprintf("%s (%s)", e.Quarter.Name, e.Quarter.MonthRange)
	}
	return e.Name()
}

func (e QuarterEntry) MarshalJSON() ([]byte, error) {
	if e.Kind == QuarterLegacy {
		return json.Marshal(e.Legacy)
	}
	return json.Marshal(e.Quarter)
}

func (e *QuarterEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("quarter name: %w", err)
		}
		*e = LegacyQuarter(s)
		return nil
	}

	var raw struct {
		Name       string `json:"name"`
		Number     int    `json:"number"`
		MonthRange string `json:"monthRange"`
		Active     *bool  `json:"active"`
		From       string `json:"from"`
		To         string `json:"to"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("quarter object: %w", err)
	}
	q := Quarter{Name: raw.Name, Number: raw.Number, MonthRange: raw.MonthRange}
	if q.MonthRange == "" && raw.From != "" && raw.To != "" {
		q.MonthRange = raw.From + "-" + raw.To
	}
	*e = QuarterEntry{Kind: QuarterStructured, Quarter: q}
	if raw.Active != nil {
		e.Quarter.Active = *raw.Active
		e.activeSet = true
	}
	return nil
}

// InferMonthRange returns "Start-End" from the first two month tokens found
// in name, scanning left to right. ok is false with fewer than two tokens.
func InferMonthRange(name string) (string, bool) {
	matches := monthToken.FindAllString(name, 2)
	if len(matches) < 2 {
		return "", false
	}
	return shortMonth(matches[0]) + "-" + shortMonth(matches[1]), true
}

// DefaultMonthRange returns the quarterly default for a 0-based position.
func DefaultMonthRange(pos int) string {
	if pos < 0 {
		pos = -pos
	}
	return defaultQuarterCycle[pos%4]
}

func shortMonth(token string) string {
	t := strings.ToLower(token)[:3]
	return strings.ToUpper(t[:1]) + t[1:]
}

// NormalizeQuarters converts every entry to the structured form. Legacy names
// become the quarter name, numbers default to the 1-based position, month
// ranges are inferred from the name or taken from the default cycle, and
// active defaults to true. Applying it twice yields the same result.
func NormalizeQuarters(entries []QuarterEntry) []QuarterEntry {
	out := make([]QuarterEntry, len(entries))
	for i, e := range entries {
		out[i] = normalizeQuarter(e, i)
	}
	return out
}

func normalizeQuarter(e QuarterEntry, pos int) QuarterEntry {
	var q Quarter
	activeSet := false
	if e.Kind == QuarterLegacy {
		q.Name = e.Legacy
	} else {
		q = e.Quarter
		activeSet = e.activeSet
	}
	if q.Number <= 0 {
		q.Number = pos + 1
	}
	if strings.TrimSpace(q.MonthRange) == "" {
		if r, ok := InferMonthRange(q.Name); ok {
			q.MonthRange = r
		} else {
			q.MonthRange = DefaultMonthRange(pos)
		}
	}
	if !activeSet {
		q.Active = true
	}
	return StructuredQuarter(q)
}

// Quarters extracts the structured values of already normalized entries.
func Quarters(entries []QuarterEntry) []Quarter {
	out := make([]Quarter, 0, len(entries))
	for _, e := range NormalizeQuarters(entries) {
		out = append(out, e.Quarter)
	}
	return out
}

// DefaultMonthRanges returns the suggested month ranges for a network that
// splits its year into count quarters.
func DefaultMonthRanges(count int) []string {
	if count == 2 {
		return []string{"Apr-Sep", "Oct-Mar"}
	}
	return append([]string(nil), defaultQuarterCycle[:]...)
}

// ValidateQuarters checks edited quarter definitions. It reports the first
// problem found, naming the 1-based card position.
func ValidateQuarters(qs []Quarter) error {
	seen := make(map[int]bool, len(qs))
	for i, q := range qs {
		pos := i + 1
		switch {
		case strings.TrimSpace(q.Name) == "":
			return fmt.Errorf("Quarter %d: Name is required", pos)
		case q.Number < 1:
			return fmt.Errorf("Quarter %d: Valid number is required", pos)
		case strings.TrimSpace(q.MonthRange) == "":
			return fmt.Errorf("Quarter %d: Month range is required", pos)
		case seen[q.Number]:
			return fmt.Errorf("Quarter %d: Duplicate quarter number %d", pos, q.Number)
		}
		seen[q.Number] = true
	}
	return nil
}
