package subtitle

import (
	"fmt"
	"sort"
	"strings"
)

// Event is one subtitle line: a time range, its text, and the style it
// renders with.
type Event struct {
	Start float64 // seconds
	Dur   float64 // seconds
	Text  string
	Style *Style
	Name  string // speaker/author name, empty if unknown

	Layer   int
	MarginL int
	MarginR int
	MarginV int
}

func (e Event) body() string { return strings.ReplaceAll(e.Text, "\n", "\\N") }

func (e Event) sanitizedName() string {
	r := strings.NewReplacer("\n", "_", ",", "_", "\x00", "_")
	return r.Replace(e.Name)
}

func formatTimestamp(seconds float64) string {
	hours := int(seconds) / 3600
	seconds -= float64(hours * 3600)
	minutes := int(seconds) / 60
	seconds -= float64(minutes * 60)
	return fmt.Sprintf("%d:%02d:%05.2f", hours, minutes, seconds)
}

// EventFieldNames is the "Format:" line for the [Events] section.
var EventFieldNames = []string{
	"Layer", "Start", "End", "Style", "Name", "MarginL", "MarginR", "MarginV", "Effect", "Text",
}

// lineStandalone renders this event as it appears in a standalone SSA file.
func (e Event) lineStandalone() string {
	return fmt.Sprintf("Dialogue: %d,%s,%s,%s,%s,%d,%d,%d,,%s",
		e.Layer, formatTimestamp(e.Start), formatTimestamp(e.Start+e.Dur),
		e.Style.Name, e.sanitizedName(), e.MarginL, e.MarginR, e.MarginV, e.body())
}

// lineEmbedded renders this event's MKV block payload: a standalone line
// minus the "Dialogue: " prefix, with a leading ReadOrder field instead
// of a timestamp pair (the block's own timecode/duration carry those).
func (e Event) lineEmbedded(readOrder int) string {
	return fmt.Sprintf("%d,%d,%s,%s,%d,%d,%d,,%s",
		readOrder, e.Layer, e.Style.Name, e.sanitizedName(), e.MarginL, e.MarginR, e.MarginV, e.body())
}

// Set is a collection of subtitle events sharing one style table: one
// subtitle source (an annotation track, or one timed-text language).
type Set struct {
	Name string // optional track label
	Lang string // ISO-639-2 code, "und" if unknown

	Events []Event

	styles     map[styleKey]*Style
	styleOrder []*Style
	nextStyle  int
}

// NewSet returns an empty subtitle set. lang should already be the
// three-letter code; pass "" to default to "und".
func NewSet(name, lang string) *Set {
	if lang == "" {
		lang = "und"
	}
	return &Set{Name: name, Lang: lang, styles: map[styleKey]*Style{}}
}

// Style interns st, returning the canonical *Style for its value tuple
// (assigning it a fresh "StyleN" name the first time that tuple is seen).
func (s *Set) Style(st Style) *Style {
	k := st.key()
	if existing, ok := s.styles[k]; ok {
		return existing
	}
	st.Name = fmt.Sprintf("Style%d", s.nextStyle)
	s.nextStyle++
	cp := st
	s.styles[k] = &cp
	s.styleOrder = append(s.styleOrder, &cp)
	return &cp
}

// ContainsNonEmptySubs reports whether any event has non-empty text,
// matching the source's rule for discarding empty timed-text tracks.
func (s *Set) ContainsNonEmptySubs() bool {
	for _, e := range s.Events {
		if len(e.body()) > 0 {
			return true
		}
	}
	return false
}

func (s *Set) sortEvents() {
	sort.SliceStable(s.Events, func(i, j int) bool {
		a, b := s.Events[i], s.Events[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.Dur < b.Dur
	})
}
