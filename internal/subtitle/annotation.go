package subtitle

import (
	"encoding/xml"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Region is one rectRegion/anchoredRegion: a timestamp, a bounding box,
// and a depth, all optional (nil when the source attribute was absent).
// Only T feeds subtitle derivation; the rest are carried for fidelity
// with the source schema.
type Region struct {
	T             *float64
	X, Y, W, H, D *float64
}

// Appearance is an annotation's optional style hint: only the
// foreground colour is carried into the derived Style, matching the
// source, which leaves border/background colour derivation commented
// out pending a documented alpha convention.
type Appearance struct {
	FgColor *uint32
}

// Annotation is one parsed YouTube-style annotation. ToEvent converts it
// to a subtitle Event when it carries enough data to be one.
type Annotation struct {
	ID       string
	Author   string
	Type     string
	Content  *string
	R1, R2   *Region
	Appear   *Appearance
	SpamFlag bool
	URLs     []string
}

type rawRegion struct {
	T string `xml:"t,attr"`
	X string `xml:"x,attr"`
	Y string `xml:"y,attr"`
	W string `xml:"w,attr"`
	H string `xml:"h,attr"`
	D string `xml:"d,attr"`
}

type rawAppearance struct {
	FgColor string `xml:"fgColor,attr"`
}

type rawURL struct {
	Value string `xml:"value,attr"`
}

type rawAction struct {
	URLs []rawURL `xml:"url"`
}

type rawMetadata struct {
	SpamFlag string `xml:"yt_spam_flag,attr"`
}

type rawAnnotation struct {
	ID              string          `xml:"id,attr"`
	Author          string          `xml:"author,attr"`
	Type            string          `xml:"type,attr"`
	Text            *string         `xml:"TEXT"`
	RectRegions     []rawRegion     `xml:"rectRegion"`
	AnchoredRegions []rawRegion     `xml:"anchoredRegion"`
	Appearances     []rawAppearance `xml:"appearance"`
	Actions         []rawAction     `xml:"action"`
	Metadatas       []rawMetadata   `xml:"metadata"`
}

// parseRegionTimestamp parses a colon-delimited h:m:s(.frac) timestamp
// into seconds, or returns nil for the "never" sentinel or an absent
// attribute.
func parseRegionTimestamp(s string) *float64 {
	if s == "" || s == "never" {
		return nil
	}
	parts := strings.Split(s, ":")
	var total float64
	factor := 1.0
	for i := len(parts) - 1; i >= 0; i-- {
		v, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return nil
		}
		total += v * factor
		factor *= 60
	}
	return &total
}

func parseOptFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func buildRegion(r rawRegion) Region {
	return Region{
		T: parseRegionTimestamp(r.T),
		X: parseOptFloat(r.X), Y: parseOptFloat(r.Y),
		W: parseOptFloat(r.W), H: parseOptFloat(r.H),
		D: parseOptFloat(r.D),
	}
}

func parseHexColour(s string) *uint32 {
	if s == "" {
		return nil
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "#")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil
	}
	rv := uint32(v)
	return &rv
}

func buildAnnotation(raw rawAnnotation) Annotation {
	a := Annotation{ID: raw.ID, Author: raw.Author, Type: raw.Type}

	// Mirrors the source combining rectRegion then anchoredRegion
	// results into one list and taking the first two as r1/r2.
	regions := make([]rawRegion, 0, len(raw.RectRegions)+len(raw.AnchoredRegions))
	regions = append(regions, raw.RectRegions...)
	regions = append(regions, raw.AnchoredRegions...)
	if len(regions) >= 1 {
		r := buildRegion(regions[0])
		a.R1 = &r
	}
	if len(regions) >= 2 {
		r := buildRegion(regions[1])
		a.R2 = &r
	}

	if raw.Type == "text" && raw.Text != nil {
		a.Content = raw.Text
	}

	if len(raw.Appearances) > 0 {
		a.Appear = &Appearance{FgColor: parseHexColour(raw.Appearances[0].FgColor)}
	}

	for _, act := range raw.Actions {
		for _, u := range act.URLs {
			a.URLs = append(a.URLs, u.Value)
		}
	}

	for _, md := range raw.Metadatas {
		if md.SpamFlag == "true" {
			a.SpamFlag = true
		}
	}

	return a
}

// ParseAnnotations reads every <annotation> element anywhere in the
// document (the source schema nests them under a root whose name is not
// otherwise load-bearing), sorted by id for deterministic output.
func ParseAnnotations(r io.Reader) ([]Annotation, error) {
	dec := xml.NewDecoder(r)
	var out []Annotation
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "annotation" {
			continue
		}
		var raw rawAnnotation
		if err := dec.DecodeElement(&raw, &start); err != nil {
			return nil, err
		}
		out = append(out, buildAnnotation(raw))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ToEvent converts an annotation to a subtitle Event, following the
// rule that only annotations with text content and two present region
// timestamps are "sublike". filterSpam additionally drops entries whose
// spam flag is set.
func (a Annotation) ToEvent(intern func(Style) *Style, filterSpam bool) (Event, bool) {
	if a.Content == nil || a.R1 == nil || a.R2 == nil || a.R1.T == nil || a.R2.T == nil {
		return Event{}, false
	}
	if filterSpam && a.SpamFlag {
		return Event{}, false
	}

	st := NewStyle()
	if a.Appear != nil && a.Appear.FgColor != nil {
		st.PrimaryColour = *a.Appear.FgColor
	}

	ev := Event{Start: *a.R1.T, Dur: *a.R2.T - *a.R1.T, Text: *a.Content, Style: intern(st)}
	if a.Author != "" {
		ev.Name = a.Author
	}
	return ev, true
}

// AddFromAnnotations appends the sublike subset of annotations as
// events, interning each one's derived style.
func (s *Set) AddFromAnnotations(annotations []Annotation, filterSpam bool) {
	for _, a := range annotations {
		if ev, ok := a.ToEvent(s.Style, filterSpam); ok {
			s.Events = append(s.Events, ev)
		}
	}
}
