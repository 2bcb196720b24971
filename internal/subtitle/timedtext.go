package subtitle

import (
	"encoding/xml"
	"io"
	"strconv"
)

// AddFromTimedText parses a flat `<text start="…" dur="…">…</text>` list
// and appends one event per element, styled with st. A missing dur attribute defaults to 0, matching a quirk in the
// source feed whose meaning is otherwise undocumented.
func (s *Set) AddFromTimedText(r io.Reader, st Style) error {
	style := s.Style(st)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "text" {
			continue
		}

		var startSec float64
		var dur float64
		for _, a := range start.Attr {
			switch a.Name.Local {
			case "start":
				startSec, _ = strconv.ParseFloat(a.Value, 64)
			case "dur":
				dur, _ = strconv.ParseFloat(a.Value, 64)
			}
		}

		var text string
		if err := dec.DecodeElement(&text, &start); err != nil {
			return err
		}

		s.Events = append(s.Events, Event{Start: startSec, Dur: dur, Text: text, Style: style})
	}
}
