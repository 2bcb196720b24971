package subtitle

import (
	"bytes"
	"io"
	"strings"
)

const ssaBOM = "\xef\xbb\xbf"

// scriptInfoHeader renders the "[Script Info]" and "[V4+ Styles]"
// sections shared by both the standalone file and the embedded track's
// codec-private data.
func (s *Set) scriptInfoHeader() []byte {
	var b bytes.Buffer
	b.WriteString(ssaBOM)
	b.WriteString("[Script Info]\r\n")
	b.WriteString("ScriptType: v4.00+\r\n")
	b.WriteString("\r\n[V4+ Styles]\r\n")
	b.WriteString("Format: " + strings.Join(FieldNames, ", ") + "\r\n")
	for _, st := range s.styleOrder {
		b.WriteString(st.formatLine())
		b.WriteString("\r\n")
	}
	return b.Bytes()
}

func eventsHeader() []byte {
	return []byte("\r\n[Events]\r\nFormat: " + strings.Join(EventFieldNames, ", ") + "\r\n\r\n")
}

// CodecPrivate returns the Script-Info + Styles + Events headers used as
// an embedded MKV ASS track's codec-private data.
func (s *Set) CodecPrivate() []byte {
	return append(s.scriptInfoHeader(), eventsHeader()...)
}

// WriteSSA writes the complete standalone .ass document: headers
// followed by one Dialogue line per event, sorted by start then
// duration.
func (s *Set) WriteSSA(w io.Writer) error {
	s.sortEvents()
	if _, err := w.Write(s.scriptInfoHeader()); err != nil {
		return err
	}
	if _, err := w.Write(eventsHeader()); err != nil {
		return err
	}
	for _, e := range s.Events {
		if _, err := io.WriteString(w, e.lineStandalone()+"\r\n"); err != nil {
			return err
		}
	}
	return nil
}
