// Package subtitle builds SSA/ASS subtitle documents from annotation XML
// and timed-text XML, and emits them either as standalone .ass files or
// as an embedded Matroska subtitle track.
package subtitle

import "fmt"

// Style is one SSA "[V4+ Styles]" style line. Zero-value fields are
// filled in with their SSA defaults by NewStyle.
type Style struct {
	Name string

	Fontname string
	Fontsize int

	// Colours are packed ABGR, matching SSA's &HAABBGGRR convention.
	PrimaryColour   uint32
	SecondaryColour uint32
	OutlineColour   uint32
	BackColour      uint32

	Bold      bool
	Italic    bool
	Underline bool
	Strikeout bool

	ScaleX, ScaleY float64 // 1.0 = 100%
	Spacing        int
	Angle          float64
	Borderstyle    int
	Outline        int
	Shadow         int
	Alignment      int
	MarginL        int
	MarginR        int
	MarginV        int
	Encoding       int
}

// MakeColour packs an SSA colour from its RGBA components; a is stored
// as given, and in SSA's alpha channel 0 means opaque.
func MakeColour(r, g, b, a uint8) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(g)<<8 | uint32(r)
}

// NewStyle returns a style with every field at its SSA default, for
// callers to override selectively (mirroring the source annotation's
// appearance block, which usually only sets a foreground colour).
func NewStyle() Style {
	return Style{
		Fontsize:        20,
		PrimaryColour:   MakeColour(255, 255, 255, 0),
		SecondaryColour: MakeColour(223, 223, 223, 0),
		OutlineColour:   MakeColour(0, 0, 0, 0),
		BackColour:      MakeColour(0, 0, 0, 0),
		ScaleX:          1,
		ScaleY:          1,
		Borderstyle:     1,
		Outline:         2,
		Alignment:       2,
		MarginV:         10,
		Encoding:        1,
	}
}

// FieldNames is the "Format:" line for the [V4+ Styles] section, in the
// field order every Style line below must follow.
var FieldNames = []string{
	"Name", "Fontname", "Fontsize", "PrimaryColour", "SecondaryColour",
	"OutlineColour", "BackColour", "Bold", "Italic", "Underline", "Strikeout",
	"ScaleX", "ScaleY", "Spacing", "Angle", "Borderstyle", "Outline", "Shadow",
	"Alignment", "MarginL", "MarginR", "MarginV", "Encoding",
}

func fvcBool(b bool) string {
	if b {
		return "-1"
	}
	return "0"
}

func fvcPerc(v float64) string { return fmt.Sprintf("%.2f", v*100) }

// values returns this style's field values in FieldNames order, used
// both to render the "Style:" line and as a dedup key.
func (s Style) values() [22]any {
	return [22]any{
		s.Fontname, s.Fontsize, s.PrimaryColour, s.SecondaryColour,
		s.OutlineColour, s.BackColour, fvcBool(s.Bold), fvcBool(s.Italic),
		fvcBool(s.Underline), fvcBool(s.Strikeout), fvcPerc(s.ScaleX), fvcPerc(s.ScaleY),
		s.Spacing, s.Angle, s.Borderstyle, s.Outline, s.Shadow,
		s.Alignment, s.MarginL, s.MarginR, s.MarginV, s.Encoding,
	}
}

func (s Style) formatLine() string {
	v := s.values()
	return fmt.Sprintf("Style: %s,%v,%d,%d,%d,%d,%d,%v,%v,%v,%v,%v,%v,%d,%v,%d,%d,%d,%d,%d,%d,%d,%d",
		s.Name, v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7], v[8], v[9], v[10],
		v[11], v[12], v[13], v[14], v[15], v[16], v[17], v[18], v[19], v[20], v[21])
}

// styleKey is the dedup key: two styles with identical rendered fields
// (everything but Name) are the same style.
type styleKey [22]any

func (s Style) key() styleKey { return styleKey(s.values()) }
