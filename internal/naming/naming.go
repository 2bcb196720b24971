// Package naming derives output filenames from a video's title, id, and
// format: sanitising the title into a filesystem-safe fragment and
// assembling it into the pattern `yt_<sanitised>.[<vid>][<fmt>].<ext>`.
package naming

import (
	"fmt"
	"strings"
	"unicode"
)

// SanitiseTitle strips a video title down to alphanumerics, hyphens, and
// printable non-ASCII codepoints; space and underscore both collapse to
// a single underscore, and every other rune is dropped.
func SanitiseTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
		case r > 127 && unicode.IsPrint(r):
			b.WriteRune(r)
		case r == ' ' || r == '_':
			b.WriteRune('_')
		}
	}
	return b.String()
}

// OutputName builds the final output filename: yt_<sanitised title>.[<id>][<format>].<ext>
func OutputName(title, videoID, format, ext string) string {
	return fmt.Sprintf("yt_%s.[%s][%s].%s", SanitiseTitle(title), videoID, format, ext)
}

// TempName builds the corresponding in-progress download filename, used
// while a resumable fetch is incomplete.
func TempName(title, videoID, format, ext string) string {
	return OutputName(title, videoID, format, ext) + ".tmp"
}
