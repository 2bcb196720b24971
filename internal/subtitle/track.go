package subtitle

import (
	"github.com/sh01/yavdlt/internal/dataref"
	"github.com/sh01/yavdlt/internal/ebml"
	"github.com/sh01/yavdlt/internal/mkv"
)

// CodecIDASS is the Matroska CodecID for embedded SSA/ASS subtitle tracks.
const CodecIDASS = "S_TEXT/ASS"

// MKVTrack converts this set into a Builder track: codec-private data
// carrying the Script-Info/Styles/Events headers, and one frame per
// event whose payload is its embedded-form Dialogue line with a
// ReadOrder field starting at 1. tcs is the target timecode scale in
// nanoseconds per tick. Lacing and cue indexing are disabled: subtitle
// events are sparse and never need a byte-aligned seek target.
func (s *Set) MKVTrack(tcs uint64) (mkv.TrackSpec, mkv.FrameSource) {
	s.sortEvents()

	cf := 1e9 / float64(tcs)
	frames := make([]mkv.Frame, len(s.Events))
	for i, e := range s.Events {
		line := e.lineEmbedded(i + 1)
		frames[i] = mkv.Frame{
			Timecode: int64(e.Start * cf),
			Duration: int64(e.Dur * cf),
			Data:     dataref.Bytes(line),
			Keyframe: true,
		}
	}

	spec := mkv.TrackSpec{
		Type:         ebml.TrackTypeSubtitle,
		CodecID:      CodecIDASS,
		CodecPrivate: s.CodecPrivate(),
	}
	return spec, mkv.SliceSource(frames)
}
