// Package mkv assembles lazy per-track frame sequences into a Matroska
// Segment: cluster allocation, lacing, cue generation and the two-pass
// size resolution needed because Cues precedes the Clusters it points at.
package mkv

import (
	"github.com/sh01/yavdlt/internal/dataref"
)

// Frame is one elementary-stream sample, timestamped in the builder's
// chosen timecode-scale ticks.
type Frame struct {
	Timecode  int64
	Data      dataref.Ref
	Keyframe  bool
	Duration  int64 // 0 when the track has no per-frame duration
	Reference int64 // relative timecode of the frame this one predicts from, when not a keyframe
}

// FrameSource is a finite, single-pass, lazy frame iterator: each call
// returns the next frame in strictly non-decreasing timecode order, or
// ok=false once exhausted. The builder never reads ahead beyond what
// lacing or cluster-boundary decisions require.
type FrameSource func() (frame Frame, ok bool, err error)

// SliceSource adapts an in-memory frame slice to a FrameSource, for
// tests and for small tracks (subtitles) that never warrant streaming.
func SliceSource(frames []Frame) FrameSource {
	i := 0
	return func() (Frame, bool, error) {
		if i >= len(frames) {
			return Frame{}, false, nil
		}
		f := frames[i]
		i++
		return f, true, nil
	}
}

// VideoParams carries Matroska Video-element display settings.
type VideoParams struct {
	PixelWidth  uint64
	PixelHeight uint64
}

// AudioParams carries Matroska Audio-element settings.
type AudioParams struct {
	SamplingFrequency float64
	Channels          uint64
}

// MSCompat wraps codec-private data in a BITMAPINFOHEADER-style prefix
// for codecs with no native Matroska tag, tagging the track with the
// generic VfW/FourCC codec id instead.
type MSCompat struct {
	Enabled bool
	FourCC  [4]byte
}

// TrackSpec describes one track to add to a Builder.
type TrackSpec struct {
	Type            uint64 // ebml.TrackTypeVideo/Audio/Subtitle
	CodecID         string
	CodecPrivate    []byte
	DefaultDuration uint64
	CueEligible     bool
	AllowLacing     bool
	Video           *VideoParams
	Audio           *AudioParams
	MSCompat        *MSCompat
}

// CompatFlags are three documented interop quirks, each independently
// toggleable; defaults favour historical player compatibility.
type CompatFlags struct {
	// AlignFirstClusterBase sets the first cluster's base timecode to
	// its earliest frame's timecode instead of frame+2^15, forgoing the
	// negative half of the cluster's timecode range to avoid emitting
	// negative per-block timecodes at the very start of a file.
	AlignFirstClusterBase bool
	// ClusterDurationCap limits cluster length to ~5s of ticks instead
	// of the full 2^16-tick window.
	ClusterDurationCap bool
	// LacingAudioOnly disables lacing for every track type but audio.
	LacingAudioOnly bool
}

// DefaultCompatFlags returns the historically most-compatible settings.
func DefaultCompatFlags() CompatFlags {
	return CompatFlags{
		AlignFirstClusterBase: true,
		ClusterDurationCap:    false,
		LacingAudioOnly:       true,
	}
}

type trackState struct {
	spec TrackSpec
	num  uint64 // assigned at Write() time, after sort
	uid  uint64

	source    FrameSource
	peeked    *Frame // next unconsumed frame, nil when not yet peeked or exhausted
	exhausted bool

	cueEligibleSeen uint64 // count of this track's cue-eligible keyframes seen so far, for CueCadence throttling
}

// CuePoint is one seek-index entry. ClusterPosition is unresolved
// (holds a placeholder) until Write finishes laying out the clusters
// that follow Cues in the Segment.
type CuePoint struct {
	Timecode        int64
	TrackNum        uint64
	ClusterPosition int64 // Segment-relative byte offset of the owning cluster
	BlockNumber     uint64

	clusterIdx int // index into the assembled cluster slice, for offset resolution
}
