package pipeline

import (
	"fmt"
	"math"

	"github.com/sh01/yavdlt/internal/mkv"
	"github.com/sh01/yavdlt/internal/mp4"
)

// defaultMP4TCS is used when an MP4 source has no tracks at all (an
// otherwise-valid but empty moov), so Run always has a timecode scale
// to build with.
const defaultMP4TCS = uint64(1_000_000)

// harmonizeMP4 reconciles an MP4 file's per-track native timescales
// into one Matroska timecode scale, the way mcde_mp4.py's
// MovBoxMovie.make_mkvb does: pick ts_base as the largest native
// TimeScale among the file's tracks, td_gcd as the GCD of every
// sample-delta value across every track, derive (tcs, elmult) from
// those via mkv.TCSFromSecDiv, then rescale each track's frame
// timecodes/durations by elmult*ts_base/track.TimeScale. *videoFrames
// and *audioFrames are replaced with the rescaled sources; tracks
// demuxer didn't populate are left nil.
func harmonizeMP4(d *mp4.Demuxed, videoFrames, audioFrames *mkv.FrameSource) (uint64, error) {
	var videoSamples, audioSamples []mkv.Frame
	var tsBase int64
	var tdGCD int64

	if d.Video != nil {
		frames, err := drain(d.Video.Frames)
		if err != nil {
			return 0, fmt.Errorf("pipeline: drain video frames: %w", err)
		}
		videoSamples = frames
		if d.Video.TimeScale > tsBase {
			tsBase = d.Video.TimeScale
		}
		tdGCD = gcd(tdGCD, trackDeltaGCD(frames))
	}
	if d.Audio != nil {
		frames, err := drain(d.Audio.Frames)
		if err != nil {
			return 0, fmt.Errorf("pipeline: drain audio frames: %w", err)
		}
		audioSamples = frames
		if d.Audio.TimeScale > tsBase {
			tsBase = d.Audio.TimeScale
		}
		tdGCD = gcd(tdGCD, trackDeltaGCD(frames))
	}

	if tsBase == 0 {
		return defaultMP4TCS, nil
	}

	tcs, elmult, _ := mkv.TCSFromSecDiv(tsBase, tdGCD, 0)

	if d.Video != nil {
		scale := elmult * float64(tsBase) / float64(d.Video.TimeScale)
		*videoFrames = mkv.SliceSource(rescale(videoSamples, scale))
	}
	if d.Audio != nil {
		scale := elmult * float64(tsBase) / float64(d.Audio.TimeScale)
		*audioFrames = mkv.SliceSource(rescale(audioSamples, scale))
	}
	return tcs, nil
}

// drain exhausts a FrameSource into a slice. MP4 tracks are already
// fully materialized in memory by internal/mp4 (their Frames source is
// built from an already-walked sample table), so this never blocks on
// further I/O beyond what Demux already did.
func drain(src mkv.FrameSource) ([]mkv.Frame, error) {
	var out []mkv.Frame
	for {
		f, ok, err := src()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, f)
	}
}

func rescale(frames []mkv.Frame, scale float64) []mkv.Frame {
	out := make([]mkv.Frame, len(frames))
	for i, f := range frames {
		f.Timecode = int64(math.Round(float64(f.Timecode) * scale))
		f.Duration = int64(math.Round(float64(f.Duration) * scale))
		out[i] = f
	}
	return out
}

// trackDeltaGCD is the GCD of a track's per-sample durations, i.e. the
// sample-delta GCD mcde_mp4.py's MovBoxTrack.get_sample_delta_gcd
// computes from stts run lengths — internal/mp4 already carries each
// sample's stts-derived duration in Frame.Duration, so this reads that
// directly rather than re-deriving it from consecutive timecodes (which
// would be thrown off by video's CTS-offset reordering).
func trackDeltaGCD(frames []mkv.Frame) int64 {
	var g int64
	for _, f := range frames {
		g = gcd(g, f.Duration)
	}
	if g == 0 && len(frames) > 0 {
		g = 1
	}
	return g
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
