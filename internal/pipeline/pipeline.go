// Package pipeline drives one video end-to-end: detect the source
// container, demux its elementary streams, harmonize timescales where
// the source needs it, attach any subtitle tracks synthesized from
// annotation/timed-text XML, and write the resulting Matroska Segment.
// It is single-threaded and processes exactly one video per call, by
// design (spec.md §5): no goroutines are required for correctness.
package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/sh01/yavdlt/internal/codec"
	"github.com/sh01/yavdlt/internal/config"
	"github.com/sh01/yavdlt/internal/ebml"
	"github.com/sh01/yavdlt/internal/flv"
	"github.com/sh01/yavdlt/internal/mkv"
	"github.com/sh01/yavdlt/internal/mp4"
	"github.com/sh01/yavdlt/internal/subtitle"
)

// ErrUnknownSource is returned when the input doesn't carry an FLV
// signature and fails to parse as an MP4 box tree either.
var ErrUnknownSource = errors.New("pipeline: unrecognized source container")

// SourceKind identifies which demuxer a source container needs.
type SourceKind int

const (
	SourceUnknown SourceKind = iota
	SourceFLV
	SourceMP4
)

// flvSignature is the three-byte magic every FLV file starts with.
var flvSignature = [3]byte{'F', 'L', 'V'}

// DetectSource sniffs r's first bytes to choose a demuxer, then rewinds
// r to its original position. Anything not bearing the FLV signature is
// assumed to be an MP4 box stream; mp4.Demux reports ErrContainerParse
// on anything that isn't.
func DetectSource(r io.ReadSeeker) (SourceKind, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return SourceUnknown, fmt.Errorf("pipeline: locate stream position: %w", err)
	}
	var magic [3]byte
	n, err := io.ReadFull(r, magic[:])
	if _, seekErr := r.Seek(start, io.SeekStart); seekErr != nil {
		return SourceUnknown, fmt.Errorf("pipeline: rewind source: %w", seekErr)
	}
	if err != nil && err != io.ErrUnexpectedEOF {
		return SourceUnknown, fmt.Errorf("pipeline: read source signature: %w", err)
	}
	if n == 3 && magic == flvSignature {
		return SourceFLV, nil
	}
	return SourceMP4, nil
}

// SubtitleSource is one subtitle track to synthesize and attach: a
// language tag (two-letter source code, resolved via
// subtitle.ResolveLangCode) plus either or both of an annotation XML
// document and a timed-text XML document.
type SubtitleSource struct {
	Lang           string
	AnnotationsXML io.Reader
	TimedTextXML   io.Reader
	FilterSpam     bool
}

// Result summarizes what Run wrote, for caller-side logging/reporting.
type Result struct {
	HasVideo       bool
	HasAudio       bool
	SubtitleTracks int
}

// Run demuxes src, attaches every non-empty subtitle in subs, and
// writes the assembled Matroska Segment to w.
func Run(logger *zerolog.Logger, src io.ReadSeeker, subs []SubtitleSource, cfg *config.Config, w io.WriteSeeker) (*Result, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	kind, err := DetectSource(src)
	if err != nil {
		return nil, err
	}

	var (
		tcs         uint64
		videoCodec  codec.ID
		videoCP     []byte
		videoW      int
		videoH      int
		videoFrames mkv.FrameSource
		audioCodec  codec.ID
		audioCP     []byte
		audioRate   int
		audioCh     int
		audioFrames mkv.FrameSource
	)

	switch kind {
	case SourceFLV:
		logger.Info().Str("container", "flv").Msg("demuxing source")
		d, err := flv.Demux(src)
		if err != nil {
			return nil, fmt.Errorf("pipeline: demux flv: %w", err)
		}
		// FLV tag timestamps are already whole milliseconds; the
		// original make_mkvb hardcodes TCS=1_000_000 (one tick per
		// millisecond) rather than harmonizing, since there is nothing
		// to harmonize against — one stream, one millisecond clock.
		tcs = 1_000_000
		if d.Video != nil {
			videoCodec, videoCP, videoW, videoH, videoFrames = d.Video.Codec, d.Video.CodecPrivate, d.Video.Width, d.Video.Height, d.Video.Frames
		}
		if d.Audio != nil {
			audioCodec, audioCP, audioRate, audioCh, audioFrames = d.Audio.Codec, d.Audio.CodecPrivate, d.Audio.SampleRate, d.Audio.Channels, d.Audio.Frames
		}

	case SourceMP4:
		logger.Info().Str("container", "mp4").Msg("demuxing source")
		d, err := mp4.Demux(src)
		if err != nil {
			return nil, fmt.Errorf("pipeline: demux mp4: %w", err)
		}
		tcs, err = harmonizeMP4(d, &videoFrames, &audioFrames)
		if err != nil {
			return nil, err
		}
		if d.Video != nil {
			videoCodec, videoCP, videoW, videoH = d.Video.Codec, d.Video.CodecPrivate, d.Video.Width, d.Video.Height
		}
		if d.Audio != nil {
			audioCodec, audioCP, audioRate, audioCh = d.Audio.Codec, d.Audio.CodecPrivate, d.Audio.SampleRate, d.Audio.Channels
		}

	default:
		return nil, ErrUnknownSource
	}

	compat := mkv.CompatFlags{
		AlignFirstClusterBase: cfg.Compat.AlignFirstClusterBase,
		ClusterDurationCap:    cfg.Compat.ClusterDurationCap,
		LacingAudioOnly:       cfg.Compat.LacingAudioOnly,
	}
	builder := mkv.NewBuilder(cfg.WritingApp, tcs, compat)
	builder.MaxLaceFrames = cfg.MaxLaceFrames
	builder.CueCadence = cfg.CueCadence

	result := &Result{}

	if videoFrames != nil {
		mapping, ok := videoCodecMKV[videoCodec]
		if !ok {
			return nil, fmt.Errorf("%w: video codec %s", ErrUnsupportedCodec, videoCodec)
		}
		builder.AddTrack(mkv.TrackSpec{
			Type:         ebml.TrackTypeVideo,
			CodecID:      mapping.CodecID,
			CodecPrivate: videoCP,
			CueEligible:  true,
			AllowLacing:  !cfg.Compat.LacingAudioOnly,
			Video:        &mkv.VideoParams{PixelWidth: uint64(videoW), PixelHeight: uint64(videoH)},
			MSCompat:     mapping.MSCompat,
		}, videoFrames)
		result.HasVideo = true
		logger.Info().Str("codec", videoCodec.Name()).Int("width", videoW).Int("height", videoH).Msg("added video track")
	}

	if audioFrames != nil {
		mapping, ok := audioCodecMKV[audioCodec]
		if !ok {
			return nil, fmt.Errorf("%w: audio codec %s", ErrUnsupportedCodec, audioCodec)
		}
		builder.AddTrack(mkv.TrackSpec{
			Type:         ebml.TrackTypeAudio,
			CodecID:      mapping.CodecID,
			CodecPrivate: audioCP,
			AllowLacing:  true,
			Audio:        &mkv.AudioParams{SamplingFrequency: float64(audioRate), Channels: uint64(audioCh)},
			MSCompat:     mapping.MSCompat,
		}, audioFrames)
		result.HasAudio = true
		logger.Info().Str("codec", audioCodec.Name()).Int("rate", audioRate).Int("channels", audioCh).Msg("added audio track")
	}

	for _, sub := range subs {
		set := subtitle.NewSet(sub.Lang, subtitle.ResolveLangCode(sub.Lang))
		if sub.AnnotationsXML != nil {
			anns, err := subtitle.ParseAnnotations(sub.AnnotationsXML)
			if err != nil {
				return nil, fmt.Errorf("pipeline: parse annotations (%s): %w", sub.Lang, err)
			}
			set.AddFromAnnotations(anns, sub.FilterSpam)
		}
		if sub.TimedTextXML != nil {
			if err := set.AddFromTimedText(sub.TimedTextXML, subtitle.NewStyle()); err != nil {
				return nil, fmt.Errorf("pipeline: parse timed text (%s): %w", sub.Lang, err)
			}
		}
		if !set.ContainsNonEmptySubs() {
			logger.Warn().Str("lang", sub.Lang).Msg("skipping empty subtitle track")
			continue
		}
		spec, frames := set.MKVTrack(tcs)
		builder.AddTrack(spec, frames)
		result.SubtitleTracks++
		logger.Info().Str("lang", set.Lang).Int("events", len(set.Events)).Msg("added subtitle track")
	}

	if err := builder.Write(w); err != nil {
		return nil, fmt.Errorf("pipeline: write mkv: %w", err)
	}
	return result, nil
}
