package mp4

import (
	"fmt"
	"io"

	"github.com/sh01/yavdlt/internal/codec"
	"github.com/sh01/yavdlt/internal/dataref"
	"github.com/sh01/yavdlt/internal/mkv"
)

var (
	typeAVC1 = boxType("avc1")
	typeMP4V = boxType("mp4v")
	typeMP4A = boxType("mp4a")
)

// VideoTrack is a demuxed video elementary stream, prior to the
// cross-track timescale harmonisation §4.5 describes: a track's own
// TimeScale is carried alongside its samples so the orchestrator that
// owns the Matroska timecode scale can compute ts_base and each track's
// ts_fact once every track in the file has been demuxed.
type VideoTrack struct {
	Codec        codec.ID
	Width        int
	Height       int
	CodecPrivate []byte
	TimeScale    int64
	Frames       mkv.FrameSource
}

// AudioTrack is a demuxed audio elementary stream.
type AudioTrack struct {
	Codec        codec.ID
	SampleRate   int
	Channels     int
	CodecPrivate []byte
	TimeScale    int64
	Frames       mkv.FrameSource
}

// Demuxed is the result of reading one MP4 file's moov tree to
// completion: zero or one video and zero or one audio track.
type Demuxed struct {
	Video     *VideoTrack
	Audio     *AudioTrack
	MovieDur  float64 // seconds, from mvhd
}

// Demux parses r's moov box tree and walks each track's sample table
// into a lazy per-track frame sequence. r must support random access:
// the sample-to-chunk/chunk-offset tables require seeking to arbitrary
// sample data regardless of its position relative to moov.
func Demux(r io.ReadSeeker) (*Demuxed, error) {
	boxes, err := ReadBoxes(r)
	if err != nil {
		return nil, err
	}
	var moov Box
	found := false
	for _, b := range boxes {
		if b.Type == boxType("moov") {
			moov, found = b, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("mp4: no moov box: %w", ErrContainerParse)
	}

	d := &Demuxed{}
	if mvhdBox, ok := moov.Find("mvhd"); ok {
		body, err := mvhdBox.ReadBody(r)
		if err != nil {
			return nil, err
		}
		mvhd, err := parseMovieHeader(body)
		if err != nil {
			return nil, err
		}
		if mvhd.TimeScale != 0 {
			d.MovieDur = float64(mvhd.Duration) / float64(mvhd.TimeScale)
		}
	}

	for _, trak := range moov.FindAll("trak") {
		if err := demuxTrack(r, trak, d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func demuxTrack(r io.ReadSeeker, trak Box, d *Demuxed) error {
	mdia, ok := trak.Find("mdia")
	if !ok {
		return fmt.Errorf("mp4: trak has no mdia: %w", ErrContainerParse)
	}
	// Honour only the first hdlr encountered directly inside mdia: a
	// deeper meta box nested further down the tree may carry its own
	// hdlr-shaped box, and Find only ever inspects direct children, so
	// it cannot pick that up by construction.
	hdlrBox, ok := mdia.Find("hdlr")
	if !ok {
		return fmt.Errorf("mp4: mdia has no hdlr: %w", ErrContainerParse)
	}
	hdlrBody, err := hdlrBox.ReadBody(r)
	if err != nil {
		return err
	}
	handlerType, err := parseHandlerType(hdlrBody)
	if err != nil {
		return err
	}
	if handlerType != handlerVideo && handlerType != handlerSound {
		return nil // subtitle/hint/metadata tracks carry no elementary stream this demuxer produces
	}

	mdhdBox, ok := mdia.Find("mdhd")
	if !ok {
		return fmt.Errorf("mp4: mdia has no mdhd: %w", ErrContainerParse)
	}
	mdhdBody, err := mdhdBox.ReadBody(r)
	if err != nil {
		return err
	}
	mdhd, err := parseMediaHeader(mdhdBody)
	if err != nil {
		return err
	}

	minf, ok := mdia.Find("minf")
	if !ok {
		return fmt.Errorf("mp4: mdia has no minf: %w", ErrContainerParse)
	}
	stbl, ok := minf.Find("stbl")
	if !ok {
		return fmt.Errorf("mp4: minf has no stbl: %w", ErrContainerParse)
	}
	stsd, ok := stbl.Find("stsd")
	if !ok {
		return fmt.Errorf("mp4: stbl has no stsd: %w", ErrContainerParse)
	}
	if len(stsd.Children) == 0 {
		return fmt.Errorf("mp4: stsd has no sample entries: %w", ErrContainerParse)
	}
	entry := stsd.Children[0]

	samples, err := walkTrackSampleTable(r, stbl)
	if err != nil {
		return err
	}

	switch handlerType {
	case handlerVideo:
		vt, err := buildVideoTrack(r, entry, mdhd, samples)
		if err != nil {
			return err
		}
		d.Video = vt
	case handlerSound:
		at, err := buildAudioTrack(r, entry, mdhd, samples)
		if err != nil {
			return err
		}
		d.Audio = at
	}
	return nil
}

func walkTrackSampleTable(r io.ReadSeeker, stbl Box) ([]Sample, error) {
	sttsBox, ok := stbl.Find("stts")
	if !ok {
		return nil, fmt.Errorf("mp4: stbl has no stts: %w", ErrContainerParse)
	}
	sttsBody, err := sttsBox.ReadBody(r)
	if err != nil {
		return nil, err
	}
	stts, err := parseSTTS(sttsBody)
	if err != nil {
		return nil, err
	}

	var ctts []runEntry
	if cttsBox, ok := stbl.Find("ctts"); ok {
		body, err := cttsBox.ReadBody(r)
		if err != nil {
			return nil, err
		}
		ctts, err = parseCTTS(body)
		if err != nil {
			return nil, err
		}
	}

	stscBox, ok := stbl.Find("stsc")
	if !ok {
		return nil, fmt.Errorf("mp4: stbl has no stsc: %w", ErrContainerParse)
	}
	stscBody, err := stscBox.ReadBody(r)
	if err != nil {
		return nil, err
	}
	chunks, err := parseSTSC(stscBody)
	if err != nil {
		return nil, err
	}

	var offsets []int64
	if stcoBox, ok := stbl.Find("stco"); ok {
		body, err := stcoBox.ReadBody(r)
		if err != nil {
			return nil, err
		}
		offsets, err = parseChunkOffsets32(body)
		if err != nil {
			return nil, err
		}
	} else if co64Box, ok := stbl.Find("co64"); ok {
		body, err := co64Box.ReadBody(r)
		if err != nil {
			return nil, err
		}
		offsets, err = parseChunkOffsets64(body)
		if err != nil {
			return nil, err
		}
	} else {
		return nil, fmt.Errorf("mp4: stbl has neither stco nor co64: %w", ErrContainerParse)
	}

	stszBox, ok := stbl.Find("stsz")
	if !ok {
		return nil, fmt.Errorf("mp4: stbl has no stsz: %w", ErrContainerParse)
	}
	stszBody, err := stszBox.ReadBody(r)
	if err != nil {
		return nil, err
	}
	sizes, sampleCount, err := parseSTSZ(stszBody)
	if err != nil {
		return nil, err
	}

	var sync []int64
	if stssBox, ok := stbl.Find("stss"); ok {
		body, err := stssBox.ReadBody(r)
		if err != nil {
			return nil, err
		}
		sync, err = parseSTSS(body)
		if err != nil {
			return nil, err
		}
	}

	return walkSampleTable(stts, ctts, chunks, offsets, sizes, sampleCount, sync)
}

func buildVideoTrack(r io.ReadSeeker, entry Box, mdhd MediaHeader, samples []Sample) (*VideoTrack, error) {
	entryBody, err := entry.ReadBody(r)
	if err != nil {
		return nil, err
	}
	vse, err := parseVisualSampleEntry(entryBody)
	if err != nil {
		return nil, err
	}

	vt := &VideoTrack{
		Width:     int(vse.Width),
		Height:    int(vse.Height),
		TimeScale: int64(mdhd.TimeScale),
	}

	switch entry.Type {
	case typeAVC1:
		vt.Codec = codec.H264
		if avcC, ok := entry.Find("avcC"); ok {
			data, err := avcC.ReadBody(r)
			if err != nil {
				return nil, err
			}
			vt.CodecPrivate = data
		}
	case typeMP4V:
		if esdsBox, ok := entry.Find("esds"); ok {
			body, err := esdsBox.ReadBody(r)
			if err != nil {
				return nil, err
			}
			info, err := parseESDS(body)
			if err != nil {
				return nil, err
			}
			vt.Codec = objectTypeToCodec(info.ObjectTypeIndication)
			vt.CodecPrivate = info.DecoderSpecificInfo
		}
	default:
		return nil, fmt.Errorf("mp4: unsupported video sample-entry type %q: %w", entry.Type, ErrContainerParse)
	}

	frames := make([]mkv.Frame, len(samples))
	for i, s := range samples {
		frames[i] = mkv.Frame{
			Timecode: s.DTS + s.CTSOffset,
			Data:     dataref.File{R: r, Off: s.Offset, Len: s.Size},
			Keyframe: s.Sync,
			Duration: s.Duration,
		}
	}
	vt.Frames = mkv.SliceSource(frames)
	return vt, nil
}

func buildAudioTrack(r io.ReadSeeker, entry Box, mdhd MediaHeader, samples []Sample) (*AudioTrack, error) {
	entryBody, err := entry.ReadBody(r)
	if err != nil {
		return nil, err
	}
	ase, err := parseAudioSampleEntry(entryBody)
	if err != nil {
		return nil, err
	}

	at := &AudioTrack{
		SampleRate: int(ase.SampleRate),
		Channels:   int(ase.ChannelCount),
		TimeScale:  int64(mdhd.TimeScale),
	}

	if entry.Type == typeMP4A {
		if esdsBox, ok := entry.Find("esds"); ok {
			body, err := esdsBox.ReadBody(r)
			if err != nil {
				return nil, err
			}
			info, err := parseESDS(body)
			if err != nil {
				return nil, err
			}
			at.Codec = objectTypeToCodec(info.ObjectTypeIndication)
			at.CodecPrivate = info.DecoderSpecificInfo
		}
	} else {
		return nil, fmt.Errorf("mp4: unsupported audio sample-entry type %q: %w", entry.Type, ErrContainerParse)
	}

	frames := make([]mkv.Frame, len(samples))
	for i, s := range samples {
		frames[i] = mkv.Frame{
			Timecode: s.DTS,
			Data:     dataref.File{R: r, Off: s.Offset, Len: s.Size},
			Keyframe: true,
			Duration: s.Duration,
		}
	}
	at.Frames = mkv.SliceSource(frames)
	return at, nil
}
