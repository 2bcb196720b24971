package mp4

import (
	"encoding/binary"
	"fmt"

	"github.com/sh01/yavdlt/internal/codec"
)

// fullBoxBody strips a full box's 1-byte version and 3-byte flags field
// from its raw body, returning the version and the remaining bytes.
func fullBoxBody(body []byte) (version byte, rest []byte, err error) {
	if len(body) < 4 {
		return 0, nil, fmt.Errorf("mp4: full box body shorter than its version/flags header: %w", ErrContainerParse)
	}
	return body[0], body[4:], nil
}

func need(b []byte, n int, what string) error {
	if len(b) < n {
		return fmt.Errorf("mp4: %s needs %d bytes, has %d: %w", what, n, len(b), ErrContainerParse)
	}
	return nil
}

// MovieHeader is a parsed mvhd box: movie-wide timescale and duration.
type MovieHeader struct {
	TimeScale uint32
	Duration  uint64
}

func parseMovieHeader(body []byte) (MovieHeader, error) {
	version, rest, err := fullBoxBody(body)
	if err != nil {
		return MovieHeader{}, err
	}
	if version == 1 {
		if err := need(rest, 28, "mvhd v1"); err != nil {
			return MovieHeader{}, err
		}
		return MovieHeader{
			TimeScale: binary.BigEndian.Uint32(rest[16:20]),
			Duration:  binary.BigEndian.Uint64(rest[20:28]),
		}, nil
	}
	if err := need(rest, 16, "mvhd v0"); err != nil {
		return MovieHeader{}, err
	}
	return MovieHeader{
		TimeScale: binary.BigEndian.Uint32(rest[8:12]),
		Duration:  uint64(binary.BigEndian.Uint32(rest[12:16])),
	}, nil
}

// MediaHeader is a parsed mdhd box: the track's own timescale and
// duration, in that timescale's ticks.
type MediaHeader struct {
	TimeScale uint32
	Duration  uint64
}

func parseMediaHeader(body []byte) (MediaHeader, error) {
	version, rest, err := fullBoxBody(body)
	if err != nil {
		return MediaHeader{}, err
	}
	if version == 1 {
		if err := need(rest, 28, "mdhd v1"); err != nil {
			return MediaHeader{}, err
		}
		return MediaHeader{
			TimeScale: binary.BigEndian.Uint32(rest[16:20]),
			Duration:  binary.BigEndian.Uint64(rest[20:28]),
		}, nil
	}
	if err := need(rest, 16, "mdhd v0"); err != nil {
		return MediaHeader{}, err
	}
	return MediaHeader{
		TimeScale: binary.BigEndian.Uint32(rest[8:12]),
		Duration:  uint64(binary.BigEndian.Uint32(rest[12:16])),
	}, nil
}

var (
	handlerVideo = boxType("vide")
	handlerSound = boxType("soun")
)

// parseHandlerType reads an hdlr box's four-character handler type
// (e.g. "vide", "soun").
func parseHandlerType(body []byte) (BoxType, error) {
	_, rest, err := fullBoxBody(body)
	if err != nil {
		return BoxType{}, err
	}
	if err := need(rest, 8, "hdlr"); err != nil {
		return BoxType{}, err
	}
	var t BoxType
	copy(t[:], rest[4:8])
	return t, nil
}

const (
	sampleEntryHeaderLen = 8 // reserved[6] + data_reference_index
	visualSampleEntryLen = 70
	audioSampleEntryLen  = 20
)

// VisualSampleEntry carries the display dimensions of a video sample
// entry (avc1, mp4v, ...).
type VisualSampleEntry struct {
	Width, Height uint16
}

func parseVisualSampleEntry(body []byte) (VisualSampleEntry, error) {
	if err := need(body, sampleEntryHeaderLen+visualSampleEntryLen, "visual sample entry"); err != nil {
		return VisualSampleEntry{}, err
	}
	fixed := body[sampleEntryHeaderLen:]
	return VisualSampleEntry{
		Width:  binary.BigEndian.Uint16(fixed[16:18]),
		Height: binary.BigEndian.Uint16(fixed[18:20]),
	}, nil
}

// AudioSampleEntry carries the channel count and sample rate of an
// audio sample entry (mp4a, ...).
type AudioSampleEntry struct {
	ChannelCount uint16
	SampleRate   float64 // Hz
}

func parseAudioSampleEntry(body []byte) (AudioSampleEntry, error) {
	if err := need(body, sampleEntryHeaderLen+audioSampleEntryLen, "audio sample entry"); err != nil {
		return AudioSampleEntry{}, err
	}
	fixed := body[sampleEntryHeaderLen:]
	channels := binary.BigEndian.Uint16(fixed[8:10])
	rateFixed := binary.BigEndian.Uint32(fixed[16:20])
	return AudioSampleEntry{
		ChannelCount: channels,
		SampleRate:   float64(rateFixed) / 65536,
	}, nil
}

// esdsInfo is the result of walking an esds box's ES_Descriptor tree:
// the MPEG-4 object-type indication and the DecoderSpecificInfo payload
// (AudioSpecificConfig, for AAC).
type esdsInfo struct {
	ObjectTypeIndication byte
	DecoderSpecificInfo  []byte
}

// descriptor tags, ISO/IEC 14496-1 §8.3.3.
const (
	descES                = 0x03
	descDecoderConfig     = 0x04
	descDecoderSpecificInfo = 0x05
)

// readDescriptor reads one (tag, payload) pair at the front of b, using
// the standard expandable-length encoding: each length byte's top bit
// signals continuation, the low 7 bits accumulate into the length.
func readDescriptor(b []byte) (tag byte, payload, rest []byte, err error) {
	if len(b) < 2 {
		return 0, nil, nil, fmt.Errorf("mp4: descriptor header truncated: %w", ErrContainerParse)
	}
	tag = b[0]
	i := 1
	var size int
	for {
		if i >= len(b) {
			return 0, nil, nil, fmt.Errorf("mp4: descriptor length truncated: %w", ErrContainerParse)
		}
		lb := b[i]
		i++
		size = size<<7 | int(lb&0x7F)
		if lb&0x80 == 0 {
			break
		}
	}
	if i+size > len(b) {
		return 0, nil, nil, fmt.Errorf("mp4: descriptor of size %d overruns its container: %w", size, ErrContainerParse)
	}
	return tag, b[i : i+size], b[i+size:], nil
}

// parseESDS walks an esds box body for its DecoderConfigDescriptor and
// any nested DecoderSpecificInfo.
func parseESDS(body []byte) (esdsInfo, error) {
	_, rest, err := fullBoxBody(body)
	if err != nil {
		return esdsInfo{}, err
	}
	tag, payload, _, err := readDescriptor(rest)
	if err != nil {
		return esdsInfo{}, err
	}
	if tag != descES {
		return esdsInfo{}, fmt.Errorf("mp4: esds top-level tag %#x, want ES_Descriptor: %w", tag, ErrContainerParse)
	}

	// ES_Descriptor: ES_ID(2) + flags(1) [+ optional dependency/URL/OCR
	// fields per the flags byte] followed by one DecoderConfigDescriptor.
	if err := need(payload, 3, "ES_Descriptor"); err != nil {
		return esdsInfo{}, err
	}
	flags := payload[2]
	p := payload[3:]
	if flags&0x80 != 0 { // streamDependenceFlag
		if err := need(p, 2, "ES_Descriptor dependsOn"); err != nil {
			return esdsInfo{}, err
		}
		p = p[2:]
	}
	if flags&0x40 != 0 { // URL_Flag
		if len(p) < 1 {
			return esdsInfo{}, fmt.Errorf("mp4: ES_Descriptor URL length truncated: %w", ErrContainerParse)
		}
		urlLen := int(p[0])
		if err := need(p, 1+urlLen, "ES_Descriptor URL"); err != nil {
			return esdsInfo{}, err
		}
		p = p[1+urlLen:]
	}
	if flags&0x20 != 0 { // OCRstreamFlag
		if err := need(p, 2, "ES_Descriptor OCR"); err != nil {
			return esdsInfo{}, err
		}
		p = p[2:]
	}

	tag, dcdPayload, _, err := readDescriptor(p)
	if err != nil {
		return esdsInfo{}, err
	}
	if tag != descDecoderConfig {
		return esdsInfo{}, fmt.Errorf("mp4: esds tag %#x, want DecoderConfigDescriptor: %w", tag, ErrContainerParse)
	}
	if err := need(dcdPayload, 13, "DecoderConfigDescriptor"); err != nil {
		return esdsInfo{}, err
	}
	info := esdsInfo{ObjectTypeIndication: dcdPayload[0]}

	rest2 := dcdPayload[13:]
	if len(rest2) > 0 {
		tag, dsiPayload, _, err := readDescriptor(rest2)
		if err == nil && tag == descDecoderSpecificInfo {
			info.DecoderSpecificInfo = dsiPayload
		}
	}
	return info, nil
}

// objectTypeToCodec maps an MPEG-4 object-type indication (ISO/IEC
// 14496-1 Table 5) to this module's codec registry. Only the values
// actually reachable through the mp4a/mp4v sample-entry families this
// demuxer resolves are listed.
func objectTypeToCodec(ot byte) codec.ID {
	switch ot {
	case 0x40, 0x66, 0x67, 0x68: // MPEG-4 / MPEG-2 AAC variants
		return codec.AAC
	case 0x69, 0x6B: // MPEG-2 / MPEG-1 Part 3 audio
		return codec.MP3
	case 0x20: // MPEG-4 Part 2 video
		return codec.MPEG4_2
	default:
		return 0
	}
}
