// Package flv demuxes the FLV (Flash Video) container into per-track
// elementary-stream frame sequences: a linear tag stream carrying audio,
// video, and AMF0-encoded script-data tags.
package flv

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sh01/yavdlt/internal/dataref"
)

// Header is the 9-byte FLV file signature plus the flags that follow it.
type Header struct {
	Version    byte
	HasVideo   bool
	HasAudio   bool
	DataOffset uint32
}

// TagType is an FLV tag's type byte.
type TagType byte

const (
	TagAudio  TagType = 8
	TagVideo  TagType = 9
	TagScript TagType = 18
)

// audioSampleRateTable maps the 2-bit sample-rate index in an audio
// tag's flags byte to a sample rate in Hz. The source this package is
// grounded on carries a transcription error here (5 500 written as 550);
// this table uses the corrected value.
var audioSampleRateTable = [4]int{5500, 11000, 22000, 44000}

// Tag is one demuxed FLV tag. Only the fields relevant to its Type are
// meaningful; see the FLV spec for the audio/video flag-byte layouts.
type Tag struct {
	Type      TagType
	Timestamp int64 // tag-header DTS, milliseconds

	// Audio fields, set when Type == TagAudio.
	AudioCodec    int
	SampleRate    int
	SampleSize    int
	Channels      int
	AACPacketType *int // nil unless AudioCodec == 10 (AAC)

	// Video fields, set when Type == TagVideo.
	Keyframe          bool
	Disposable        bool
	VideoCodec        int
	AVCPacketType     *int // nil unless VideoCodec == 7 (AVC)
	CompositionOffset int64

	// Payload is the tag's elementary-stream or script-data body, after
	// any codec-specific sub-header has been stripped. Opaque tag types
	// carry their entire body here too.
	Payload dataref.Ref
}

// PTS returns the tag's presentation timestamp: the DTS plus any AVC
// composition-time offset.
func (t *Tag) PTS() int64 {
	if t.Type == TagVideo {
		return t.Timestamp + t.CompositionOffset
	}
	return t.Timestamp
}

// IsHeader reports whether this tag carries codec-private initialization
// data (an AAC or AVC "sequence header") rather than a playable frame.
// ok is false for tag types with no such concept, or when the relevant
// packet-type field was never set (non-AAC audio, non-AVC video).
func (t *Tag) IsHeader() (isHeader, ok bool) {
	switch t.Type {
	case TagAudio:
		if t.AACPacketType == nil {
			return false, false
		}
		return *t.AACPacketType == 0, true
	case TagVideo:
		if t.AVCPacketType == nil {
			return false, false
		}
		return *t.AVCPacketType == 0, true
	default:
		return false, false
	}
}

// ScriptValue parses a TagScript tag's AMF0 payload into its (key,
// value) pair. It fails if Payload is not file-backed, which never
// happens for tags produced by Reader.ReadTag.
func (t *Tag) ScriptValue() (key any, value any, err error) {
	f, ok := t.Payload.(dataref.File)
	if !ok {
		return nil, nil, fmt.Errorf("flv: script tag payload has no seekable backing: %w", ErrContainerParse)
	}
	p := NewParser(f.R, f.Off, f.Len)
	return p.ParseData()
}

// Reader parses an FLV byte stream into a Header followed by a sequence
// of Tags, one ReadTag call at a time. It tracks its own stream position
// explicitly and re-seeks to it at the start of every ReadTag, since a
// Tag's Payload is a lazy dataref.File sharing the same underlying
// io.ReadSeeker: materializing one out of tag-stream order (as Demux
// does for codec-private "header" tags) must not desynchronize the next
// ReadTag call.
type Reader struct {
	r   io.ReadSeeker
	pos int64
}

// NewReader wraps r, which must be positioned at the start of an FLV
// file (byte 0 of the "FLV" signature).
func NewReader(r io.ReadSeeker) *Reader {
	return &Reader{r: r}
}

// ReadHeader reads and validates the file header, leaving the stream
// positioned at the start of the first tag.
func (rd *Reader) ReadHeader() (Header, error) {
	var raw [9]byte
	if _, err := io.ReadFull(rd.r, raw[:]); err != nil {
		return Header{}, fmt.Errorf("flv: read file header: %w", err)
	}
	if string(raw[0:3]) != "FLV" {
		return Header{}, fmt.Errorf("flv: signature %q, want \"FLV\": %w", raw[0:3], ErrContainerParse)
	}
	hdr := Header{
		Version:    raw[3],
		HasAudio:   raw[4]&0x04 != 0,
		HasVideo:   raw[4]&0x01 != 0,
		DataOffset: binary.BigEndian.Uint32(raw[5:9]),
	}

	if _, err := rd.r.Seek(int64(hdr.DataOffset), io.SeekStart); err != nil {
		return Header{}, fmt.Errorf("flv: seek to tag stream start: %w", err)
	}
	var ts0 [4]byte
	n, err := io.ReadFull(rd.r, ts0[:])
	switch {
	case err == nil:
		if v := binary.BigEndian.Uint32(ts0[:]); v != 0 {
			return Header{}, fmt.Errorf("flv: leading tag-size field is %d, want 0: %w", v, ErrContainerParse)
		}
	case err == io.ErrUnexpectedEOF || err == io.EOF:
		// A file that ends exactly at (or within) this field has no
		// tags; rewind so ReadTag observes a clean EOF instead of a
		// partially-consumed read.
		if _, err := rd.r.Seek(int64(hdr.DataOffset)+int64(n), io.SeekStart); err != nil {
			return Header{}, fmt.Errorf("flv: seek: %w", err)
		}
	default:
		return Header{}, fmt.Errorf("flv: read leading tag-size field: %w", err)
	}

	pos, err := rd.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return Header{}, fmt.Errorf("flv: locate tag stream start: %w", err)
	}
	rd.pos = pos

	return hdr, nil
}

// ReadTag reads the next tag, or returns io.EOF once the stream is
// exhausted.
func (rd *Reader) ReadTag() (*Tag, error) {
	if _, err := rd.r.Seek(rd.pos, io.SeekStart); err != nil {
		return nil, fmt.Errorf("flv: seek to next tag: %w", err)
	}

	var hdr [11]byte
	n, err := io.ReadFull(rd.r, hdr[:])
	if err != nil {
		if n == 0 {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("flv: read tag header: %w", err)
	}

	ttype := TagType(hdr[0])
	bodySize := int64(hdr[1])<<16 | int64(hdr[2])<<8 | int64(hdr[3])
	// Mid-endian: the low 24 bits come first on the wire, followed by an
	// "extended" byte holding bits 24-31.
	ts := int64(hdr[7])<<24 | int64(hdr[4])<<16 | int64(hdr[5])<<8 | int64(hdr[6])

	bodyStart := rd.pos + 11

	tag := &Tag{Type: ttype, Timestamp: ts}
	switch ttype {
	case TagAudio:
		if err := tag.parseAudioBody(rd.r, bodyStart, bodySize); err != nil {
			return nil, err
		}
	case TagVideo:
		if err := tag.parseVideoBody(rd.r, bodyStart, bodySize); err != nil {
			return nil, err
		}
	default:
		// Script tags and any unrecognized type carry their entire body
		// as an opaque, file-backed payload.
		tag.Payload = dataref.File{R: rd.r, Off: bodyStart, Len: bodySize}
	}

	if _, err := rd.r.Seek(bodyStart+bodySize, io.SeekStart); err != nil {
		return nil, fmt.Errorf("flv: seek past tag body: %w", err)
	}

	var trailer [4]byte
	if _, err := io.ReadFull(rd.r, trailer[:]); err != nil {
		return nil, fmt.Errorf("flv: read tag-size trailer: %w", err)
	}
	wantSize := uint32(11 + bodySize)
	gotSize := binary.BigEndian.Uint32(trailer[:])
	if gotSize != wantSize {
		return nil, fmt.Errorf("flv: tag-size trailer %d, header-derived size is %d: %w", gotSize, wantSize, ErrContainerParse)
	}

	rd.pos = bodyStart + bodySize + 4
	return tag, nil
}

func (t *Tag) parseAudioBody(r io.ReadSeeker, bodyStart, bodySize int64) error {
	var flagByte [1]byte
	if _, err := io.ReadFull(r, flagByte[:]); err != nil {
		return fmt.Errorf("flv: read audio tag flags: %w", err)
	}
	flags := flagByte[0]
	t.AudioCodec = int(flags&0xF0) >> 4
	rateIdx := int(flags&0x0C) >> 2
	t.SampleSize = int(flags&0x02) >> 1
	t.Channels = int(flags&0x01) + 1
	t.SampleRate = audioSampleRateTable[rateIdx]

	remaining := bodySize - 1
	if t.AudioCodec == 10 { // AAC
		var pt [1]byte
		if _, err := io.ReadFull(r, pt[:]); err != nil {
			return fmt.Errorf("flv: read AAC packet type: %w", err)
		}
		v := int(pt[0])
		t.AACPacketType = &v
		remaining--
	}
	if remaining < 0 {
		return fmt.Errorf("flv: audio tag body shorter than its own sub-header: %w", ErrContainerParse)
	}
	t.Payload = dataref.File{R: r, Off: bodyStart + (bodySize - remaining), Len: remaining}
	return nil
}

func (t *Tag) parseVideoBody(r io.ReadSeeker, bodyStart, bodySize int64) error {
	var flagByte [1]byte
	if _, err := io.ReadFull(r, flagByte[:]); err != nil {
		return fmt.Errorf("flv: read video tag flags: %w", err)
	}
	flags := flagByte[0]
	frameType := int(flags&0xF0) >> 4
	t.VideoCodec = int(flags & 0x0F)
	t.Keyframe = frameType == 1 || frameType == 5
	t.Disposable = frameType == 3

	remaining := bodySize - 1
	if t.VideoCodec == 7 { // AVC
		var hdr2 [4]byte
		if _, err := io.ReadFull(r, hdr2[:]); err != nil {
			return fmt.Errorf("flv: read AVC packet sub-header: %w", err)
		}
		pt := int(hdr2[0])
		t.AVCPacketType = &pt

		// Composition time is a signed 24-bit big-endian integer in
		// bytes 1-3; sign-extend it into a 32-bit buffer before decoding.
		var ctBuf [4]byte
		if hdr2[1]&0x80 != 0 {
			ctBuf[0] = 0xFF
		}
		ctBuf[1], ctBuf[2], ctBuf[3] = hdr2[1], hdr2[2], hdr2[3]
		t.CompositionOffset = int64(int32(binary.BigEndian.Uint32(ctBuf[:])))
		remaining -= 4
	}
	if remaining < 0 {
		return fmt.Errorf("flv: video tag body shorter than its own sub-header: %w", ErrContainerParse)
	}
	t.Payload = dataref.File{R: r, Off: bodyStart + (bodySize - remaining), Len: remaining}
	return nil
}
