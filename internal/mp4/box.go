// Package mp4 demuxes the ISO-BMFF (MP4) container into per-track
// elementary-stream sample sequences: a recursive box tree, a registry of
// which box types carry children, and a sample-table walker that joins
// stts/ctts/stsc/stsz/stco/co64/stss into ordered (timestamp, size,
// offset, sync) tuples.
package mp4

import (
	"encoding/binary"
	"fmt"
	"io"
)

// BoxType is a box's four-character code.
type BoxType [4]byte

func (t BoxType) String() string { return string(t[:]) }

func boxType(s string) BoxType {
	var t BoxType
	copy(t[:], s)
	return t
}

var uuidType = boxType("uuid")

// containerTypes are the box types whose body (after any type-specific
// header bytes consumed before the first child, see extraHeaderLen) is
// itself a sequence of sub-boxes.
var containerTypes = map[BoxType]bool{
	boxType("moov"): true,
	boxType("trak"): true,
	boxType("mdia"): true,
	boxType("minf"): true,
	boxType("stbl"): true,
	boxType("dinf"): true,
	boxType("udta"): true,
	boxType("edts"): true,
	boxType("meta"): true,
	boxType("stsd"): true,
	// Sample-entry boxes carry their codec-private child boxes (avcC,
	// esds) after a fixed-size, codec-family-specific header. Only the
	// families this demuxer resolves a codec ID for are listed; any
	// other sample-entry fourCC is left a childless leaf box.
	boxType("avc1"): true,
	boxType("mp4v"): true,
	boxType("mp4a"): true,
}

// extraHeaderLen returns the number of bytes, beyond the box header
// itself, that must be skipped before a container box's first child.
// meta and stsd are full boxes (version+flags); stsd additionally
// carries a 4-byte sample-entry count before its children.
func extraHeaderLen(t BoxType) int64 {
	switch t {
	case boxType("meta"):
		return 4
	case boxType("stsd"):
		return 8
	case boxType("avc1"), boxType("mp4v"):
		return sampleEntryHeaderLen + visualSampleEntryLen
	case boxType("mp4a"):
		return sampleEntryHeaderLen + audioSampleEntryLen
	default:
		return 0
	}
}

// Box is one node of the parsed box tree. Offset and Size are absolute
// file positions; HeaderLen is the number of bytes occupied by the size
// and type fields (plus the extended-size and uuid fields, when
// present), so that BodyOffset/BodySize locate the box's payload.
type Box struct {
	Type      BoxType
	UUID      [16]byte
	Offset    int64
	Size      int64
	HeaderLen int64
	Children  []Box
}

// BodyOffset is the absolute file offset of the first byte after the
// box header.
func (b Box) BodyOffset() int64 { return b.Offset + b.HeaderLen }

// BodySize is the number of payload bytes following the box header.
func (b Box) BodySize() int64 { return b.Size - b.HeaderLen }

// ReadBody returns the raw bytes of the box's body, excluding its own
// header (and, for container boxes, regardless of any children within
// it).
func (b Box) ReadBody(r io.ReadSeeker) ([]byte, error) {
	if _, err := r.Seek(b.BodyOffset(), io.SeekStart); err != nil {
		return nil, fmt.Errorf("mp4: seek to body of %q: %w", b.Type, err)
	}
	buf := make([]byte, b.BodySize())
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("mp4: read body of %q: %w", b.Type, err)
	}
	return buf, nil
}

// Find returns the first direct child of the given type, or false if
// none exists.
func (b Box) Find(t string) (Box, bool) {
	bt := boxType(t)
	for _, c := range b.Children {
		if c.Type == bt {
			return c, true
		}
	}
	return Box{}, false
}

// FindAll returns every direct child of the given type.
func (b Box) FindAll(t string) []Box {
	bt := boxType(t)
	var rv []Box
	for _, c := range b.Children {
		if c.Type == bt {
			rv = append(rv, c)
		}
	}
	return rv
}

func readBoxHeader(r io.ReadSeeker, offset int64) (Box, error) {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return Box{}, fmt.Errorf("mp4: seek to box header: %w", err)
	}
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Box{}, fmt.Errorf("mp4: read box header: %w", err)
	}
	size := int64(binary.BigEndian.Uint32(hdr[0:4]))
	var btype BoxType
	copy(btype[:], hdr[4:8])
	headerLen := int64(8)

	switch size {
	case 1:
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return Box{}, fmt.Errorf("mp4: read extended box size: %w", err)
		}
		size = int64(binary.BigEndian.Uint64(ext[:]))
		headerLen = 16
	case 0:
		end, err := r.Seek(0, io.SeekEnd)
		if err != nil {
			return Box{}, fmt.Errorf("mp4: locate end of stream: %w", err)
		}
		size = end - offset
	}

	b := Box{Type: btype, Offset: offset, Size: size, HeaderLen: headerLen}
	if btype == uuidType {
		if _, err := r.Seek(offset+headerLen, io.SeekStart); err != nil {
			return Box{}, fmt.Errorf("mp4: seek to uuid field: %w", err)
		}
		if _, err := io.ReadFull(r, b.UUID[:]); err != nil {
			return Box{}, fmt.Errorf("mp4: read uuid field: %w", err)
		}
		b.HeaderLen += 16
	}
	return b, nil
}

// readBoxSeq reads a sequence of sibling boxes occupying [start, limit),
// recursing into any box whose type is a known container.
func readBoxSeq(r io.ReadSeeker, start, limit int64) ([]Box, error) {
	var rv []Box
	off := start
	for off < limit {
		b, err := readBoxHeader(r, off)
		if err != nil {
			return nil, err
		}
		if b.Offset+b.Size > limit {
			return nil, fmt.Errorf("mp4: box %q at %d overruns parent boundary: %w", b.Type, b.Offset, ErrContainerParse)
		}
		if containerTypes[b.Type] {
			childStart := b.BodyOffset() + extraHeaderLen(b.Type)
			kids, err := readBoxSeq(r, childStart, b.Offset+b.Size)
			if err != nil {
				return nil, fmt.Errorf("mp4: parsing children of %q: %w", b.Type, err)
			}
			b.Children = kids
		}
		rv = append(rv, b)
		off += b.Size
	}
	if off > limit {
		return nil, fmt.Errorf("mp4: box sequence overruns its boundary: %w", ErrContainerParse)
	}
	return rv, nil
}

// ReadBoxes parses the complete top-level box sequence of an MP4 file.
func ReadBoxes(r io.ReadSeeker) ([]Box, error) {
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("mp4: locate end of stream: %w", err)
	}
	return readBoxSeq(r, 0, end)
}
