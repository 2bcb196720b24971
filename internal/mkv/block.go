package mkv

import (
	"fmt"

	"github.com/sh01/yavdlt/internal/dataref"
	"github.com/sh01/yavdlt/internal/ebml"
)

const flagKeyframe byte = 0x80

// buildBlockPayload assembles a Block/SimpleBlock binary body: track
// number VInt, signed 16-bit relative timecode, flags byte, optional
// lacing header, then the concatenated frame payloads.
func buildBlockPayload(trackNum uint64, relTimecode int16, flags byte, kind laceKind, laceHeader []byte, frames []dataref.Ref) ([]byte, error) {
	tn, err := ebml.EncodeVInt(trackNum, 0)
	if err != nil {
		return nil, fmt.Errorf("mkv: encode track number %d: %w", trackNum, err)
	}

	out := make([]byte, 0, len(tn)+3)
	out = append(out, tn...)
	out = append(out, byte(uint16(relTimecode)>>8), byte(uint16(relTimecode)))
	out = append(out, flags|kind.flagBits())

	if kind != laceNone {
		out = append(out, byte(len(frames)-1))
		out = append(out, laceHeader...)
	}

	for _, f := range frames {
		b, err := f.Bytes()
		if err != nil {
			return nil, fmt.Errorf("mkv: read frame payload: %w", err)
		}
		out = append(out, b...)
	}
	return out, nil
}

// newSimpleBlock builds a SimpleBlock element for a run of one or more
// laced frames sharing a track, relative timecode and keyframe status.
func newSimpleBlock(trackNum uint64, relTimecode int16, keyframe bool, kind laceKind, laceHeader []byte, frames []dataref.Ref) (*ebml.Element, error) {
	var flags byte
	if keyframe {
		flags |= flagKeyframe
	}
	body, err := buildBlockPayload(trackNum, relTimecode, flags, kind, laceHeader, frames)
	if err != nil {
		return nil, err
	}
	return ebml.NewBinary(ebml.IDSimpleBlock, dataref.Bytes(body)), nil
}

// newBlockGroup builds a BlockGroup wrapping a (non-keyframe, or
// explicitly-durationed) Block, its ReferenceBlock back-reference and
// an optional BlockDuration.
func newBlockGroup(trackNum uint64, relTimecode int16, reference int64, duration int64, kind laceKind, laceHeader []byte, frames []dataref.Ref) (*ebml.Element, error) {
	body, err := buildBlockPayload(trackNum, relTimecode, 0, kind, laceHeader, frames)
	if err != nil {
		return nil, err
	}
	bg := ebml.NewMaster(ebml.IDBlockGroup)
	bg.Append(ebml.NewBinary(ebml.IDBlock, dataref.Bytes(body)))
	if reference != 0 {
		bg.Append(ebml.NewSint(ebml.IDReferenceBlock, reference))
	}
	if duration > 0 {
		bg.Append(ebml.NewUint(ebml.IDBlockDuration, uint64(duration)))
	}
	return bg, nil
}
