package mkv

import (
	"fmt"

	"github.com/sh01/yavdlt/internal/ebml"
)

// laceKind mirrors the Matroska Block header's lacing flag bits (the
// 0x06 mask of the flags byte).
type laceKind int

const (
	laceNone  laceKind = iota
	laceXiph           // 0x02
	laceFixed          // 0x04
	laceEBML           // 0x06
)

func (k laceKind) flagBits() byte {
	switch k {
	case laceXiph:
		return 0x02
	case laceFixed:
		return 0x04
	case laceEBML:
		return 0x06
	default:
		return 0x00
	}
}

// maxLaceFrames bounds how many frames the builder folds into one
// laced block.
const maxLaceFrames = 32

// xiphSizeRun encodes one frame size as a run of 0xFF bytes terminated
// by a byte in [0,254] — the classic Xiph/Ogg lacing coding.
func xiphSizeRun(size int) []byte {
	var out []byte
	for size >= 255 {
		out = append(out, 0xFF)
		size -= 255
	}
	out = append(out, byte(size))
	return out
}

// xiphLaceHeader encodes the sizes of all frames but the last (whose
// size is implicit: whatever remains of the block after the preceding
// ones), in Xiph form.
func xiphLaceHeader(sizes []int) []byte {
	var out []byte
	for _, s := range sizes[:len(sizes)-1] {
		out = append(out, xiphSizeRun(s)...)
	}
	return out
}

// ebmlLaceHeader encodes the first frame's size as an unsigned VInt and
// every subsequent size as a delta (signed VInt) from the previous
// frame's size, again omitting the last (implicit) frame.
func ebmlLaceHeader(sizes []int) ([]byte, error) {
	var out []byte
	first, err := ebml.EncodeVInt(uint64(sizes[0]), 0)
	if err != nil {
		return nil, fmt.Errorf("mkv: ebml lace first size: %w", err)
	}
	out = append(out, first...)
	prev := sizes[0]
	for _, s := range sizes[1 : len(sizes)-1] {
		delta, err := ebml.EncodeSint(int64(s-prev), 0)
		if err != nil {
			return nil, fmt.Errorf("mkv: ebml lace delta: %w", err)
		}
		out = append(out, delta...)
		prev = s
	}
	return out, nil
}

// chooseLacing picks the cheapest applicable lacing scheme for a run of
// frame sizes. Fixed lacing is free (no per-frame size data) and wins
// whenever every frame shares the same size; otherwise the smaller of
// Xiph and EBML lacing's header is used, per spec.
func chooseLacing(sizes []int) (kind laceKind, header []byte, err error) {
	allEqual := true
	for _, s := range sizes[1:] {
		if s != sizes[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return laceFixed, nil, nil
	}

	xiph := xiphLaceHeader(sizes)
	em, err := ebmlLaceHeader(sizes)
	if err != nil {
		return 0, nil, err
	}
	if len(em) <= len(xiph) {
		return laceEBML, em, nil
	}
	return laceXiph, xiph, nil
}
