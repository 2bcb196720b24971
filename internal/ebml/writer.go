package ebml

import (
	"fmt"
	"io"
)

// WriteTo emits the element to w, returning the number of bytes written.
// The caller may treat a mismatch between this count and Size() as an
// output-invariant failure — bodySize and WriteTo derive the same value
// independently, so a mismatch indicates a bug, not a data error.
func (e *Element) WriteTo(w io.Writer) (int64, error) {
	idBuf := encodeID(e.ID)
	body := e.bodySize()
	sizeBuf, err := EncodeVInt(uint64(body), e.SizePad)
	if err != nil {
		return 0, fmt.Errorf("ebml: encode size for element %08x: %w", e.ID, err)
	}

	var written int64
	n, err := w.Write(idBuf)
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("ebml: write id of %08x: %w", e.ID, err)
	}
	n, err = w.Write(sizeBuf)
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("ebml: write size of %08x: %w", e.ID, err)
	}

	bn, err := e.writeBody(w)
	written += bn
	if err != nil {
		return written, err
	}

	if want := e.Size(); written != want {
		return written, fmt.Errorf("ebml: output-invariant violated for %08x: wrote %d, Size() reports %d",
			e.ID, written, want)
	}
	return written, nil
}

func (e *Element) writeBody(w io.Writer) (int64, error) {
	switch e.Kind {
	case KindMaster:
		var total int64
		for _, c := range e.Children {
			n, err := c.WriteTo(w)
			total += n
			if err != nil {
				return total, err
			}
		}
		return total, nil

	case KindBinary, KindUnknown:
		n, err := e.Data.WriteTo(w)
		if err != nil {
			return n, fmt.Errorf("ebml: write binary body of %08x: %w", e.ID, err)
		}
		return n, nil

	case KindUint:
		buf := encodeFixedUint(e.UintVal, uintBodySize(e.UintVal))
		n, err := w.Write(buf)
		return int64(n), err

	case KindSint, KindDate:
		buf := encodeFixedSint(e.SintVal, sintBodySize(e.SintVal))
		n, err := w.Write(buf)
		return int64(n), err

	case KindFloat:
		buf := float64ToBits(e.FloatWidth, e.FloatVal)
		n, err := w.Write(buf)
		return int64(n), err

	case KindASCIIString, KindUTF8String:
		n, err := io.WriteString(w, e.Str)
		return int64(n), err

	default:
		return 0, fmt.Errorf("ebml: element %08x has unrecognised kind %v", e.ID, e.Kind)
	}
}

// encodeFixedUint big-endian-packs v into exactly size bytes (no VInt
// marker bit — this is a plain integer element body, not a VInt).
func encodeFixedUint(v uint64, size int) []byte {
	buf := make([]byte, size)
	for i := size - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf
}

// encodeFixedSint big-endian-packs v as two's complement into exactly
// size bytes, sign-extending (one-filling) when negative and zero-filling
// when non-negative — per spec.md §4.1's left-padding rule.
func encodeFixedSint(v int64, size int) []byte {
	buf := make([]byte, size)
	uv := uint64(v)
	for i := size - 1; i >= 0; i-- {
		buf[i] = byte(uv)
		uv >>= 8
	}
	return buf
}
