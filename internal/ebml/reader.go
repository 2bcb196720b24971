package ebml

import (
	"errors"
	"fmt"
	"io"

	"github.com/sh01/yavdlt/internal/dataref"
)

// ErrUnsupportedFloatWidth is returned when a Float element's body is
// neither 4 nor 8 bytes.
var ErrUnsupportedFloatWidth = errors.New("ebml: float element body must be 4 or 8 bytes")

// Reader deserialises EBML elements from a ReadSeeker, dispatching child
// element construction through a Namespace cascade.
type Reader struct {
	r  io.ReadSeeker
	ns *Namespace
}

// NewReader creates a Reader positioned wherever r currently is; the
// element stream is assumed to start at the current read position.
func NewReader(r io.ReadSeeker, ns *Namespace) *Reader {
	return &Reader{r: r, ns: ns}
}

// ReadElement deserialises exactly one element (recursively, if Master)
// starting at the reader's current position, returning the element and
// the number of bytes consumed.
func (rd *Reader) ReadElement() (*Element, int64, error) {
	return rd.readElement(rd.ns)
}

func (rd *Reader) readElement(ns *Namespace) (*Element, int64, error) {
	startPos, err := rd.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("ebml: position query: %w", err)
	}

	idVal, idLen, err := DecodeVInt(rd.r, true)
	if err != nil {
		return nil, 0, fmt.Errorf("ebml: read element id: %w", err)
	}
	id := uint32(idVal)

	size, sizeLen, err := DecodeVInt(rd.r, false)
	if err != nil {
		return nil, 0, fmt.Errorf("ebml: read element %08x size: %w", id, err)
	}

	bodyStart := startPos + int64(idLen) + int64(sizeLen)
	total := int64(idLen) + int64(sizeLen) + int64(size)

	ci, known := ns.Lookup(id)
	var kind Kind
	if known {
		kind = ci.Kind
	} else {
		kind = KindUnknown
	}

	el := &Element{ID: id, Kind: kind}

	switch kind {
	case KindMaster:
		if _, err := rd.r.Seek(bodyStart, io.SeekStart); err != nil {
			return nil, 0, fmt.Errorf("ebml: seek to body of %08x: %w", id, err)
		}
		limit := bodyStart + int64(size)
		for {
			pos, err := rd.r.Seek(0, io.SeekCurrent)
			if err != nil {
				return nil, 0, fmt.Errorf("ebml: position query inside %08x: %w", id, err)
			}
			if pos >= limit {
				break
			}
			child, n, err := rd.readElement(ns)
			if err != nil {
				return nil, 0, fmt.Errorf("ebml: child of %08x: %w", id, err)
			}
			el.Append(child)
			_ = n
		}
	case KindBinary, KindUnknown:
		el.Data = dataref.File{R: rd.r, Off: bodyStart, Len: int64(size)}
	case KindUint:
		v, err := readFixedUint(rd.r, bodyStart, int64(size))
		if err != nil {
			return nil, 0, err
		}
		el.UintVal = v
	case KindSint:
		v, err := readFixedSint(rd.r, bodyStart, int64(size))
		if err != nil {
			return nil, 0, err
		}
		el.SintVal = v
	case KindDate:
		v, err := readFixedSint(rd.r, bodyStart, int64(size))
		if err != nil {
			return nil, 0, err
		}
		el.SintVal = v
	case KindFloat:
		if size != 4 && size != 8 {
			return nil, 0, ErrUnsupportedFloatWidth
		}
		buf := make([]byte, size)
		if _, err := rd.r.Seek(bodyStart, io.SeekStart); err != nil {
			return nil, 0, err
		}
		if _, err := io.ReadFull(rd.r, buf); err != nil {
			return nil, 0, fmt.Errorf("ebml: read float body of %08x: %w", id, err)
		}
		el.FloatWidth = int(size)
		el.FloatVal = bitsToFloat64(int(size), buf)
	case KindASCIIString, KindUTF8String:
		buf := make([]byte, size)
		if _, err := rd.r.Seek(bodyStart, io.SeekStart); err != nil {
			return nil, 0, err
		}
		if _, err := io.ReadFull(rd.r, buf); err != nil {
			return nil, 0, fmt.Errorf("ebml: read string body of %08x: %w", id, err)
		}
		el.Str = string(trimTrailingZero(buf))
	}

	if _, err := rd.r.Seek(startPos+total, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("ebml: seek past element %08x: %w", id, err)
	}

	return el, total, nil
}

func trimTrailingZero(b []byte) []byte {
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	return b[:i]
}

func readFixedUint(r io.ReadSeeker, off, size int64) (uint64, error) {
	if size == 0 {
		return 0, nil
	}
	if size > 8 {
		return 0, fmt.Errorf("ebml: uint body of %d bytes exceeds 8", size)
	}
	buf := make([]byte, size)
	if _, err := r.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, fmt.Errorf("ebml: read uint body: %w", err)
	}
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

func readFixedSint(r io.ReadSeeker, off, size int64) (int64, error) {
	if size == 0 {
		return 0, nil
	}
	if size > 8 {
		return 0, fmt.Errorf("ebml: sint body of %d bytes exceeds 8", size)
	}
	buf := make([]byte, size)
	if _, err := r.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, fmt.Errorf("ebml: read sint body: %w", err)
	}
	v := int64(buf[0])
	if buf[0]&0x80 != 0 {
		v -= 256
	}
	for _, b := range buf[1:] {
		v = v<<8 | int64(b)
	}
	return v, nil
}
