package ebml

import (
	"errors"
	"fmt"
	"io"
)

// ErrReservedVInt is returned when a VInt's payload is all binary ones at
// its encoded length — a value reserved by the EBML spec and never legal
// on the wire.
var ErrReservedVInt = errors.New("ebml: reserved VInt payload")

// ErrVIntTooLong is returned when the first byte of a VInt is zero: no
// length marker bit is set within the 8 bytes EBML allows.
var ErrVIntTooLong = errors.New("ebml: VInt length marker not found")

// MaxUint is the largest value representable by an unsigned VInt: the
// 8-byte payload ceiling 2^56-2 (2^56-1 is reserved).
const MaxUint uint64 = (1 << 56) - 2

// MaxSintMagnitude bounds the signed VInt range to ±(2^48-1): one fewer
// length class than the unsigned form, sacrificed to the sign marker.
const MaxSintMagnitude int64 = (1 << 48) - 1

// A VInt of length L has L-1 leading zero bits, a 1-bit marker, and 7*L
// usable payload bits: 8*L total bits, minus the L bits spent on the
// leading-zero run and its terminating marker.
func payloadBits(length int) uint {
	return uint(7 * length)
}

// lengthOf returns the VInt byte length encoded by firstByte's leading
// marker bit, and that bit's own mask. 0 means no marker bit was found in
// an 8-bit first byte, which is invalid.
func lengthOf(firstByte byte) (length int, mask byte) {
	mask = 0x80
	for length = 1; length <= 8; length++ {
		if firstByte&mask != 0 {
			return length, mask
		}
		mask >>= 1
	}
	return 0, 0
}

// DecodeVInt reads one VInt from r. keepMarker controls whether the
// returned value retains its length-marker bit — element IDs keep it (it
// is part of their identity), sizes and values do not.
//
// Returns the decoded value and the number of bytes consumed.
func DecodeVInt(r io.Reader, keepMarker bool) (uint64, int, error) {
	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return 0, 0, fmt.Errorf("ebml: read VInt first byte: %w", err)
	}

	length, mask := lengthOf(first[0])
	if length == 0 {
		return 0, 0, ErrVIntTooLong
	}

	buf := make([]byte, length)
	buf[0] = first[0]
	if length > 1 {
		if _, err := io.ReadFull(r, buf[1:]); err != nil {
			return 0, 0, fmt.Errorf("ebml: read VInt continuation bytes: %w", err)
		}
	}

	if isReservedPayload(buf[0]&^mask, buf[1:], length) {
		return 0, 0, ErrReservedVInt
	}

	var payload uint64
	if keepMarker {
		payload = uint64(buf[0])
	} else {
		payload = uint64(buf[0]) &^ uint64(mask)
	}
	for _, b := range buf[1:] {
		payload = payload<<8 | uint64(b)
	}

	return payload, length, nil
}

// isReservedPayload reports whether the payload bytes are all binary
// ones — the EBML reserved-value sentinel. firstPayload is byte 0 with
// its marker bit already masked off.
func isReservedPayload(firstPayload byte, rest []byte, length int) bool {
	firstPayloadBits := 8 - length
	firstMask := byte(1<<uint(firstPayloadBits) - 1)
	if firstPayload&firstMask != firstMask {
		return false
	}
	for _, b := range rest {
		if b != 0xFF {
			return false
		}
	}
	return true
}

// idByteLen returns the byte width of an element class ID. Unlike a VInt
// value, an ID's marker bit is already embedded in its literal (e.g.
// IDVoid = 0xEC has the length-1 marker, its top bit, pre-set), so its length is just
// the integer's natural byte width, not a 7-bit-payload computation.
func idByteLen(id uint32) int {
	switch {
	case id <= 0xFF:
		return 1
	case id <= 0xFFFF:
		return 2
	case id <= 0xFFFFFF:
		return 3
	default:
		return 4
	}
}

// encodeID big-endian-packs an element class ID into its natural byte
// width, verbatim — the marker bit is already part of id's value.
func encodeID(id uint32) []byte {
	n := idByteLen(id)
	buf := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(id)
		id >>= 8
	}
	return buf
}

// vintLen returns the minimum VInt length (1..8) able to hold value while
// excluding the reserved all-ones payload at that length.
func vintLen(value uint64) int {
	for length := 1; length <= 8; length++ {
		limit := uint64(1)<<payloadBits(length) - 2 // reserve all-ones
		if value <= limit {
			return length
		}
	}
	return 8
}

// EncodeVInt encodes value as a VInt of the minimum length capable of
// representing it while excluding the reserved all-ones payload, or of
// exactly minLength bytes if minLength is larger (used by Void padding).
func EncodeVInt(value uint64, minLength int) ([]byte, error) {
	length := vintLen(value)
	if minLength > length {
		length = minLength
	}
	if length > 8 {
		return nil, fmt.Errorf("ebml: value %d exceeds VInt length 8", value)
	}
	if value > uint64(1)<<payloadBits(length)-2 {
		return nil, fmt.Errorf("ebml: value %d does not fit in a %d-byte VInt", value, length)
	}

	buf := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		buf[i] = byte(value)
		value >>= 8
	}
	marker := byte(1) << uint(8-length)
	buf[0] |= marker
	return buf, nil
}

// sintBias returns the midpoint added to a signed VInt's mathematical
// value to obtain the raw unsigned payload stored on the wire, at the
// given encoded length.
func sintBias(length int) int64 {
	return int64(1) << (payloadBits(length) - 1)
}

// DecodeSint decodes a signed VInt: reads the unsigned form, then removes
// the midpoint bias.
func DecodeSint(r io.Reader) (int64, int, error) {
	raw, length, err := DecodeVInt(r, false)
	if err != nil {
		return 0, 0, err
	}
	return int64(raw) - sintBias(length), length, nil
}

// EncodeSint encodes a signed VInt of the minimum length that can hold
// value, or minLength if larger.
func EncodeSint(value int64, minLength int) ([]byte, error) {
	mag := value
	if mag < 0 {
		mag = -mag
	}
	if mag > MaxSintMagnitude {
		return nil, fmt.Errorf("ebml: signed value %d exceeds VInt range", value)
	}

	length := 1
	for ; length <= 8; length++ {
		bias := sintBias(length)
		top := int64(1)<<payloadBits(length) - 2 - bias
		if value >= -bias && value <= top {
			break
		}
	}
	if minLength > length {
		length = minLength
	}

	bias := sintBias(length)
	biased := uint64(value + bias)

	buf := make([]byte, length)
	v := biased
	for i := length - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	marker := byte(1) << uint(8-length)
	buf[0] |= marker
	return buf, nil
}
