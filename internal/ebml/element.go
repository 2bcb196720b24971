package ebml

import (
	"fmt"
	"math"

	"github.com/sh01/yavdlt/internal/dataref"
)

// Kind is an Element's tagged-union variant. Per-kind behaviour (default
// width, string encoding, numeric formatting) lives in constant tables
// keyed by Kind or by class ID, not in virtual methods on a class
// hierarchy.
type Kind int

const (
	KindMaster Kind = iota
	KindBinary
	KindUint
	KindSint
	KindFloat
	KindDate
	KindASCIIString
	KindUTF8String
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindMaster:
		return "Master"
	case KindBinary:
		return "Binary"
	case KindUint:
		return "Uint"
	case KindSint:
		return "Sint"
	case KindFloat:
		return "Float"
	case KindDate:
		return "Date"
	case KindASCIIString:
		return "ASCIIString"
	case KindUTF8String:
		return "UTF8String"
	default:
		return "Unknown"
	}
}

// dateEpochOffsetNS is the negated number of nanoseconds from the Unix epoch
// (1970-01-01) to the Matroska Date epoch (2001-01-01), i.e. the value to
// add to a Unix nanosecond timestamp to get the internal Date
// representation.
const dateEpochOffsetNS = -978307200_000000000

// Element is a single EBML/Matroska element: a tagged union over the
// variants named in Kind, plus its class ID and (for Master) an ordered
// child list.
//
// Master elements own their children; detaching one means removing it
// from Children directly, there is no parent back-pointer to maintain.
type Element struct {
	ID   uint32
	Kind Kind

	Children []*Element // Master

	Data dataref.Ref // Binary, Unknown

	UintVal uint64 // Uint
	SintVal int64  // Sint, Date (nanoseconds since 2001-01-01T00:00:00Z)

	FloatVal   float64 // Float
	FloatWidth int     // Float: 4 or 8

	Str string // ASCIIString, UTF8String

	// SizePad is the minimum length, in bytes, of this element's size
	// VInt. Zero means "use the natural minimum length". Void elements
	// use this to pad their size field by one extra byte when a target
	// byte count falls on a size-VInt length-class boundary (§4.1).
	SizePad int
}

// NewMaster creates an empty Master element.
func NewMaster(id uint32) *Element {
	return &Element{ID: id, Kind: KindMaster}
}

// Append adds a child to a Master element, preserving insertion order.
func (e *Element) Append(child *Element) {
	e.Children = append(e.Children, child)
}

// Find returns the first direct child with the given class ID, or nil.
func (e *Element) Find(id uint32) *Element {
	for _, c := range e.Children {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// FindAll returns every direct child with the given class ID.
func (e *Element) FindAll(id uint32) []*Element {
	var rv []*Element
	for _, c := range e.Children {
		if c.ID == id {
			rv = append(rv, c)
		}
	}
	return rv
}

// NewUint creates a UInt element. Values use the minimum byte count on
// output, with a floor of 1 byte; the upper 0-byte is deliberately
// avoided since some real-world players reject zero-length integers.
func NewUint(id uint32, val uint64) *Element {
	return &Element{ID: id, Kind: KindUint, UintVal: val}
}

// NewSint creates a signed-integer element.
func NewSint(id uint32, val int64) *Element {
	return &Element{ID: id, Kind: KindSint, SintVal: val}
}

// NewFloat creates a Float element of the given width (4 or 8 bytes).
func NewFloat(id uint32, val float64, width int) *Element {
	if width != 4 && width != 8 {
		width = 8
	}
	return &Element{ID: id, Kind: KindFloat, FloatVal: val, FloatWidth: width}
}

// NewDate creates a Date element from a Unix timestamp expressed in
// fractional seconds.
func NewDate(id uint32, unixSeconds float64) *Element {
	ns := int64(unixSeconds*1e9) + dateEpochOffsetNS
	return &Element{ID: id, Kind: KindDate, SintVal: ns}
}

// UnixSeconds converts a Date element's internal nanoseconds-since-2001
// value to seconds since the Unix epoch.
func (e *Element) UnixSeconds() float64 {
	return float64(e.SintVal-dateEpochOffsetNS) / 1e9
}

// NewASCIIString creates an ASCII string element.
func NewASCIIString(id uint32, s string) *Element {
	return &Element{ID: id, Kind: KindASCIIString, Str: s}
}

// NewUTF8String creates a UTF-8 string element.
func NewUTF8String(id uint32, s string) *Element {
	return &Element{ID: id, Kind: KindUTF8String, Str: s}
}

// NewBinary creates a Binary element wrapping a data reference.
func NewBinary(id uint32, data dataref.Ref) *Element {
	return &Element{ID: id, Kind: KindBinary, Data: data}
}

// NewUnknown creates an Unknown element preserving a raw body verbatim;
// used whenever a namespace cascade fails to resolve a class ID, keeping
// the writer lossless for elements the engine doesn't model.
func NewUnknown(id uint32, data dataref.Ref) *Element {
	return &Element{ID: id, Kind: KindUnknown, Data: data}
}

// uintBodySize returns ceil(bit_length(v)/8), minimum 1.
func uintBodySize(v uint64) int {
	if v == 0 {
		return 1
	}
	bits := 0
	for t := v; t != 0; t >>= 1 {
		bits++
	}
	return (bits + 7) / 8
}

// sintBodySize returns ceil((bit_length(v + (v<0)) + 1) / 8): the minimum
// two's-complement byte count including the sign bit.
func sintBodySize(v int64) int {
	adj := v
	if v < 0 {
		adj = v + 1
	}
	mag := adj
	if mag < 0 {
		mag = -mag
	}
	bits := 0
	for t := mag; t != 0; t >>= 1 {
		bits++
	}
	return (bits + 1 + 7) / 8
}

// bodySize returns the length of this element's serialised body, not
// including its own ID/size header.
func (e *Element) bodySize() int64 {
	switch e.Kind {
	case KindMaster:
		var sum int64
		for _, c := range e.Children {
			sum += c.Size()
		}
		return sum
	case KindBinary, KindUnknown:
		return e.Data.Size()
	case KindUint:
		return int64(uintBodySize(e.UintVal))
	case KindSint, KindDate:
		return int64(sintBodySize(e.SintVal))
	case KindFloat:
		return int64(e.FloatWidth)
	case KindASCIIString, KindUTF8String:
		return int64(len(e.Str))
	default:
		return 0
	}
}

// Size returns the total serialised byte count: id.length + size.length +
// body.length. This must equal exactly what WriteTo emits; callers that
// pre-size a two-pass write (e.g. the Cues reserve) rely on that equality.
func (e *Element) Size() int64 {
	idLen := idByteLen(e.ID)
	body := e.bodySize()
	sizeLen := len(mustEncodeVInt(uint64(body), e.SizePad))
	return int64(idLen) + int64(sizeLen) + body
}

// mustEncodeVInt panics on error; only ever called to encode a size VInt,
// whose body value is bounded well under MaxUint by construction.
func mustEncodeVInt(v uint64, minLength int) []byte {
	b, err := EncodeVInt(v, minLength)
	if err != nil {
		panic(fmt.Sprintf("ebml: invariant violated: %v", err))
	}
	return b
}

func float64ToBits(width int, v float64) []byte {
	buf := make([]byte, width)
	if width == 4 {
		bits := math.Float32bits(float32(v))
		buf[0] = byte(bits >> 24)
		buf[1] = byte(bits >> 16)
		buf[2] = byte(bits >> 8)
		buf[3] = byte(bits)
		return buf
	}
	bits := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		buf[i] = byte(bits >> uint(56-8*i))
	}
	return buf
}

func bitsToFloat64(width int, buf []byte) float64 {
	if width == 4 {
		var bits uint32
		for _, b := range buf {
			bits = bits<<8 | uint32(b)
		}
		return float64(math.Float32frombits(bits))
	}
	var bits uint64
	for _, b := range buf {
		bits = bits<<8 | uint64(b)
	}
	return math.Float64frombits(bits)
}
