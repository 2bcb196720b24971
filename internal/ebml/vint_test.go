package ebml

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVIntRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 126, 127, 128, 16383, 16384, 16385,
		2097151, 2097152, MaxUint,
	}
	for _, v := range values {
		enc, err := EncodeVInt(v, 0)
		require.NoError(t, err, "encode %d", v)
		got, n, err := DecodeVInt(bytes.NewReader(enc), false)
		require.NoError(t, err, "decode %d", v)
		assert.Equal(t, v, got)
		assert.Equal(t, len(enc), n)
	}
}

func TestVIntBoundaryLengths(t *testing.T) {
	cases := []struct {
		value uint64
		want  int
	}{
		{127 - 1, 1}, // 2^7-2, max length-1 value
		{127, 2},     // 2^7-1, reserved at length 1, bumps to length 2
		{128, 2},     // 2^7
		{16383 - 1, 2},
		{16383, 3},
		{16384, 3},
	}
	for _, c := range cases {
		enc, err := EncodeVInt(c.value, 0)
		require.NoError(t, err)
		assert.Equal(t, c.want, len(enc), "value %d", c.value)
	}
}

func TestVIntReservedRejected(t *testing.T) {
	// Length 1 reserved payload: marker 0x80 | all-ones payload 0x7F.
	_, _, err := DecodeVInt(bytes.NewReader([]byte{0xFF}), false)
	assert.ErrorIs(t, err, ErrReservedVInt)

	// Length 2 reserved payload.
	_, _, err = DecodeVInt(bytes.NewReader([]byte{0x40 | 0x3F, 0xFF}), false)
	assert.ErrorIs(t, err, ErrReservedVInt)
}

func TestVIntIDKeepsMarker(t *testing.T) {
	// 0x1A45DFA3 is the EBML header ID, a 4-byte VInt with marker retained.
	data := []byte{0x1A, 0x45, 0xDF, 0xA3}
	got, n, err := DecodeVInt(bytes.NewReader(data), true)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, uint64(0x1A45DFA3), got)
}

func TestSintEncodeDecode(t *testing.T) {
	enc, err := EncodeSint(-1, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xBF}, enc)

	got, n, err := DecodeSint(bytes.NewReader([]byte{0xBF}))
	require.NoError(t, err)
	assert.Equal(t, int64(-1), got)
	assert.Equal(t, 1, n)
}

func TestSintRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 62, -63, 1000, -1000, MaxSintMagnitude, -MaxSintMagnitude}
	for _, v := range values {
		enc, err := EncodeSint(v, 0)
		require.NoError(t, err, "encode %d", v)
		got, n, err := DecodeSint(bytes.NewReader(enc))
		require.NoError(t, err, "decode %d", v)
		assert.Equal(t, v, got)
		assert.Equal(t, len(enc), n)
	}
}

func TestIDByteLenAndEncode(t *testing.T) {
	cases := []struct {
		id   uint32
		want int
	}{
		{IDVoid, 1},         // 0xEC
		{IDTrackEntry, 1},   // 0xAE
		{IDSegmentUID, 2},   // 0x73A4
		{IDDefaultDuration, 3}, // 0x23E383
		{IDSegment, 4},      // 0x18538067
	}
	for _, c := range cases {
		assert.Equal(t, c.want, idByteLen(c.id), "id %#x", c.id)
		buf := encodeID(c.id)
		assert.Len(t, buf, c.want)

		got, n, err := DecodeVInt(bytes.NewReader(buf), true)
		require.NoError(t, err)
		assert.Equal(t, c.want, n)
		assert.Equal(t, uint64(c.id), got)
	}
}

func TestEncodeVIntMinLength(t *testing.T) {
	enc, err := EncodeVInt(1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, len(enc))
	got, n, err := DecodeVInt(bytes.NewReader(enc), false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got)
	assert.Equal(t, 3, n)
}
