package ebml

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoidExactLengths(t *testing.T) {
	// Named boundary cases: 2 and 3 are the smallest possible Void
	// elements (1-byte id + 1-byte size VInt, 0 and 1 body bytes); 128
	// and 129 straddle the 1-byte/2-byte size-VInt boundary; 16386
	// straddles the 2-byte/3-byte boundary.
	for _, target := range []int64{2, 3, 128, 129, 16386} {
		target := target
		t.Run("", func(t *testing.T) {
			el, err := NewVoidExact(target)
			require.NoError(t, err)
			assert.Equal(t, target, el.Size())

			var buf bytes.Buffer
			n, err := el.WriteTo(&buf)
			require.NoError(t, err)
			assert.Equal(t, target, n)
			assert.Equal(t, int(target), buf.Len())
		})
	}
}

func TestVoidExact129PadsSizeVInt(t *testing.T) {
	el, err := NewVoidExact(129)
	require.NoError(t, err)
	assert.Equal(t, int64(129), el.Size())
	// Body of 126 bytes fits a 1-byte size VInt on its own (max 126 for
	// length 1), so the padding to 2 bytes must be deliberate.
	assert.Equal(t, 2, el.SizePad)
	assert.Equal(t, int64(126), el.bodySize())
}

func TestVoidExactTooSmall(t *testing.T) {
	_, err := NewVoidExact(1)
	assert.Error(t, err)
}

func TestVoidExactRoundTrip(t *testing.T) {
	el, err := NewVoidExact(16386)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = el.WriteTo(&buf)
	require.NoError(t, err)

	rd := NewReader(bytes.NewReader(buf.Bytes()), Matroska)
	got, n, err := rd.ReadElement()
	require.NoError(t, err)
	assert.Equal(t, int64(16386), n)
	assert.Equal(t, IDVoid, got.ID)
	assert.Equal(t, KindBinary, got.Kind)
	assert.Equal(t, el.bodySize(), got.Data.Size())
}
