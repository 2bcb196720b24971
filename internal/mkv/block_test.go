package mkv

import (
	"testing"

	"github.com/sh01/yavdlt/internal/dataref"
	"github.com/sh01/yavdlt/internal/ebml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBlockPayloadLayout(t *testing.T) {
	payload, err := buildBlockPayload(1, -5, flagKeyframe, laceNone, nil, []dataref.Ref{dataref.Bytes("abc")})
	require.NoError(t, err)

	// track number 1 as a VInt is a single byte 0x81, then the signed
	// 16-bit relative timecode big-endian, then the flags byte, then the
	// frame payload verbatim (no lacing header).
	want := []byte{0x81, 0xFF, 0xFB, flagKeyframe, 'a', 'b', 'c'}
	assert.Equal(t, want, payload)
}

func TestBuildBlockPayloadWithLaceHeaderAndCount(t *testing.T) {
	frames := []dataref.Ref{dataref.Bytes("aa"), dataref.Bytes("bb"), dataref.Bytes("cc")}
	header := []byte{0x02, 0x99}
	payload, err := buildBlockPayload(2, 0, 0, laceFixed, header, frames)
	require.NoError(t, err)

	assert.Equal(t, byte(0x82), payload[0]) // track number 2
	assert.Equal(t, byte(0), payload[1])    // relative timecode hi byte
	assert.Equal(t, byte(0), payload[2])    // relative timecode lo byte
	assert.Equal(t, laceFixed.flagBits(), payload[3])
	assert.Equal(t, byte(len(frames)-1), payload[4]) // lace frame count - 1
	assert.Equal(t, header, payload[5:7])
	assert.Equal(t, []byte("aabbcc"), payload[7:])
}

func TestNewSimpleBlockSetsKeyframeFlag(t *testing.T) {
	el, err := newSimpleBlock(1, 0, true, laceNone, nil, []dataref.Ref{dataref.Bytes("x")})
	require.NoError(t, err)
	assert.Equal(t, ebml.IDSimpleBlock, el.ID)
	assert.Equal(t, ebml.KindBinary, el.Kind)

	body, err := el.Data.Bytes()
	require.NoError(t, err)
	assert.Equal(t, flagKeyframe, body[3]&flagKeyframe)
}

func TestNewBlockGroupIncludesReferenceAndDuration(t *testing.T) {
	bg, err := newBlockGroup(3, 10, -40, 1000, laceNone, nil, []dataref.Ref{dataref.Bytes("y")})
	require.NoError(t, err)
	assert.Equal(t, ebml.IDBlockGroup, bg.ID)

	block := bg.Find(ebml.IDBlock)
	require.NotNil(t, block)
	ref := bg.Find(ebml.IDReferenceBlock)
	require.NotNil(t, ref)
	assert.Equal(t, int64(-40), ref.SintVal)
	dur := bg.Find(ebml.IDBlockDuration)
	require.NotNil(t, dur)
	assert.Equal(t, uint64(1000), dur.UintVal)
}

func TestNewBlockGroupOmitsZeroReferenceAndDuration(t *testing.T) {
	bg, err := newBlockGroup(3, 10, 0, 0, laceNone, nil, []dataref.Ref{dataref.Bytes("y")})
	require.NoError(t, err)
	assert.Nil(t, bg.Find(ebml.IDReferenceBlock))
	assert.Nil(t, bg.Find(ebml.IDBlockDuration))
}
