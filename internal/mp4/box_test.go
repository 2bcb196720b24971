package mp4

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// box32 builds a standard 32-bit-size box.
func box32(typ string, body []byte) []byte {
	buf := make([]byte, 0, 8+len(body))
	size := make([]byte, 4)
	binary.BigEndian.PutUint32(size, uint32(8+len(body)))
	buf = append(buf, size...)
	buf = append(buf, typ...)
	return append(buf, body...)
}

// box64 builds an extended (size==1) 64-bit-size box.
func box64(typ string, body []byte) []byte {
	buf := make([]byte, 0, 16+len(body))
	buf = append(buf, 0, 0, 0, 1)
	buf = append(buf, typ...)
	ext := make([]byte, 8)
	binary.BigEndian.PutUint64(ext, uint64(16+len(body)))
	buf = append(buf, ext...)
	return append(buf, body...)
}

func fullBoxHeader(version byte) []byte {
	return []byte{version, 0, 0, 0}
}

func TestReadBoxHeaderParsesStandardSize(t *testing.T) {
	data := box32("free", []byte{1, 2, 3})
	boxes, err := ReadBoxes(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, boxType("free"), boxes[0].Type)
	assert.Equal(t, int64(11), boxes[0].Size)
	assert.Equal(t, int64(8), boxes[0].HeaderLen)
}

func TestReadBoxHeaderParsesExtendedSize(t *testing.T) {
	data := box64("mdat", []byte{9, 9})
	boxes, err := ReadBoxes(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, int64(18), boxes[0].Size)
	assert.Equal(t, int64(16), boxes[0].HeaderLen)
}

func TestReadBoxSeqRecursesIntoContainers(t *testing.T) {
	inner := box32("mdhd", append(fullBoxHeader(0), make([]byte, 12)...))
	trak := box32("trak", box32("mdia", inner))
	moov := box32("moov", trak)

	boxes, err := ReadBoxes(bytes.NewReader(moov))
	require.NoError(t, err)
	require.Len(t, boxes, 1)

	trakBox, ok := boxes[0].Find("trak")
	require.True(t, ok)
	mdiaBox, ok := trakBox.Find("mdia")
	require.True(t, ok)
	_, ok = mdiaBox.Find("mdhd")
	require.True(t, ok)
}

func TestReadBoxSeqRejectsOverrun(t *testing.T) {
	// A box whose declared size runs past its parent's declared size.
	bad := []byte{0, 0, 0, 20, 'f', 'r', 'e', 'e'}
	container := box32("moov", bad)
	_, err := ReadBoxes(bytes.NewReader(container))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContainerParse)
}

func TestStsdSkipsFullBoxHeaderAndEntryCount(t *testing.T) {
	entry := box32("mp4a", make([]byte, 8+audioSampleEntryLen))
	stsdBody := append(fullBoxHeader(0), 0, 0, 0, 1) // entry count = 1
	stsd := box32("stsd", append(stsdBody, entry...))

	boxes, err := ReadBoxes(bytes.NewReader(stsd))
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	require.Len(t, boxes[0].Children, 1)
	assert.Equal(t, boxType("mp4a"), boxes[0].Children[0].Type)
}
