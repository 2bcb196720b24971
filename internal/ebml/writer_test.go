package ebml

import (
	"bytes"
	"testing"

	"github.com/sh01/yavdlt/internal/dataref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSampleHeader() *Element {
	hdr := NewMaster(IDEBMLHeader)
	hdr.Append(NewUint(IDEBMLVersion, 1))
	hdr.Append(NewUint(IDEBMLReadVersion, 1))
	hdr.Append(NewUint(IDEBMLMaxIDLength, 4))
	hdr.Append(NewUint(IDEBMLMaxSizeLength, 8))
	hdr.Append(NewASCIIString(IDEBMLDocType, "matroska"))
	hdr.Append(NewUint(IDEBMLDocTypeVersion, 2))
	hdr.Append(NewUint(IDEBMLDocTypeReadVersion, 2))
	return hdr
}

func TestWriteToMatchesSize(t *testing.T) {
	hdr := buildSampleHeader()
	var buf bytes.Buffer
	n, err := hdr.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, hdr.Size(), n)
	assert.Equal(t, int(n), buf.Len())
}

func TestWriteBinaryElement(t *testing.T) {
	el := NewBinary(IDSimpleBlock, dataref.Bytes([]byte{0x81, 0x00, 0x00, 0x00, 0xAA, 0xBB}))
	var buf bytes.Buffer
	n, err := el.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, el.Size(), n)
	// id (1) + size vint (1) + 6 body bytes
	assert.Equal(t, int64(8), n)
}

func TestWriteNegativeSintElement(t *testing.T) {
	el := NewSint(IDReferenceBlock, -1)
	var buf bytes.Buffer
	_, err := el.WriteTo(&buf)
	require.NoError(t, err)
	b := buf.Bytes()
	// id (0xFB) + size (0x81, 1 byte body) + body (0xFF for -1 in 1 byte)
	assert.Equal(t, []byte{0xFB, 0x81, 0xFF}, b)
}
