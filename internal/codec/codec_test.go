package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAliases(t *testing.T) {
	assert.Equal(t, H264, AVC)
	assert.Equal(t, H264, MPEG4_10)
	assert.Equal(t, MPEG4_2, DIVX)
	assert.Equal(t, MP1, MPEG1_1)
	assert.Equal(t, MP2, MPEG1_2)
	assert.Equal(t, MP3, MPEG1_3)
}

func TestKind(t *testing.T) {
	cases := []struct {
		id   ID
		kind Kind
	}{
		{H264, KindVideo},
		{VP8, KindVideo},
		{AAC, KindAudio},
		{VORBIS, KindAudio},
		{MKV_MSC_VFW, KindPseudo},
		{ID(0), KindUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, c.id.Kind(), c.id.Name())
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "H264", H264.Name())
	assert.Equal(t, "UNKNOWN", ID(0).Name())
	assert.Equal(t, "UNKNOWN", ID(9999).Name())
}
