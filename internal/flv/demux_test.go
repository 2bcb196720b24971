package flv

import (
	"bytes"
	"testing"

	"github.com/sh01/yavdlt/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scriptBody() []byte {
	body := asString("onMetaData")
	body = append(body, amfObject)
	body = append(body, asKey("duration")...)
	body = append(body, asDouble(12.5)...)
	body = append(body, asKey("width")...)
	body = append(body, asDouble(640)...)
	body = append(body, asKey("height")...)
	body = append(body, asDouble(360)...)
	body = append(body, asKey("")...)
	body = append(body, amfEndMarker)
	return body
}

// buildSampleFLV assembles one H.264 keyframe, one AAC frame, and an
// onMetaData script tag: the literal scenario spec.md §8 names for a
// minimal single-video-frame, single-audio-frame FLV source.
func buildSampleFLV(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(buildHeader(true, true))
	buf.Write(buildTag(byte(TagScript), 0, scriptBody()))
	buf.Write(buildTag(byte(TagVideo), 0, videoBody(true, 0, 0, []byte{0x01, 0x02}))) // AVC seq header
	buf.Write(buildTag(byte(TagAudio), 0, audioBodyAAC(0, []byte{0x11, 0x90})))       // AAC seq header
	buf.Write(buildTag(byte(TagVideo), 0, videoBody(true, 1, 0, []byte{0x65, 0xAA, 0xBB})))
	buf.Write(buildTag(byte(TagAudio), 23, audioBodyAAC(1, []byte{0xDE, 0xAD, 0xBE})))
	return buf.Bytes()
}

func TestDemuxSingleKeyframeAndAudioFrame(t *testing.T) {
	data := buildSampleFLV(t)
	d, err := Demux(bytes.NewReader(data))
	require.NoError(t, err)

	require.NotNil(t, d.Video)
	assert.Equal(t, codec.H264, d.Video.Codec)
	assert.Equal(t, []byte{0x01, 0x02}, d.Video.CodecPrivate)
	assert.Equal(t, 640, d.Video.Width)
	assert.Equal(t, 360, d.Video.Height)

	frame, ok, err := d.Video.Frames()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, frame.Keyframe)
	payload, err := frame.Data.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x65, 0xAA, 0xBB}, payload)
	_, ok, err = d.Video.Frames()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NotNil(t, d.Audio)
	assert.Equal(t, codec.AAC, d.Audio.Codec)
	assert.Equal(t, []byte{0x11, 0x90}, d.Audio.CodecPrivate)
	assert.Equal(t, 44000, d.Audio.SampleRate)
	assert.Equal(t, 2, d.Audio.Channels)

	aframe, ok, err := d.Audio.Frames()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(23), aframe.Timecode)
	assert.True(t, aframe.Keyframe)

	assert.InDelta(t, 12.5, d.Duration, 1e-9)
	assert.Equal(t, 640.0, d.Metadata["width"])
}

func TestDemuxVideoOnlyLeavesAudioNil(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(buildHeader(true, false))
	buf.Write(buildTag(byte(TagVideo), 0, videoBody(true, 0, 0, []byte{0x01})))
	buf.Write(buildTag(byte(TagVideo), 0, videoBody(true, 1, 0, []byte{0x65})))

	d, err := Demux(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.NotNil(t, d.Video)
	assert.Nil(t, d.Audio)
	assert.Nil(t, d.Metadata)
}

func TestDemuxRejectsMidStreamVideoCodecChange(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(buildHeader(true, false))
	buf.Write(buildTag(byte(TagVideo), 0, videoBody(true, 0, 0, []byte{0x01}))) // codec 7 (AVC)
	badFlags := byte(1<<4) | 4                                                 // frame type 1, codec 4 (VP6)
	buf.Write(buildTag(byte(TagVideo), 10, []byte{badFlags, 0xAA}))

	_, err := Demux(bytes.NewReader(buf.Bytes()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContainerParse)
}

func TestDemuxOnlyMetadataAndOneKeyframe(t *testing.T) {
	// Boundary case: a script tag declaring onMetaData, then exactly one
	// video keyframe and no audio at all.
	var buf bytes.Buffer
	buf.Write(buildHeader(true, false))
	buf.Write(buildTag(byte(TagScript), 0, scriptBody()))
	buf.Write(buildTag(byte(TagVideo), 0, videoBody(true, 1, 0, []byte{0x65, 0x01})))

	d, err := Demux(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.NotNil(t, d.Video)
	assert.Nil(t, d.Video.CodecPrivate)
	assert.Nil(t, d.Audio)

	frame, ok, err := d.Video.Frames()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, frame.Keyframe)

	_, ok, err = d.Video.Frames()
	require.NoError(t, err)
	assert.False(t, ok)
}
