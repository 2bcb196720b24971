package mp4

import (
	"bytes"
	"testing"

	"github.com/sh01/yavdlt/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullBox(version byte, rest []byte) []byte { return append(fullBoxHeader(version), rest...) }

func stscBox(firstChunk, samplesPerChunk, descIdx uint32) []byte {
	body := fullBox(0, be32(1))
	body = append(body, be32(firstChunk)...)
	body = append(body, be32(samplesPerChunk)...)
	body = append(body, be32(descIdx)...)
	return box32("stsc", body)
}

func sttsBox(count, delta uint32) []byte {
	body := fullBox(0, be32(1))
	body = append(body, be32(count)...)
	body = append(body, be32(delta)...)
	return box32("stts", body)
}

func stszBoxConst(size, count uint32) []byte {
	body := fullBox(0, be32(size))
	body = append(body, be32(count)...)
	return box32("stsz", body)
}

func stcoBox(offsets ...uint32) []byte {
	body := fullBox(0, be32(uint32(len(offsets))))
	for _, o := range offsets {
		body = append(body, be32(o)...)
	}
	return box32("stco", body)
}

func mdhdBox(timeScale, dur uint32) []byte {
	body := fullBox(0, make([]byte, 8))
	body = append(body, be32(timeScale)...)
	body = append(body, be32(dur)...)
	body = append(body, 0, 0, 0, 0)
	return box32("mdhd", body)
}

func hdlrBox(handlerType string) []byte {
	body := fullBox(0, be32(0))
	body = append(body, handlerType...)
	body = append(body, make([]byte, 12)...)
	body = append(body, "h\x00"...)
	return box32("hdlr", body)
}

func avcCBox(data []byte) []byte { return box32("avcC", data) }

func visualSampleEntryBody(width, height uint16) []byte {
	b := make([]byte, sampleEntryHeaderLen+visualSampleEntryLen)
	b[7] = 1 // data_reference_index
	b[sampleEntryHeaderLen+16] = byte(width >> 8)
	b[sampleEntryHeaderLen+17] = byte(width)
	b[sampleEntryHeaderLen+18] = byte(height >> 8)
	b[sampleEntryHeaderLen+19] = byte(height)
	return b
}

func avc1Box(width, height uint16, avcC []byte) []byte {
	body := append(visualSampleEntryBody(width, height), avcCBox(avcC)...)
	return box32("avc1", body)
}

func audioSampleEntryBody(channels uint16, rateHz uint32) []byte {
	b := make([]byte, sampleEntryHeaderLen+audioSampleEntryLen)
	b[7] = 1
	b[sampleEntryHeaderLen+8] = byte(channels >> 8)
	b[sampleEntryHeaderLen+9] = byte(channels)
	rateFixed := rateHz << 16
	b[sampleEntryHeaderLen+16] = byte(rateFixed >> 24)
	b[sampleEntryHeaderLen+17] = byte(rateFixed >> 16)
	b[sampleEntryHeaderLen+18] = byte(rateFixed >> 8)
	b[sampleEntryHeaderLen+19] = byte(rateFixed)
	return b
}

func mp4aBox(channels uint16, rateHz uint32, esds []byte) []byte {
	body := append(audioSampleEntryBody(channels, rateHz), box32("esds", esds)...)
	return box32("mp4a", body)
}

func stsdBox(entry []byte) []byte {
	body := fullBox(0, be32(1))
	body = append(body, entry...)
	return box32("stsd", body)
}

func stblBox(stsd, stts, stsc, stsz, stco []byte) []byte {
	return box32("stbl", concat(stsd, stts, stsc, stsz, stco))
}

func concat(parts ...[]byte) []byte {
	var rv []byte
	for _, p := range parts {
		rv = append(rv, p...)
	}
	return rv
}

func trakBox(handlerType string, timeScale uint32, stbl []byte) []byte {
	minf := box32("minf", stbl)
	mdia := box32("mdia", concat(mdhdBox(timeScale, 1000), hdlrBox(handlerType), minf))
	return box32("trak", mdia)
}

func TestDemuxVideoAndAudioTrack(t *testing.T) {
	avcCData := []byte{0x01, 0x64, 0x00, 0x1F}
	esdsData := buildESDS(0x40, []byte{0x12, 0x10})

	videoStbl := stblBox(
		stsdBox(avc1Box(320, 240, avcCData)),
		sttsBox(1, 1000),
		stscBox(1, 1, 1),
		stszBoxConst(50, 1),
		stcoBox(0), // patched below
	)
	audioStbl := stblBox(
		stsdBox(mp4aBox(2, 44100, esdsData)),
		sttsBox(1, 1024),
		stscBox(1, 1, 1),
		stszBoxConst(20, 1),
		stcoBox(0), // patched below
	)

	videoTrak := trakBox("vide", 30000, videoStbl)
	audioTrak := trakBox("soun", 44100, audioStbl)

	mvhd := box32("mvhd", fullBox(0, concat(make([]byte, 8), be32(1000), be32(2000), make([]byte, 80))))
	moov := box32("moov", concat(mvhd, videoTrak, audioTrak))

	videoSample := bytes.Repeat([]byte{0xAA}, 50)
	audioSample := bytes.Repeat([]byte{0xBB}, 20)

	header := box32("ftyp", []byte("isomisom"))
	videoOff := int64(len(header) + len(moov) + 8) // +8 for the mdat header
	audioOff := videoOff + int64(len(videoSample))

	// The stco offsets above are placeholders written before the mdat
	// layout was known; rebuild the two stbl/trak/moov boxes now that the
	// real sample offsets can be computed, rather than threading them
	// through the box-building helpers in a second pass.
	videoStbl = stblBox(
		stsdBox(avc1Box(320, 240, avcCData)),
		sttsBox(1, 1000),
		stscBox(1, 1, 1),
		stszBoxConst(50, 1),
		stcoBox(uint32(videoOff)),
	)
	audioStbl = stblBox(
		stsdBox(mp4aBox(2, 44100, esdsData)),
		sttsBox(1, 1024),
		stscBox(1, 1, 1),
		stszBoxConst(20, 1),
		stcoBox(uint32(audioOff)),
	)
	videoTrak = trakBox("vide", 30000, videoStbl)
	audioTrak = trakBox("soun", 44100, audioStbl)
	moov = box32("moov", concat(mvhd, videoTrak, audioTrak))

	mdatBody := concat(videoSample, audioSample)
	mdat := box32("mdat", mdatBody)

	file := concat(header, moov, mdat)

	d, err := Demux(bytes.NewReader(file))
	require.NoError(t, err)

	require.NotNil(t, d.Video)
	assert.Equal(t, codec.H264, d.Video.Codec)
	assert.Equal(t, 320, d.Video.Width)
	assert.Equal(t, 240, d.Video.Height)
	assert.Equal(t, avcCData, d.Video.CodecPrivate)
	assert.EqualValues(t, 30000, d.Video.TimeScale)

	vf, ok, err := d.Video.Frames()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, vf.Keyframe)
	vdata, err := vf.Data.Bytes()
	require.NoError(t, err)
	assert.Equal(t, videoSample, vdata)

	require.NotNil(t, d.Audio)
	assert.Equal(t, codec.AAC, d.Audio.Codec)
	assert.Equal(t, 2, d.Audio.Channels)
	assert.Equal(t, 44100, d.Audio.SampleRate)
	assert.EqualValues(t, 44100, d.Audio.TimeScale)

	af, ok, err := d.Audio.Frames()
	require.NoError(t, err)
	require.True(t, ok)
	adata, err := af.Data.Bytes()
	require.NoError(t, err)
	assert.Equal(t, audioSample, adata)

	assert.InDelta(t, 2.0, d.MovieDur, 1e-9)
}
