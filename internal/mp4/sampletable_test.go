package mp4

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSTSCPreprocessesRuns(t *testing.T) {
	// Chunks 1-2 hold 4 samples each, chunk 3 onward holds 2 samples each.
	body := append(fullBoxHeader(0), be32(2)...)
	body = append(body, be32(1)...)
	body = append(body, be32(4)...)
	body = append(body, be32(1)...) // sample-description index, ignored
	body = append(body, be32(3)...)
	body = append(body, be32(2)...)
	body = append(body, be32(1)...)

	runs, err := parseSTSC(body)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.NotNil(t, runs[0].Count)
	assert.EqualValues(t, 2, *runs[0].Count)
	assert.EqualValues(t, 4, runs[0].SamplesPerChunk)
	assert.Nil(t, runs[1].Count)
	assert.EqualValues(t, 2, runs[1].SamplesPerChunk)
}

func TestParseSTSZConstantSize(t *testing.T) {
	body := append(fullBoxHeader(0), be32(512)...)
	body = append(body, be32(10)...)
	sizes, count, err := parseSTSZ(body)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
	assert.Nil(t, sizes.Table)
	assert.EqualValues(t, 512, sizes.size(0))
}

func TestParseSTSZPerSampleTable(t *testing.T) {
	body := append(fullBoxHeader(0), be32(0)...)
	body = append(body, be32(2)...)
	body = append(body, be32(100)...)
	body = append(body, be32(200)...)
	sizes, _, err := parseSTSZ(body)
	require.NoError(t, err)
	assert.EqualValues(t, 100, sizes.size(0))
	assert.EqualValues(t, 200, sizes.size(1))
}

func TestParseSTSSConvertsToZeroBased(t *testing.T) {
	body := append(fullBoxHeader(0), be32(2)...)
	body = append(body, be32(1)...)
	body = append(body, be32(6)...)
	sync, err := parseSTSS(body)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 5}, sync)
}

// TestWalkSampleTableConstantSizeNoStss covers the boundary case of an
// MP4 track with no stss (every sample a sync point) and a constant-size
// stsz header: 6 samples, one chunk per 3 samples, 1001-tick durations.
func TestWalkSampleTableConstantSizeNoStss(t *testing.T) {
	stts := []runEntry{{Count: 6, Value: 1001}}
	one := int64(1)
	chunks := []chunkRun{{Count: &one, SamplesPerChunk: 3}, {Count: nil, SamplesPerChunk: 3}}
	offsets := []int64{1000, 2000}
	sizes := SampleSizes{Constant: 188}

	samples, err := walkSampleTable(stts, nil, chunks, offsets, sizes, 6, nil)
	require.NoError(t, err)
	require.Len(t, samples, 6)

	for i, s := range samples {
		assert.True(t, s.Sync, "sample %d", i)
		assert.EqualValues(t, 188, s.Size)
		assert.EqualValues(t, int64(i)*1001, s.DTS)
	}
	assert.EqualValues(t, 1000, samples[0].Offset)
	assert.EqualValues(t, 1000+188, samples[1].Offset)
	assert.EqualValues(t, 2000, samples[3].Offset)
}

func TestWalkSampleTableHonoursSyncAndCTTS(t *testing.T) {
	stts := []runEntry{{Count: 3, Value: 1000}}
	ctts := []runEntry{{Count: 1, Value: 0}, {Count: 2, Value: 2000}}
	one := int64(3)
	chunks := []chunkRun{{Count: &one, SamplesPerChunk: 1}}
	offsets := []int64{0, 100, 300}
	sizes := SampleSizes{Table: []int64{100, 200, 150}}
	sync := []int64{0}

	samples, err := walkSampleTable(stts, ctts, chunks, offsets, sizes, 0, sync)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.True(t, samples[0].Sync)
	assert.False(t, samples[1].Sync)
	assert.False(t, samples[2].Sync)
	assert.EqualValues(t, 0, samples[0].CTSOffset)
	assert.EqualValues(t, 2000, samples[1].CTSOffset)
	assert.EqualValues(t, 2000, samples[2].CTSOffset)
}

func TestModalDurationPicksMostCommon(t *testing.T) {
	samples := []Sample{{Duration: 1000}, {Duration: 1000}, {Duration: 999}}
	assert.EqualValues(t, 1000, ModalDuration(samples))
}
