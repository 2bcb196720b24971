package mp4

import (
	"encoding/binary"
	"fmt"
)

// runEntry is one run-length-encoded (count, value) pair shared by the
// stts and ctts tables.
type runEntry struct {
	Count int64
	Value int64
}

func parseRunTable(body []byte, signed bool) ([]runEntry, error) {
	_, rest, err := fullBoxBody(body)
	if err != nil {
		return nil, err
	}
	if err := need(rest, 4, "run-length table header"); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(rest[0:4])
	rest = rest[4:]
	if err := need(rest, int(n)*8, "run-length table entries"); err != nil {
		return nil, err
	}
	entries := make([]runEntry, n)
	for i := range entries {
		count := binary.BigEndian.Uint32(rest[i*8 : i*8+4])
		raw := binary.BigEndian.Uint32(rest[i*8+4 : i*8+8])
		value := int64(raw)
		if signed {
			value = int64(int32(raw))
		}
		entries[i] = runEntry{Count: int64(count), Value: value}
	}
	return entries, nil
}

func parseSTTS(body []byte) ([]runEntry, error) { return parseRunTable(body, false) }
func parseCTTS(body []byte) ([]runEntry, error) { return parseRunTable(body, true) }

// chunkRun is a preprocessed stsc entry: Count chunks (nil for the final,
// open-ended run) each holding SamplesPerChunk samples.
type chunkRun struct {
	Count           *int64
	SamplesPerChunk int64
}

func parseSTSC(body []byte) ([]chunkRun, error) {
	_, rest, err := fullBoxBody(body)
	if err != nil {
		return nil, err
	}
	if err := need(rest, 4, "stsc header"); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(rest[0:4])
	rest = rest[4:]
	if err := need(rest, int(n)*12, "stsc entries"); err != nil {
		return nil, err
	}

	type rawEntry struct{ firstChunk, samplesPerChunk int64 }
	raw := make([]rawEntry, n)
	for i := range raw {
		raw[i] = rawEntry{
			firstChunk:      int64(binary.BigEndian.Uint32(rest[i*12 : i*12+4])),
			samplesPerChunk: int64(binary.BigEndian.Uint32(rest[i*12+4 : i*12+8])),
		}
	}

	var runs []chunkRun
	fcLast := int64(1)
	var spcLast int64
	for _, e := range raw {
		if e.firstChunk > fcLast {
			count := e.firstChunk - fcLast
			runs = append(runs, chunkRun{Count: &count, SamplesPerChunk: spcLast})
		}
		fcLast, spcLast = e.firstChunk, e.samplesPerChunk
	}
	runs = append(runs, chunkRun{Count: nil, SamplesPerChunk: spcLast})
	return runs, nil
}

// SampleSizes is a parsed stsz box: either a single constant size for
// every sample, or a per-sample table.
type SampleSizes struct {
	Constant int64 // 0 if not constant, in which case Table is set
	Table    []int64
}

func (s SampleSizes) size(i int) int64 {
	if s.Table == nil {
		return s.Constant
	}
	return s.Table[i]
}

func (s SampleSizes) count() int {
	if s.Table != nil {
		return len(s.Table)
	}
	return 0
}

func parseSTSZ(body []byte) (SampleSizes, int, error) {
	_, rest, err := fullBoxBody(body)
	if err != nil {
		return SampleSizes{}, 0, err
	}
	if err := need(rest, 8, "stsz header"); err != nil {
		return SampleSizes{}, 0, err
	}
	constSize := binary.BigEndian.Uint32(rest[0:4])
	sampleCount := binary.BigEndian.Uint32(rest[4:8])
	if constSize != 0 {
		return SampleSizes{Constant: int64(constSize)}, int(sampleCount), nil
	}
	rest = rest[8:]
	if err := need(rest, int(sampleCount)*4, "stsz entries"); err != nil {
		return SampleSizes{}, 0, err
	}
	table := make([]int64, sampleCount)
	for i := range table {
		table[i] = int64(binary.BigEndian.Uint32(rest[i*4 : i*4+4]))
	}
	return SampleSizes{Table: table}, int(sampleCount), nil
}

func parseChunkOffsets32(body []byte) ([]int64, error) {
	_, rest, err := fullBoxBody(body)
	if err != nil {
		return nil, err
	}
	if err := need(rest, 4, "stco header"); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(rest[0:4])
	rest = rest[4:]
	if err := need(rest, int(n)*4, "stco entries"); err != nil {
		return nil, err
	}
	rv := make([]int64, n)
	for i := range rv {
		rv[i] = int64(binary.BigEndian.Uint32(rest[i*4 : i*4+4]))
	}
	return rv, nil
}

func parseChunkOffsets64(body []byte) ([]int64, error) {
	_, rest, err := fullBoxBody(body)
	if err != nil {
		return nil, err
	}
	if err := need(rest, 4, "co64 header"); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(rest[0:4])
	rest = rest[4:]
	if err := need(rest, int(n)*8, "co64 entries"); err != nil {
		return nil, err
	}
	rv := make([]int64, n)
	for i := range rv {
		rv[i] = int64(binary.BigEndian.Uint64(rest[i*8 : i*8+8]))
	}
	return rv, nil
}

// parseSTSS returns the 0-based indices of sync samples. The wire
// format stores 1-based sample numbers; this converts them at parse
// time so every other part of this package can work in 0-based indices
// without repeating the translation.
func parseSTSS(body []byte) ([]int64, error) {
	_, rest, err := fullBoxBody(body)
	if err != nil {
		return nil, err
	}
	if err := need(rest, 4, "stss header"); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(rest[0:4])
	rest = rest[4:]
	if err := need(rest, int(n)*4, "stss entries"); err != nil {
		return nil, err
	}
	rv := make([]int64, n)
	for i := range rv {
		rv[i] = int64(binary.BigEndian.Uint32(rest[i*4:i*4+4])) - 1
	}
	return rv, nil
}

// Sample is one demuxed elementary-stream sample's placement and
// timing, prior to any cross-track timescale harmonisation.
type Sample struct {
	DTS       int64 // decode timestamp, in the track's own timescale ticks
	Duration  int64 // ticks until the next sample's DTS
	CTSOffset int64 // composition-time offset, in the same ticks; 0 if the track has no ctts
	Offset    int64 // absolute file offset of the sample's data
	Size      int64
	Sync      bool
}

// walkSampleTable joins stts/ctts/stsc/stsz/stco-or-co64/stss into an
// ordered sample sequence, following the chunk/run bookkeeping stsc
// tables use to avoid repeating every chunk's offset per sample.
func walkSampleTable(stts, ctts []runEntry, chunks []chunkRun, offsets []int64, sizes SampleSizes, sampleCount int, sync []int64) ([]Sample, error) {
	total := sampleCount
	if sizes.Table != nil {
		total = len(sizes.Table)
	}

	samples := make([]Sample, 0, total)

	var chunkIdx int    // index into offsets/chunks-by-count
	var chunkRunIdx int // index into chunks
	var chunkRunUsed int64
	var chunkLimit *int64 // remaining chunks in the current run, nil = unbounded
	var haveRun bool      // false until the first run has been fetched
	var sampleInChunk, samplesPerChunk int64
	var curOffset int64

	var sttsIdx int
	var sttsRemaining int64
	var curDuration int64

	var cttsIdx int
	var cttsRemaining int64
	var curCTS int64

	syncSet := make(map[int64]bool, len(sync))
	for _, s := range sync {
		syncSet[s] = true
	}

	advanceChunk := func() error {
		// A run with chunkLimit == nil is the final, open-ended run: once
		// fetched it stays active for every remaining chunk, so the only
		// reason to fetch another run is a bounded run running out of
		// chunks (or no run fetched yet at all).
		for !haveRun || (chunkLimit != nil && chunkRunUsed >= *chunkLimit) {
			if chunkRunIdx >= len(chunks) {
				return fmt.Errorf("mp4: ran out of sample-to-chunk runs before the sample table was exhausted: %w", ErrContainerParse)
			}
			run := chunks[chunkRunIdx]
			chunkRunIdx++
			chunkRunUsed = 0
			chunkLimit = run.Count
			samplesPerChunk = run.SamplesPerChunk
			haveRun = true
		}
		if chunkIdx >= len(offsets) {
			return fmt.Errorf("mp4: chunk index %d has no stco/co64 entry: %w", chunkIdx, ErrContainerParse)
		}
		curOffset = offsets[chunkIdx]
		chunkIdx++
		chunkRunUsed++
		sampleInChunk = 0
		return nil
	}

	for s := 0; s < total; s++ {
		if sampleInChunk >= samplesPerChunk {
			if err := advanceChunk(); err != nil {
				return nil, err
			}
		}

		for sttsRemaining == 0 {
			if sttsIdx >= len(stts) {
				return nil, fmt.Errorf("mp4: stts exhausted before the sample table: %w", ErrContainerParse)
			}
			curDuration = stts[sttsIdx].Value
			sttsRemaining = stts[sttsIdx].Count
			sttsIdx++
		}
		if ctts != nil {
			for cttsRemaining == 0 {
				if cttsIdx >= len(ctts) {
					return nil, fmt.Errorf("mp4: ctts exhausted before the sample table: %w", ErrContainerParse)
				}
				curCTS = ctts[cttsIdx].Value
				cttsRemaining = ctts[cttsIdx].Count
				cttsIdx++
			}
		}

		dts := int64(0)
		if len(samples) > 0 {
			prev := samples[len(samples)-1]
			dts = prev.DTS + prev.Duration
		}

		isSync := sync == nil || syncSet[int64(s)]

		samples = append(samples, Sample{
			DTS:       dts,
			Duration:  curDuration,
			CTSOffset: curCTS,
			Offset:    curOffset,
			Size:      sizes.size(s),
			Sync:      isSync,
		})

		curOffset += sizes.size(s)
		sampleInChunk++
		sttsRemaining--
		if ctts != nil {
			cttsRemaining--
		}
	}

	return samples, nil
}

// ModalDuration returns the most common per-sample Duration among
// samples, for use as a track's default frame duration: frames whose
// duration equals the mode can omit an explicit per-block duration.
func ModalDuration(samples []Sample) int64 {
	counts := make(map[int64]int)
	var best int64
	var bestCount int
	for _, s := range samples {
		counts[s.Duration]++
		if counts[s.Duration] > bestCount {
			best, bestCount = s.Duration, counts[s.Duration]
		}
	}
	return best
}
