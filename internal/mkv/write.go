package mkv

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sh01/yavdlt/internal/dataref"
	"github.com/sh01/yavdlt/internal/ebml"
)

// cuePositionPlaceholder is an 8-byte-wide upper bound on any real
// cluster byte offset, forcing the placeholder rendering of Cues to
// reserve the maximum possible width for CueClusterPosition.
const cuePositionPlaceholder = ^uint64(0)

// voidMinReserve is the minimum slack, in bytes, reserved inside Cues
// beyond its placeholder-sized cue entries — enough for the leftover to
// always itself be a valid Void (id + 1-byte size VInt, zero body).
const voidMinReserve = 2

func buildEBMLHeader() *ebml.Element {
	hdr := ebml.NewMaster(ebml.IDEBMLHeader)
	hdr.Append(ebml.NewUint(ebml.IDEBMLVersion, 1))
	hdr.Append(ebml.NewUint(ebml.IDEBMLReadVersion, 1))
	hdr.Append(ebml.NewUint(ebml.IDEBMLMaxIDLength, 4))
	hdr.Append(ebml.NewUint(ebml.IDEBMLMaxSizeLength, 8))
	hdr.Append(ebml.NewASCIIString(ebml.IDEBMLDocType, "matroska"))
	hdr.Append(ebml.NewUint(ebml.IDEBMLDocTypeVersion, 2))
	hdr.Append(ebml.NewUint(ebml.IDEBMLDocTypeReadVersion, 2))
	return hdr
}

func (b *Builder) buildSegmentInfo() *ebml.Element {
	info := ebml.NewMaster(ebml.IDSegmentInfo)
	id := uuid.New()
	info.Append(ebml.NewBinary(ebml.IDSegmentUID, dataref.Bytes(id[:])))
	info.Append(ebml.NewUint(ebml.IDTimestampScale, b.TCS))
	info.Append(ebml.NewDate(ebml.IDDateUTC, float64(b.DateUTC.Unix())))
	if b.Title != "" {
		info.Append(ebml.NewUTF8String(ebml.IDTitle, b.Title))
	}
	info.Append(ebml.NewUTF8String(ebml.IDMuxingApp, "yavdlt.internal/mkv"))
	info.Append(ebml.NewUTF8String(ebml.IDWritingApp, b.WriteApp))
	return info
}

// buildCues renders the cue index. When placeholder is true, every
// CueClusterPosition uses the maximum 8-byte-wide value as an upper
// bound on the real offset computed after the clusters are written, and
// a voidMinReserve-byte Void is appended — this guarantees the second,
// real rendering of Cues never exceeds cuesEl.Size() from the first
// pass, so the gap can be closed with an exact-size Void (§4.3).
func buildCues(cues []CuePoint, placeholder bool, sizePad int) *ebml.Element {
	cuesEl := ebml.NewMaster(ebml.IDCues)
	cuesEl.SizePad = sizePad
	for _, c := range cues {
		pos := uint64(c.ClusterPosition)
		if placeholder {
			pos = cuePositionPlaceholder
		}
		cp := ebml.NewMaster(ebml.IDCuePoint)
		cp.Append(ebml.NewUint(ebml.IDCueTime, uint64(c.Timecode)))
		ctp := ebml.NewMaster(ebml.IDCueTrackPositions)
		ctp.Append(ebml.NewUint(ebml.IDCueTrack, c.TrackNum))
		ctp.Append(ebml.NewUint(ebml.IDCueClusterPosition, pos))
		ctp.Append(ebml.NewUint(ebml.IDCueBlockNumber, c.BlockNumber))
		cp.Append(ctp)
		cuesEl.Append(cp)
	}
	if placeholder {
		void, _ := ebml.NewVoidExact(voidMinReserve)
		cuesEl.Append(void)
	}
	return cuesEl
}

// Write assembles and serialises the full EBML document (header +
// Segment) to w, which must support Seek: Cues is written first with
// placeholder cluster offsets so its byte length is fixed, the clusters
// follow and their Segment-relative start offsets are recorded, then
// Write seeks back and overwrites Cues in place with the resolved
// offsets plus an exact-size Void absorbing whatever shrank.
func (b *Builder) Write(w io.WriteSeeker) error {
	ordered := b.sortAndNumberTracks()
	clusters, cuePlans, err := b.assemble(ordered)
	if err != nil {
		return err
	}

	tracksEl := ebml.NewMaster(ebml.IDTracks)
	for _, ts := range ordered {
		tracksEl.Append(buildTrackEntry(ts))
	}
	infoEl := b.buildSegmentInfo()

	placeholderCues := buildCues(cuePlans, true, 0)
	cuesSize := placeholderCues.Size()
	sizeLenForCues := cuesSizePadFor(placeholderCues)

	segChildrenSize := infoEl.Size() + tracksEl.Size() + cuesSize
	for _, c := range clusters {
		segChildrenSize += c.el.Size()
	}

	hdr := buildEBMLHeader()
	if _, err := hdr.WriteTo(w); err != nil {
		return fmt.Errorf("mkv: write EBML header: %w", err)
	}

	segIDBuf := ebmlEncodeSegmentID()
	segSizeBuf, err := ebml.EncodeVInt(uint64(segChildrenSize), 0)
	if err != nil {
		return fmt.Errorf("mkv: encode segment size: %w", err)
	}
	if _, err := w.Write(segIDBuf); err != nil {
		return fmt.Errorf("mkv: write segment id: %w", err)
	}
	if _, err := w.Write(segSizeBuf); err != nil {
		return fmt.Errorf("mkv: write segment size: %w", err)
	}

	if _, err := infoEl.WriteTo(w); err != nil {
		return fmt.Errorf("mkv: write segment info: %w", err)
	}
	if _, err := tracksEl.WriteTo(w); err != nil {
		return fmt.Errorf("mkv: write tracks: %w", err)
	}

	cuesOffset, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("mkv: position query before cues: %w", err)
	}
	if _, err := placeholderCues.WriteTo(w); err != nil {
		return fmt.Errorf("mkv: write placeholder cues: %w", err)
	}

	segmentContentStart := cuesOffset - infoEl.Size() - tracksEl.Size()
	clusterOffsets := make([]int64, len(clusters))
	for i, c := range clusters {
		pos, err := w.Seek(0, io.SeekCurrent)
		if err != nil {
			return fmt.Errorf("mkv: position query before cluster %d: %w", i, err)
		}
		clusterOffsets[i] = pos - segmentContentStart
		if _, err := c.el.WriteTo(w); err != nil {
			return fmt.Errorf("mkv: write cluster %d: %w", i, err)
		}
	}

	finalCues := resolveCuePositions(cuePlans, clusterOffsets)
	realCues := buildCues(finalCues, false, sizeLenForCues)
	if realCues.Size() > cuesSize {
		return fmt.Errorf("mkv: output-invariant violated: resolved cues grew from %d to %d bytes", cuesSize, realCues.Size())
	}
	if gap := cuesSize - realCues.Size(); gap > 0 {
		void, err := ebml.NewVoidExact(gap)
		if err != nil {
			return fmt.Errorf("mkv: size cues gap void of %d bytes: %w", gap, err)
		}
		realCues.Append(void)
	}
	if realCues.Size() != cuesSize {
		return fmt.Errorf("mkv: output-invariant violated: patched cues size %d != reserved %d", realCues.Size(), cuesSize)
	}

	if _, err := w.Seek(cuesOffset, io.SeekStart); err != nil {
		return fmt.Errorf("mkv: seek back to cues offset: %w", err)
	}
	if _, err := realCues.WriteTo(w); err != nil {
		return fmt.Errorf("mkv: patch cues: %w", err)
	}
	return nil
}

// cuesSizePadFor fixes the Cues master's own size-VInt length across
// both passes, so shrinking cue-position widths in the real pass can
// never change where the clusters that follow begin.
func cuesSizePadFor(placeholder *ebml.Element) int {
	// Re-derive the minimum size-VInt length the placeholder actually
	// used, so the real rendering is pinned to at least that length.
	body := placeholder.Size() - int64(idByteLenOf(ebml.IDCues))
	for l := 1; l <= 8; l++ {
		limit := int64(1)<<uint(7*l) - 2
		if body-int64(l) <= limit {
			return l
		}
	}
	return 8
}

func idByteLenOf(id uint32) int {
	switch {
	case id <= 0xFF:
		return 1
	case id <= 0xFFFF:
		return 2
	case id <= 0xFFFFFF:
		return 3
	default:
		return 4
	}
}

func ebmlEncodeSegmentID() []byte {
	// Segment is a 4-byte class id (0x18538067); encodeID isn't exported
	// from package ebml, so the literal bytes are written directly.
	return []byte{0x18, 0x53, 0x80, 0x67}
}

// resolveCuePositions substitutes each cue's recorded cluster index
// with its Segment-relative byte offset now that every cluster has
// been written.
func resolveCuePositions(plans []CuePoint, offsets []int64) []CuePoint {
	out := make([]CuePoint, len(plans))
	for i, p := range plans {
		out[i] = p
		out[i].ClusterPosition = offsets[p.clusterIdx]
	}
	return out
}
