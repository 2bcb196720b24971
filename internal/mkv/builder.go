package mkv

import (
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sh01/yavdlt/internal/dataref"
	"github.com/sh01/yavdlt/internal/ebml"
)

// randomTrackUID derives a 64-bit TrackUID from a random UUID's leading
// bytes; collisions within one file are astronomically unlikely and the
// element only needs process-wide uniqueness.
func randomTrackUID() uint64 {
	id := uuid.New()
	return binary.BigEndian.Uint64(id[:8])
}

// clusterSpanDefault is the default cluster tick window (2^16), chosen
// so a frame's relative timecode always fits a signed 16-bit Block
// header field: the legal range [-2^15, L-1-2^15] spans exactly
// [-32768, 32767] when L = 2^16.
const clusterSpanDefault = int64(1) << 16

// clusterOffset is the half-window a cluster's base timecode sits ahead
// of its earliest legal frame (2^15).
const clusterOffset = int64(1) << 15

// Builder assembles tracks of lazily-produced frames into a Matroska
// Segment. Create with NewBuilder, add every track with AddTrack, then
// call Write once all tracks are attached.
type Builder struct {
	WriteApp string
	Title    string
	TCS      uint64
	DateUTC  time.Time
	Compat   CompatFlags

	// MaxLaceFrames bounds how many frames are folded into one laced
	// block; zero falls back to maxLaceFrames.
	MaxLaceFrames uint64

	// CueCadence throttles Cues to every Nth cue-eligible keyframe per
	// track instead of every one; zero or one means every keyframe.
	CueCadence uint64

	tracks []*trackState
}

// NewBuilder creates a Builder with the given writing-application
// string, timecode scale (nanoseconds per tick — 1e6 gives
// millisecond ticks) and compatibility flags.
func NewBuilder(writeApp string, tcs uint64, compat CompatFlags) *Builder {
	return &Builder{
		WriteApp: writeApp,
		TCS:      tcs,
		DateUTC:  time.Now(),
		Compat:   compat,
	}
}

func (b *Builder) maxLaceFrames() int {
	if b.MaxLaceFrames == 0 {
		return maxLaceFrames
	}
	return int(b.MaxLaceFrames)
}

func (b *Builder) cueCadence() uint64 {
	if b.CueCadence == 0 {
		return 1
	}
	return b.CueCadence
}

// AddTrack registers a track and its lazy frame source, returning an
// opaque index for reference; actual TrackNumber assignment happens at
// Write time, after tracks are sorted video-then-audio-then-subtitle.
func (b *Builder) AddTrack(spec TrackSpec, frames FrameSource) int {
	idx := len(b.tracks)
	b.tracks = append(b.tracks, &trackState{spec: spec, source: frames, uid: randomTrackUID()})
	return idx
}

// typePriority orders tracks video < audio < subtitle < other for the
// stable pre-emit sort described in the builder's track-sorting rule.
func typePriority(t uint64) int {
	switch t {
	case ebml.TrackTypeVideo:
		return 0
	case ebml.TrackTypeAudio:
		return 1
	case ebml.TrackTypeSubtitle:
		return 2
	default:
		return 3
	}
}

// sortAndNumberTracks stably reorders tracks by type priority and
// assigns final 1-based TrackNumbers, returning the order used.
func (b *Builder) sortAndNumberTracks() []*trackState {
	ordered := make([]*trackState, len(b.tracks))
	copy(ordered, b.tracks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return typePriority(ordered[i].spec.Type) < typePriority(ordered[j].spec.Type)
	})
	for i, ts := range ordered {
		ts.num = uint64(i + 1)
	}
	return ordered
}

func buildTrackEntry(ts *trackState) *ebml.Element {
	te := ebml.NewMaster(ebml.IDTrackEntry)
	te.Append(ebml.NewUint(ebml.IDTrackNum, ts.num))
	te.Append(ebml.NewUint(ebml.IDTrackUID, ts.uid))
	te.Append(ebml.NewUint(ebml.IDTrackType, ts.spec.Type))

	codecID := ts.spec.CodecID
	priv := ts.spec.CodecPrivate
	if ts.spec.MSCompat != nil && ts.spec.MSCompat.Enabled {
		codecID = "V_MS/VFW/FOURCC"
		priv = wrapBITMAPINFOHEADER(ts.spec.MSCompat.FourCC, ts.spec.Video, priv)
	}
	te.Append(ebml.NewASCIIString(ebml.IDCodecID, codecID))
	if len(priv) > 0 {
		te.Append(ebml.NewBinary(ebml.IDCodecPriv, dataref.Bytes(priv)))
	}
	if !ts.spec.AllowLacing {
		te.Append(ebml.NewUint(ebml.IDFlagLacing, 0))
	}
	if ts.spec.DefaultDuration > 0 {
		te.Append(ebml.NewUint(ebml.IDDefaultDuration, ts.spec.DefaultDuration))
	}

	switch ts.spec.Type {
	case ebml.TrackTypeVideo:
		v := ebml.NewMaster(ebml.IDVideo)
		if ts.spec.Video != nil {
			v.Append(ebml.NewUint(ebml.IDPixelWidth, ts.spec.Video.PixelWidth))
			v.Append(ebml.NewUint(ebml.IDPixelHeight, ts.spec.Video.PixelHeight))
		}
		te.Append(v)
	case ebml.TrackTypeAudio:
		a := ebml.NewMaster(ebml.IDAudio)
		if ts.spec.Audio != nil {
			a.Append(ebml.NewFloat(ebml.IDSamplingFrequency, ts.spec.Audio.SamplingFrequency, 8))
			a.Append(ebml.NewUint(ebml.IDChannels, ts.spec.Audio.Channels))
		}
		te.Append(a)
	}
	return te
}

func (ts *trackState) lacingAllowed(compat CompatFlags) bool {
	if !ts.spec.AllowLacing {
		return false
	}
	if compat.LacingAudioOnly && ts.spec.Type != ebml.TrackTypeAudio {
		return false
	}
	return true
}

func frameIsSimple(f Frame) bool {
	return f.Keyframe || (f.Reference == 0 && f.Duration == 0)
}

// cluster is the in-progress working state for one Cluster element: its
// base timecode, element tree and running block count (needed for Cue
// block-number indices).
type cluster struct {
	base   int64
	el     *ebml.Element
	blocks int
}

func newClusterAt(base int64) *cluster {
	el := ebml.NewMaster(ebml.IDCluster)
	el.Append(ebml.NewUint(ebml.IDTimestamp, uint64(base)))
	return &cluster{base: base, el: el}
}

// assemble drains every track's frame source, merging by the
// priority-queue rule (smallest absolute timecode, ties by smaller
// track number), folding compatible consecutive same-track frames into
// laced blocks, and allocating clusters as frames cross cluster
// boundaries. Returns the finished clusters and the cue-index entries
// for cue-eligible tracks' keyframes.
func (b *Builder) assemble(ordered []*trackState) ([]*cluster, []CuePoint, error) {
	for _, ts := range ordered {
		if err := peekTrack(ts); err != nil {
			return nil, nil, err
		}
	}

	span := clusterSpanDefault
	if b.Compat.ClusterDurationCap {
		span = tcsClusterCap(b.TCS)
	}

	var clusters []*cluster
	var cues []CuePoint
	var cur *cluster

	for {
		next := pickNextTrack(ordered)
		if next == nil {
			break
		}

		if cur == nil || next.peeked.Timecode > cur.base-clusterOffset+span-1 {
			if cur != nil {
				clusters = append(clusters, cur)
			}
			base := next.peeked.Timecode + clusterOffset
			if len(clusters) == 0 && b.Compat.AlignFirstClusterBase {
				base = next.peeked.Timecode
			}
			cur = newClusterAt(base)
		}

		run, err := drainRun(next, cur, span, b.Compat, b.maxLaceFrames())
		if err != nil {
			return nil, nil, err
		}

		blockEl, err := emitRun(next, cur, run)
		if err != nil {
			return nil, nil, err
		}
		cur.el.Append(blockEl)
		cur.blocks++

		if next.spec.CueEligible && run[0].Keyframe {
			next.cueEligibleSeen++
			if (next.cueEligibleSeen-1)%b.cueCadence() == 0 {
				cues = append(cues, CuePoint{
					Timecode:    run[0].Timecode,
					TrackNum:    next.num,
					BlockNumber: uint64(cur.blocks),
					clusterIdx:  len(clusters), // cur's future index: it hasn't been appended yet
				})
			}
		}
	}
	if cur != nil {
		clusters = append(clusters, cur)
	}
	return clusters, cues, nil
}

// tcsClusterCap computes a cluster tick span capped to approximately 5
// real seconds at the builder's timecode scale, never exceeding the
// default 2^16-tick window (which would break the int16 relative
// timecode invariant).
func tcsClusterCap(tcs uint64) int64 {
	if tcs == 0 {
		return clusterSpanDefault
	}
	capTicks := int64(5e9 / float64(tcs))
	if capTicks <= 0 || capTicks > clusterSpanDefault {
		return clusterSpanDefault
	}
	return capTicks
}

// peekTrack ensures ts.peeked holds the track's next frame, pulling one
// from its source if nothing is cached yet and the source isn't
// already known to be exhausted.
func peekTrack(ts *trackState) error {
	if ts.peeked != nil || ts.exhausted {
		return nil
	}
	f, ok, err := ts.source()
	if err != nil {
		return fmt.Errorf("mkv: track %d frame source: %w", ts.num, err)
	}
	if !ok {
		ts.exhausted = true
		return nil
	}
	ts.peeked = &f
	return nil
}

func pickNextTrack(ordered []*trackState) *trackState {
	var best *trackState
	for _, ts := range ordered {
		if ts.peeked == nil {
			continue
		}
		if best == nil || ts.peeked.Timecode < best.peeked.Timecode ||
			(ts.peeked.Timecode == best.peeked.Timecode && ts.num < best.num) {
			best = ts
		}
	}
	return best
}

// drainRun consumes ts's current peeked frame plus as many immediately
// following frames from the same track as share its duration and
// keyframe status, fit within the current cluster's timecode window,
// and qualify for SimpleBlock framing (lacing is restricted to that
// case to avoid needing more than one ReferenceBlock/BlockDuration per
// laced group). Leaves ts peeked at the first frame that didn't join.
func drainRun(ts *trackState, cur *cluster, span int64, compat CompatFlags, maxFrames int) ([]Frame, error) {
	first := *ts.peeked
	run := []Frame{first}
	ts.peeked = nil

	allowLace := ts.lacingAllowed(compat) && frameIsSimple(first)
	for allowLace && len(run) < maxFrames {
		f, ok, err := ts.source()
		if err != nil {
			return nil, fmt.Errorf("mkv: track %d frame source: %w", ts.num, err)
		}
		if !ok {
			ts.exhausted = true
			break
		}
		fits := f.Timecode <= cur.base-clusterOffset+span-1
		compatible := f.Duration == run[0].Duration && f.Keyframe == run[0].Keyframe && frameIsSimple(f)
		if !fits || !compatible {
			ts.peeked = &f
			break
		}
		run = append(run, f)
	}

	if err := peekTrack(ts); err != nil {
		return nil, err
	}
	return run, nil
}

func emitRun(ts *trackState, cur *cluster, run []Frame) (*ebml.Element, error) {
	rel := int16(run[0].Timecode - cur.base)

	if len(run) == 1 {
		f := run[0]
		if frameIsSimple(f) {
			return newSimpleBlock(ts.num, rel, f.Keyframe, laceNone, nil, []dataref.Ref{f.Data})
		}
		return newBlockGroup(ts.num, rel, f.Reference, f.Duration, laceNone, nil, []dataref.Ref{f.Data})
	}

	sizes := make([]int, len(run))
	refs := make([]dataref.Ref, len(run))
	for i, f := range run {
		sizes[i] = int(f.Data.Size())
		refs[i] = f.Data
	}
	kind, header, err := chooseLacing(sizes)
	if err != nil {
		return nil, err
	}
	return newSimpleBlock(ts.num, rel, run[0].Keyframe, kind, header, refs)
}

func wrapBITMAPINFOHEADER(fourCC [4]byte, v *VideoParams, priv []byte) []byte {
	var w, h uint32
	if v != nil {
		w, h = uint32(v.PixelWidth), uint32(v.PixelHeight)
	}
	buf := make([]byte, 40+len(priv))
	putLE32(buf[0:], 40+uint32(len(priv)))
	putLE32(buf[4:], w)
	putLE32(buf[8:], h)
	putLE16(buf[12:], 1)
	putLE16(buf[14:], 24)
	copy(buf[16:20], fourCC[:])
	putLE32(buf[20:], uint32(len(priv)))
	copy(buf[40:], priv)
	return buf
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}
