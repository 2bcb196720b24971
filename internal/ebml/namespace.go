package ebml

// ClassInfo is the per-element-class constant table entry: it carries
// everything the engine needs to construct and interpret an element of a
// given class ID without a virtual dispatch — just a map lookup.
type ClassInfo struct {
	ID         uint32
	Name       string
	Kind       Kind
	FloatWidth int // only meaningful when Kind == KindFloat; default 8
}

// Namespace is an id → ClassInfo registry with an optional Base namespace.
// Lookup cascades: Matroska → EBML → Unknown fallback, by chaining
// Namespaces with Base pointers — this is what keeps the writer lossless
// for elements neither namespace recognises.
type Namespace struct {
	Base    *Namespace
	classes map[uint32]ClassInfo
}

// NewNamespace creates an empty namespace, optionally cascading to base
// when a lookup misses locally.
func NewNamespace(base *Namespace) *Namespace {
	return &Namespace{Base: base, classes: make(map[uint32]ClassInfo)}
}

// Register adds or overwrites a class entry in this namespace (not its base).
func (ns *Namespace) Register(ci ClassInfo) {
	ns.classes[ci.ID] = ci
}

// Lookup finds the ClassInfo for id, cascading to Base namespaces on a
// local miss. The second return is false only when no namespace in the
// chain recognises id, in which case the caller constructs an Unknown
// element.
func (ns *Namespace) Lookup(id uint32) (ClassInfo, bool) {
	for n := ns; n != nil; n = n.Base {
		if ci, ok := n.classes[id]; ok {
			return ci, true
		}
	}
	return ClassInfo{}, false
}

// EBML is the generic EBML header namespace: the handful of elements
// defined by the EBML spec itself, independent of any DocType.
var EBML = buildEBMLNamespace()

// Matroska is the Matroska DocType namespace, cascading to EBML for the
// few generic elements (Void, CRC-32) that can appear inside a Matroska
// document as well as any other EBML document.
var Matroska = buildMatroskaNamespace()

func buildEBMLNamespace() *Namespace {
	ns := NewNamespace(nil)
	reg := func(id uint32, name string, kind Kind) { ns.Register(ClassInfo{ID: id, Name: name, Kind: kind}) }

	reg(IDEBMLHeader, "EBMLHeader", KindMaster)
	reg(IDEBMLVersion, "EBMLVersion", KindUint)
	reg(IDEBMLReadVersion, "EBMLReadVersion", KindUint)
	reg(IDEBMLMaxIDLength, "EBMLMaxIDLength", KindUint)
	reg(IDEBMLMaxSizeLength, "EBMLMaxSizeLength", KindUint)
	reg(IDEBMLDocType, "EBMLDocType", KindASCIIString)
	reg(IDEBMLDocTypeVersion, "EBMLDocTypeVersion", KindUint)
	reg(IDEBMLDocTypeReadVersion, "EBMLDocTypeReadVersion", KindUint)
	reg(IDVoid, "Void", KindBinary)
	reg(IDCRC32, "CRC32", KindBinary)

	return ns
}

func buildMatroskaNamespace() *Namespace {
	ns := NewNamespace(EBML)
	reg := func(id uint32, name string, kind Kind) { ns.Register(ClassInfo{ID: id, Name: name, Kind: kind}) }

	reg(IDSegment, "Segment", KindMaster)
	reg(IDSeekHead, "SeekHead", KindMaster)
	reg(IDSeek, "Seek", KindMaster)
	reg(IDSeekID, "SeekID", KindBinary)
	reg(IDSeekPos, "SeekPosition", KindUint)

	reg(IDSegmentInfo, "SegmentInfo", KindMaster)
	reg(IDSegmentUID, "SegmentUID", KindBinary)
	reg(IDTimestampScale, "TimestampScale", KindUint)
	reg(IDDuration, "Duration", KindFloat)
	reg(IDDateUTC, "DateUTC", KindDate)
	reg(IDTitle, "Title", KindUTF8String)
	reg(IDMuxingApp, "MuxingApp", KindUTF8String)
	reg(IDWritingApp, "WritingApp", KindUTF8String)

	reg(IDTracks, "Tracks", KindMaster)
	reg(IDTrackEntry, "TrackEntry", KindMaster)
	reg(IDTrackNum, "TrackNumber", KindUint)
	reg(IDTrackUID, "TrackUID", KindUint)
	reg(IDTrackType, "TrackType", KindUint)
	reg(IDFlagDefault, "FlagDefault", KindUint)
	reg(IDFlagLacing, "FlagLacing", KindUint)
	reg(IDDefaultDuration, "DefaultDuration", KindUint)
	reg(IDTrackName, "Name", KindUTF8String)
	reg(IDLanguage, "Language", KindASCIIString)
	reg(IDCodecID, "CodecID", KindASCIIString)
	reg(IDCodecPriv, "CodecPrivate", KindBinary)
	reg(IDCodecName, "CodecName", KindUTF8String)
	reg(IDVideo, "Video", KindMaster)
	reg(IDAudio, "Audio", KindMaster)

	reg(IDFlagInterlaced, "FlagInterlaced", KindUint)
	reg(IDPixelWidth, "PixelWidth", KindUint)
	reg(IDPixelHeight, "PixelHeight", KindUint)
	reg(IDDisplayWidth, "DisplayWidth", KindUint)
	reg(IDDisplayHeight, "DisplayHeight", KindUint)

	reg(IDSamplingFrequency, "SamplingFrequency", KindFloat)
	reg(IDOutputSamplingFrequency, "OutputSamplingFrequency", KindFloat)
	reg(IDChannels, "Channels", KindUint)
	reg(IDBitDepth, "BitDepth", KindUint)

	reg(IDCluster, "Cluster", KindMaster)
	reg(IDTimestamp, "Timestamp", KindUint)
	reg(IDSimpleBlock, "SimpleBlock", KindBinary)
	reg(IDBlockGroup, "BlockGroup", KindMaster)
	reg(IDBlock, "Block", KindBinary)
	reg(IDBlockDuration, "BlockDuration", KindUint)
	reg(IDReferenceBlock, "ReferenceBlock", KindSint)

	reg(IDCues, "Cues", KindMaster)
	reg(IDCuePoint, "CuePoint", KindMaster)
	reg(IDCueTime, "CueTime", KindUint)
	reg(IDCueTrackPositions, "CueTrackPositions", KindMaster)
	reg(IDCueTrack, "CueTrack", KindUint)
	reg(IDCueClusterPosition, "CueClusterPosition", KindUint)
	reg(IDCueBlockNumber, "CueBlockNumber", KindUint)

	reg(IDChapters, "Chapters", KindMaster)
	reg(IDTags, "Tags", KindMaster)
	reg(IDAttachments, "Attachments", KindMaster)

	return ns
}
