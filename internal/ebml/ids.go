package ebml

// Element class identifiers, carried over from the generic EBML header
// namespace and the Matroska namespace. Values match the public EBML/
// Matroska specifications; see the constant tables in
// _examples/luispater-matroska-go/ebml.go and the class registrations in
// _examples/original_source/mcio_matroska.py, which agree on every value
// here.
const (
	// EBML header elements (generic EBML namespace).
	IDEBMLHeader             uint32 = 0x1A45DFA3
	IDEBMLVersion            uint32 = 0x4286
	IDEBMLReadVersion        uint32 = 0x42F7
	IDEBMLMaxIDLength        uint32 = 0x42F2
	IDEBMLMaxSizeLength      uint32 = 0x42F3
	IDEBMLDocType            uint32 = 0x4282
	IDEBMLDocTypeVersion     uint32 = 0x4287
	IDEBMLDocTypeReadVersion uint32 = 0x4285
	IDVoid                   uint32 = 0xEC
	IDCRC32                  uint32 = 0xBF

	// Segment.
	IDSegment uint32 = 0x18538067

	// Meta Seek Information.
	IDSeekHead uint32 = 0x114D9B74
	IDSeek     uint32 = 0x4DBB
	IDSeekID   uint32 = 0x53AB
	IDSeekPos  uint32 = 0x53AC

	// Segment Information.
	IDSegmentInfo    uint32 = 0x1549A966
	IDSegmentUID     uint32 = 0x73A4
	IDTimestampScale uint32 = 0x2AD7B1
	IDDuration       uint32 = 0x4489
	IDDateUTC        uint32 = 0x4461
	IDTitle          uint32 = 0x7BA9
	IDMuxingApp      uint32 = 0x4D80
	IDWritingApp     uint32 = 0x5741

	// Tracks.
	IDTracks          uint32 = 0x1654AE6B
	IDTrackEntry      uint32 = 0xAE
	IDTrackNum        uint32 = 0xD7
	IDTrackUID        uint32 = 0x73C5
	IDTrackType       uint32 = 0x83
	IDFlagDefault     uint32 = 0x88
	IDFlagLacing      uint32 = 0x9C
	IDDefaultDuration uint32 = 0x23E383
	IDTrackName       uint32 = 0x536E
	IDLanguage        uint32 = 0x22B59C
	IDCodecID         uint32 = 0x86
	IDCodecPriv       uint32 = 0x63A2
	IDCodecName       uint32 = 0x258688
	IDVideo           uint32 = 0xE0
	IDAudio           uint32 = 0xE1

	// Video settings.
	IDFlagInterlaced uint32 = 0x9A
	IDPixelWidth     uint32 = 0xB0
	IDPixelHeight    uint32 = 0xBA
	IDDisplayWidth   uint32 = 0x54B0
	IDDisplayHeight  uint32 = 0x54BA

	// Audio settings.
	IDSamplingFrequency       uint32 = 0xB5
	IDOutputSamplingFrequency uint32 = 0x78B5
	IDChannels                uint32 = 0x9F
	IDBitDepth                uint32 = 0x6264

	// Cluster.
	IDCluster        uint32 = 0x1F43B675
	IDTimestamp      uint32 = 0xE7
	IDSimpleBlock    uint32 = 0xA3
	IDBlockGroup     uint32 = 0xA0
	IDBlock          uint32 = 0xA1
	IDBlockDuration  uint32 = 0x9B
	IDReferenceBlock uint32 = 0xFB

	// Cues.
	IDCues               uint32 = 0x1C53BB6B
	IDCuePoint           uint32 = 0xBB
	IDCueTime            uint32 = 0xB3
	IDCueTrackPositions  uint32 = 0xB7
	IDCueTrack           uint32 = 0xF7
	IDCueClusterPosition uint32 = 0xF1
	IDCueBlockNumber     uint32 = 0x5378

	// Chapters/Tags/Attachments: recognised only so a pass-through
	// round-trip of a foreign file preserves them; the builder never
	// emits these.
	IDChapters    uint32 = 0x1043A770
	IDTags        uint32 = 0x1254C367
	IDAttachments uint32 = 0x1941A469
)

// Matroska TrackType values (TrackEntry's TrackType element).
const (
	TrackTypeVideo    uint64 = 1
	TrackTypeAudio    uint64 = 2
	TrackTypeSubtitle uint64 = 17
)
