// Package codec defines the opaque codec identifiers used to label tracks
// across demuxers and the muxer. Values are assigned in the order carried
// over from the original mcio_codecs module; they are not wire-stable and
// must never be hardcoded by callers outside this package.
package codec

// ID names an elementary-stream codec, independent of any container's own
// encoding of the concept (FLV codec nibble, MP4 sample-entry fourCC, or
// Matroska CodecID string all map onto one ID).
type ID int

const (
	_ ID = iota

	// Video codecs.
	MPEG1
	MPEG2
	MPEG4_2 // alias: DIVX
	H264    // aliases: AVC, MPEG4_10
	SNOW
	THEORA
	FLASHSV // flash screen video
	FLV1    // H.263 variant used by Flash Video
	VP6
	VP6A
	VP8

	// Audio codecs.
	AAC
	AC3
	DTS
	FLAC
	MP1 // alias: MPEG1_1
	MP2 // alias: MPEG1_2
	MP3 // alias: MPEG1_3
	SPEEX
	VORBIS

	// Pseudo codecs: Matroska MS-compatibility wrap markers.
	MKV_MSC_VFW
	MKV_MSC_ACM

	maxNum
)

const (
	DIVX     = MPEG4_2
	AVC      = H264
	MPEG4_10 = H264
	MPEG1_1  = MP1
	MPEG1_2  = MP2
	MPEG1_3  = MP3
)

var names = [maxNum]string{
	MPEG1:       "MPEG1",
	MPEG2:       "MPEG2",
	MPEG4_2:     "MPEG4_2",
	H264:        "H264",
	SNOW:        "SNOW",
	THEORA:      "THEORA",
	FLASHSV:     "FLASHSV",
	FLV1:        "FLV1",
	VP6:         "VP6",
	VP6A:        "VP6A",
	VP8:         "VP8",
	AAC:         "AAC",
	AC3:         "AC3",
	DTS:         "DTS",
	FLAC:        "FLAC",
	MP1:         "MP1",
	MP2:         "MP2",
	MP3:         "MP3",
	SPEEX:       "SPEEX",
	VORBIS:      "VORBIS",
	MKV_MSC_VFW: "MKV_MSC_VFW",
	MKV_MSC_ACM: "MKV_MSC_ACM",
}

// Name returns the codec's canonical name, or "UNKNOWN" if id is out of range.
func (id ID) Name() string {
	if id <= 0 || int(id) >= len(names) {
		return "UNKNOWN"
	}
	if n := names[id]; n != "" {
		return n
	}
	return "UNKNOWN"
}

func (id ID) String() string { return id.Name() }

// Kind classifies a codec as video, audio, or a pseudo-codec used only to
// mark MS-compatibility wrapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindVideo
	KindAudio
	KindPseudo
)

// Kind reports the broad class a codec ID belongs to.
func (id ID) Kind() Kind {
	switch id {
	case MPEG1, MPEG2, MPEG4_2, H264, SNOW, THEORA, FLASHSV, FLV1, VP6, VP6A, VP8:
		return KindVideo
	case AAC, AC3, DTS, FLAC, MP1, MP2, MP3, SPEEX, VORBIS:
		return KindAudio
	case MKV_MSC_VFW, MKV_MSC_ACM:
		return KindPseudo
	default:
		return KindUnknown
	}
}
