package pipeline

import (
	"errors"

	"github.com/sh01/yavdlt/internal/codec"
	"github.com/sh01/yavdlt/internal/mkv"
)

// ErrUnsupportedCodec marks an elementary stream whose codec.ID has no
// Matroska mapping in this package.
var ErrUnsupportedCodec = errors.New("pipeline: codec has no Matroska mapping")

// mkvCodec names the Matroska CodecID a given codec.ID maps to, and an
// optional MS-compatibility wrap for codecs with no native Matroska tag.
type mkvCodec struct {
	CodecID  string
	MSCompat *mkv.MSCompat // video-only: wraps codec-private data as BITMAPINFOHEADER
}

func fourCC(s string) [4]byte {
	var b [4]byte
	copy(b[:], s)
	return b
}

// videoCodecMKV maps elementary video codecs to Matroska CodecIDs.
// H264 is grounded on mcde_flv.py's VIDEO_CODEC_MKV_MAP and
// mcde_mp4.py's CODEC_MAP_MKV (both map only avc1/nibble 7 to
// "V_MPEG4/ISO/AVC" — neither source wires any other video codec to
// Matroska). The rest of this table supplements codec.ID's full
// registry (SPEC_FULL.md §9) with the codecs' well-known Matroska
// CodecID strings, or — for the legacy Flash codecs with no native
// Matroska tag — the MS-compatibility VfW wrap internal/mkv already
// implements (TrackSpec.MSCompat), so that table is exercised by a real
// caller instead of only by internal/mkv's own unit test.
var videoCodecMKV = map[codec.ID]mkvCodec{
	codec.H264:    {CodecID: "V_MPEG4/ISO/AVC"},
	codec.MPEG1:   {CodecID: "V_MPEG1"},
	codec.MPEG2:   {CodecID: "V_MPEG2"},
	codec.MPEG4_2: {CodecID: "V_MPEG4/ISO/ASP"},
	codec.THEORA:  {CodecID: "V_THEORA"},
	codec.VP8:     {CodecID: "V_VP8"},
	codec.FLASHSV: {CodecID: "V_MS/VFW/FOURCC", MSCompat: &mkv.MSCompat{Enabled: true, FourCC: fourCC("FSV1")}},
	codec.FLV1:    {CodecID: "V_MS/VFW/FOURCC", MSCompat: &mkv.MSCompat{Enabled: true, FourCC: fourCC("FLV1")}},
	codec.VP6:     {CodecID: "V_MS/VFW/FOURCC", MSCompat: &mkv.MSCompat{Enabled: true, FourCC: fourCC("VP6F")}},
	codec.VP6A:    {CodecID: "V_MS/VFW/FOURCC", MSCompat: &mkv.MSCompat{Enabled: true, FourCC: fourCC("VP6A")}},
	codec.SNOW:    {CodecID: "V_MS/VFW/FOURCC", MSCompat: &mkv.MSCompat{Enabled: true, FourCC: fourCC("SNOW")}},
}

// audioCodecMKV maps elementary audio codecs to Matroska CodecIDs. AAC
// and MP3 are grounded the same way (mcde_flv.py's AUDIO_CODEC_MKV_MAP,
// mcde_mp4.py's CODEC_MAP_MKV); the rest are the codecs' standard
// Matroska CodecIDs. Speex has no native Matroska CodecID and no
// ACM-wrap implementation in internal/mkv (only the video-side
// BITMAPINFOHEADER wrap exists), so it maps to the closest named
// identifier players actually recognise, carried through unwrapped.
var audioCodecMKV = map[codec.ID]mkvCodec{
	codec.AAC:    {CodecID: "A_AAC"},
	codec.MP3:    {CodecID: "A_MPEG/L3"},
	codec.MP1:    {CodecID: "A_MPEG/L1"},
	codec.MP2:    {CodecID: "A_MPEG/L2"},
	codec.AC3:    {CodecID: "A_AC3"},
	codec.DTS:    {CodecID: "A_DTS"},
	codec.FLAC:   {CodecID: "A_FLAC"},
	codec.VORBIS: {CodecID: "A_VORBIS"},
	codec.SPEEX:  {CodecID: "A_MS/ACM"},
}
