package flv

import (
	"fmt"
	"io"

	"github.com/sh01/yavdlt/internal/codec"
	"github.com/sh01/yavdlt/internal/mkv"
)

// VideoTrack is the demuxed video elementary stream, ready to hand to a
// Matroska builder as one track's frame source.
type VideoTrack struct {
	Codec        codec.ID
	Width        int // 0 if absent from onMetaData
	Height       int
	CodecPrivate []byte // AVC sequence header, nil if the codec carries none
	Frames       mkv.FrameSource
}

// AudioTrack is the demuxed audio elementary stream.
type AudioTrack struct {
	Codec        codec.ID
	SampleRate   int
	Channels     int
	CodecPrivate []byte // AAC sequence header, nil if the codec carries none
	Frames       mkv.FrameSource
}

// Demuxed is the result of reading one FLV file to completion: at most
// one video and one audio track, plus whatever onMetaData declared.
type Demuxed struct {
	Video    *VideoTrack
	Audio    *AudioTrack
	Metadata Object  // nil if no onMetaData script tag was present
	Duration float64 // seconds, 0 if Metadata carries none
}

// videoCodecID maps an FLV VideoTagHeader codec nibble to this module's
// codec registry. Only the nibbles the original pipeline ever wires
// downstream (and their closest siblings) have a mapping; everything
// else reports codec.ID(0), leaving rejection to the caller.
func videoCodecID(nibble int) codec.ID {
	switch nibble {
	case 2:
		return codec.FLV1 // Sorenson H.263
	case 3, 6:
		return codec.FLASHSV // Screen video, v1 and v2
	case 4:
		return codec.VP6
	case 5:
		return codec.VP6A
	case 7:
		return codec.H264
	default:
		return 0
	}
}

// audioCodecID maps an FLV AudioTagHeader codec nibble to this module's
// codec registry, same caveats as videoCodecID.
func audioCodecID(nibble int) codec.ID {
	switch nibble {
	case 2, 14:
		return codec.MP3
	case 10:
		return codec.AAC
	case 11:
		return codec.SPEEX
	default:
		return 0
	}
}

// Demux reads a complete FLV file from r and organizes its tags into a
// lazy per-track frame sequence plus any onMetaData metadata. Each
// track's Frames source reads materialized frame slices already
// collected during this pass: the FLV format interleaves audio and
// video tags in one stream, so a single linear read is unavoidable
// before either track's frames can be handed to a builder independently.
func Demux(r io.ReadSeeker) (*Demuxed, error) {
	rd := NewReader(r)
	if _, err := rd.ReadHeader(); err != nil {
		return nil, err
	}

	var videoFrames, audioFrames []mkv.Frame
	videoCodecSeen, audioCodecSeen := -1, -1
	var videoInit, audioInit []byte
	var sampleRate, channels int
	var metadata Object

	for {
		tag, err := rd.ReadTag()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch tag.Type {
		case TagVideo:
			if videoCodecSeen == -1 {
				videoCodecSeen = tag.VideoCodec
			} else if videoCodecSeen != tag.VideoCodec {
				return nil, fmt.Errorf("flv: video codec changed mid-stream (%d then %d): %w", videoCodecSeen, tag.VideoCodec, ErrContainerParse)
			}
			if isHeader, ok := tag.IsHeader(); ok && isHeader {
				data, err := tag.Payload.Bytes()
				if err != nil {
					return nil, fmt.Errorf("flv: read AVC sequence header: %w", err)
				}
				videoInit = data
				continue
			}
			videoFrames = append(videoFrames, mkv.Frame{
				Timecode: tag.PTS(),
				Data:     tag.Payload,
				Keyframe: tag.Keyframe,
			})
		case TagAudio:
			if audioCodecSeen == -1 {
				audioCodecSeen = tag.AudioCodec
				sampleRate = tag.SampleRate
				channels = tag.Channels
			} else if audioCodecSeen != tag.AudioCodec {
				return nil, fmt.Errorf("flv: audio codec changed mid-stream (%d then %d): %w", audioCodecSeen, tag.AudioCodec, ErrContainerParse)
			}
			if isHeader, ok := tag.IsHeader(); ok && isHeader {
				data, err := tag.Payload.Bytes()
				if err != nil {
					return nil, fmt.Errorf("flv: read AAC sequence header: %w", err)
				}
				audioInit = data
				continue
			}
			audioFrames = append(audioFrames, mkv.Frame{
				Timecode: tag.Timestamp,
				Data:     tag.Payload,
				Keyframe: true, // every AAC/MP3 frame here is independently decodable
			})
		case TagScript:
			key, val, err := tag.ScriptValue()
			if err != nil {
				return nil, err
			}
			if md, ok := Metadata(key, val); ok {
				metadata = md
			}
		}
	}

	d := &Demuxed{Metadata: metadata}
	if metadata != nil {
		if dur, ok := metadata["duration"].(float64); ok {
			d.Duration = dur
		}
	}

	if videoCodecSeen != -1 {
		d.Video = &VideoTrack{
			Codec:        videoCodecID(videoCodecSeen),
			CodecPrivate: videoInit,
			Frames:       mkv.SliceSource(videoFrames),
		}
		if metadata != nil {
			if w, ok := metadata["width"].(float64); ok {
				d.Video.Width = int(w)
			}
			if h, ok := metadata["height"].(float64); ok {
				d.Video.Height = int(h)
			}
		}
	}
	if audioCodecSeen != -1 {
		d.Audio = &AudioTrack{
			Codec:        audioCodecID(audioCodecSeen),
			SampleRate:   sampleRate,
			Channels:     channels,
			CodecPrivate: audioInit,
			Frames:       mkv.SliceSource(audioFrames),
		}
	}

	return d, nil
}
