package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/sh01/yavdlt/internal/config"
	"github.com/sh01/yavdlt/internal/fetch"
	"github.com/sh01/yavdlt/internal/naming"
	"github.com/sh01/yavdlt/internal/pipeline"
	"github.com/sh01/yavdlt/internal/subtitle"
	"github.com/spf13/cobra"
)

// mtExtMap maps a video body's Content-Type to a file extension, the
// same table yavdlt.py's YTVideoRef.MT_EXT_MAP carries.
var mtExtMap = map[string]string{
	"video/mp4":   "mp4",
	"video/3gpp":  "mp4",
	"video/x-flv": "flv",
	"video/webm":  "webm",
}

// newFetchCmd wires the network-backed retrieval path. Resolving a
// video id into its actual video/annotation/timed-text URLs is the
// site-specific HTTP glue spec.md §1 puts out of scope for this
// repository; this command takes those URLs already resolved (by
// whatever external collaborator did that resolution) and drives
// internal/fetch + internal/pipeline against them.
func newFetchCmd(logger *zerolog.Logger, configPath *string) *cobra.Command {
	var (
		videoURL    string
		annotations []string
		timedtext   []string
		filterSpam  bool
		title       string
		format      string
		noMux       bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <video-id>",
		Short: "Fetch a video's data and remultiplex it into Matroska",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoID := args[0]
			if videoURL == "" {
				return fmt.Errorf("--video-url is required (video-id resolution is outside this tool's scope)")
			}

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if title == "" {
				title = videoID
			}
			if format == "" {
				format = "0"
			}

			ctx := context.Background()
			fetcher := fetch.New(time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second, cfg.Fetch.MaxRetries, logger)

			srcPath, contentType, err := downloadVideoBody(ctx, fetcher, cfg.OutputDir, videoURL, title, videoID, format)
			if err != nil {
				return fmt.Errorf("fetch video body: %w", err)
			}

			subs, err := fetchSubtitleSources(ctx, fetcher, annotations, timedtext, filterSpam)
			if err != nil {
				return err
			}

			ext := mtExtMap[contentType]
			if ext == "" {
				ext = "bin"
			}

			if noMux {
				return finishWithoutMux(logger, srcPath, ext, subs, cfg.OutputDir, title, videoID, format)
			}
			return finishWithMux(logger, srcPath, subs, cfg, title, videoID, format)
		},
	}

	cmd.Flags().StringVar(&videoURL, "video-url", "", "resolved video body URL (required)")
	cmd.Flags().StringArrayVar(&annotations, "annotations", nil, "lang=url annotation XML source, repeatable")
	cmd.Flags().StringArrayVar(&timedtext, "timedtext", nil, "lang=url timed-text XML source, repeatable")
	cmd.Flags().BoolVar(&filterSpam, "filter-spam", false, "drop annotations the site's own spam score flags")
	cmd.Flags().StringVar(&title, "title", "", "video title, used for the output filename (defaults to the video id)")
	cmd.Flags().StringVar(&format, "format", "", "format tag, used for the output filename")
	cmd.Flags().BoolVar(&noMux, "no-mux", false, "keep the downloaded source file and write standalone .ass files instead of muxing")
	return cmd
}

// downloadVideoBody fetches the whole video body to a temporary file
// under outputDir, resuming if that temp file already holds a prefix
// of it, and returns its path plus the server's reported Content-Type.
func downloadVideoBody(ctx context.Context, fetcher *fetch.Fetcher, outputDir, url, title, videoID, format string) (string, string, error) {
	tmpPath := filepath.Join(outputDir, naming.TempName(title, videoID, format, "bin"))

	existing, existingLen, err := openExistingTemp(tmpPath)
	if err != nil {
		return "", "", err
	}

	if existing != nil && existingLen > 0 {
		if err := resumeVideoBody(ctx, fetcher, url, existing, existingLen); err != nil {
			existing.Close()
			return "", "", err
		}
		existing.Close()
		// A resumed 206 response carries no fresh Content-Type to key the
		// output extension off; the caller falls back to "bin" for it.
		return tmpPath, "", nil
	}
	if existing != nil {
		existing.Close()
	}

	body, contentType, _, err := fetcher.Body(ctx, url)
	if err != nil {
		return "", "", err
	}
	defer body.Close()

	out, err := os.Create(tmpPath)
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, body); err != nil {
		return "", "", fmt.Errorf("write temp file: %w", err)
	}
	return tmpPath, contentType, nil
}

// openExistingTemp opens tmpPath if it already holds a partial
// download, or reports (nil, 0, nil) if it doesn't exist yet.
func openExistingTemp(tmpPath string) (*os.File, int64, error) {
	f, err := os.OpenFile(tmpPath, os.O_RDWR, 0o644)
	if os.IsNotExist(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open existing temp file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat existing temp file: %w", err)
	}
	return f, info.Size(), nil
}

// resumeVideoBody implements the resumable-download contract spec.md
// §5 describes: re-request the last fetch.OverlapLen bytes already on
// disk, verify the server's copy of them still matches, then append
// the remainder.
func resumeVideoBody(ctx context.Context, fetcher *fetch.Fetcher, url string, existing *os.File, existingLen int64) error {
	overlapLen := int64(fetch.OverlapLen)
	if existingLen < overlapLen {
		overlapLen = existingLen
	}
	localTail := make([]byte, overlapLen)
	if _, err := existing.ReadAt(localTail, existingLen-overlapLen); err != nil {
		return fmt.Errorf("read local tail: %w", err)
	}

	body, err := fetcher.ResumeBody(ctx, url, existingLen)
	if err != nil {
		return err
	}
	defer body.Close()

	serverOverlap := make([]byte, overlapLen)
	if _, err := io.ReadFull(body, serverOverlap); err != nil {
		return fmt.Errorf("read resume overlap: %w", err)
	}
	if err := fetch.VerifyOverlap(serverOverlap, localTail); err != nil {
		return err
	}

	if _, err := existing.Seek(existingLen, io.SeekStart); err != nil {
		return fmt.Errorf("seek temp file: %w", err)
	}
	if _, err := io.Copy(existing, body); err != nil {
		return fmt.Errorf("append resumed body: %w", err)
	}
	return nil
}

// fetchSubtitleSources retrieves every lang=url annotation/timed-text
// argument's body and assembles the pipeline.SubtitleSource list.
func fetchSubtitleSources(ctx context.Context, fetcher *fetch.Fetcher, annotations, timedtext []string, filterSpam bool) ([]pipeline.SubtitleSource, error) {
	byLang := map[string]*pipeline.SubtitleSource{}
	var order []string

	get := func(lang string) *pipeline.SubtitleSource {
		sub, ok := byLang[lang]
		if !ok {
			sub = &pipeline.SubtitleSource{Lang: lang, FilterSpam: filterSpam}
			byLang[lang] = sub
			order = append(order, lang)
		}
		return sub
	}

	for _, arg := range annotations {
		lang, url, err := langValuePair(arg)
		if err != nil {
			return nil, fmt.Errorf("annotations argument: %w", err)
		}
		data, err := fetcher.Text(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("fetch annotations (%s): %w", lang, err)
		}
		get(lang).AnnotationsXML = bytes.NewReader(data)
	}
	for _, arg := range timedtext {
		lang, url, err := langValuePair(arg)
		if err != nil {
			return nil, fmt.Errorf("timedtext argument: %w", err)
		}
		data, err := fetcher.Text(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("fetch timedtext (%s): %w", lang, err)
		}
		get(lang).TimedTextXML = bytes.NewReader(data)
	}

	subs := make([]pipeline.SubtitleSource, 0, len(order))
	for _, lang := range order {
		subs = append(subs, *byLang[lang])
	}
	return subs, nil
}

// finishWithMux demuxes the downloaded source file and writes the
// assembled Matroska output, then removes the now-unneeded raw source.
func finishWithMux(logger *zerolog.Logger, srcPath string, subs []pipeline.SubtitleSource, cfg *config.Config, title, videoID, format string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open downloaded source: %w", err)
	}
	defer src.Close()

	outputPath := filepath.Join(cfg.OutputDir, naming.OutputName(title, videoID, format, "mkv"))
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	result, err := pipeline.Run(logger, src, subs, cfg, out)
	if err != nil {
		return fmt.Errorf("mux: %w", err)
	}
	src.Close()
	if err := os.Remove(srcPath); err != nil {
		logger.Warn().Err(err).Str("path", srcPath).Msg("failed to remove downloaded source after muxing")
	}
	logger.Info().Str("output", outputPath).Bool("video", result.HasVideo).
		Bool("audio", result.HasAudio).Int("subtitles", result.SubtitleTracks).
		Msg("fetch complete")
	return nil
}

// finishWithoutMux is the "--nomkv" path yavdlt.py's make_mkv=false
// branch takes: rename the downloaded source to its sanitised final
// name (with the correct extension) and write one standalone .ass per
// non-empty subtitle source, instead of producing a Matroska file.
func finishWithoutMux(logger *zerolog.Logger, srcPath, ext string, subs []pipeline.SubtitleSource, outputDir, title, videoID, format string) error {
	finalPath := filepath.Join(outputDir, naming.OutputName(title, videoID, format, ext))
	if err := os.Rename(srcPath, finalPath); err != nil {
		return fmt.Errorf("move downloaded source: %w", err)
	}
	logger.Info().Str("output", finalPath).Msg("fetch complete (no mux)")

	for _, sub := range subs {
		set := subtitle.NewSet(sub.Lang, subtitle.ResolveLangCode(sub.Lang))
		if sub.AnnotationsXML != nil {
			anns, err := subtitle.ParseAnnotations(sub.AnnotationsXML)
			if err != nil {
				return fmt.Errorf("parse annotations (%s): %w", sub.Lang, err)
			}
			set.AddFromAnnotations(anns, sub.FilterSpam)
		}
		if sub.TimedTextXML != nil {
			if err := set.AddFromTimedText(sub.TimedTextXML, subtitle.NewStyle()); err != nil {
				return fmt.Errorf("parse timed text (%s): %w", sub.Lang, err)
			}
		}
		if !set.ContainsNonEmptySubs() {
			logger.Warn().Str("lang", sub.Lang).Msg("skipping empty subtitle track")
			continue
		}
		assPath := filepath.Join(outputDir, naming.OutputName(title, videoID, fmt.Sprintf("%s_%s", sub.Lang, format), "ass"))
		f, err := os.Create(assPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", assPath, err)
		}
		err = set.WriteSSA(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("write %s: %w", assPath, err)
		}
		logger.Info().Str("output", assPath).Str("lang", sub.Lang).Msg("wrote standalone subtitle file")
	}
	return nil
}
