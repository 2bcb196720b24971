package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/sh01/yavdlt/internal/naming"
	"github.com/sh01/yavdlt/internal/pipeline"
	"github.com/spf13/cobra"
)

// newMuxCmd wires the mux-only mode SPEC_FULL.md §6 names: remultiplex
// an already-downloaded source file without touching the network, for
// local testing of the demux/mux/subtitle layers in isolation.
func newMuxCmd(logger *zerolog.Logger, configPath *string) *cobra.Command {
	var (
		annotations []string
		timedtext   []string
		filterSpam  bool
		title       string
		videoID     string
		format      string
		outputPath  string
	)

	cmd := &cobra.Command{
		Use:   "mux <source-file> [lang=annotations.xml ...]",
		Short: "Remultiplex a local FLV/MP4 file into Matroska, skipping network retrieval",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourcePath := args[0]
			for _, a := range args[1:] {
				annotations = append(annotations, a)
			}

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			subs, closeSubs, err := buildLocalSubtitleSources(annotations, timedtext, filterSpam)
			if err != nil {
				return err
			}
			defer closeSubs()

			src, err := os.Open(sourcePath)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer src.Close()

			if videoID == "" {
				videoID = "local"
			}
			if title == "" {
				title = filepath.Base(sourcePath)
			}
			if format == "" {
				format = "0"
			}
			if outputPath == "" {
				outputPath = filepath.Join(cfg.OutputDir, naming.OutputName(title, videoID, format, "mkv"))
			}

			out, err := os.Create(outputPath)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer out.Close()

			result, err := pipeline.Run(logger, src, subs, cfg, out)
			if err != nil {
				return fmt.Errorf("mux: %w", err)
			}
			logger.Info().Str("output", outputPath).Bool("video", result.HasVideo).
				Bool("audio", result.HasAudio).Int("subtitles", result.SubtitleTracks).
				Msg("mux complete")
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&timedtext, "timedtext", nil, "lang=path timed-text XML file, repeatable")
	cmd.Flags().BoolVar(&filterSpam, "filter-spam", false, "drop annotations the site's own spam score flags")
	cmd.Flags().StringVar(&title, "title", "", "video title, used for the output filename")
	cmd.Flags().StringVar(&videoID, "id", "", "video id, used for the output filename")
	cmd.Flags().StringVar(&format, "format", "", "format tag, used for the output filename")
	cmd.Flags().StringVar(&outputPath, "output", "", "output path, overriding the derived filename")
	return cmd
}

// buildLocalSubtitleSources opens every lang=path annotation/timedtext
// argument and returns the assembled pipeline.SubtitleSource list plus
// a closer for the files it opened.
func buildLocalSubtitleSources(annotations, timedtext []string, filterSpam bool) ([]pipeline.SubtitleSource, func(), error) {
	byLang := map[string]*pipeline.SubtitleSource{}
	var order []string
	var opened []*os.File

	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

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
		lang, path, err := langValuePair(arg)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("annotations argument: %w", err)
		}
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open annotations %s: %w", path, err)
		}
		opened = append(opened, f)
		get(lang).AnnotationsXML = f
	}
	for _, arg := range timedtext {
		lang, path, err := langValuePair(arg)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("timedtext argument: %w", err)
		}
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open timedtext %s: %w", path, err)
		}
		opened = append(opened, f)
		get(lang).TimedTextXML = f
	}

	subs := make([]pipeline.SubtitleSource, 0, len(order))
	for _, lang := range order {
		subs = append(subs, *byLang[lang])
	}
	return subs, closeAll, nil
}
