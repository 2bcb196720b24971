// Command yavdlt fetches a video from a single public video-sharing
// site together with its timed-text and annotation data and
// remultiplexes it into Matroska, or muxes an already-downloaded
// source file in place for local testing.
package main

import (
	"os"

	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	if err := newRootCmd(&logger).Execute(); err != nil {
		logger.Error().Err(err).Msg("yavdlt failed")
		os.Exit(1)
	}
}
