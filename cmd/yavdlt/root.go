package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// newRootCmd assembles the yavdlt command tree: grounded on
// spf13/cobra the way luispater-gemini-srt-translator-go (this
// project's teacher's own sibling CLI) wires its root command.
func newRootCmd(logger *zerolog.Logger) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "yavdlt",
		Short:         "Fetch and remultiplex video, timed text, and annotations into Matroska",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a yavdlt config YAML file (defaults to built-in settings)")

	root.AddCommand(newFetchCmd(logger, &configPath))
	root.AddCommand(newMuxCmd(logger, &configPath))
	return root
}
