package main

import (
	"fmt"
	"strings"

	"github.com/sh01/yavdlt/internal/config"
)

// loadConfig mirrors internal/config.Load's own "missing file falls
// back to Default()" behaviour for the case where the user never
// passed --config at all.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

// langValuePair splits a "lang=value" command-line argument, the
// convention both the fetch and mux subcommands use to tag a subtitle
// source's BCP-47-ish language code.
func langValuePair(s string) (lang, value string, err error) {
	lang, value, ok := strings.Cut(s, "=")
	if !ok || lang == "" || value == "" {
		return "", "", fmt.Errorf("expected lang=value, got %q", s)
	}
	return lang, value, nil
}
