package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigEmptyPathUsesDefault(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "yavdlt", cfg.WritingApp)
}

func TestLoadConfigMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "yavdlt", cfg.WritingApp)
}

func TestLangValuePairSplitsOnFirstEquals(t *testing.T) {
	lang, value, err := langValuePair("en=http://example.com/a=b")
	require.NoError(t, err)
	assert.Equal(t, "en", lang)
	assert.Equal(t, "http://example.com/a=b", value)
}

func TestLangValuePairRejectsMissingSeparatorOrEmptyHalves(t *testing.T) {
	for _, bad := range []string{"noequals", "=value", "lang="} {
		_, _, err := langValuePair(bad)
		assert.Error(t, err, bad)
	}
}
