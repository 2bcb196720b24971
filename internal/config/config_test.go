package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAppliesDefaultsAndValidates(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, "yavdlt", cfg.WritingApp)
	assert.EqualValues(t, 1000000, cfg.TimecodeScaleNS)
	assert.EqualValues(t, 32, cfg.MaxLaceFrames)
	assert.EqualValues(t, 1, cfg.CueCadence)
	assert.True(t, cfg.Compat.AlignFirstClusterBase)
	assert.True(t, cfg.Compat.LacingAudioOnly)
	assert.False(t, cfg.Compat.ClusterDurationCap)
	assert.Equal(t, 30, cfg.Fetch.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, 128, cfg.Fetch.ResumeOverlapLen)
}

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "yavdlt", cfg.WritingApp)
}

func TestLoadAppliesPartialOverridesAndDefaultsTheRest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output_dir: /tmp/out\nwriting_app: custom-app\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, "custom-app", cfg.WritingApp)
	assert.EqualValues(t, 1000000, cfg.TimecodeScaleNS) // untouched field still defaulted
}

func TestLoadRejectsOutOfRangeValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	// A negative retry count is a non-zero value, so creasty/defaults
	// leaves it untouched, letting the gte=0 validation tag reject it.
	require.NoError(t, os.WriteFile(path, []byte("fetch:\n  max_retries: -1\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
