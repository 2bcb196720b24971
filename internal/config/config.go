// Package config loads, defaults, and validates the yavdlt runtime
// configuration: output locations, MKV compatibility flags, builder
// tuning knobs, and HTTP retrieval settings.
package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	validator "gopkg.in/dealancer/validate.v2"
	"gopkg.in/yaml.v3"
)

// Compat mirrors mkv.CompatFlags as a YAML-loadable struct; it is
// translated to mkv.CompatFlags at the point of use rather than
// importing internal/mkv here, keeping config free of a dependency on
// the container-format layer it configures.
type Compat struct {
	AlignFirstClusterBase bool `yaml:"align_first_cluster_base" default:"true"`
	ClusterDurationCap    bool `yaml:"cluster_duration_cap" default:"false"`
	LacingAudioOnly       bool `yaml:"lacing_audio_only" default:"true"`
}

// Fetch holds HTTP retrieval tuning for internal/fetch.
type Fetch struct {
	TimeoutSeconds   int `yaml:"timeout_seconds" default:"30" validate:"gte=1"`
	MaxRetries       int `yaml:"max_retries" default:"3" validate:"gte=0"`
	ResumeOverlapLen int `yaml:"resume_overlap_len" default:"128" validate:"gte=1"`
}

// Config is the top-level yavdlt configuration document.
type Config struct {
	OutputDir  string `yaml:"output_dir" default:"." validate:"empty=false"`
	WritingApp string `yaml:"writing_app" default:"yavdlt"`

	// TimecodeScaleNS is the MKV SegmentInfo TimecodeScale, in
	// nanoseconds per tick (1e6 = millisecond ticks).
	TimecodeScaleNS uint64 `yaml:"timecode_scale_ns" default:"1000000" validate:"gte=1"`

	MaxLaceFrames uint64 `yaml:"max_lace_frames" default:"32" validate:"gte=1"`

	// CueCadence keeps only every Nth cue-eligible keyframe in the Cues
	// index; 1 indexes every keyframe.
	CueCadence uint64 `yaml:"cue_cadence" default:"1" validate:"gte=1"`

	Compat Compat `yaml:"compat"`
	Fetch  Fetch  `yaml:"fetch"`
}

// Load reads, defaults, and validates a Config from a YAML file at
// path. A missing file is not an error: Default() is returned instead,
// matching the source's "use builtin defaults if the config file
// doesn't exist" behaviour.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default()
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config: apply defaults: %w", err)
	}
	if err := validator.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// Default returns a Config populated entirely from its default tags.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config: apply defaults: %w", err)
	}
	if err := validator.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}
