// Package config decodes and validates a pipeline's job-configuration
// document: execution settings (parallelism, timeout,
// continue-on-error) and checkpoint policy, loaded from YAML with
// gopkg.in/yaml.v3 and validated with struct tags via
// github.com/go-playground/validator/v10 (struct-tag schema plus a
// cross-field checkpoint check, behind a Validate entry point
// returning the engine's own error taxonomy).
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	beamerrors "github.com/beamforge/beamforge/pkg/errors"
)

// Config is the full job-configuration document.
type Config struct {
	Name        string     `yaml:"name" validate:"required,min=1,max=100"`
	Description string     `yaml:"description,omitempty"`
	Settings    Settings   `yaml:"settings,omitempty"`
	Checkpoint  Checkpoint `yaml:"checkpoint,omitempty"`
}

// Settings holds execution-wide parameters.
type Settings struct {
	Parallelism     int  `yaml:"parallelism,omitempty" validate:"omitempty,min=1,max=1024"`
	TimeoutSeconds  int  `yaml:"timeout_seconds,omitempty" validate:"omitempty,min=1,max=360000"`
	ContinueOnError bool `yaml:"continue_on_error,omitempty"`
}

// Timeout returns Settings.TimeoutSeconds as a time.Duration, or 0
// (no timeout) when unset.
func (s Settings) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Checkpoint configures the engine's checkpoint.Manager.
type Checkpoint struct {
	Enabled           bool   `yaml:"enabled,omitempty"`
	Directory         string `yaml:"directory,omitempty" validate:"required_if=Enabled true"`
	MaxCheckpoints    int    `yaml:"max_checkpoints,omitempty" validate:"omitempty,min=1,max=1000"`
	AfterEveryBarrier bool   `yaml:"after_every_barrier,omitempty"`
	EveryNNodes       int    `yaml:"every_n_nodes,omitempty" validate:"omitempty,min=1"`
	IntervalSeconds   int    `yaml:"interval_seconds,omitempty" validate:"omitempty,min=1"`
}

// Interval returns IntervalSeconds as a time.Duration, or 0 when unset.
func (c Checkpoint) Interval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Load reads and decodes a Config document from path, validating it
// before returning.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, beamerrors.NewIOError(path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, beamerrors.NewValidationError("config", "invalid yaml: "+err.Error(), err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
