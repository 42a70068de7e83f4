package main

import (
	"github.com/beamforge/beamforge/internal/checkpoint"
	"github.com/beamforge/beamforge/internal/config"
	"github.com/beamforge/beamforge/internal/runtime"
)

// loadJobConfig loads the job configuration at path, or returns a
// zero-value Config (sequential mode, no checkpointing) when path is
// empty.
func loadJobConfig(path string) (*config.Config, error) {
	if path == "" {
		return &config.Config{Name: "flowctl-adhoc"}, nil
	}
	return config.Load(path)
}

// resolveMode picks the execution mode from the --partitions flag
// when set, falling back to the job configuration's parallelism when
// it is above 1, and to sequential execution otherwise.
func resolveMode(flagPartitions int, cfg *config.Config) runtime.Mode {
	switch {
	case flagPartitions > 0:
		return runtime.ParallelMode(flagPartitions)
	case cfg != nil && cfg.Settings.Parallelism > 1:
		return runtime.ParallelMode(cfg.Settings.Parallelism)
	default:
		return runtime.Sequential
	}
}

// buildCheckpointManager constructs a checkpoint.Manager from the job
// configuration's checkpoint block, or nil when checkpointing is
// disabled.
func buildCheckpointManager(cfg *config.Config) (*checkpoint.Manager, error) {
	if cfg == nil || !cfg.Checkpoint.Enabled {
		return nil, nil
	}
	return checkpoint.NewManager(checkpoint.Config{
		Enabled:        cfg.Checkpoint.Enabled,
		Directory:      cfg.Checkpoint.Directory,
		MaxCheckpoints: cfg.Checkpoint.MaxCheckpoints,
		Policy: checkpoint.Policy{
			AfterEveryBarrier: cfg.Checkpoint.AfterEveryBarrier,
			EveryNNodes:       cfg.Checkpoint.EveryNNodes,
			Interval:          cfg.Checkpoint.Interval(),
		},
	})
}
