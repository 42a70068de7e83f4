package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/beamforge/beamforge/internal/logging"
	"github.com/beamforge/beamforge/internal/runtime"
	"github.com/beamforge/beamforge/internal/source"
	"github.com/beamforge/beamforge/pkg/diff"
	"github.com/beamforge/beamforge/pkg/flow"
)

func newRunCmd(flags *rootFlags, log logging.Logger) *cobra.Command {
	var baselinePath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sample corpus pipeline to completion and print its results",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadJobConfig(flags.configPath)
			if err != nil {
				return err
			}
			ckpt, err := buildCheckpointManager(cfg)
			if err != nil {
				return err
			}
			mode := resolveMode(flags.partitions, cfg)

			if flags.verbose {
				log = log.With("repo", flags.repo, "mode", modeLabel(mode))
			}

			stats, err := loadCorpus(flags.repo)
			if err != nil {
				return err
			}
			linesByExt, largest, err := analyzeCorpus(stats, flags.topK)
			if err != nil {
				return err
			}

			opts := runtime.Options{
				Mode:       mode,
				PipelineID: "corpus",
				Checkpoint: ckpt,
				Logger:     log,
			}

			lineRows, err := flow.Run(ctx, linesByExt, opts)
			if err != nil {
				return fmt.Errorf("run lines-by-extension: %w", err)
			}
			topRows, err := flow.Run(ctx, largest, opts)
			if err != nil {
				return fmt.Errorf("run top-k largest files: %w", err)
			}

			var largestFiles []FileStat
			if len(topRows) > 0 {
				largestFiles = topRows[0]
			}

			printCorpusResult(os.Stdout, lineRows, largestFiles)

			if baselinePath != "" {
				if err := diffAgainstBaseline(baselinePath, lineRows); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&baselinePath, "baseline", "", "Path to a JSONL baseline of a prior lines-by-extension run; diffs the current run against it and rewrites it")
	return cmd
}

// diffAgainstBaseline compares rows to the lines-by-extension baseline
// previously saved at path, printing a unified diff when they differ,
// then overwrites path with rows so the next run diffs against this one.
func diffAgainstBaseline(path string, rows []flow.Pair[string, int]) error {
	var expected []byte
	if prior, err := source.LoadJSONLSource[flow.Pair[string, int]](path); err == nil {
		encoded, err := encodeJSONL(prior.Payload().([]flow.Pair[string, int]))
		if err != nil {
			return err
		}
		expected = encoded
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	actual, err := encodeJSONL(rows)
	if err != nil {
		return err
	}

	if d := diff.Unified(expected, actual, "baseline", "current"); d != "" {
		fmt.Fprintln(os.Stdout, "\nbaseline diff:")
		fmt.Fprint(os.Stdout, d)
	}

	var sink source.JSONLSink[flow.Pair[string, int]]
	_, err = sink.WriteVec(path, rows)
	return err
}

func encodeJSONL(rows []flow.Pair[string, int]) ([]byte, error) {
	tmp, err := os.CreateTemp("", "flowctl-baseline-*.jsonl")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	var sink source.JSONLSink[flow.Pair[string, int]]
	if _, err := sink.WriteVec(tmp.Name(), rows); err != nil {
		return nil, err
	}
	return os.ReadFile(tmp.Name())
}

func modeLabel(m runtime.Mode) string {
	if m.Parallel {
		return fmt.Sprintf("parallel(%d)", m.Partitions)
	}
	return "sequential"
}
