package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/beamforge/beamforge/internal/dag"
	"github.com/beamforge/beamforge/internal/logging"
	"github.com/beamforge/beamforge/internal/runtime"
	"github.com/beamforge/beamforge/pkg/flow"
)

func newDashboardCmd(flags *rootFlags, log logging.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Run the lines-by-extension pipeline with a live progress dashboard",
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

			stats, err := loadCorpus(flags.repo)
			if err != nil {
				return err
			}
			linesByExt, largest, err := analyzeCorpus(stats, flags.topK)
			if err != nil {
				return err
			}

			nonInteractive := !term.IsTerminal(int(os.Stdout.Fd()))

			events := make(chan tea.Msg)
			opts := runtime.Options{
				Mode:       mode,
				PipelineID: "corpus-dashboard",
				Checkpoint: ckpt,
				Logger:     log,
				Progress: func(completed, total int, kind dag.Kind) {
					events <- nodeDoneMsg{completed: completed, total: total, kind: kind}
				},
			}

			var rows []flow.Pair[string, int]
			var runErr error
			done := make(chan struct{})
			go func() {
				rows, runErr = flow.Run(ctx, linesByExt, opts)
				events <- runFinishedMsg{err: runErr}
				close(done)
			}()

			if nonInteractive {
				for msg := range events {
					if fin, ok := msg.(runFinishedMsg); ok {
						runErr = fin.err
						break
					}
					if node, ok := msg.(nodeDoneMsg); ok {
						fmt.Fprintf(os.Stdout, "node %d/%d complete (%v)\n", node.completed, node.total, node.kind)
					}
				}
			} else {
				model := newDashboardModel("lines-by-extension", events)
				program := tea.NewProgram(model)
				if _, err := program.Run(); err != nil {
					return err
				}
			}
			<-done

			if runErr != nil {
				return runErr
			}

			topRows, err := flow.Run(ctx, largest, runtime.Options{Mode: mode, PipelineID: "corpus-dashboard", Checkpoint: ckpt, Logger: log})
			if err != nil {
				return err
			}
			var largestFiles []FileStat
			if len(topRows) > 0 {
				largestFiles = topRows[0]
			}

			printCorpusResult(os.Stdout, rows, largestFiles)
			return nil
		},
	}
}
