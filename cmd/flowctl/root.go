package main

import (
	"github.com/spf13/cobra"

	"github.com/beamforge/beamforge/internal/logging"
)

type rootFlags struct {
	repo       string
	configPath string
	topK       int
	partitions int
	verbose    bool
}

func newRootCmd(log logging.Logger) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "flowctl",
		Short:         "flowctl drives the engine's sample corpus pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.repo, "repo", ".", "Path to the git repository to analyze")
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to a job configuration file")
	cmd.PersistentFlags().IntVar(&flags.topK, "top", 10, "Number of largest files to report")
	cmd.PersistentFlags().IntVarP(&flags.partitions, "partitions", "p", 0, "Parallel partition count (0: use config parallelism, else run sequentially)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(newRunCmd(flags, log))
	cmd.AddCommand(newExplainCmd(flags))
	cmd.AddCommand(newDashboardCmd(flags, log))
	cmd.AddCommand(newCorpusCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
