package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newCorpusCmd exposes loadCorpus directly, as a quick summary of what
// the sample pipeline will see, without planning or running anything.
func newCorpusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "corpus",
		Short: "Summarize the files the sample pipeline would read from the repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := loadCorpus(flags.repo)
			if err != nil {
				return err
			}

			var totalSize int64
			var totalLines int
			for _, f := range stats {
				totalSize += f.Size
				totalLines += f.Lines
			}

			fmt.Fprintf(os.Stdout, "%d files, %d lines, %d bytes\n", len(stats), totalLines, totalSize)
			return nil
		},
	}
}
