package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/beamforge/beamforge/pkg/flow"
)

func newExplainCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "explain",
		Short: "Plan the sample corpus pipeline and print what each pass did, without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := loadCorpus(flags.repo)
			if err != nil {
				return err
			}
			linesByExt, largest, err := analyzeCorpus(stats, flags.topK)
			if err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout, "lines-by-extension plan:")
			if err := printExplanation(os.Stdout, linesByExt); err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout, "top-k-largest plan:")
			return printExplanation(os.Stdout, largest)
		},
	}
}

func printExplanation[T any](out *os.File, c flow.PCollection[T]) error {
	explanation, err := flow.Explain(c)
	if err != nil {
		return err
	}

	width := 80
	if w, _, err := term.GetSize(int(out.Fd())); err == nil && w > 0 {
		width = w
	}

	for _, step := range explanation.Steps {
		status := "unchanged"
		if step.Changed {
			status = "changed"
		}
		line := fmt.Sprintf("  %-26s %3d -> %3d  (%s)", step.Pass, step.NodesBefore, step.NodesAfter, status)
		if len(line) > width {
			line = line[:width]
		}
		fmt.Fprintln(out, strings.TrimRight(line, " "))
	}
	return nil
}
