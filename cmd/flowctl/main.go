package main

import (
	"context"
	"fmt"
	"os"

	"github.com/beamforge/beamforge/internal/logging"
)

func main() {
	log, err := logging.New(logging.Options{Level: "info", Component: "flowctl"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logging.WithCorrelationID(context.Background(), generateCorrelationID())

	rootCmd := newRootCmd(log)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
