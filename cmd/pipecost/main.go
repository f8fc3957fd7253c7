package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "pipecost",
		Short:   "pipecost — token cost accounting for the report pipeline",
		Version: version,
	}

	root.AddCommand(
		newEstimateCmd(),
		newIngestCmd(),
		newReportCmd(),
		newRunsCmd(),
		newBudgetCmd(),
		newSetupCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
