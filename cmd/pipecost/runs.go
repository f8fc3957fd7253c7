package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pipecost/pipecost/pkg/config"
	"github.com/pipecost/pipecost/pkg/ledger"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			led, err := ledger.Open(cfg.LedgerPath)
			if err != nil {
				return err
			}
			defer func() { _ = led.Close() }()

			runs, err := led.ListRuns(context.Background())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tSTARTED\tLAST EVENT\tSTAGES\tTOKENS\tCOST")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t$%.4f\n",
					r.RunID,
					r.StartedAt.Format("2006-01-02T15:04:05"),
					r.LastEvent.Format("2006-01-02T15:04:05"),
					r.StageCount, r.TotalTokens, r.TotalCostUSD)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pipecost.yaml", "path to config file")
	return cmd
}
