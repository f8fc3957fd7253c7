package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pipecost/pipecost/pkg/budget"
	"github.com/pipecost/pipecost/pkg/config"
	"github.com/pipecost/pipecost/pkg/ledger"
	"github.com/spf13/cobra"
)

func newBudgetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage USD spend budgets",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show recorded spend vs budget policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if !cfg.Budget.Enabled {
				fmt.Println("Budget enforcement is disabled.")
				return nil
			}

			led, err := ledger.Open(cfg.LedgerPath)
			if err != nil {
				return err
			}
			defer func() { _ = led.Close() }()

			enforcer := budget.New(cfg.Budget.Policies, led)
			statuses, err := enforcer.Status(context.Background())
			if err != nil {
				return err
			}

			if len(statuses) == 0 {
				fmt.Println("No budget policies configured.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "POLICY\tSTAGE\tPERIOD\tMAX USD\tUSED\tREMAINING")
			for _, s := range statuses {
				fmt.Fprintf(w, "%s\t%s\t%s\t$%.4f\t$%.4f\t$%.4f\n",
					s.Policy.Name, defaultStr(s.Policy.Stage, "(all)"), s.Policy.Period,
					s.Policy.MaxUSD, s.UsedUSD, s.RemainingUSD)
			}
			return w.Flush()
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "pipecost.yaml", "path to config file")
	cmd.AddCommand(statusCmd)
	return cmd
}
