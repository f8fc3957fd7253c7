package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pipecost/pipecost/pkg/config"
	"github.com/pipecost/pipecost/pkg/ledger"
	"github.com/pipecost/pipecost/pkg/models"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var (
		configPath string
		runID      string
		stage      string
		since      string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show recorded cost rollups by stage, or detail for one run",
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

			ctx := context.Background()

			if runID != "" {
				records, err := led.RunRecords(ctx, runID)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(records)
				}
				if len(records) == 0 {
					fmt.Println("No usage recorded for run.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "STAGE\tTIER\tINPUT\tOUTPUT\tHIT RATIO\tCOST\tELAPSED")
				for _, r := range records {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2f\t$%.4f\t%.1fs\n",
						r.Stage, r.Tier, r.InputTokens, r.OutputTokens, r.HitRatio, r.CostUSD, r.ElapsedS)
				}
				return w.Flush()
			}

			sinceTime := beginningOfMonth()
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				sinceTime = t
			}

			rollups, err := led.StageRollups(ctx, sinceTime, stage)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(rollups)
			}
			fmt.Print(formatRollupTable(rollups))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pipecost.yaml", "path to config file")
	cmd.Flags().StringVar(&runID, "run", "", "show per-stage detail for one run")
	cmd.Flags().StringVar(&stage, "stage", "", "filter rollups by stage")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD, default: start of month)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of a table")

	return cmd
}

func beginningOfMonth() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func formatRollupTable(rollups []models.StageRollup) string {
	if len(rollups) == 0 {
		return "No cost data found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-15s %-8s %8s %14s %12s\n",
		"STAGE", "TIER", "RECORDS", "TOKENS", "EST. COST")
	b.WriteString(strings.Repeat("-", 62) + "\n")

	var totalCost float64
	for _, r := range rollups {
		fmt.Fprintf(&b, "%-15s %-8s %8d %14d $%11.4f\n",
			r.Stage, defaultStr(r.Tier, "(none)"), r.RecordCount, r.TotalTokens, r.TotalCostUSD)
		totalCost += r.TotalCostUSD
	}
	b.WriteString(strings.Repeat("-", 62) + "\n")
	fmt.Fprintf(&b, "%49s $%11.4f\n", "TOTAL:", totalCost)
	return b.String()
}

func defaultStr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
