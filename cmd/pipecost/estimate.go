package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pipecost/pipecost/pkg/config"
	"github.com/pipecost/pipecost/pkg/estimate"
	"github.com/pipecost/pipecost/pkg/models"
	"github.com/pipecost/pipecost/pkg/pricing"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newEstimateCmd() *cobra.Command {
	var (
		configPath   string
		scenarioPath string
		tier         string
		runsPerMonth int
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate per-stage and total run cost for a scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			scenario := cfg.Scenario
			if scenarioPath != "" {
				scenario, err = loadScenario(scenarioPath)
				if err != nil {
					return err
				}
			}
			if tier != "" {
				scenario.Tier = pricing.Tier(tier)
			}
			if scenario.Tier == "" {
				scenario.Tier = cfg.Tier
			}
			if cmd.Flags().Changed("runs-per-month") {
				scenario.RunsPerMonth = runsPerMonth
			}

			est, err := estimate.New(cfg.Pricing).Estimate(scenario)
			if err != nil {
				return err
			}

			if asJSON {
				out, err := json.MarshalIndent(est, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Print(formatEstimateTable(est))
			if scenario.RunsPerMonth > 0 {
				monthly, err := estimate.MonthlyCost(est.TotalEstimatedCostUSD, scenario.RunsPerMonth)
				if err != nil {
					return err
				}
				fmt.Printf("Monthly (%d runs): $%.4f\n", scenario.RunsPerMonth, monthly)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pipecost.yaml", "path to config file")
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "path to a scenario YAML file (default: scenario from config)")
	cmd.Flags().StringVar(&tier, "tier", "", "generation tier: sonnet or opus")
	cmd.Flags().IntVar(&runsPerMonth, "runs-per-month", 0, "project monthly cost for this many runs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the cost estimate document as JSON")

	return cmd
}

func loadScenario(path string) (estimate.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return estimate.Scenario{}, fmt.Errorf("read scenario: %w", err)
	}

	var s estimate.Scenario
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &s); err != nil {
		return estimate.Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	return s, nil
}

func formatEstimateTable(est models.CostEstimate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-15s %14s %12s\n", "STAGE", "TOKENS", "EST. COST")
	b.WriteString(strings.Repeat("-", 43) + "\n")

	for _, stage := range models.Stages() {
		sc, _ := est.Stages.ByStage(stage)
		fmt.Fprintf(&b, "%-15s %14d $%11.4f\n", stage, sc.TokenCount, sc.EstimatedCostUSD)
	}
	b.WriteString(strings.Repeat("-", 43) + "\n")
	fmt.Fprintf(&b, "%-15s %14d $%11.4f\n", "TOTAL", est.TotalTokenCount, est.TotalEstimatedCostUSD)
	return b.String()
}
