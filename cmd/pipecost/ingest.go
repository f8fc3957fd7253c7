package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pipecost/pipecost/pkg/config"
	"github.com/pipecost/pipecost/pkg/ledger"
	"github.com/pipecost/pipecost/pkg/logging"
	"github.com/pipecost/pipecost/pkg/pricing"
	"github.com/pipecost/pipecost/pkg/telemetry"
	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	var (
		configPath string
		tier       string
	)

	cmd := &cobra.Command{
		Use:   "ingest <events.jsonl>",
		Short: "Fold pipeline stage events into the usage ledger",
		Long:  "Reads JSONL stage events emitted by the pipeline and records a priced usage row per completed stage. Use - to read from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			defaultTier := cfg.Tier
			if tier != "" {
				defaultTier = pricing.Tier(tier)
				if !defaultTier.Valid() {
					return fmt.Errorf("unknown tier %q", tier)
				}
			}

			var in io.Reader = os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open events: %w", err)
				}
				defer f.Close()
				in = f
			}

			led, err := ledger.Open(cfg.LedgerPath)
			if err != nil {
				return err
			}
			defer func() { _ = led.Close() }()

			ing := telemetry.NewIngestor(led, cfg.Pricing, defaultTier, logging.New("pipecost"))
			res, err := ing.IngestStream(context.Background(), in)
			if err != nil {
				return err
			}

			fmt.Printf("recorded %d usage rows (%d skipped, %d unknown stages, %d malformed)\n",
				res.Records, res.Skipped, res.UnknownStages, res.Malformed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pipecost.yaml", "path to config file")
	cmd.Flags().StringVar(&tier, "tier", "", "tier for events that carry none (default: tier from config)")

	return cmd
}
