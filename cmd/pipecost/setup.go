package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pipecost/pipecost/pkg/config"
	"github.com/pipecost/pipecost/pkg/logging"
	"github.com/pipecost/pipecost/pkg/setup"
	"github.com/spf13/cobra"
)

func newSetupCmd() *cobra.Command {
	var (
		configPath string
		skipPip    bool
		skipDB     bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Bootstrap the pipeline workspace (env file, deps, SQL migrations)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			settings, err := config.LoadSettings()
			if err != nil {
				return err
			}

			opts := setup.Options{
				SkipPip:      skipPip,
				SkipDB:       skipDB,
				EnvFile:      cfg.Setup.EnvFile,
				EnvExample:   cfg.Setup.EnvExample,
				Requirements: cfg.Setup.Requirements,
				SQLDir:       cfg.Setup.SQLDir,
				PostgresDSN:  settings.PostgresDSN,
			}

			results := setup.New(logging.New("pipecost")).Run(context.Background(), opts)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STEP\tSTATUS\tDETAIL")
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Status, r.Detail)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pipecost.yaml", "path to config file")
	cmd.Flags().BoolVar(&skipPip, "skip-pip", false, "skip installing pipeline Python dependencies")
	cmd.Flags().BoolVar(&skipDB, "skip-db", false, "skip applying SQL migrations")

	return cmd
}
