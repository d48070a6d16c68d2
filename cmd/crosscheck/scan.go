package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/integrity/sanctions-crosscheck/internal/analysis"
	"github.com/integrity/sanctions-crosscheck/internal/app"
	"github.com/integrity/sanctions-crosscheck/internal/pkg/logger"
)

func (c *cli) scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Flag contracts signed during an active sanction",
		Long: `Load a sanctions CSV and a contracts CSV, flag every contract signed while
the supplier was sanctioned, detect suspicious patterns and write
contracts_during_sanction.csv and summary.json to the output directory.

The summary is also printed to stdout.`,
		Args: cobra.NoArgs,
		RunE: c.runScan,
	}

	cmd.Flags().String("sanctions", "", "sanctions CSV (CEIS/CNEP/CEPIM export)")
	cmd.Flags().String("contracts", "", "contracts CSV")
	cmd.Flags().String("output-dir", "", "directory for the flagged CSV and summary")
	cmd.Flags().Int("shards", 0, "contract shards matched concurrently")
	_ = c.v.BindPFlag("analysis.sanctions_path", cmd.Flags().Lookup("sanctions"))
	_ = c.v.BindPFlag("analysis.contracts_path", cmd.Flags().Lookup("contracts"))
	_ = c.v.BindPFlag("analysis.output_dir", cmd.Flags().Lookup("output-dir"))
	_ = c.v.BindPFlag("analysis.shards", cmd.Flags().Lookup("shards"))

	return cmd
}

func (c *cli) runScan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := app.New(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			c.log.Warn("Closing backends failed", logger.ErrorField(closeErr))
		}
	}()

	run, err := a.Analysis.Run(ctx)
	if run == nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	if err != nil {
		// The run completed but could not be stored; outputs are still written.
		c.log.Error("Analysis not persisted", logger.ErrorField(err))
	}

	summary, werr := analysis.WriteOutputs(c.cfg.Analysis.OutputDir, run)
	if werr != nil {
		return werr
	}
	if perr := c.printJSON(summary); perr != nil {
		return perr
	}
	return err
}
