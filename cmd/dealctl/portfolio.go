package main

import (
	"os"

	"github.com/spf13/cobra"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Show rankings, concentration and systemic risks across non-archived deals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		ins, err := newClient().PortfolioInsights(ctx)
		if err != nil {
			return err
		}
		return Write(os.Stdout, Format(outputFormat), ins)
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs RUN_ID",
	Short: "Show a recorded pipeline run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		run, err := newClient().GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		if Format(outputFormat) == FormatText && run.Result != nil {
			cmd.Printf("run %s for deal %s: %s\n\n", run.ID, run.DealID, run.State)
			return Write(os.Stdout, FormatText, run.Result)
		}
		return Write(os.Stdout, Format(outputFormat), run)
	},
}
