package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dealflow/internal/apiclient"
	"dealflow/internal/pipeline"
)

var stageHelp = map[pipeline.Stage]string{
	pipeline.StageIngest:     "Parse the deal document, manual data or listing link into property and lease facts",
	pipeline.StageEnrich:     "Enrich location and tenant context",
	pipeline.StageUnderwrite: "Score risk and compute the financial projection",
	pipeline.StageMemo:       "Generate a new investment memo version",
	pipeline.StageExplain:    "Explain the current risk scores",
}

// stageCommands builds one subcommand per pipeline stage.
func stageCommands() []*cobra.Command {
	stages := []pipeline.Stage{
		pipeline.StageIngest,
		pipeline.StageEnrich,
		pipeline.StageUnderwrite,
		pipeline.StageMemo,
		pipeline.StageExplain,
	}
	cmds := make([]*cobra.Command, 0, len(stages))
	for _, st := range stages {
		flags := &stageInputFlags{}
		cmd := &cobra.Command{
			Use:   string(st) + " DEAL_ID",
			Short: stageHelp[st],
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				in, err := flags.build(cmd)
				if err != nil {
					return err
				}
				ctx, cancel := commandContext(cmd)
				defer cancel()
				out, err := newClient().RunStage(ctx, args[0], st, &in)
				if err != nil {
					return err
				}
				if Format(outputFormat) == FormatText && out.Memo != nil {
					return RenderMemo(os.Stdout, out.Memo)
				}
				return Write(os.Stdout, Format(outputFormat), out)
			},
		}
		if st == pipeline.StageIngest || st == pipeline.StageUnderwrite {
			flags.register(cmd)
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

var pipelineFlags = &stageInputFlags{}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline DEAL_ID",
	Short: "Run ingest, enrich, underwrite and memo in order, stopping at the first failure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := pipelineFlags.build(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		res, runID, runErr := newClient().RunPipeline(ctx, args[0], in)
		if res != nil {
			if err := Write(os.Stdout, Format(outputFormat), res); err != nil {
				return err
			}
		}
		if runID != "" {
			fmt.Fprintf(os.Stderr, "run %s\n", runID)
		}
		var apiErr *apiclient.APIError
		if errors.As(runErr, &apiErr) && res != nil {
			return fmt.Errorf("pipeline stopped: %w", runErr)
		}
		return runErr
	},
}

func init() {
	pipelineFlags.register(pipelineCmd)
}
