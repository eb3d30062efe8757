package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dealflow/internal/apiclient"
)

var (
	apiBase      string
	apiToken     string
	outputFormat string
	timeout      time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "dealctl",
	Short: "Command line client for the dealflow service",
	Long: `dealctl drives the dealflow API: create deals, run pipeline stages,
read memos and portfolio insights.

Environment:
  DEALFLOW_API_BASE   API base URL (default http://localhost:8080)
  DEALFLOW_API_TOKEN  bearer token sent on every request`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch Format(strings.ToLower(outputFormat)) {
		case FormatJSON, FormatYAML, FormatText:
			outputFormat = strings.ToLower(outputFormat)
			return nil
		default:
			return errors.New("--output must be json, yaml or text")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiBase, "api-base", envOr("DEALFLOW_API_BASE", "http://localhost:8080"), "dealflow API base URL")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("DEALFLOW_API_TOKEN"), "bearer token")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", string(FormatText), "output format: json, yaml or text")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "request timeout")

	rootCmd.AddCommand(dealsCmd, pipelineCmd, memoCmd, portfolioCmd, runsCmd, tokenCmd)
	for _, c := range stageCommands() {
		rootCmd.AddCommand(c)
	}
}

func newClient() *apiclient.Client {
	c := apiclient.New(apiBase, timeout)
	c.Token = apiToken
	return c
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, timeout)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// exitCode maps API failures onto distinct process exit codes.
func exitCode(err error) int {
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		return 1
	}
	switch apiErr.Status {
	case 400:
		return 2
	case 404:
		return 3
	case 409:
		return 4
	default:
		return 5
	}
}
