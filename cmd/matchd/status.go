package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-matcher/internal/observability"
)

var statusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Print the status of a queued task",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	_, log, app, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	defer app.Close()

	report, err := app.Dispatcher.Status(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get task %s: %w", args[0], err)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintTaskStatus(report)
	return nil
}
