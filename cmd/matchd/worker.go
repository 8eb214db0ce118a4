package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run task workers and the scheduler without the HTTP API",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, log, app, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	defer app.Close()

	if !app.Caps.QueueAvailable {
		return errors.New("worker requires a reachable queue backend (queue.backend=redis with redis_url)")
	}

	sched := app.Scheduler()
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	return app.Manager.Run(ctx)
}
