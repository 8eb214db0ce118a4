package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-matcher/internal/config"
	"github.com/jonathan/resume-matcher/internal/logger"
	"github.com/jonathan/resume-matcher/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API, task workers and scheduler",
	Long: `Start an HTTP server for document intake, task status and match queries,
together with the task workers and the maintenance scheduler. A gRPC health
service is started when grpc.port is set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP port to listen on")
	serveCmd.Flags().Int("grpc-port", 0, "gRPC health port (0 disables)")
	_ = v.BindPFlag("http.port", serveCmd.Flags().Lookup("port"))
	_ = v.BindPFlag("grpc.port", serveCmd.Flags().Lookup("grpc-port"))

	rootCmd.AddCommand(serveCmd)
}

// setup loads configuration, builds the logger and wires the service.
func setup(ctx context.Context) (*config.Config, *zap.Logger, *App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	app, err := newApp(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, nil, fmt.Errorf("failed to start service: %w", err)
	}
	return cfg, log, app, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, app, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	defer app.Close()

	srv := server.New(server.Config{
		Port:            cfg.HTTP.Port,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, server.Deps{
		Dispatcher: app.Dispatcher,
		Matches:    app.Matches,
		Documents:  app.Store,
		Caps:       app.Caps,
		Checks:     app.Checks,
		Logger:     log.Named("http"),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if cfg.GRPC.Port > 0 {
		g.Go(func() error {
			return server.ServeGRPC(gctx, cfg.GRPC.Port, server.NewHealthServer(app.Caps), log.Named("grpc"))
		})
	}
	if app.Caps.QueueAvailable {
		g.Go(func() error {
			return app.Manager.Run(gctx)
		})
	}

	sched := app.Scheduler()
	if err := sched.Start(gctx); err != nil {
		stop()
		_ = g.Wait()
		return err
	}
	defer sched.Stop()

	return g.Wait()
}
