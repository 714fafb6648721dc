package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/campus-hub/campus-event-hub/pkg/logger"
)

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API and, when enabled, the background scheduler",
		RunE:  runServe,
	}

	workerCmd = &cobra.Command{
		Use:   "worker",
		Short: "Run only the background scheduler",
		RunE:  runWorker,
	}
)

func runServe(cmd *cobra.Command, _ []string) error {
	return run(cmd.Context(), true)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	return run(cmd.Context(), false)
}

// run blocks until SIGINT/SIGTERM or a component fails, then shuts every
// component down within App.ShutdownTimeout.
func run(parent context.Context, withHTTP bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	component := "worker"
	if withHTTP {
		component = "api"
	}
	log = log.With(logger.Component(component))
	log.Info("starting campus event hub",
		logger.String("version", cfg.App.Version),
		logger.Bool("http", withHTTP),
		logger.Bool("scheduler", cfg.Scheduler.Enabled),
	)

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if !withHTTP && !cfg.Scheduler.Enabled {
		return fmt.Errorf("worker started with scheduler.enabled=false: nothing to run")
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Scheduler.Enabled {
		if err := a.scheduler.Start(gctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			return a.scheduler.Stop()
		})
	}

	if withHTTP {
		srv := a.httpServer()
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			log.Info("starting graceful shutdown", logger.Duration("timeout", cfg.App.ShutdownTimeout))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg.App.ShutdownTimeout))
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("shutdown completed with errors", logger.Err(err))
		return err
	}
	log.Info("shutdown completed successfully")
	return nil
}

func shutdownTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
