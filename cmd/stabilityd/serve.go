package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/config"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/controller"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/logging"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/stability"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/telemetry"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/tracing"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/transport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// #region serve-cmd

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the control loop and expose it over gRPC",
	Long: `Starts the stability system, its periodic monitor/evolution/scan loops,
the config file watcher and the gRPC service. Stops gracefully on SIGINT or
SIGTERM, flushing the journal.`,
	RunE: runServe,
}

const shutdownTimeout = 5 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	opts := buildOptions(cfg)
	opts.Logger = logger
	if cfg.Journal.Enabled {
		store, err := state.NewStore(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer store.Close()
		opts.Journal = logging.NewJournal(store, logger, cfg.Journal.Buffer)
	}
	if cfg.Integration.EnableReclaim {
		opts.Reclaimer = controller.NewRuntimeReclaimer()
	}
	if cfg.Integration.EnableRuntimeMonitoring {
		opts.Tracker = telemetry.NewTracker(telemetry.DefaultConfig(), telemetry.RuntimeMemorySampler{})
	}

	sys := stability.New(opts)
	if err := sys.Init(ctx); err != nil {
		return fmt.Errorf("init stability system: %w", err)
	}

	lis, err := net.Listen("tcp", cfg.Transport.Listen)
	if err != nil {
		_ = sys.Shutdown(context.Background())
		return fmt.Errorf("listen on %s: %w", cfg.Transport.Listen, err)
	}
	server := transport.NewServer(sys, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return stability.NewScheduler(sys, scheduleOf(cfg), logger).Run(gctx)
	})
	g.Go(func() error {
		return server.Serve(gctx, lis)
	})
	if configPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, configPath, logger, func(c *config.Config) {
				sys.Retune(tuningOf(c))
			})
		})
	}

	runErr := g.Wait()
	logger.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sys.Shutdown(sctx); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// #endregion serve-cmd
