package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gifsink "github.com/bnema/petminion/internal/adapters/video/gif"
	"github.com/bnema/petminion/internal/application"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const metricsShutdownTimeout = 5 * time.Second

func newRunCmd(app *app) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the camera and feed according to the configured rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if metricsAddr == "" {
				metricsAddr = app.cfg.Metrics.Addr
			}
			if metricsAddr != "" {
				shutdown := serveMetrics(metricsAddr, app.logger)
				defer shutdown()
			}

			return runTrainer(ctx, app)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	return cmd
}

func runTrainer(ctx context.Context, app *app) (err error) {
	parts, err := app.components(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, parts.close())
	}()

	ruleCfg, err := app.ruleConfig()
	if err != nil {
		return err
	}

	captures := application.NewCaptureSession(ctx, application.CaptureDeps{
		Clock:  app.clock,
		Store:  app.store,
		Sinks:  gifsink.Factory{},
		Poster: parts.poster,
		Logger: app.logger,
	}, app.cfg.CaptureConfig())

	rule, err := application.NewRule(ctx, app.cfg.Rule, application.Deps{
		Clock:      app.clock,
		Store:      app.store,
		Feeder:     parts.feeder,
		Snapshots:  parts.snapshots,
		LiveFrames: parts.liveFrames,
		Journal:    parts.journal,
		Captures:   captures,
		Logger:     app.logger,
	}, ruleCfg)
	if err != nil {
		return err
	}

	app.logger.Info("petminion starting",
		"rule", rule.Name(),
		"simulated", app.cfg.Simulation.Enabled,
		"state_dir", app.store.Dir(),
		"fed_today", rule.Status().FedToday,
	)

	trainer := application.NewTrainer(application.TrainerDeps{
		Camera:     parts.camera,
		Recognizer: parts.recognizer,
		Rule:       rule,
		Captures:   captures,
		Clock:      app.clock,
		Logger:     app.logger,
	}, app.cfg.Intervals.TickDelay)

	if err := trainer.Run(ctx); err != nil {
		return fmt.Errorf("trainer stopped: %w", err)
	}
	return nil
}

func serveMetrics(addr string, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
	}
}
