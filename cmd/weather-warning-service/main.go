package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/pflag"

	httpapi "github.com/i474232898/weather-warning-service/internal/api/http"
	"github.com/i474232898/weather-warning-service/internal/clock"
	"github.com/i474232898/weather-warning-service/internal/config"
	"github.com/i474232898/weather-warning-service/internal/events"
	"github.com/i474232898/weather-warning-service/internal/metrics"
	"github.com/i474232898/weather-warning-service/internal/notify"
	"github.com/i474232898/weather-warning-service/internal/server"
	"github.com/i474232898/weather-warning-service/internal/usage"
)

func main() {
	fs := pflag.NewFlagSet("weather-warning-service", pflag.ExitOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(os.Stderr, cfg)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, cfg *config.AppConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func run(cfg *config.AppConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()
	use := usage.NewRuntimeProvider(clk)

	// Event bus with the log observer and, when configured, the webhook.
	bus := events.NewBus(cfg.EventBuffer, log)
	bus.Subscribe(events.NewLogObserver(log))

	busCtx, stopBus := context.WithCancel(context.Background())
	busDone := make(chan struct{})
	go func() {
		bus.Run(busCtx)
		close(busDone)
	}()

	if whCfg, ok := cfg.WebhookConfig(); ok {
		wh, err := notify.NewWebhookObserver(whCfg, nil, log)
		if err != nil {
			stopBus()
			return err
		}
		bus.Subscribe(wh)
		go wh.Run(ctx)
		log.Info("webhook enabled", "url", whCfg.URL)
	}

	reg := metrics.NewRegistry()
	sampler := metrics.NewSampler(metrics.SamplerDeps{
		Interval: cfg.MetricsInterval,
		Clock:    clk,
		Usage:    use,
		Registry: reg,
		Bus:      bus,
		Logger:   log,
	})

	srv := server.New(server.Deps{
		Config:  cfg.ServerConfig(),
		Clock:   clk,
		Usage:   use,
		Sampler: sampler,
		Bus:     bus,
		Logger:  log,
	})

	if err := sampler.Start(srv); err != nil {
		stopBus()
		return fmt.Errorf("start sampler: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	// Optional ops endpoint.
	var stopOps func(context.Context) error
	if cfg.OpsPort != "" {
		app := httpapi.NewApp()
		app.Use(logger.New())
		app.Use(recover.New())
		httpapi.RegisterRoutes(app, srv, reg)

		go func() {
			if err := app.Listen(":" + cfg.OpsPort); err != nil {
				log.Warn("ops endpoint stopped", "error", err)
			}
		}()
		stopOps = app.ShutdownWithContext
		log.Info("ops endpoint enabled", "port", cfg.OpsPort)
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		if !errors.Is(err, server.ErrServerClosed) {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if stopOps != nil {
		if err := stopOps(shutdownCtx); err != nil {
			log.Warn("error during ops shutdown", "error", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("error during server shutdown", "error", err)
	}
	sampler.Stop()

	stopBus()
	select {
	case <-busDone:
	case <-shutdownCtx.Done():
	}
	if n := bus.Dropped(); n > 0 {
		log.Info("events dropped during run", "count", n)
	}
	return runErr
}
