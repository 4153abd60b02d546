package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/tgwatch/internal/config"
	"github.com/nextlevelbuilder/tgwatch/internal/journal"
	"github.com/nextlevelbuilder/tgwatch/internal/metrics"
	"github.com/nextlevelbuilder/tgwatch/internal/monitor"
	"github.com/nextlevelbuilder/tgwatch/internal/state"
	"github.com/nextlevelbuilder/tgwatch/internal/telegram"
	"github.com/nextlevelbuilder/tgwatch/internal/tracing"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the monitor (default command)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd.Context())
		},
	}
}

func runMonitor(parent context.Context) error {
	setupLogging()
	if parent == nil {
		parent = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "path", resolveConfigPath(), "error", err)
		fmt.Fprintln(os.Stderr, "Run `tgwatch onboard` to create a config.")
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry disabled", "error", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	if cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	j, err := journal.Open(ctx, cfg.JournalPath())
	if err != nil {
		slog.Error("failed to open journal", "path", cfg.JournalPath(), "error", err)
		return err
	}
	defer j.Close()

	client, err := telegram.New(cfg.Telegram, j)
	if err != nil {
		slog.Error("failed to create telegram client", "error", err)
		return err
	}
	defer client.Stop()

	st := state.New(statePaths(cfg))
	mon := monitor.New(cfg.MonitorSnapshot(), client, st)

	go func() {
		err := config.Watch(ctx, resolveConfigPath(), func(fresh *config.Config) {
			cfg.ReplaceFrom(fresh)
			mon.Reload(cfg.MonitorSnapshot())
		})
		if err != nil {
			slog.Warn("config watcher unavailable", "error", err)
		}
	}()

	slog.Info("tgwatch starting",
		"version", Version,
		"bot", client.Username(),
		"journal", cfg.JournalPath(),
	)

	if err := mon.Run(ctx); err != nil {
		slog.Error("monitor stopped", "error", err)
		return err
	}
	slog.Info("tgwatch stopped")
	return nil
}
