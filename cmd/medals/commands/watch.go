package commands

import (
	"context"
	"log/slog"
	"medaltable/internal/components/chrono"
	"medaltable/internal/components/serviceutil"
	"medaltable/internal/components/telemetry"
	"medaltable/internal/refresh"
	"time"

	"github.com/spf13/cobra"
)

var (
	watchSchedule *string
	watchOut      *string
)

func init() {
	watchSchedule = watchCmd.Flags().String("schedule", "", "Cron expression for refreshes, defaults to every 30 minutes.")
	watchOut = watchCmd.Flags().String("out", "", "Where to write the snapshot.")
	rootCmd.AddCommand(watchCmd)
}

func runRefresh(ctx context.Context, service refresh.Service) {
	outcome, err := service.Run(ctx)
	if err != nil {
		slog.Error("refresh failed", "err", err)
		return
	}
	if outcome.KeptStale {
		slog.Warn("live fetch failed, kept existing snapshot", "reason", outcome.Reason.Error())
		return
	}
	slog.Info("updated snapshot", "source", outcome.Snapshot.Source, "rows", outcome.Snapshot.RowCount)
}

var watchCmd = &cobra.Command{
	Use:   "watch [--schedule <cron expression>]",
	Short: "Refreshes the snapshot on a schedule until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if cmd.Flags().Changed("schedule") {
			cfg.Schedule = *watchSchedule
		}
		if cmd.Flags().Changed("out") {
			cfg.Out = *watchOut
		}

		ctx, cancel := serviceutil.SignalContext(cmd.Context())
		defer cancel()

		flush := setupTelemetry(ctx, cfg)
		defer flush()

		tel := telemetry.SlogAPI{}
		app, err := newApp(ctx, cfg, tel)
		if err != nil {
			serviceutil.Fatal("failed to initialize", err)
		}
		defer app.Close()

		telemetry.InstrumentPerfStats(ctx, tel)

		slog.Info("watching medal table", "schedule", cfg.Schedule, "out", app.store.Path())
		runRefresh(ctx, app.service)

		cron := chrono.NewStandardCron(time.UTC, tel)
		defer cron.Stop()

		err = cron.Cron(cfg.Schedule, func() {
			runRefresh(ctx, app.service)
		})
		if err != nil {
			serviceutil.Fatal("invalid schedule", err)
		}

		<-ctx.Done()
		slog.Info("stopping")
	},
}
