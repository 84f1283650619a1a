package commands

import (
	"fmt"
	"log/slog"
	"medaltable/internal/components/serviceutil"
	"medaltable/internal/components/telemetry"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	refreshOut    *string
	refreshPolicy *string
	refreshDump   *string
)

func init() {
	refreshOut = refreshCmd.Flags().String("out", "", "Where to write the snapshot, defaults to medals.json next to the program's directory.")
	refreshPolicy = refreshCmd.Flags().String("policy", "", "What to do when every source fails: conservative keeps an existing snapshot, strict fails.")
	refreshDump = refreshCmd.Flags().String("dump", "", "A directory to save every fetched page in.")
	rootCmd.AddCommand(refreshCmd)
}

// applyFlags lets explicitly set flags win over the config file.
func applyFlags(cmd *cobra.Command, cfg *Config) {
	if cmd.Flags().Changed("out") {
		cfg.Out = *refreshOut
	}
	if cmd.Flags().Changed("policy") {
		cfg.Policy = *refreshPolicy
	}
	if cmd.Flags().Changed("dump") {
		cfg.DumpDir = *refreshDump
	}
}

var refreshCmd = &cobra.Command{
	Use:   "refresh [--out <path/to/medals.json>] [--policy conservative|strict] [--dump <dir>]",
	Short: "Fetches the medal table once and writes the snapshot.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		applyFlags(cmd, &cfg)

		ctx, cancel := serviceutil.SignalContext(cmd.Context())
		defer cancel()

		flush := setupTelemetry(ctx, cfg)
		defer flush()

		app, err := newApp(ctx, cfg, telemetry.SlogAPI{})
		if err != nil {
			serviceutil.Fatal("failed to initialize", err)
		}
		defer app.Close()

		outcome, err := app.service.Run(ctx)
		if err != nil {
			flush()
			app.Close()
			serviceutil.Fatal("failed to refresh medals", err)
		}

		name := filepath.Base(app.store.Path())
		if outcome.KeptStale {
			slog.Warn(
				fmt.Sprintf("live fetch failed; keeping existing %s snapshot", name),
				"reason", outcome.Reason.Error(),
			)
			return
		}
		fmt.Fprintf(os.Stdout, "Updated %s with %d countries\n", name, outcome.Snapshot.RowCount)
	},
}
