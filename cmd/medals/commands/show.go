package commands

import (
	"context"
	"fmt"
	"io"
	"medaltable/internal/archive"
	"medaltable/internal/components/serviceutil"
	"medaltable/internal/components/telemetry"
	"medaltable/internal/snapshot"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	showOut       *string
	historyLimit  *int
	historyLatest *bool
)

func init() {
	showOut = showCmd.Flags().String("out", "", "The snapshot to show, defaults to the configured output.")
	historyLimit = historyCmd.Flags().Int("limit", 10, "How many refreshes to list, 0 lists all of them.")
	historyLatest = historyCmd.Flags().Bool("latest", false, "Print the full table of the newest archived refresh instead.")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(historyCmd)
}

func renderSnapshot(w io.Writer, snap snapshot.Snapshot) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "NOC", "Country", "Gold", "Silver", "Bronze", "Total"})
	for i, row := range snap.Rows {
		t.AppendRow(table.Row{i + 1, row.Noc, row.Country, row.Gold, row.Silver, row.Bronze, row.Total})
	}
	t.SetCaption("%s (%s)", snap.Source, snap.FetchedAt)
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderHistory(w io.Writer, entries []archive.Entry) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Fetched At", "Rows", "Leader", "Source"})
	for _, entry := range entries {
		leader := "-"
		if len(entry.Rows) > 0 {
			leader = fmt.Sprintf("%s (%d)", entry.Rows[0].Noc, entry.Rows[0].Total)
		}
		t.AppendRow(table.Row{entry.ID, entry.FetchedAt, entry.RowCount, leader, entry.Source})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// writeHistory lists limit entries of history, or the full table of the newest one when
// latest is set.
func writeHistory(ctx context.Context, w io.Writer, history archive.Archive, limit int, latest bool) error {
	if !latest {
		entries, err := history.List(ctx, limit)
		if err != nil {
			return err
		}
		renderHistory(w, entries)
		return nil
	}

	entry, ok, err := history.Latest(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(w, "the archive is empty")
		return nil
	}
	renderSnapshot(w, snapshot.Snapshot{
		Source:    entry.Source,
		FetchedAt: entry.FetchedAt,
		RowCount:  entry.RowCount,
		Rows:      entry.Rows,
	})
	return nil
}

var showCmd = &cobra.Command{
	Use:   "show [--out <path/to/medals.json>]",
	Short: "Prints the current snapshot as a table.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if cmd.Flags().Changed("out") {
			cfg.Out = *showOut
		}

		snap, err := snapshot.NewStore(cfg.Out, telemetry.SlogAPI{}).Read()
		if err != nil {
			serviceutil.Fatal("failed to read snapshot", err)
		}
		renderSnapshot(os.Stdout, snap)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [--limit <n>] [--latest]",
	Short: "Lists previous refreshes recorded in the archive.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if cfg.DisableArchive {
			fmt.Fprintln(os.Stderr, "the archive is disabled in the config")
			os.Exit(1)
		}

		history, err := archive.Open(cmd.Context(), cfg.archivePath())
		if err != nil {
			serviceutil.Fatal("failed to open archive", err)
		}
		defer history.Close()

		err = writeHistory(cmd.Context(), os.Stdout, history, *historyLimit, *historyLatest)
		if err != nil {
			history.Close()
			serviceutil.Fatal("failed to read archive", err)
		}
	},
}
