package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"medaltable/internal/archive"
	"medaltable/internal/components/chrono"
	"medaltable/internal/components/configutil"
	"medaltable/internal/components/telemetry"
	"medaltable/internal/extract"
	"medaltable/internal/refresh"
	"medaltable/internal/registry"
	"medaltable/internal/scrapers/standings"
	"medaltable/internal/snapshot"
	"medaltable/internal/source"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	// Out is where the snapshot is written.
	Out string `json:"out"`
	// Policy is either "conservative" or "strict".
	Policy     string   `json:"policy"`
	Sources    []string `json:"sources"`
	Attempts   int      `json:"attempts"`
	RetryDelay string   `json:"retry_delay"`
	MinRows    int      `json:"min_rows"`
	UserAgent  string   `json:"user_agent"`
	// DumpDir, when set, keeps a copy of every fetched page.
	DumpDir string `json:"dump_dir"`
	// Archive is the sqlite database holding the history of written snapshots.
	Archive        string `json:"archive"`
	DisableArchive bool   `json:"disable_archive"`
	// Schedule is the cron expression used by `watch`.
	Schedule  string           `json:"schedule"`
	Telemetry telemetry.Config `json:"telemetry"`
}

func defaultConfig() Config {
	out, err := snapshot.DefaultPath()
	if err != nil {
		slog.Warn("failed to locate executable, writing to the working directory", "err", err)
		out = snapshot.DefaultFilename
	}
	return Config{
		Out:        out,
		Policy:     string(refresh.PolicyConservative),
		Sources:    source.DefaultSources,
		Attempts:   source.DefaultAttempts,
		RetryDelay: source.DefaultRetryDelay.String(),
		MinRows:    source.DefaultMinRows,
		Schedule:   "*/30 * * * *",
	}
}

// loadConfig reads the config file if there is one and fills in everything it leaves out.
func loadConfig() (Config, error) {
	cfg, err := configutil.ReadConfig[Config](*configPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	return configutil.WithDefaults(cfg, defaultConfig())
}

// archivePath defaults to medals-history.db beside the snapshot.
func (c Config) archivePath() string {
	if c.Archive != "" {
		return c.Archive
	}
	return filepath.Join(filepath.Dir(c.Out), "medals-history.db")
}

func (c Config) retryDelay() (time.Duration, error) {
	delay, err := time.ParseDuration(c.RetryDelay)
	if err != nil {
		return 0, fmt.Errorf("parse retry_delay: %w", err)
	}
	return delay, nil
}

type app struct {
	service refresh.Service
	store   snapshot.Store
	archive *archive.Archive
}

func (a app) Close() {
	if a.archive != nil {
		err := a.archive.Close()
		if err != nil {
			slog.Warn("failed to close archive", "err", err)
		}
	}
}

// newApp wires the refresh service out of cfg.
func newApp(ctx context.Context, cfg Config, tel telemetry.API) (app, error) {
	policy, err := refresh.ParsePolicy(cfg.Policy)
	if err != nil {
		return app{}, err
	}
	delay, err := cfg.retryDelay()
	if err != nil {
		return app{}, err
	}

	clientOpts := standings.Options{UserAgent: cfg.UserAgent}
	if cfg.DumpDir != "" {
		dump, err := standings.NewPageDump(cfg.DumpDir)
		if err != nil {
			return app{}, err
		}
		clientOpts.Dump = &dump
	}
	client := standings.NewClient(clientOpts, tel)
	orchestrator := source.NewOrchestrator(
		client,
		extract.Default(registry.Default(), tel),
		source.Options{
			Sources:    cfg.Sources,
			Attempts:   cfg.Attempts,
			RetryDelay: delay,
			MinRows:    cfg.MinRows,
		},
		tel,
	)
	store := snapshot.NewStore(cfg.Out, tel)

	out := app{store: store}
	var recorder refresh.Archive
	if !cfg.DisableArchive {
		history, err := archive.Open(ctx, cfg.archivePath())
		if err != nil {
			return app{}, err
		}
		out.archive = &history
		recorder = history
	}

	out.service = refresh.NewService(
		orchestrator,
		store,
		recorder,
		policy,
		chrono.NewStandardImpl(),
		tel,
	)
	return out, nil
}

// setupTelemetry installs the otel exporters named in cfg, the returned function flushes them.
func setupTelemetry(ctx context.Context, cfg Config) func() {
	providers, err := telemetry.Setup(ctx, "medals", cfg.Telemetry)
	if err != nil {
		slog.Warn("failed to set up otel exporters", "err", err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := providers.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	}
}
