// Package main is the entry point for the tenant fixture generator.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"tenantsim/internal/config"
	"tenantsim/internal/engine"
	"tenantsim/internal/export"
	"tenantsim/internal/identity"
	"tenantsim/internal/progress"
	"tenantsim/internal/schema"
)

var version = "dev"

func main() {
	var (
		configPath   = flag.String("config", "", "path to config file (default configs/tenantsim.yaml)")
		rosterPath   = flag.String("roster", "", "path to the identity roster CSV, overrides config")
		outDir       = flag.String("out", "", "output directory, overrides config")
		seed         = flag.Int64("seed", 0, "scenario seed, overrides config when non-zero")
		mergePath    = flag.String("merge", "", "existing sign-in CSV to merge new rows into")
		showProgress = flag.Bool("progress", false, "render per-stream progress bars")
		showVersion  = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("tenantsim", version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	if *rosterPath != "" {
		cfg.Identity.RosterPath = *rosterPath
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *seed != 0 {
		cfg.Scenario.Seed = *seed
	}
	if *mergePath != "" {
		cfg.Output.MergeSignIns = *mergePath
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"date_start", cfg.Scenario.DateStart,
		"date_end", cfg.Scenario.DateEnd,
		"seed", cfg.Scenario.Seed,
		"roster", cfg.Identity.RosterPath,
		"storage_enabled", cfg.Storage.Enabled,
		"kafka_enabled", cfg.Kafka.Enabled,
		"archive_enabled", cfg.Archive.Enabled,
	)

	ctx := context.Background()

	if err := run(ctx, cfg, *showProgress); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, showProgress bool) error {
	corpus, err := identity.LoadRoster(cfg.Identity.RosterPath)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	slog.Info("roster loaded", "principals", corpus.Len())

	var existing []schema.SignInEvent
	if cfg.Output.MergeSignIns != "" {
		existing, err = export.LoadSignIns(cfg.Output.MergeSignIns)
		if err != nil {
			return fmt.Errorf("load existing sign-ins: %w", err)
		}
		slog.Info("existing sign-in table loaded",
			"path", cfg.Output.MergeSignIns,
			"rows", len(existing),
		)
	}

	store, cleanup, err := newReservationStore(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := engine.New(cfg, slog.Default(), store)

	var reporter *progress.Reporter
	if showProgress {
		title := fmt.Sprintf("tenantsim %s..%s seed=%d",
			cfg.Scenario.DateStart, cfg.Scenario.DateEnd, cfg.Scenario.Seed)
		reporter = progress.Start(title)
		eng.WithReporter(reporter)
	}

	start := time.Now()
	result, err := eng.Run(ctx, corpus, existing)
	if reporter != nil {
		reporter.Finish()
	}
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	if err := eng.Validate(result); err != nil {
		return fmt.Errorf("output validation: %w", err)
	}

	slog.Info("generation complete",
		"run_id", result.RunID,
		"audit_rows", len(result.Audit),
		"activity_rows", len(result.Activity),
		"signin_rows", len(result.SignIns),
		"elapsed", time.Since(start),
	)

	paths, err := export.WriteFiles(cfg.Output.Dir,
		cfg.Output.AuditFile, result.Audit,
		cfg.Output.ActivityFile, result.Activity,
		cfg.Output.SignInFile, result.SignIns,
	)
	if err != nil {
		return err
	}
	slog.Info("csv tables written", "dir", cfg.Output.Dir)

	if cfg.Storage.Enabled {
		if err := loadClickHouse(ctx, cfg, result); err != nil {
			return err
		}
	}

	if cfg.Kafka.Enabled {
		if err := publishKafka(ctx, cfg, result); err != nil {
			return err
		}
	}

	if cfg.Archive.Enabled {
		archiver, err := export.NewArchiver(ctx, cfg.Archive, slog.Default())
		if err != nil {
			return err
		}
		keys, err := archiver.ArchiveFiles(ctx, result.RunID, paths)
		if err != nil {
			return err
		}
		slog.Info("archive uploaded", "bucket", cfg.Archive.Bucket, "objects", len(keys))
	}

	return nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// newReservationStore picks the fabricated-identifier store: Redis when
// cross-run uniqueness is wanted, in-memory otherwise.
func newReservationStore(cfg *config.Config) (identity.ReservationStore, func(), error) {
	if !cfg.Reservations.Enabled {
		return identity.NewMemoryStore(), func() {}, nil
	}

	store, err := identity.NewRedisStore(identity.RedisStoreConfig{
		Addr:        cfg.Reservations.Addr,
		Password:    cfg.Reservations.Password,
		DB:          cfg.Reservations.DB,
		Key:         cfg.Reservations.Key,
		DialTimeout: cfg.Reservations.DialTimeout,
		TLSEnabled:  cfg.Reservations.TLSEnabled,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("reservation store: %w", err)
	}

	slog.Info("redis reservation store connected", "addr", cfg.Reservations.Addr)

	cleanup := func() {
		if err := store.Close(); err != nil {
			slog.Error("reservation store close error", "error", err)
		}
	}
	return store, cleanup, nil
}

func loadClickHouse(ctx context.Context, cfg *config.Config, result *engine.Result) error {
	sink, err := export.NewClickHouseSink(cfg.Storage, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			slog.Error("clickhouse close error", "error", err)
		}
	}()

	if err := sink.EnsureTables(ctx); err != nil {
		return err
	}
	if err := sink.InsertAudit(ctx, result.Audit); err != nil {
		return err
	}
	if err := sink.InsertActivity(ctx, result.Activity); err != nil {
		return err
	}
	if err := sink.InsertSignIns(ctx, result.SignIns); err != nil {
		return err
	}

	slog.Info("clickhouse load complete", "rows", result.Rows())
	return nil
}

func publishKafka(ctx context.Context, cfg *config.Config, result *engine.Result) error {
	pub, err := export.NewPublisher(cfg.Kafka, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if err := pub.Close(); err != nil {
			slog.Error("kafka close error", "error", err)
		}
	}()

	if err := pub.PublishAudit(ctx, result.RunID, result.Audit); err != nil {
		return err
	}
	if err := pub.PublishActivity(ctx, result.RunID, result.Activity); err != nil {
		return err
	}
	if err := pub.PublishSignIns(ctx, result.RunID, result.SignIns); err != nil {
		return err
	}

	slog.Info("kafka publish complete", "rows", result.Rows())
	return nil
}
