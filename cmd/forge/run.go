package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"phrasecraft-hq/forge/pkg/admission"
	"phrasecraft-hq/forge/pkg/backend"
	"phrasecraft-hq/forge/pkg/cli"
	"phrasecraft-hq/forge/pkg/config"
	"phrasecraft-hq/forge/pkg/counterstore"
	"phrasecraft-hq/forge/pkg/history"
	"phrasecraft-hq/forge/pkg/plans"
	"phrasecraft-hq/forge/pkg/quota"
	"phrasecraft-hq/forge/pkg/rewrite"
	"phrasecraft-hq/forge/pkg/server"
	"phrasecraft-hq/forge/pkg/telemetry/logging"
	"phrasecraft-hq/forge/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	watchConfig   bool
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Forge rewrite server",
	Long: `Start the Forge rewrite server with the specified configuration.

The server listens on the configured address and runs every rewrite
request through the admission pipeline (global cap, result cache, quota,
rate limit) before streaming the generation back over SSE.

Examples:
  # Start with default config
  forge run

  # Start with custom config
  forge run --config /etc/forge/config.yaml

  # Override listen address
  forge run --listen 0.0.0.0:8080

  # Validate config without starting server
  forge run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.watchConfig, "watch-config", false, "reload configuration on file change")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	})
	if err != nil {
		return cli.NewConfigError("logging", err.Error())
	}
	logging.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Forge v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Counter store: Redis when configured, in-process otherwise.
	var store counterstore.Store
	if cfg.Redis.Enabled {
		redisStore, err := counterstore.DialRedis(ctx, counterstore.RedisConfig{
			Addr:        cfg.Redis.Address,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to connect to redis: %w", err))
		}
		store = redisStore
		fmt.Printf("✓ Counter store: redis (%s)\n", cfg.Redis.Address)
	} else {
		store = counterstore.NewMemoryStore()
		slog.Warn("redis disabled, using in-process counter store; caps and rate limits are per-instance")
		fmt.Println("✓ Counter store: in-process")
	}

	// Durable stores
	ledger, err := quota.NewSQLiteLedgerWithConfig(quota.SQLiteLedgerConfig{
		DBPath:      cfg.Database.LedgerPath,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to open quota ledger: %w", err))
	}
	defer ledger.Close()

	historyStore, err := history.NewSQLiteStoreWithConfig(history.SQLiteStoreConfig{
		DBPath:      cfg.Database.HistoryPath,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to open history store: %w", err))
	}
	defer historyStore.Close()
	fmt.Println("✓ Durable stores opened")

	// Plan resolution
	assignments := make(map[string]plans.Plan, len(cfg.Plans.Assignments))
	for userID, planName := range cfg.Plans.Assignments {
		assignments[userID] = plans.Plan(planName)
	}
	resolver, err := plans.NewStaticResolver(plans.Defaults(), assignments, plans.Plan(cfg.Plans.DefaultPlan))
	if err != nil {
		return cli.NewConfigError("plans", err.Error())
	}

	// Generation backend
	generator, err := backend.NewOpenAIClient(backend.OpenAIConfig{
		BaseURL:      cfg.Backend.BaseURL,
		APIKey:       cfg.Backend.APIKey,
		Model:        cfg.Backend.Model,
		Timeout:      cfg.Backend.Timeout,
		MaxIdleConns: cfg.Backend.MaxIdleConns,
	})
	if err != nil {
		return cli.NewConfigError("backend", err.Error())
	}
	fmt.Printf("✓ Backend: %s (%s)\n", cfg.Backend.BaseURL, cfg.Backend.Model)

	// Metrics
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(metrics.Config{Enabled: true}, nil)
	}

	// Admission pipeline and execution engine
	controller := admission.NewController(admission.ControllerConfig{
		Store:          store,
		Ledger:         ledger,
		Resolver:       resolver,
		GlobalDailyCap: cfg.Limits.GlobalDailyCap,
		RatePerMinute:  cfg.Limits.RatePerMinute,
		Metrics:        collector,
		Logger:         logger,
	})

	engine := rewrite.NewEngine(rewrite.EngineConfig{
		Generator: generator,
		Ledger:    ledger,
		Store:     store,
		History:   historyStore,
		Metrics:   collector,
		Logger:    logger,
		Timeout:   cfg.Backend.Timeout,
	})

	// Background sweeps
	resetScheduler := quota.NewResetScheduler(ledger, cfg.Schedules.QuotaReset)
	if err := resetScheduler.Start(ctx); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to start quota reset scheduler: %w", err))
	}
	defer resetScheduler.Stop()

	retentionScheduler := history.NewRetentionScheduler(historyStore, cfg.Schedules.HistoryRetention)
	if err := retentionScheduler.Start(ctx); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to start history retention scheduler: %w", err))
	}
	defer retentionScheduler.Stop()
	fmt.Println("✓ Background schedulers started")

	// Optional configuration watcher. Reload pushes the new admission
	// limits and plan assignments into the running pipeline; server,
	// store, and backend settings need a restart.
	if runFlags.watchConfig {
		watcher := config.NewWatcher(cfgFile, func(newCfg *config.Config) {
			controller.SetLimits(newCfg.Limits.GlobalDailyCap, newCfg.Limits.RatePerMinute)

			newAssignments := make(map[string]plans.Plan, len(newCfg.Plans.Assignments))
			for userID, planName := range newCfg.Plans.Assignments {
				newAssignments[userID] = plans.Plan(planName)
			}
			if err := resolver.SetAssignments(newAssignments, plans.Plan(newCfg.Plans.DefaultPlan)); err != nil {
				slog.Warn("keeping previous plan assignments", "error", err)
			}

			slog.Info("configuration reloaded",
				"global_daily_cap", newCfg.Limits.GlobalDailyCap,
				"rate_per_minute", newCfg.Limits.RatePerMinute,
				"plan_assignments", len(newCfg.Plans.Assignments),
			)
		})
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				slog.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	srv := server.NewServer(&cfg.Server, &cfg.Metrics, server.Deps{
		Admission: controller,
		Engine:    engine,
		Ledger:    ledger,
		Resolver:  resolver,
		Store:     store,
		History:   historyStore,
		Metrics:   collector,
	})

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting HTTP server", "address", cfg.Server.ListenAddress)
		if err := srv.Start(ctx); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/healthz\n", cfg.Server.ListenAddress)
	if cfg.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}

		fmt.Println("✓ Server stopped")
		return nil
	}
}
