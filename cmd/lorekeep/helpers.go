package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/lorekeep/lorekeep/internal/common"
	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/daemon"
	"github.com/lorekeep/lorekeep/internal/dedup"
	"github.com/lorekeep/lorekeep/internal/llm"
	"github.com/lorekeep/lorekeep/internal/service"
	"github.com/lorekeep/lorekeep/internal/sink"
	"github.com/lorekeep/lorekeep/internal/source"
	"github.com/lorekeep/lorekeep/internal/storage"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/lorekeep/lorekeep.db"
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("could not open question database at %s", dbPath), err)
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// llmConfig assembles the shared LLM client settings from configuration.
func llmConfig() llm.Config {
	provider, apiKey, model := config.LoadLLMSettings()
	return llm.Config{
		Provider:    provider,
		APIKey:      apiKey,
		Model:       model,
		MaxRetries:  viper.GetInt("llm.max_retries"),
		RetryDelay:  viper.GetDuration("llm.retry_delay"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
	}
}

// initMatcher builds the similarity engine, attaching the LLM judge when an
// API key is configured.
func initMatcher() service.Matcher {
	opts := []dedup.Option{}
	if n := viper.GetInt("dedup.cache_size"); n > 0 {
		opts = append(opts, dedup.WithCacheSize(n))
	}

	cfg := llmConfig()
	if cfg.APIKey != "" && viper.GetBool("dedup.llm_judge") {
		judge, err := llm.NewJudge(cfg, slog.Default())
		if err != nil {
			slog.Warn("LLM judge unavailable, relying on similarity only", "error", err)
		} else {
			opts = append(opts, dedup.WithJudge(judge))
		}
	}

	return dedup.NewEngine(opts...)
}

// initGenerator builds the AI question source. A missing API key yields an
// unconfigured source that the daemon skips.
func initGenerator() *source.AIGenerator {
	categories := viper.GetStringSlice("generator.categories")

	cfg := llmConfig()
	if cfg.APIKey == "" {
		return source.NewAIGenerator(nil, categories)
	}

	gen, err := llm.NewGenerator(cfg, slog.Default())
	if err != nil {
		slog.Warn("question generator unavailable", "error", err)
		return source.NewAIGenerator(nil, categories)
	}
	return source.NewAIGenerator(gen, categories)
}

// daemonConfig maps the viper tree onto daemon settings.
func daemonConfig() daemon.Config {
	cfg := daemon.DefaultConfig()
	if v := viper.GetInt("daemon.batch_size"); v > 0 {
		cfg.BatchSize = v
	}
	if v := viper.GetInt("daemon.sample_limit"); v > 0 {
		cfg.SampleLimit = v
	}
	if v := viper.GetDuration("daemon.cycle_interval"); v > 0 {
		cfg.CycleInterval = v
	}
	if v := viper.GetDuration("daemon.source_delay"); v >= 0 && viper.IsSet("daemon.source_delay") {
		cfg.SourceDelay = v
	}
	cfg.DryRun = viper.GetBool("daemon.dry_run")
	cfg.StatsPath = config.ExpandPath(viper.GetString("daemon.stats_path"))
	return cfg
}

// buildDaemon wires storage, sinks and sources into a ready daemon.
func buildDaemon(ctx context.Context, dryRun bool) (*daemon.Daemon, func(), error) {
	cfg := daemonConfig()
	if dryRun {
		cfg.DryRun = true
	}

	opts := []daemon.Option{}
	cleanups := []func(){}

	if !viper.GetBool("storage.disabled") {
		store, err := initStorage(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		cleanups = append(cleanups, func() {
			if err := store.Close(); err != nil {
				slog.Error("failed to close storage", "error", err)
			}
		})
		opts = append(opts, daemon.WithStorage(store, initMatcher()))
	}

	if path := viper.GetString("output.file"); path != "" {
		opts = append(opts, daemon.WithFileOutput(sink.NewFileWriter(config.ExpandPath(path))))
	}

	gen := initGenerator()
	opts = append(opts, daemon.WithGenerator(gen))
	cleanups = append(cleanups, func() {
		if err := gen.Close(); err != nil {
			slog.Error("failed to close generator", "error", err)
		}
	})

	d := daemon.New(cfg, opts...)

	d.RegisterSource(source.NewOpenTDB())
	for _, path := range viper.GetStringSlice("sources.csv_files") {
		d.RegisterSource(source.NewCSVFile(config.ExpandPath(path)))
	}
	if viper.GetBool("sources.generator_in_cycle") {
		d.RegisterSource(gen)
	}

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	return d, cleanup, nil
}

// splitListenAddr parses a host:port listen address.
func splitListenAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid listen port %q: %w", portStr, err)
	}
	return host, port, nil
}

// waitForShutdown blocks until the context is canceled, then stops the
// daemon and waits for its loop to exit.
func waitForShutdown(ctx context.Context, d *daemon.Daemon) {
	<-ctx.Done()
	d.Stop()

	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		slog.Warn("acquisition loop did not exit in time")
	}
}
