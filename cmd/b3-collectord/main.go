// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmdc/b3-collector/internal/archive"
	"github.com/cmdc/b3-collector/internal/collector"
	"github.com/cmdc/b3-collector/internal/config"
	"github.com/cmdc/b3-collector/internal/fetch"
	"github.com/cmdc/b3-collector/internal/logging"
	"github.com/cmdc/b3-collector/internal/monitor"
	"github.com/cmdc/b3-collector/internal/scheduler"
	"github.com/cmdc/b3-collector/internal/secrets"
)

func main() {
	configPath := flag.String("config", "/etc/b3-collector/collectord.yaml", "path to collector config file")
	flag.Parse()

	cfg, err := config.LoadCollectorConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	defer logCloser.Close()

	if err := runDaemon(*configPath, cfg, logger); err != nil {
		logger.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

// runDaemon wires the Secret Provider, the Collector, the Archive Uploader
// and the system monitor behind a cron Scheduler, then blocks on
// SIGTERM/SIGINT/SIGHUP the way the teacher's agent.RunDaemon does —
// SIGHUP rebuilds the scheduler from a re-read config file, the other two
// stop it and return.
func runDaemon(configPath string, cfg *config.CollectorConfig, logger *slog.Logger) error {
	provider := newSecretProvider(cfg)
	coll := collector.New(toCollectorConfig(cfg), logger)
	sysMon := monitor.NewSystemMonitor(logger, cfg.ContentDir)
	sysMon.Start()
	defer sysMon.Stop()

	statsReporter := collector.NewStatsReporter(coll, logger)
	statsReporter.Start()

	runFn := func(ctx context.Context) error {
		return runIngestion(ctx, cfg, coll, provider, logger)
	}
	stopFn := func(ctx context.Context) error {
		return coll.Stop(ctx, func(ctx context.Context, folder string) error {
			return uploadArchive(ctx, cfg, folder, provider, logger)
		})
	}

	sched, err := scheduler.New(cfg, logger, runFn, stopFn)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	sched.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	for {
		sig := <-sigCh

		if sig == syscall.SIGHUP {
			logger.Info("received SIGHUP, reloading config", "path", configPath)

			newCfg, loadErr := config.LoadCollectorConfig(configPath)
			if loadErr != nil {
				logger.Error("reload failed, keeping current config", "error", loadErr)
				continue
			}

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
			statsReporter.Stop()
			sched.Stop(stopCtx)
			stopCancel()

			cfg = newCfg
			provider = newSecretProvider(cfg)
			coll = collector.New(toCollectorConfig(cfg), logger)

			runFn = func(ctx context.Context) error {
				return runIngestion(ctx, cfg, coll, provider, logger)
			}
			stopFn = func(ctx context.Context) error {
				return coll.Stop(ctx, func(ctx context.Context, folder string) error {
					return uploadArchive(ctx, cfg, folder, provider, logger)
				})
			}

			sched, err = scheduler.New(cfg, logger, runFn, stopFn)
			if err != nil {
				return fmt.Errorf("reload scheduler: %w", err)
			}
			sched.Start()

			statsReporter = collector.NewStatsReporter(coll, logger)
			statsReporter.Start()

			logger.Info("config reloaded successfully")
			continue
		}

		logger.Info("received signal, shutting down", "signal", sig)
		statsReporter.Stop()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		sched.Stop(stopCtx)
		stopCancel()
		return nil
	}
}

// runIngestion performs the start-of-day lifecycle (spec.md §1(a)+(b)+(c)):
// prepare the current year's asset list, resolve the market-data
// credentials, and hand off to the Collector. The Collector's Run blocks
// until Stop is called, which the scheduler's stop job does at
// schedule.stop_time — so the returned goroutine is detached from the cron
// job that started it, and the scheduler only tracks whether the *start*
// of this lifecycle succeeded.
func runIngestion(ctx context.Context, cfg *config.CollectorConfig, coll *collector.Collector, provider secrets.Provider, baseLogger *slog.Logger) error {
	sessionID := fmt.Sprintf("run-%d", time.Now().Unix())
	logger, sessionCloser, sessionLogPath, err := logging.NewSessionLogger(baseLogger, cfg.Logging.SessionDir, "b3-collector", sessionID)
	if err != nil {
		return fmt.Errorf("creating session logger: %w", err)
	}
	if sessionLogPath != "" {
		logger.Info("session log opened", "path", sessionLogPath)
	}

	year := time.Now().Year()
	symbols, err := fetch.PrepareAssets(ctx, cfg, year, 0, logger)
	if err != nil {
		return fmt.Errorf("preparing asset list: %w", err)
	}

	username, err := provider.GetSecret(ctx, cfg.MarketData.UsernameSecret)
	if err != nil {
		return fmt.Errorf("resolving market data username: %w", err)
	}
	password, err := provider.GetSecret(ctx, cfg.MarketData.PasswordSecret)
	if err != nil {
		return fmt.Errorf("resolving market data password: %w", err)
	}

	params := collector.SessionParams{
		Assets:   symbols,
		Address:  cfg.MarketData.Address,
		Username: username + "\n",
		Password: password + "\n",
	}

	go func() {
		defer sessionCloser.Close()
		if err := coll.Run(context.Background(), params); err != nil {
			logger.Error("collector run exited", "error", err)
			return
		}
		if sessionLogPath != "" {
			logging.RemoveSessionLog(cfg.Logging.SessionDir, "b3-collector", sessionID)
		}
	}()

	return nil
}

func uploadArchive(ctx context.Context, cfg *config.CollectorConfig, folder string, provider secrets.Provider, logger *slog.Logger) error {
	names := archive.SecretNames{
		AccessKeySecret: cfg.Archive.AccountSecret,
		SecretKeySecret: cfg.Archive.KeySecret,
		BucketSecret:    cfg.Archive.ContainerSecret,
	}
	policy := archive.Policy{
		RetryCount:    cfg.Archive.RetryCount,
		RetryDelay:    cfg.Archive.RetryDelay,
		UploadTimeout: cfg.Archive.UploadTimeout,
	}
	return archive.Upload(ctx, logger, folder, names, provider, policy)
}

func newSecretProvider(cfg *config.CollectorConfig) secrets.Provider {
	var base secrets.Provider
	switch cfg.Secrets.Provider {
	case "file":
		fp, err := secrets.LoadFileProvider(cfg.Secrets.FilePath)
		if err != nil {
			// Fall back to env; the retry wrapper will surface resolution
			// failures per-secret instead of killing the daemon at startup.
			base = secrets.NewEnvProvider(os.LookupEnv)
			break
		}
		base = fp
	default:
		base = secrets.NewEnvProvider(os.LookupEnv)
	}
	return secrets.WithRetry(base)
}

func toCollectorConfig(cfg *config.CollectorConfig) collector.Config {
	return collector.Config{
		NumWriters:        cfg.Tuning.NumWriters,
		BatchSize:         cfg.Tuning.BatchSize,
		MaxBufferSize:     cfg.Tuning.MaxBufferSize,
		FlushInterval:     cfg.Tuning.FlushInterval,
		RetryInterval:     cfg.Tuning.RetryInterval,
		MaxRetries:        cfg.Tuning.MaxRetries,
		ReconnectDelay:    cfg.Tuning.ReconnectDelay,
		SubscriptionChunk: cfg.Tuning.SubscriptionChunk,
		SubscriptionPause: cfg.Tuning.SubscriptionPause,
		ReadBufferSize:    cfg.Tuning.ReadBufferSize,
		ContentDir:        cfg.ContentDir,
	}
}
