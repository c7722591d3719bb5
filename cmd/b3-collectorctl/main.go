// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Command b3-collectorctl is a one-shot operator CLI for manual operation
// of the collector outside the daemon's own cron schedule — run-once,
// stop, and health, matching the teacher's "nbackup-agent health"
// subcommand-via-os.Args pattern.
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
	"github.com/cmdc/b3-collector/internal/secrets"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run-once":
		runOnce(os.Args[2:])
	case "stop":
		runStop(os.Args[2:])
	case "health":
		runHealth(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: b3-collectorctl <run-once|stop|health> [-config path]\n")
}

func loadConfigFromArgs(args []string) (*config.CollectorConfig, string) {
	fs := flag.NewFlagSet("b3-collectorctl", flag.ExitOnError)
	configPath := fs.String("config", "/etc/b3-collector/collectord.yaml", "path to collector config file")
	fs.Parse(args)

	cfg, err := config.LoadCollectorConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg, *configPath
}

func newSecretProvider(cfg *config.CollectorConfig) secrets.Provider {
	var base secrets.Provider
	if cfg.Secrets.Provider == "file" {
		fp, err := secrets.LoadFileProvider(cfg.Secrets.FilePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading secrets file: %v\n", err)
			os.Exit(1)
		}
		base = fp
	} else {
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

// runOnce performs one full ingestion lifecycle synchronously: prepare the
// asset list, connect, subscribe, and ingest until the first SIGTERM/SIGINT,
// which runs the stop/upload path and ends the run — this is the manual
// equivalent of the scheduler's two cron jobs, collapsed into one
// foreground invocation; schedule.stop_time is not consulted.
func runOnce(args []string) {
	cfg, _ := loadConfigFromArgs(args)
	baseLogger, logCloser := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	defer logCloser.Close()

	sessionID := fmt.Sprintf("run-once-%d", time.Now().Unix())
	logger, sessionCloser, sessionLogPath, err := logging.NewSessionLogger(baseLogger, cfg.Logging.SessionDir, "b3-collector", sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating session logger: %v\n", err)
		os.Exit(1)
	}
	defer sessionCloser.Close()
	if sessionLogPath != "" {
		logger.Info("session log opened", "path", sessionLogPath)
	}

	provider := newSecretProvider(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	year := time.Now().Year()
	symbols, err := fetch.PrepareAssets(ctx, cfg, year, 0, logger)
	if err != nil {
		logger.Error("preparing asset list failed", "error", err)
		os.Exit(1)
	}

	username, err := provider.GetSecret(ctx, cfg.MarketData.UsernameSecret)
	if err != nil {
		logger.Error("resolving market data username failed", "error", err)
		os.Exit(1)
	}
	password, err := provider.GetSecret(ctx, cfg.MarketData.PasswordSecret)
	if err != nil {
		logger.Error("resolving market data password failed", "error", err)
		os.Exit(1)
	}

	coll := collector.New(toCollectorConfig(cfg), logger)
	params := collector.SessionParams{
		Assets:   symbols,
		Address:  cfg.MarketData.Address,
		Username: username + "\n",
		Password: password + "\n",
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, stopping run-once", "signal", sig)
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		if err := coll.Stop(stopCtx, func(ctx context.Context, folder string) error {
			return uploadArchive(ctx, cfg, folder, provider, logger)
		}); err != nil {
			logger.Error("stop/upload path failed", "error", err)
		}
		cancel()
	}()

	if err := coll.Run(ctx, params); err != nil && ctx.Err() == nil {
		logger.Error("collector run failed", "error", err)
		os.Exit(1)
	}
}

// runStop connects to nothing: it performs the end-of-day stop/upload path
// against the configured content_dir directly, for an operator who needs
// to force an upload outside the daemon's own schedule (e.g. after a crash
// left content/ unuploaded).
func runStop(args []string) {
	cfg, _ := loadConfigFromArgs(args)
	logger, logCloser := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	defer logCloser.Close()

	provider := newSecretProvider(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Archive.UploadTimeout*time.Duration(cfg.Archive.RetryCount))
	defer cancel()

	if err := uploadArchive(ctx, cfg, cfg.ContentDir, provider, logger); err != nil {
		fmt.Fprintf(os.Stderr, "stop/upload failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("archive uploaded successfully")
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

// runHealth reports whether the content_dir looks like an actively-written
// collector instance is present, since there is no running daemon process
// for a one-shot CLI invocation to query over a socket — unlike the
// teacher's TLS health-check dial, this process IS the only consumer of
// its own Collector, so "health" here means a local content_dir staleness
// check rather than a PING/PONG round trip.
func runHealth(args []string) {
	cfg, _ := loadConfigFromArgs(args)

	info, err := os.Stat(cfg.ContentDir)
	if err != nil {
		fmt.Printf("content_dir %q: not present (%v)\n", cfg.ContentDir, err)
		os.Exit(1)
	}
	if !info.IsDir() {
		fmt.Printf("content_dir %q: exists but is not a directory\n", cfg.ContentDir)
		os.Exit(1)
	}

	entries, err := os.ReadDir(cfg.ContentDir)
	if err != nil {
		fmt.Printf("content_dir %q: unreadable (%v)\n", cfg.ContentDir, err)
		os.Exit(1)
	}

	var newest time.Time
	for _, e := range entries {
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if fi.ModTime().After(newest) {
			newest = fi.ModTime()
		}
	}

	if newest.IsZero() {
		fmt.Printf("content_dir %q: present, no shard files yet\n", cfg.ContentDir)
		return
	}

	age := time.Since(newest)
	fmt.Printf("content_dir %q: %d shard files, most recent write %s ago\n", cfg.ContentDir, len(entries), age.Round(time.Second))
	if age > cfg.Tuning.FlushInterval*2 {
		fmt.Println("WARNING: most recent shard write is stale relative to the configured flush interval")
		os.Exit(1)
	}
}
