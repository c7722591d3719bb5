// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package scheduler triggers the daily run/stop lifecycle of the Collector
// on a weekday or daily cadence, the way the original chita daemon's
// clokwerk-based task_scheduler did, reimplemented on top of
// github.com/robfig/cron/v3 in the style of the teacher's per-job cron
// scheduler.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmdc/b3-collector/internal/config"
	"github.com/robfig/cron/v3"
)

// RunResult records the outcome of the most recent scheduled run.
type RunResult struct {
	Status    string // "completed" or "failed"; a skipped trigger records no result
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}

// Scheduler manages exactly two cron entries: one that triggers the daily
// ingestion run at schedule.start_time, one that triggers the stop/upload
// path at schedule.stop_time.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu        sync.Mutex
	running   bool
	lastRun   *RunResult
	runCount  int
	stopCount int
}

// RunFunc performs the start-of-day ingestion lifecycle (spec §1 a+b+c).
type RunFunc func(ctx context.Context) error

// StopFunc performs the end-of-day stop/upload path (spec §4.7).
type StopFunc func(ctx context.Context) error

// New creates a Scheduler with two cron jobs registered from cfg.Schedule.
func New(cfg *config.CollectorConfig, logger *slog.Logger, run RunFunc, stop StopFunc) (*Scheduler, error) {
	s := &Scheduler{logger: logger}

	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	startExpr, err := cronExpr(cfg.Schedule.StartTime, cfg.Schedule.Interval)
	if err != nil {
		return nil, fmt.Errorf("building start cron expression: %w", err)
	}
	stopExpr, err := cronExpr(cfg.Schedule.StopTime, cfg.Schedule.Interval)
	if err != nil {
		return nil, fmt.Errorf("building stop cron expression: %w", err)
	}

	if _, err := c.AddFunc(startExpr, func() { s.executeRun(run) }); err != nil {
		return nil, fmt.Errorf("adding start job: %w", err)
	}
	if _, err := c.AddFunc(stopExpr, func() { s.executeStop(stop) }); err != nil {
		return nil, fmt.Errorf("adding stop job: %w", err)
	}

	logger.Info("registered schedule",
		"interval", cfg.Schedule.Interval,
		"start_time", cfg.Schedule.StartTime,
		"stop_time", cfg.Schedule.StopTime,
	)

	s.cron = c
	return s, nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started")
	s.cron.Start()
}

// Stop stops the cron scheduler and waits for any in-flight job.
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.Info("scheduler stopping")
	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
		s.logger.Info("scheduler stopped gracefully")
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

// LastRun returns the outcome of the most recent scheduled ingestion run.
func (s *Scheduler) LastRun() *RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

func (s *Scheduler) executeRun(run RunFunc) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("ingestion already running, skipping scheduled trigger")
		return
	}
	s.running = true
	s.runCount++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("scheduled ingestion triggered")
	start := time.Now()
	err := run(context.Background())
	duration := time.Since(start)

	result := &RunResult{StartedAt: start, Duration: duration}
	if err != nil {
		s.logger.Error("scheduled ingestion failed", "error", err, "duration", duration)
		result.Status = "failed"
		result.Err = err
	} else {
		s.logger.Info("scheduled ingestion finished", "duration", duration)
		result.Status = "completed"
	}

	s.mu.Lock()
	s.lastRun = result
	s.mu.Unlock()
}

func (s *Scheduler) executeStop(stop StopFunc) {
	s.mu.Lock()
	s.stopCount++
	s.mu.Unlock()

	s.logger.Info("scheduled stop triggered")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := stop(ctx); err != nil {
		s.logger.Error("scheduled stop failed", "error", err)
	}
}

// cronExpr builds a 5-field cron expression ("m h dom month dow") from an
// "HH:MM" clock and an interval of "weekdays" or "daily".
func cronExpr(clock, interval string) (string, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return "", fmt.Errorf("invalid clock %q: %w", clock, err)
	}

	dow := "*"
	if interval == "weekdays" {
		dow = "1-5"
	}

	return fmt.Sprintf("%d %d * * %s", t.Minute(), t.Hour(), dow), nil
}
