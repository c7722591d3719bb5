// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package collector

import (
	"context"
	"log/slog"
	"time"
)

const statsInterval = 5 * time.Minute

// StatsReporter periodically logs the daemon's overall health: uptime and
// the Collector's running state and counters. Adapted from the teacher's internal/agent.StatsReporter,
// simplified from a multi-job snapshot to the single Collector this daemon
// runs.
type StatsReporter struct {
	collector *Collector
	logger    *slog.Logger
	startTime time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewStatsReporter creates a StatsReporter that logs collector's health
// every 5 minutes.
func NewStatsReporter(collector *Collector, logger *slog.Logger) *StatsReporter {
	return &StatsReporter{
		collector: collector,
		logger:    logger,
		startTime: time.Now(),
		done:      make(chan struct{}),
	}
}

// Start begins the periodic-reporting goroutine.
func (sr *StatsReporter) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	sr.cancel = cancel

	go func() {
		defer close(sr.done)
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sr.report()
			case <-ctx.Done():
				return
			}
		}
	}()

	sr.logger.Info("stats reporter started", "interval", statsInterval)
}

// Stop stops the reporter and waits for the goroutine to exit.
func (sr *StatsReporter) Stop() {
	if sr.cancel != nil {
		sr.cancel()
	}
	<-sr.done
	sr.logger.Info("stats reporter stopped")
}

func (sr *StatsReporter) report() {
	health := sr.collector.Health()
	uptime := time.Since(sr.startTime).Seconds()

	sr.logger.Info("daemon stats",
		"uptime_seconds", int64(uptime),
		"collector_running", health.Running,
		"in_flight", health.InFlight,
		"total_sent", health.TotalSent,
	)
}
