// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package collector

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cmdc/b3-collector/internal/assets"
)

// Collector runs one connect-authenticate-subscribe-ingest lifecycle,
// reconnecting on any session-level failure until Stop is called.
// Concurrent Collectors sharing one instance are not supported — the
// runningMu guard enforces that at most one Run is active, matching the
// original's process-wide STOP_FLAG's effect without making the flag
// itself a package-level global.
type Collector struct {
	cfg    Config
	logger *slog.Logger

	runningMu sync.Mutex
	running   bool

	// stopFlag is the process-wide Stop Signal, scoped to this Collector
	// instance rather than a package-level global (spec.md §9's "process-
	// wide stop flag" open question). It is cleared at the top of every
	// reconnect iteration and set both by Stop and by the Reconnect
	// Controller's failure path.
	stopFlag atomic.Bool
	// externallyStopped distinguishes an operator Stop (do not reconnect)
	// from a reconnect pulse of stopFlag (do reconnect) — the original
	// reuses one flag for both purposes; here the two are split because
	// the Run loop must tell them apart to decide whether to exit.
	externallyStopped atomic.Bool

	inFlight  atomic.Int64
	totalSent atomic.Int64

	dialer func(address string) (net.Conn, error)
	now    func() time.Time
}

// New creates a Collector with cfg's tunables. All of the Collector's log
// lines, including those of its shards and subscriber, go to logger.
func New(cfg Config, logger *slog.Logger) *Collector {
	return &Collector{
		cfg:    cfg,
		logger: logger,
		dialer: func(address string) (net.Conn, error) { return net.Dial("tcp", address) },
		now:    time.Now,
	}
}

// Counters returns the current (in_flight, total_sent) snapshot.
func (c *Collector) Counters() (inFlight, totalSent int64) {
	return c.inFlight.Load(), c.totalSent.Load()
}

// Run starts the Collector with params and blocks until ctx is canceled or
// Stop is called. It flattens the original's recursive reconnect into an
// outer loop (spec.md §9's own design note): while not stopped, run once,
// cool down, repeat.
func (c *Collector) Run(ctx context.Context, params SessionParams) error {
	c.runningMu.Lock()
	if c.running {
		c.runningMu.Unlock()
		return fmt.Errorf("collector already running")
	}
	c.running = true
	c.runningMu.Unlock()

	defer func() {
		c.runningMu.Lock()
		c.running = false
		c.runningMu.Unlock()
	}()

	if err := os.MkdirAll(c.cfg.ContentDir, 0o755); err != nil {
		return fmt.Errorf("creating content dir: %w", err)
	}

	c.externallyStopped.Store(false)

	for {
		if c.externallyStopped.Load() || ctx.Err() != nil {
			return ctx.Err()
		}

		c.stopFlag.Store(false)
		c.runOnce(ctx, params)

		if c.externallyStopped.Load() || ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Info("Reconnecting...")
		c.reconnectCooldown(ctx)
	}
}

func (c *Collector) reconnectCooldown(ctx context.Context) {
	c.logger.Info("reconnect cooldown", "delay", c.cfg.ReconnectDelay)
	select {
	case <-time.After(c.cfg.ReconnectDelay):
	case <-ctx.Done():
	}
}

// Stop raises the Stop Signal and hands off the content folder to
// uploadFn (normally internal/archive.Upload bound to the Secret Provider
// and the configured upload target). It may be called while a run is
// active or quiescent (spec.md §4.7).
func (c *Collector) Stop(ctx context.Context, uploadFn func(ctx context.Context, folder string) error) error {
	c.externallyStopped.Store(true)
	c.stopFlag.Store(true)
	c.logger.Info("[Stop signal]")

	if uploadFn == nil {
		return nil
	}
	if err := uploadFn(ctx, c.cfg.ContentDir); err != nil {
		return fmt.Errorf("uploading content folder: %w", err)
	}
	c.logger.Info("stop/upload path finished")
	return nil
}

// runOnce performs one connect-authenticate-subscribe-ingest cycle, then
// pulses the Stop Signal true→false around it as the Reconnect Controller
// requires — every task of this run, including shards started by prior
// iterations, must already have exited before the pulse since stopFlag is
// shared across iterations within one Run call.
func (c *Collector) runOnce(ctx context.Context, params SessionParams) {
	conn, dialErr := c.dialer(params.Address)
	if dialErr != nil {
		c.logger.Error("connect failed", "address", params.Address, "error", dialErr)
		return
	}
	sess := newSession(conn)
	defer sess.Close()

	shards := make([]*shard, c.cfg.NumWriters)
	for i := range shards {
		sh, shardErr := newShard(i, c.cfg, &c.inFlight, c.logger)
		if shardErr != nil {
			c.logger.Error("opening shard failed", "shard", i, "error", shardErr)
			c.stopFlag.Store(true)
			return
		}
		shards[i] = sh
	}

	var wg sync.WaitGroup
	for _, sh := range shards {
		wg.Add(1)
		go func(s *shard) {
			defer wg.Done()
			s.run(&c.stopFlag)
		}(sh)
	}

	connected := &atomic.Bool{}
	futures := assets.FuturesCodes(c.now())

	wg.Add(1)
	go func() {
		defer wg.Done()
		runSubscriber(sess, futures, params.Assets, c.cfg, &c.stopFlag, connected, c.logger, func(error) {
			c.stopFlag.Store(true)
		})
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runReporterTask(&c.stopFlag, &c.inFlight, &c.totalSent, c.logger)
	}()

	readerLoop(sess, params, shards, c.cfg, &c.stopFlag, connected, &c.inFlight, &c.totalSent, c.logger)

	c.stopFlag.Store(true)
	wg.Wait()
}
