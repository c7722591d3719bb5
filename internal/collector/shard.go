// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package collector

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// shard is one of NumWriters identical background workers. It owns an
// append-only output file exclusively for the lifetime of a Collector
// run and consumes batches from a bounded, single-producer/single-consumer
// queue.
type shard struct {
	index  int
	closer io.Closer
	writer *bufio.Writer
	queue  chan batch
	logger *slog.Logger
	cfg    Config

	inFlight *atomic.Int64
}

// newShard opens "{contentDir}/crystal-md-{i}.txt" in create-or-append
// mode and returns a shard ready to run.
func newShard(index int, cfg Config, inFlight *atomic.Int64, logger *slog.Logger) (*shard, error) {
	path := filepath.Join(cfg.ContentDir, fmt.Sprintf("crystal-md-%d.txt", index))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening shard file %s: %w", path, err)
	}

	return newShardWithWriter(index, cfg, inFlight, logger, f, f), nil
}

// newShardWithWriter builds a shard around an arbitrary io.Writer, letting
// tests exercise the retry/flush logic without real files.
func newShardWithWriter(index int, cfg Config, inFlight *atomic.Int64, logger *slog.Logger, w io.Writer, closer io.Closer) *shard {
	return &shard{
		index:    index,
		closer:   closer,
		writer:   bufio.NewWriter(w),
		queue:    make(chan batch, shardQueueCapacity(cfg.MaxBufferSize)),
		logger:   logger.With("shard", index),
		cfg:      cfg,
		inFlight: inFlight,
	}
}

// shardQueueCapacity bounds the channel buffer at MaxBufferSize, the same
// cap the original applies to its mpsc channel (MAX_BUFFER_SIZE batches).
func shardQueueCapacity(maxBufferSize int) int {
	if maxBufferSize <= 0 {
		return 1
	}
	return maxBufferSize
}

// send attempts a non-blocking enqueue. It reports false if the queue is
// full, the drop-on-backpressure signal the reader loop logs as "[DROP]".
// The queue is never closed.
func (s *shard) send(b batch) bool {
	select {
	case s.queue <- b:
		return true
	default:
		return false
	}
}

// run services batch arrivals and the periodic flush tick until stopFlag
// is observed true. Both event sources are serialized against the file
// handle by running on a single goroutine, matching the original's
// tokio::select! loop.
func (s *shard) run(stopFlag *atomic.Bool) {
	if s.closer != nil {
		defer s.closer.Close()
	}

	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		if stopFlag.Load() {
			s.logger.Info("stopping writer shard")
			return
		}

		select {
		case b := <-s.queue:
			if !s.writeBatch(b) {
				return
			}
		case <-ticker.C:
			if !s.flushWithRetry("periodic flush") {
				return
			}
		}
	}
}

// writeBatch writes and flushes b, then decrements in_flight by len(b). It
// returns false, leaving in_flight unchanged, once a write or the flush has
// exhausted its retry budget.
func (s *shard) writeBatch(b batch) bool {
	for _, line := range b {
		formatted := fmt.Sprintf("%s %s", line.capturedAt.Format("15:04:05.000"), line.bytes)
		if !s.writeWithRetry([]byte(formatted)) {
			return false
		}
	}

	if !s.flushWithRetry("post-batch flush") {
		return false
	}
	s.inFlight.Add(-int64(len(b)))
	return true
}

// writeWithRetry writes data, retrying up to MaxRetries times with a
// RetryInterval sleep on error. It returns false once the retry budget is
// exhausted, at which point the shard aborts (logs and returns from run).
func (s *shard) writeWithRetry(data []byte) bool {
	for attempt := 0; ; attempt++ {
		if _, err := s.writer.Write(data); err == nil {
			return true
		} else if attempt+1 >= s.cfg.MaxRetries {
			s.logger.Error("max retries reached writing to shard file", "error", err)
			return false
		} else {
			s.logger.Warn("shard write failed, retrying", "attempt", attempt+1, "max_retries", s.cfg.MaxRetries, "error", err)
			time.Sleep(s.cfg.RetryInterval)
		}
	}
}

func (s *shard) flushWithRetry(reason string) bool {
	for attempt := 0; ; attempt++ {
		if err := s.writer.Flush(); err == nil {
			return true
		} else if attempt+1 >= s.cfg.MaxRetries {
			s.logger.Error("max retries reached flushing shard file", "reason", reason, "error", err)
			return false
		} else {
			s.logger.Warn("shard flush failed, retrying", "reason", reason, "attempt", attempt+1, "max_retries", s.cfg.MaxRetries, "error", err)
			time.Sleep(s.cfg.RetryInterval)
		}
	}
}
