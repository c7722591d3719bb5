// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package collector

import (
	"io"
	"log/slog"
	"sync/atomic"
	"time"
)

// readerLoop reads raw bytes from sess, splits them into newline-terminated
// lines, timestamps each, batches them, and round-robins full batches into
// shards. It returns when the Stop Signal is observed, on EOF, or on a
// read error — in the latter two cases the caller is responsible for
// invoking the Reconnect Controller, since that decision belongs to the
// run loop, not here.
//
// Returns (eof bool, err error): eof is true when the peer closed cleanly
// (0-byte read), err is set on any transport read error.
func readerLoop(
	sess *session,
	params SessionParams,
	shards []*shard,
	cfg Config,
	stopFlag *atomic.Bool,
	connected *atomic.Bool,
	inFlight, totalSent *atomic.Int64,
	logger *slog.Logger,
) (eof bool, err error) {
	readBuf := make([]byte, cfg.ReadBufferSize)
	rollingBuf := make([]byte, 0, cfg.ReadBufferSize*2)

	current := make(batch, 0, cfg.BatchSize)
	writerIndex := 0

	shipCurrent := func() {
		if len(current) == 0 {
			return
		}
		shipped := shipBatch(shards, writerIndex, current, inFlight, totalSent, logger)
		if shipped {
			writerIndex = (writerIndex + 1) % len(shards)
		}
		current = make(batch, 0, cfg.BatchSize)
	}

	for {
		if stopFlag.Load() {
			logger.Info("stopping reader loop")
			shipCurrent()
			return false, nil
		}

		n, readErr := sess.read(readBuf)
		if readErr == io.EOF || (readErr == nil && n == 0) {
			logger.Info("peer closed connection (EOF)")
			shipCurrent()
			return true, nil
		}
		if readErr != nil {
			logger.Warn("read stream failed", "error", readErr)
			shipCurrent()
			return false, readErr
		}

		rollingBuf = append(rollingBuf, readBuf[:n]...)

		pos := 0
		for {
			idx := indexByte(rollingBuf[pos:], '\n')
			if idx < 0 {
				break
			}
			lineEnd := pos + idx + 1
			line := rollingBuf[pos:lineEnd]
			pos = lineEnd

			lineCopy := append([]byte(nil), line...)
			now := time.Now()
			current = append(current, timestampedLine{capturedAt: now, bytes: lineCopy})

			if len(current) >= cfg.BatchSize {
				shipped := shipBatch(shards, writerIndex, current, inFlight, totalSent, logger)
				if shipped {
					writerIndex = (writerIndex + 1) % len(shards)
				}
				current = make(batch, 0, cfg.BatchSize)
			}

			if decoded := string(line); decoded != "" {
				if err := interceptHandshake(decoded, sess, params, connected); err != nil {
					logger.Warn("handshake reply failed", "error", err)
					return false, err
				}
			}
		}

		if pos == len(rollingBuf) {
			rollingBuf = rollingBuf[:0]
		} else {
			rollingBuf = append(rollingBuf[:0], rollingBuf[pos:]...)
		}
	}
}

// shipBatch sends b to shards[writerIndex]. On success it increments
// in_flight and total_sent by len(b); on a full/closed queue it drops the
// batch (logged, not counted in either counter) and returns false.
func shipBatch(shards []*shard, writerIndex int, b batch, inFlight, totalSent *atomic.Int64, logger *slog.Logger) bool {
	if !shards[writerIndex].send(b) {
		logger.Warn("[DROP] shard queue full, dropping batch", "shard", writerIndex, "size", len(b))
		return false
	}
	inFlight.Add(int64(len(b)))
	totalSent.Add(int64(len(b)))
	return true
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
