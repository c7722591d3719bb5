// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package collector

import (
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// runSubscriber polls connected every 100ms. Once set, it builds the
// subscription list as futures++assets and walks it tail-first in chunks
// of up to cfg.SubscriptionChunk symbols, pausing cfg.SubscriptionPause
// between chunks. Any write error is reported via onFailure and the task
// exits; an empty list exits cleanly leaving the session open.
func runSubscriber(
	sess *session,
	futures, symbols []string,
	cfg Config,
	stopFlag *atomic.Bool,
	connected *atomic.Bool,
	logger *slog.Logger,
	onFailure func(error),
) {
	for !connected.Load() {
		if stopFlag.Load() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	subscriptions := make([]string, 0, len(futures)+len(symbols))
	subscriptions = append(subscriptions, futures...)
	subscriptions = append(subscriptions, symbols...)

	for len(subscriptions) > 0 {
		if stopFlag.Load() {
			return
		}

		chunkSize := cfg.SubscriptionChunk
		if chunkSize > len(subscriptions) {
			chunkSize = len(subscriptions)
		}
		// Tail-first, matching the original's Vec::split_off(len - chunk_size).
		chunk := subscriptions[len(subscriptions)-chunkSize:]
		subscriptions = subscriptions[:len(subscriptions)-chunkSize]

		for _, sym := range chunk {
			lower := strings.ToLower(sym)
			for _, cmd := range []string{"BQT " + lower + "\n", "GQT " + lower + " S 1\n", "SQT " + lower + "\n"} {
				if err := sess.write([]byte(cmd)); err != nil {
					logger.Warn("subscription command failed", "symbol", lower, "error", err)
					onFailure(err)
					return
				}
			}
		}

		if len(subscriptions) > 0 {
			time.Sleep(cfg.SubscriptionPause)
		}
	}
}
