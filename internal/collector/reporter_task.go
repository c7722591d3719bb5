// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package collector

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// runReporterTask emits one human-readable counter line per second while
// stopFlag is clear: a healthy run prints nothing else (spec.md §7).
func runReporterTask(stopFlag *atomic.Bool, inFlight, totalSent *atomic.Int64, logger *slog.Logger) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		if stopFlag.Load() {
			logger.Info("stopping reporter task")
			return
		}
		<-ticker.C
		logger.Info("counters", "in_flight", inFlight.Load(), "total_sent", totalSent.Load())
	}
}
