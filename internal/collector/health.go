// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package collector

// Health is a point-in-time snapshot logged by the periodic daemon-level
// StatsReporter,
// adapted from the teacher's jobSnapshot/StatsReporter pattern in
// internal/agent/stats_reporter.go but scoped to the Collector's own
// counters instead of a multi-job backup scheduler's per-job state.
type Health struct {
	Running   bool  `json:"running"`
	InFlight  int64 `json:"in_flight"`
	TotalSent int64 `json:"total_sent"`
}

// Health reports the Collector's current running state and counters.
func (c *Collector) Health() Health {
	c.runningMu.Lock()
	running := c.running
	c.runningMu.Unlock()

	inFlight, totalSent := c.Counters()
	return Health{Running: running, InFlight: inFlight, TotalSent: totalSent}
}
