// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package collector

import "time"

// timestampedLine is a pair (capture_time, bytes). bytes is the raw line
// including its terminating newline.
type timestampedLine struct {
	capturedAt time.Time
	bytes      []byte
}

// batch is an ordered sequence of up to Config.BatchSize timestamped
// lines, preserving capture order.
type batch []timestampedLine
