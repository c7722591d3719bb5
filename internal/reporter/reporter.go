// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package reporter implements the Error Reporter collaborator: a
// best-effort sink for informational and error messages. No other package
// in this repository calls it; the Collector and the commands log through
// slog directly. The original
// daemon reported through Sentry; no Sentry SDK (or any telemetry vendor
// SDK) appears anywhere in the example pack, so this stays on the ambient
// slog stack rather than fabricating a dependency.
package reporter

import "log/slog"

// Reporter is a best-effort sink for operator-facing messages. Neither
// method may block the caller on anything but the underlying logger.
type Reporter interface {
	Info(msg string, args ...any)
	Error(err error, msg string, args ...any)
}

// SlogReporter reports through a *slog.Logger.
type SlogReporter struct {
	logger *slog.Logger
}

// NewSlogReporter returns a Reporter backed by logger.
func NewSlogReporter(logger *slog.Logger) *SlogReporter {
	return &SlogReporter{logger: logger}
}

func (r *SlogReporter) Info(msg string, args ...any) {
	r.logger.Info(msg, args...)
}

func (r *SlogReporter) Error(err error, msg string, args ...any) {
	all := make([]any, 0, len(args)+2)
	all = append(all, args...)
	all = append(all, "error", err)
	r.logger.Error(msg, all...)
}
