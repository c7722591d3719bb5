// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package collector implements the Collector: a long-lived, line-oriented,
// authenticated TCP session against a real-time market-data server, with
// shard-based concurrent file writers, large-fanout subscription, and a
// cooperative reconnect lifecycle. This is the core the rest of the repo's
// scaffolding (scheduler, secrets, fetch, archive) exists to drive.
package collector

import (
	"time"
)

// SessionParams is the immutable record a Collector run is started with.
// Call sites build it with named fields (Username: ..., Password: ...),
// so each credential is labelled where it is assigned; both fields are
// strings, so the compiler itself does not catch a swap — the original
// Rust construction swapped them at one call site relative to its
// struct's positional declaration.
type SessionParams struct {
	// Assets is the ordered sequence of symbol strings to subscribe to, in
	// addition to the futures codes the Collector always prepends.
	Assets []string
	// Address is the market-data server's host:port.
	Address string
	// Username must already end with a trailing newline; the protocol
	// distinguishes lines, not tokens.
	Username string
	// Password must already end with a trailing newline.
	Password string
}

// Config holds the Collector's tunable constants (spec.md §6). Defaults
// match the original chita daemon's core/crystal.rs constants.
type Config struct {
	NumWriters        int
	BatchSize         int
	MaxBufferSize     int
	FlushInterval     time.Duration
	RetryInterval     time.Duration
	MaxRetries        int
	ReconnectDelay    time.Duration
	SubscriptionChunk int
	SubscriptionPause time.Duration
	ReadBufferSize    int
	ContentDir        string
}

// DefaultConfig returns the original daemon's exact tunable defaults.
func DefaultConfig() Config {
	return Config{
		NumWriters:        20,
		BatchSize:         10000,
		MaxBufferSize:     1000000,
		FlushInterval:     300 * time.Second,
		RetryInterval:     5 * time.Second,
		MaxRetries:        10,
		ReconnectDelay:    10 * time.Second,
		SubscriptionChunk: 5000,
		SubscriptionPause: 5 * time.Second,
		ReadBufferSize:    16 * 1024,
		ContentDir:        "content",
	}
}
