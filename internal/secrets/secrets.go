// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package secrets resolves named credentials (market-data username/password,
// blob-storage account/container/key) for the Collector and the Archive
// Uploader. The retry policy mirrors the original chita daemon's
// helpers/vault.rs::get_secret exactly: attempt-scaled timeout and delay,
// a fixed attempt budget, no exponential backoff.
package secrets

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Provider resolves a string secret for a named key.
type Provider interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// retryCount and retryDelay/timeout mirror the original's RETRY_COUNT /
// RETRY_DELAY / TIMEOUT_DURATION constants from helpers/config.rs.
const retryCount = 30

// retryDelayUnit and retryTimeoutUnit are package vars (not consts) so
// tests can shrink them instead of waiting out the real attempt-scaled
// backoff.
var (
	retryDelayUnit   = 1 * time.Second
	retryTimeoutUnit = 2 * time.Second
)

// WithRetry wraps a Provider so every GetSecret call is retried with the
// original's attempt-scaled timeout and delay: timeout = unit*attempt,
// delay = unit*attempt, up to retryCount attempts.
func WithRetry(p Provider) Provider {
	return &retryingProvider{inner: p}
}

type retryingProvider struct {
	inner Provider
}

func (r *retryingProvider) GetSecret(ctx context.Context, name string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < retryCount; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if d := retryTimeoutUnit * time.Duration(attempt); d > 0 {
			callCtx, cancel = context.WithTimeout(ctx, d)
		}
		secret, err := r.inner.GetSecret(callCtx, name)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return secret, nil
		}
		lastErr = err
		if attempt < retryCount-1 {
			select {
			case <-time.After(retryDelayUnit * time.Duration(attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", fmt.Errorf("resolving secret %q: attempts exhausted: %w", name, lastErr)
}

// EnvProvider resolves secrets from environment variables named
// B3_SECRET_<NAME>, with name uppercased and non-alphanumeric runs
// replaced by underscores.
type EnvProvider struct {
	lookup func(string) (string, bool)
}

// NewEnvProvider returns an EnvProvider backed by lookup (os.LookupEnv in
// both commands).
func NewEnvProvider(lookup func(string) (string, bool)) *EnvProvider {
	return &EnvProvider{lookup: lookup}
}

func (e *EnvProvider) GetSecret(_ context.Context, name string) (string, error) {
	envName := "B3_SECRET_" + nonAlnum.ReplaceAllString(strings.ToUpper(name), "_")
	v, ok := e.lookup(envName)
	if !ok {
		return "", fmt.Errorf("environment variable %s not set", envName)
	}
	return v, nil
}

// FileProvider resolves secrets from a flat "name: value" or "name=value"
// file, loaded once at construction time. It replaces the original's Azure
// Key Vault client (helpers/vault.rs) for environments without a secret
// manager integration.
type FileProvider struct {
	values map[string]string
}

// NewFileProvider returns a FileProvider serving values; LoadFileProvider
// builds values from a file.
func NewFileProvider(values map[string]string) *FileProvider {
	return &FileProvider{values: values}
}

func (f *FileProvider) GetSecret(_ context.Context, name string) (string, error) {
	v, ok := f.values[name]
	if !ok {
		return "", fmt.Errorf("secret %q not found in file provider", name)
	}
	return v, nil
}
