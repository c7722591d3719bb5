// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package fetch holds the one-shot file utilities that run before the
// Collector starts: downloading the yearly historical quote archive,
// unzipping it, and extracting the traded instrument list from it.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// maxDownloadRetries matches helpers/quotes.rs's MAX_RETRIES.
const maxDownloadRetries = 30

// downloadRetryDelay is a package var (not a const) so tests can shrink it
// instead of waiting out the real fixed 2s delay between attempts.
var downloadRetryDelay = 2 * time.Second

// Download fetches url into destPath, retrying up to maxDownloadRetries
// times with a fixed 2s delay on any transport error or non-2xx response,
// mirroring helpers/quotes.rs::download_assets. bytesPerSec, if positive,
// throttles the write via a ThrottledWriter so the once-daily multi-hundred
// MB pull doesn't saturate the outbound link.
func Download(ctx context.Context, logger *slog.Logger, url, destPath string, bytesPerSec int64) error {
	client := &http.Client{}

	var lastErr error
	for attempt := 1; attempt <= maxDownloadRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := downloadOnce(ctx, client, url, destPath, bytesPerSec); err != nil {
			lastErr = err
			logger.Warn("download attempt failed", "attempt", attempt, "max_attempts", maxDownloadRetries, "error", err)
			select {
			case <-time.After(downloadRetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		logger.Info("file downloaded", "url", url, "dest", destPath)
		return nil
	}

	return fmt.Errorf("downloading %s: attempts exhausted: %w", url, lastErr)
}

func downloadOnce(ctx context.Context, client *http.Client, url, destPath string, bytesPerSec int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating destination file: %w", err)
	}
	defer dest.Close()

	var w io.Writer = dest
	if bytesPerSec > 0 {
		w = NewThrottledWriter(ctx, dest, bytesPerSec)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("copying response body: %w", err)
	}
	return nil
}
