// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cmdc/b3-collector/internal/assets"
	"github.com/cmdc/b3-collector/internal/config"
)

// PrepareAssets downloads the yearly historical quote archive, unzips it,
// extracts the traded instrument codes, and persists them, mirroring
// core/app.rs::run's directory setup: COTAHIST_A{year}.ZIP/.TXT under
// quotes.resources_dir, assets-{year}.txt alongside it. It returns the
// ordered asset list ready to hand to the Collector.
func PrepareAssets(ctx context.Context, cfg *config.CollectorConfig, year int, bytesPerSec int64, logger *slog.Logger) ([]string, error) {
	if err := os.MkdirAll(cfg.Quotes.ResourcesDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating resources dir: %w", err)
	}

	url := strings.ReplaceAll(cfg.Quotes.URLTemplate, "{year}", strconv.Itoa(year))
	zipPath := filepath.Join(cfg.Quotes.ResourcesDir, fmt.Sprintf("COTAHIST_A%d.ZIP", year))
	assetsPath := filepath.Join(cfg.Quotes.ResourcesDir, fmt.Sprintf("assets-%d.txt", year))

	if err := Download(ctx, logger, url, zipPath, bytesPerSec); err != nil {
		return nil, fmt.Errorf("downloading historical quote archive: %w", err)
	}

	if err := Unzip(zipPath, cfg.Quotes.ResourcesDir); err != nil {
		return nil, fmt.Errorf("unzipping historical quote archive: %w", err)
	}

	txtPath := filepath.Join(cfg.Quotes.ResourcesDir, fmt.Sprintf("COTAHIST_A%d.TXT", year))
	f, err := os.Open(txtPath)
	if err != nil {
		return nil, fmt.Errorf("opening unzipped quote file: %w", err)
	}
	names, err := assets.ExtractNames(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("extracting asset names: %w", err)
	}

	if err := assets.SaveNames(names, assetsPath); err != nil {
		return nil, fmt.Errorf("saving asset names: %w", err)
	}

	list, err := assets.ReadNames(assetsPath)
	if err != nil {
		return nil, fmt.Errorf("reading back asset names: %w", err)
	}

	logger.Info("prepared asset list", "year", year, "count", len(list))
	return list, nil
}
