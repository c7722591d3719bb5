// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package assets

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// assetColumnStart and assetColumnEnd mark the fixed-width asset-code
// column of a B3 historical quote record, reproducing
// helpers/assets.rs::extract_asset_names's `line[12..24]` slice.
const (
	assetColumnStart = 12
	assetColumnEnd   = 24
)

// ExtractNames scans a COTAHIST-format historical quote file and returns
// the de-duplicated set of traded instrument codes found in the fixed-width
// asset column of every line at least 24 bytes long. Shorter lines are
// skipped, matching the original's `if line.len() >= 24` guard.
func ExtractNames(r io.Reader) (map[string]struct{}, error) {
	names := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < assetColumnEnd {
			continue
		}
		name := strings.TrimSpace(line[assetColumnStart:assetColumnEnd])
		names[name] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning quote file: %w", err)
	}
	return names, nil
}

// SaveNames writes names, one per line, sorted for determinism (the
// original iterates a HashSet so its output order is unspecified; sorting
// here is a supplement, not a behavior change — the set of lines written
// is identical).
func SaveNames(names map[string]struct{}, path string) error {
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating asset names file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, n := range sorted {
		if _, err := fmt.Fprintln(w, n); err != nil {
			return fmt.Errorf("writing asset name: %w", err)
		}
	}
	return w.Flush()
}

// ReadNames reads a line-delimited asset name file back into an ordered
// slice, mirroring helpers/assets.rs::read_asset_names.
func ReadNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening asset names file: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		names = append(names, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading asset names file: %w", err)
	}
	return names, nil
}
