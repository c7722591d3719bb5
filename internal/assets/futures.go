// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package assets provides the asset discovery collaborators the Collector
// consumes as a plain sequence of symbol strings: the futures-code
// generator and the historical quote file's asset-name extractor,
// reproducing original_source's core/futures.rs and helpers/assets.rs.
package assets

import (
	"fmt"
	"strings"
	"time"
)

// winLetters is the bimonthly contract-month letter set used by the WIN
// (mini index futures) root, per core/futures.rs.
var winLetters = []byte{'G', 'J', 'M', 'Q', 'V', 'Z'}

// monthlyLetters is the full twelve-letter contract-month set used by the
// WDO (mini dollar futures) and BIT (bitcoin futures) roots.
var monthlyLetters = []byte{'F', 'G', 'H', 'J', 'K', 'M', 'N', 'Q', 'U', 'V', 'X', 'Z'}

// FuturesCodes generates the static list of derivative symbols for the
// year of now, in the same root-major order as core/futures.rs::get_futures:
// all win codes, then all wdo codes, then all bit codes.
func FuturesCodes(now time.Time) []string {
	year := now.Year() % 100

	codes := make([]string, 0, len(winLetters)+2*len(monthlyLetters))
	for _, l := range winLetters {
		codes = append(codes, strings.ToLower(fmt.Sprintf("win%c%02d", l, year)))
	}
	for _, l := range monthlyLetters {
		codes = append(codes, strings.ToLower(fmt.Sprintf("wdo%c%02d", l, year)))
	}
	for _, l := range monthlyLetters {
		codes = append(codes, strings.ToLower(fmt.Sprintf("bit%c%02d", l, year)))
	}
	return codes
}
