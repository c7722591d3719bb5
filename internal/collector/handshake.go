// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package collector

import (
	"strings"
	"sync/atomic"
)

// interceptHandshake checks line (already UTF-8 decoded, with the
// replacement-substitution that entails for invalid bytes) for the four
// prompt substrings and reacts on the same session. It returns an error if
// a reply write failed. Lines that match still flow into the batch
// unconditionally — capture is independent of handshake recognition.
func interceptHandshake(line string, s *session, params SessionParams, connected *atomic.Bool) error {
	switch {
	case strings.Contains(line, "Connecting..."):
		return s.write([]byte("\n"))
	case strings.Contains(line, "Username:"):
		return s.write([]byte(params.Username))
	case strings.Contains(line, "Password:"):
		return s.write([]byte(params.Password))
	case strings.Contains(line, "You are connected"):
		connected.Store(true)
	}
	return nil
}
