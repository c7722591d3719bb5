// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package collector

import (
	"net"
	"sync"
)

// session wraps the single TCP connection a Collector run holds open,
// serializing all writes (handshake replies and subscription commands)
// behind one mutex; reads do not take it.
type session struct {
	conn net.Conn
	mu   sync.Mutex
}

func newSession(conn net.Conn) *session {
	return &session{conn: conn}
}

func (s *session) write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.Write(p)
	return err
}

func (s *session) read(buf []byte) (int, error) {
	// Reads need not exclude writes of the same session: the protocol is
	// full-duplex line-oriented (spec.md §5). Only the write path takes
	// the mutex.
	return s.conn.Read(buf)
}

func (s *session) Close() error {
	return s.conn.Close()
}
