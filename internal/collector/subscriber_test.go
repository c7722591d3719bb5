package collector

import (
	"bytes"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestSession() (*session, *fakeConn) {
	fc := &fakeConn{}
	return newSession(fc), fc
}

// S3 (subscription pacing): with 12 symbols and chunk=5, pause=short, the
// first 5 symbols produce 15 command writes, then a pause, then 5 more,
// then a pause, then the last 2 — tail-first chunking, as the original's
// Vec::split_off does.
func TestSubscriberChunksTailFirstWithPacing(t *testing.T) {
	sess, fc := newTestSession()

	symbols := make([]string, 12)
	for i := range symbols {
		symbols[i] = "SYM" + string(rune('A'+i))
	}

	cfg := DefaultConfig()
	cfg.SubscriptionChunk = 5
	cfg.SubscriptionPause = time.Millisecond

	var stopFlag atomic.Bool
	connected := &atomic.Bool{}
	connected.Store(true)

	var failed error
	runSubscriber(sess, nil, symbols, cfg, &stopFlag, connected, testLogger(), func(err error) { failed = err })

	if failed != nil {
		t.Fatalf("unexpected failure: %v", failed)
	}

	written := fc.written.String()
	lines := strings.Split(strings.TrimRight(written, "\n"), "\n")
	if len(lines) != 36 { // 12 symbols * 3 commands
		t.Fatalf("got %d command lines, want 36: %v", len(lines), lines)
	}

	// Tail-first: the first chunk emitted is the LAST 5 symbols.
	firstChunkFirstSymbol := strings.ToLower(symbols[len(symbols)-5])
	if !strings.HasPrefix(lines[0], "BQT "+firstChunkFirstSymbol) {
		t.Fatalf("first command = %q, want prefix %q", lines[0], "BQT "+firstChunkFirstSymbol)
	}

	// Each symbol's 3-command order is BQT, GQT ... S 1, SQT.
	for i := 0; i+2 < len(lines); i += 3 {
		sym := strings.TrimPrefix(lines[i], "BQT ")
		if lines[i] != "BQT "+sym {
			t.Fatalf("command %d = %q, want BQT prefix", i, lines[i])
		}
		if lines[i+1] != "GQT "+sym+" S 1" {
			t.Fatalf("command %d = %q, want GQT .. S 1", i+1, lines[i+1])
		}
		if lines[i+2] != "SQT "+sym {
			t.Fatalf("command %d = %q, want SQT prefix", i+2, lines[i+2])
		}
	}
}

func TestSubscriberWaitsForConnectedFlag(t *testing.T) {
	sess, fc := newTestSession()
	cfg := DefaultConfig()
	cfg.SubscriptionChunk = 10
	cfg.SubscriptionPause = time.Millisecond

	var stopFlag atomic.Bool
	connected := &atomic.Bool{}

	done := make(chan struct{})
	go func() {
		runSubscriber(sess, nil, []string{"petr4"}, cfg, &stopFlag, connected, testLogger(), func(error) {})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	if fc.written.Len() != 0 {
		t.Fatalf("expected no writes before Connected flag is set, got %q", fc.written.String())
	}

	connected.Store(true)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("subscriber did not proceed after Connected flag set")
	}

	if !bytes.Contains(fc.written.Bytes(), []byte("BQT petr4\n")) {
		t.Fatalf("expected subscription commands, got %q", fc.written.String())
	}
}

func TestSubscriberStopsOnWriteFailure(t *testing.T) {
	fc := &failingWriteConn{fakeConn: &fakeConn{}}
	sess := newSession(fc)

	cfg := DefaultConfig()
	cfg.SubscriptionChunk = 10
	cfg.SubscriptionPause = time.Millisecond

	var stopFlag atomic.Bool
	connected := &atomic.Bool{}
	connected.Store(true)

	var failed error
	runSubscriber(sess, nil, []string{"petr4"}, cfg, &stopFlag, connected, testLogger(), func(err error) { failed = err })

	if failed == nil {
		t.Fatalf("expected onFailure to be invoked")
	}
}

type failingWriteConn struct {
	*fakeConn
}

func (f *failingWriteConn) Write(p []byte) (int, error) {
	return 0, errTestWriteFailure
}

var errTestWriteFailure = errors.New("write failed")
