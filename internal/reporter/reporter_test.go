package reporter

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogReporterInfoAndError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := NewSlogReporter(logger)

	r.Info("reconnecting", "attempt", 3)
	if !strings.Contains(buf.String(), "reconnecting") {
		t.Fatalf("expected info line, got %q", buf.String())
	}

	buf.Reset()
	r.Error(errors.New("boom"), "upload failed", "key", "2026-07-30/md-2026-07-30.zip")
	out := buf.String()
	if !strings.Contains(out, "upload failed") || !strings.Contains(out, "boom") {
		t.Fatalf("expected error line with message and error, got %q", out)
	}
}
