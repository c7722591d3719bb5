package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnvProviderUppercasesAndReplacesNonAlnum(t *testing.T) {
	env := map[string]string{"B3_SECRET_BLOB_ACCOUNT": "abc123"}
	p := NewEnvProvider(func(k string) (string, bool) { v, ok := env[k]; return v, ok })

	got, err := p.GetSecret(context.Background(), "blob-account")
	if err != nil {
		t.Fatalf("GetSecret: %v", err)
	}
	if got != "abc123" {
		t.Fatalf("got %q, want %q", got, "abc123")
	}
}

func TestEnvProviderMissing(t *testing.T) {
	p := NewEnvProvider(func(string) (string, bool) { return "", false })
	if _, err := p.GetSecret(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for missing secret")
	}
}

func TestFileProviderLoadsColonAndEqualsSyntax(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.yaml")
	content := "blob-account: abc\nblob-key=\"def\"\n# comment\n\nblob-container: ghi\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := LoadFileProvider(path)
	if err != nil {
		t.Fatalf("LoadFileProvider: %v", err)
	}

	for name, want := range map[string]string{
		"blob-account":   "abc",
		"blob-key":       "def",
		"blob-container": "ghi",
	} {
		got, err := p.GetSecret(context.Background(), name)
		if err != nil {
			t.Fatalf("GetSecret(%q): %v", name, err)
		}
		if got != want {
			t.Fatalf("GetSecret(%q) = %q, want %q", name, got, want)
		}
	}
}

type flakyProvider struct {
	failures int
	calls    int
}

func (f *flakyProvider) GetSecret(_ context.Context, name string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("transient")
	}
	return "resolved-" + name, nil
}

func withShortRetryUnits(t *testing.T) {
	t.Helper()
	origDelay, origTimeout := retryDelayUnit, retryTimeoutUnit
	retryDelayUnit = time.Millisecond
	retryTimeoutUnit = time.Millisecond
	t.Cleanup(func() {
		retryDelayUnit = origDelay
		retryTimeoutUnit = origTimeout
	})
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	withShortRetryUnits(t)
	inner := &flakyProvider{failures: 2}
	p := WithRetry(inner)

	got, err := p.GetSecret(context.Background(), "k")
	if err != nil {
		t.Fatalf("GetSecret: %v", err)
	}
	if got != "resolved-k" {
		t.Fatalf("got %q", got)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", inner.calls)
	}
}

type alwaysFailProvider struct{ calls int }

func (a *alwaysFailProvider) GetSecret(_ context.Context, _ string) (string, error) {
	a.calls++
	return "", errors.New("permanent")
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	withShortRetryUnits(t)
	inner := &alwaysFailProvider{}
	p := WithRetry(inner)

	if _, err := p.GetSecret(context.Background(), "k"); err == nil {
		t.Fatalf("expected error")
	}
	if inner.calls != retryCount {
		t.Fatalf("expected %d calls, got %d", retryCount, inner.calls)
	}
}
