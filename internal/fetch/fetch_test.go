package fetch

import (
	"archive/zip"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDownloadSucceedsOnFirstAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	if err := Download(context.Background(), discardLogger(), srv.URL, dest, 0); err != nil {
		t.Fatalf("Download: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestDownloadRetriesThenSucceeds(t *testing.T) {
	origDelay := downloadRetryDelay
	// speed up the test; the production delay is a fixed 2s per the original.
	downloadRetryDelay = time.Millisecond
	defer func() { downloadRetryDelay = origDelay }()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	if err := Download(context.Background(), discardLogger(), srv.URL, dest, 0); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestUnzipPreservesFilesAndDirs(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "archive.zip")

	zf, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	zw := zip.NewWriter(zf)
	w, err := zw.Create("nested/file.txt")
	if err != nil {
		t.Fatalf("zw.Create: %v", err)
	}
	if _, err := w.Write([]byte("contents")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zw.Close: %v", err)
	}
	zf.Close()

	destDir := filepath.Join(dir, "out")
	if err := Unzip(zipPath, destDir); err != nil {
		t.Fatalf("Unzip: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(destDir, "nested", "file.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "contents" {
		t.Fatalf("got %q", got)
	}
}
