package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestZipFolderIncludesFilesAndManifest(t *testing.T) {
	dir := t.TempDir()
	folder := filepath.Join(dir, "content")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	if err := os.WriteFile(filepath.Join(folder, "crystal-md-0.txt"), []byte("line1\nline2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(folder, "crystal-md-1.txt"), []byte("line3\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	// non-recursive: nested files must not appear in the archive.
	if err := os.MkdirAll(filepath.Join(folder, "nested"), 0o755); err != nil {
		t.Fatalf("MkdirAll nested: %v", err)
	}
	if err := os.WriteFile(filepath.Join(folder, "nested", "ignored.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile nested: %v", err)
	}

	now := time.Date(2026, time.July, 30, 0, 0, 0, 0, time.UTC)
	zipPath, err := zipFolder(folder, now)
	if err != nil {
		t.Fatalf("zipFolder: %v", err)
	}
	if filepath.Base(zipPath) != "md-2026-07-30.zip" {
		t.Fatalf("zip name = %q, want md-2026-07-30.zip", filepath.Base(zipPath))
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	names := make(map[string]bool)
	for _, f := range r.File {
		names[f.Name] = true
	}

	for _, want := range []string{"crystal-md-0.txt", "crystal-md-1.txt", "manifest.log.gz"} {
		if !names[want] {
			t.Errorf("expected entry %q in archive, got %v", want, names)
		}
	}
	if names["nested/ignored.txt"] {
		t.Errorf("non-recursive zip must not include nested/ignored.txt")
	}
}
