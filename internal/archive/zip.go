// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package archive implements the Archive Uploader collaborator: given a
// folder path it compresses the folder's files into one archive and
// uploads it to object storage, mirroring original_source's
// helpers/storage.rs (zip_md_folder + upload_to_blob), retargeted from
// Azure Blob Storage to an S3-compatible bucket since no Azure SDK
// appears anywhere in the example pack.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/pgzip"
)

// zipFolder builds a deflate-compressed zip archive from every regular
// file directly under folder (non-recursive, matching zip_md_folder), plus
// one manifest.log.gz entry listing the zipped file names and sizes,
// gzip-compressed in parallel via klauspost/pgzip before being added to the
// archive, then returns the zip's path.
func zipFolder(folder string, now time.Time) (string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return "", fmt.Errorf("reading folder: %w", err)
	}

	zipName := fmt.Sprintf("md-%s.zip", now.Format("2006-01-02"))
	zipPath := filepath.Join(filepath.Dir(folder), zipName)

	zf, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("creating zip file: %w", err)
	}
	defer zf.Close()

	zw := zip.NewWriter(zf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})

	var manifest bytes.Buffer

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", entry.Name(), err)
		}

		if err := addFileToZip(zw, filepath.Join(folder, entry.Name()), entry.Name()); err != nil {
			return "", fmt.Errorf("adding %s to zip: %w", entry.Name(), err)
		}
		fmt.Fprintf(&manifest, "%s %d\n", entry.Name(), info.Size())
	}

	if err := addManifestToZip(zw, manifest.Bytes()); err != nil {
		return "", fmt.Errorf("adding manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finalizing zip: %w", err)
	}

	return zipPath, nil
}

func addFileToZip(zw *zip.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.Create(name)
	if err != nil {
		return err
	}

	_, err = io.Copy(w, src)
	return err
}

// addManifestToZip pre-compresses the manifest through pgzip's parallel
// gzip writer, then stores the gzip stream itself inside the zip as
// manifest.log.gz — this is the collector's only caller of the teacher's
// otherwise unexercised pgzip dependency.
func addManifestToZip(zw *zip.Writer, manifest []byte) error {
	var gz bytes.Buffer
	pw := pgzip.NewWriter(&gz)
	if _, err := pw.Write(manifest); err != nil {
		return err
	}
	if err := pw.Close(); err != nil {
		return err
	}

	w, err := zw.Create("manifest.log.gz")
	if err != nil {
		return err
	}
	_, err = w.Write(gz.Bytes())
	return err
}
