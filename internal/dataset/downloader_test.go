package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// buildZip creates an in-memory zip with the given entries.
func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDownloader_Run(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"7/TD_RGB_E_1.jpg": "fake jpeg",
		"7/TD_RGB_E_2.jpg": "fake jpeg",
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Set1.zip" {
			w.Write(archive)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	base := t.TempDir()
	d := &Downloader{
		BaseURL:     server.URL,
		Files:       []string{"Set1.zip", "SetMissing.zip"},
		DownloadDir: filepath.Join(base, "downloaded"),
		ExtractDir:  filepath.Join(base, "extracted"),
		Workers:     2,
	}

	results := d.Run(context.Background())
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	byFile := map[string]error{}
	for _, r := range results {
		byFile[r.File] = r.Err
	}
	if byFile["Set1.zip"] != nil {
		t.Errorf("Set1.zip failed: %v", byFile["Set1.zip"])
	}
	if byFile["SetMissing.zip"] == nil {
		t.Error("missing archive must report a per-file error")
	}

	// The good archive is extracted despite the failed one.
	extracted := filepath.Join(base, "extracted", "7", "TD_RGB_E_1.jpg")
	if _, err := os.Stat(extracted); err != nil {
		t.Errorf("extracted file missing: %v", err)
	}
}

func TestDownloader_SkipsExistingArchive(t *testing.T) {
	archive := buildZip(t, map[string]string{"1/a.jpg": "x"})

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write(archive)
	}))
	defer server.Close()

	base := t.TempDir()
	downloadDir := filepath.Join(base, "downloaded")
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		t.Fatal(err)
	}
	// Pre-seed the archive so the downloader skips the transfer.
	if err := os.WriteFile(filepath.Join(downloadDir, "Set1.zip"), archive, 0o644); err != nil {
		t.Fatal(err)
	}

	d := &Downloader{
		BaseURL:     server.URL,
		Files:       []string{"Set1.zip"},
		DownloadDir: downloadDir,
		ExtractDir:  filepath.Join(base, "extracted"),
		Workers:     1,
	}

	results := d.Run(context.Background())
	if results[0].Err != nil {
		t.Fatalf("Run: %v", results[0].Err)
	}
	if requests != 0 {
		t.Errorf("existing archive was re-downloaded (%d requests)", requests)
	}
}

func TestExtractZip_RejectsPathTraversal(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("../escape.txt")
	if err != nil {
		t.Fatal(err)
	}
	f.Write([]byte("nope"))
	w.Close()

	base := t.TempDir()
	archivePath := filepath.Join(base, "evil.zip")
	if err := os.WriteFile(archivePath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := extractZip(archivePath, filepath.Join(base, "out")); err == nil {
		t.Error("expected error for path traversal entry")
	}
}
