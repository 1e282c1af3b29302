package dataset

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Default source: the Tufts Face Database RGB emotion sets.
const DefaultBaseURL = "https://tdface.ece.tufts.edu/downloads/TD_RGB_E/"

// DefaultFiles lists the archive sets fetched when none are specified.
var DefaultFiles = []string{
	"TD_RGB_E_Set1.zip",
	"TD_RGB_E_Set2.zip",
	"TD_RGB_E_Set3.zip",
	"TD_RGB_E_Set4.zip",
}

const defaultWorkers = 16

// Downloader fetches and extracts the reference dataset archives.
type Downloader struct {
	BaseURL     string
	Files       []string
	DownloadDir string
	ExtractDir  string
	// Workers bounds the parallel downloads/extractions (default 16).
	Workers int
	// Progress enables per-file progress bars on stderr.
	Progress bool

	client *http.Client
}

// FileResult reports the outcome for one archive. Failures are per-file;
// one broken archive never aborts the others.
type FileResult struct {
	File string
	Err  error
}

// Run downloads all archives (skipping ones already present) and extracts
// them into ExtractDir. Already-downloaded files are kept, matching the
// resumable behavior of the original dataset scripts.
func (d *Downloader) Run(ctx context.Context) []FileResult {
	if d.BaseURL == "" {
		d.BaseURL = DefaultBaseURL
	}
	if len(d.Files) == 0 {
		d.Files = DefaultFiles
	}
	workers := d.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > len(d.Files) {
		workers = len(d.Files)
	}
	if d.client == nil {
		d.client = &http.Client{Timeout: 30 * time.Minute}
	}

	results := make([]FileResult, len(d.Files))

	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = FileResult{
					File: d.Files[i],
					Err:  d.fetchAndExtract(ctx, d.Files[i]),
				}
			}
		}()
	}
	for i := range d.Files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (d *Downloader) fetchAndExtract(ctx context.Context, file string) error {
	archivePath := filepath.Join(d.DownloadDir, file)

	if _, err := os.Stat(archivePath); err != nil {
		if err := d.download(ctx, file, archivePath); err != nil {
			return err
		}
	}

	return extractZip(archivePath, d.ExtractDir)
}

func (d *Downloader) download(ctx context.Context, file, dest string) error {
	if err := os.MkdirAll(d.DownloadDir, 0o755); err != nil {
		return fmt.Errorf("creating download directory: %w", err)
	}

	url := strings.TrimSuffix(d.BaseURL, "/") + "/" + file
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", url, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: status %d", url, resp.StatusCode)
	}

	// Download to a temp name first so an interrupted transfer is never
	// mistaken for a complete archive on the next run.
	tmp, err := os.CreateTemp(d.DownloadDir, file+".partial-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	var body io.Reader = resp.Body
	if d.Progress {
		bar := progressbar.DefaultBytes(resp.ContentLength, file)
		body = io.TeeReader(resp.Body, bar)
	}

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("saving %s: %w", file, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", file, err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("renaming %s: %w", file, err)
	}
	return nil
}

// extractZip extracts an archive into destDir, refusing entries that would
// escape it.
func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", archivePath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating extract directory: %w", err)
	}

	for _, f := range r.File {
		if err := extractZipEntry(f, destDir); err != nil {
			return fmt.Errorf("extracting %s from %s: %w", f.Name, filepath.Base(archivePath), err)
		}
	}
	return nil
}

func extractZipEntry(f *zip.File, destDir string) error {
	dest := filepath.Join(destDir, f.Name) //nolint:gosec // checked below
	if !strings.HasPrefix(dest, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("illegal path %q", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest) //nolint:gosec // path validated above
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, rc); err != nil { //nolint:gosec // trusted dataset archives
		out.Close()
		return err
	}
	return out.Close()
}
