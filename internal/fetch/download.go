// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/meshintel/preprint-digest/pkg/types"
)

var (
	unsafeChars     = regexp.MustCompile(`[^\w\s-]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	forbiddenInName = regexp.MustCompile(`[<>:"/\\|?*]`)
)

// Downloader retrieves paper PDFs. A zero DownloadDelay disables pacing
// between consecutive downloads.
type Downloader struct {
	cfg     types.DownloadConfig
	http    *http.Client
	log     zerolog.Logger
	metrics *Metrics

	contentBase string
}

// NewDownloader builds a downloader from cfg. The output directory is
// created up front so permission problems surface before any network call.
func NewDownloader(cfg types.DownloadConfig, insecureTLS bool, log zerolog.Logger, metrics *Metrics) (*Downloader, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Disposition == "" {
		cfg.Disposition = types.Redownload
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", cfg.OutputDir, err)
	}
	probe, err := os.CreateTemp(cfg.OutputDir, ".digest-probe-*")
	if err != nil {
		return nil, fmt.Errorf("output directory %s is not writable: %w", cfg.OutputDir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Downloader{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		log:         log,
		metrics:     metrics,
		contentBase: defaultContentBase,
	}, nil
}

// PDFURL returns the full-text PDF location for a record. Version-suffixed
// identifiers resolve to the versioned document.
func (d *Downloader) PDFURL(rec types.PaperRecord) string {
	id := rec.DOI
	if rec.Version != "" {
		id = rec.ID
	}
	return d.contentBase + "/" + id + ".full.pdf"
}

// Filename derives the local PDF name: date, lead author, short title. All
// three parts are sanitized for the filesystem.
func Filename(rec types.PaperRecord) string {
	date := rec.Date
	if rec.PublishedAt().IsZero() {
		date = time.Now().Format("2006-01-02")
	}

	author := unsafeChars.ReplaceAllString(rec.FirstAuthor(), "")
	author = strings.TrimSpace(whitespaceRun.ReplaceAllString(author, " "))
	if author == "" {
		author = "Unknown"
	}

	title := unsafeChars.ReplaceAllString(rec.ShortTitle(), "")
	title = strings.TrimSpace(whitespaceRun.ReplaceAllString(title, " "))
	if title == "" {
		title = "Unknown"
	}

	name := fmt.Sprintf("%s - %s - %s.pdf", date, author, title)
	return forbiddenInName.ReplaceAllString(name, "")
}

// Fetch retrieves one paper's PDF, honoring the disposition policy for
// files that already exist. The disposition is resolved before any network
// traffic. Downloads stream through a temporary file and rename into place
// only on success, so a partial transfer never leaves a truncated PDF.
func (d *Downloader) Fetch(ctx context.Context, rec types.PaperRecord) types.FetchResult {
	path := filepath.Join(d.cfg.OutputDir, Filename(rec))

	if _, err := os.Stat(path); err == nil {
		switch d.cfg.Disposition {
		case types.Skip:
			d.log.Info().Str("paper", rec.ID).Msg("existing file, skipping paper")
			d.metrics.IncDownload(string(types.FetchSkipped))
			return types.FetchResult{Status: types.FetchSkipped, Path: path}
		case types.UseExisting:
			d.log.Info().Str("paper", rec.ID).Str("path", path).Msg("using existing file")
			d.metrics.IncDownload(string(types.FetchAlreadyExists))
			return types.FetchResult{Status: types.FetchAlreadyExists, Path: path}
		}
	}

	url := d.PDFURL(rec)
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			d.metrics.IncRetries()
			backoff := time.Duration(1<<(attempt-1)) * backoffBase
			select {
			case <-ctx.Done():
				return types.FetchResult{Status: types.FetchFailed, Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		err := d.downloadFile(ctx, url, path)
		if err == nil {
			d.log.Info().Str("paper", rec.ID).Str("path", path).Msg("downloaded")
			d.metrics.IncDownload(string(types.FetchDownloaded))
			return types.FetchResult{Status: types.FetchDownloaded, Path: path}
		}
		lastErr = err
		d.log.Warn().Err(err).Str("paper", rec.ID).Int("attempt", attempt+1).Msg("download failed")
	}

	d.metrics.IncDownload(string(types.FetchFailed))
	d.metrics.IncError(errorTypeLabel(lastErr))
	return types.FetchResult{Status: types.FetchFailed, Err: lastErr}
}

// downloadFile streams url into destPath via a temp file in the same
// directory. An empty body counts as failure.
func (d *Downloader) downloadFile(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	d.metrics.IncRequest("download")
	start := time.Now()
	resp, err := d.http.Do(req)
	d.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		return classifyError(err, 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classifyError(fmt.Errorf("http status %d from %s", resp.StatusCode, url), resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".digest-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	written, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if written == 0 {
		os.Remove(tmpPath)
		return fmt.Errorf("empty response from %s", url)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Delay pauses between consecutive downloads, returning early on
// cancellation.
func (d *Downloader) Delay(ctx context.Context) {
	if d.cfg.DownloadDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d.cfg.DownloadDelay):
	}
}
