package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	apperrors "ecgprep/internal/errors"
	"ecgprep/internal/infrastructure"
)

// Progress is a snapshot of a running download. Total is -1 when the server
// did not announce a length.
type Progress struct {
	Downloaded int64
	Total      int64
}

// Percent is the completed share in [0, 100], or 0 when Total is unknown.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	pct := float64(p.Downloaded) * 100 / float64(p.Total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

func (p Progress) String() string {
	if p.Total <= 0 {
		return fmt.Sprintf("Downloaded: %d bytes", p.Downloaded)
	}
	return fmt.Sprintf("Downloaded: %d / %d bytes (%.2f%%)", p.Downloaded, p.Total, p.Percent())
}

// ProgressFunc receives download progress. The final snapshot is always
// delivered.
type ProgressFunc func(Progress)

// Downloader fetches a URL to a local file.
type Downloader struct {
	client   *http.Client
	logger   *slog.Logger
	metrics  *infrastructure.ConversionMetrics
	interval time.Duration
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) DownloaderOption {
	return func(d *Downloader) { d.client = c }
}

// WithMetrics records downloaded bytes.
func WithMetrics(m *infrastructure.ConversionMetrics) DownloaderOption {
	return func(d *Downloader) { d.metrics = m }
}

// WithProgressInterval sets the minimum time between progress reports.
func WithProgressInterval(interval time.Duration) DownloaderOption {
	return func(d *Downloader) { d.interval = interval }
}

// NewDownloader creates a downloader. No overall timeout is applied; callers
// bound the transfer through the context.
func NewDownloader(logger *slog.Logger, opts ...DownloaderOption) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Downloader{
		client:   &http.Client{},
		logger:   logger.With(slog.String("component", "downloader")),
		interval: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads url into dest and returns the number of bytes written. The
// body is streamed to a sibling ".part" file that is renamed into place only
// after the transfer completes.
func (d *Downloader) Fetch(ctx context.Context, url, dest string, progress ProgressFunc) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, apperrors.NewStorageError("failed to create download directory", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, apperrors.NewNetworkError("invalid download request", err).WithContext("url", url)
	}

	d.logger.InfoContext(ctx, "Starting download", slog.String("url", url), slog.String("dest", dest))
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, apperrors.NewNetworkError("download failed", err).WithContext("url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, apperrors.NewNetworkError(fmt.Sprintf("download failed with status %d", resp.StatusCode), nil).
			WithContext("url", url).
			WithContext("status", resp.StatusCode)
	}

	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return 0, apperrors.NewStorageError("failed to create download file", err)
	}
	defer os.Remove(part)

	pw := &progressWriter{
		total:    resp.ContentLength,
		report:   progress,
		limiter:  rate.NewLimiter(rate.Every(d.interval), 1),
		onChunk:  func(n int) { d.metrics.RecordDownload(ctx, int64(n)) },
		reported: -1,
	}
	n, copyErr := io.Copy(f, io.TeeReader(resp.Body, pw))
	closeErr := f.Close()
	pw.flush()

	if copyErr != nil {
		return n, apperrors.NewNetworkError("download interrupted", copyErr).WithContext("url", url)
	}
	if closeErr != nil {
		return n, apperrors.NewStorageError("failed to close download file", closeErr)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return n, apperrors.NewNetworkError(fmt.Sprintf("short download: got %d of %d bytes", n, resp.ContentLength), nil).
			WithContext("url", url)
	}
	if err := os.Rename(part, dest); err != nil {
		return n, apperrors.NewStorageError("failed to move download into place", err)
	}

	d.logger.InfoContext(ctx, "Download complete", slog.String("dest", dest), slog.Int64("bytes", n))
	return n, nil
}

// EnsureArchive downloads url to dest unless dest already exists. It reports
// whether a download happened.
func (d *Downloader) EnsureArchive(ctx context.Context, url, dest string, progress ProgressFunc) (bool, error) {
	if _, err := os.Stat(dest); err == nil {
		d.logger.InfoContext(ctx, "Archive already present", slog.String("path", dest))
		return false, nil
	}
	if _, err := d.Fetch(ctx, url, dest, progress); err != nil {
		return false, err
	}
	return true, nil
}

type progressWriter struct {
	downloaded int64
	total      int64
	reported   int64
	report     ProgressFunc
	limiter    *rate.Limiter
	onChunk    func(int)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.downloaded += int64(len(p))
	if w.onChunk != nil {
		w.onChunk(len(p))
	}
	if w.report != nil && w.limiter.Allow() {
		w.emit()
	}
	return len(p), nil
}

func (w *progressWriter) flush() {
	if w.report != nil && w.reported != w.downloaded {
		w.emit()
	}
}

func (w *progressWriter) emit() {
	w.reported = w.downloaded
	w.report(Progress{Downloaded: w.downloaded, Total: w.total})
}
