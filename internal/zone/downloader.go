package zone

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/matthieugras/czds-client/internal/apierr"
	"github.com/matthieugras/czds-client/internal/backoff"
	"github.com/matthieugras/czds-client/internal/config"
	"github.com/matthieugras/czds-client/internal/logging"
	"github.com/matthieugras/czds-client/internal/output"
)

// Transport is the authenticated request surface the downloader needs.
// *api.Client satisfies it.
type Transport interface {
	Probe(ctx context.Context, url string) (*http.Response, error)
	Fetch(ctx context.Context, url string) (*http.Response, error)
}

// Options configures a Downloader
type Options struct {
	DataBaseURL string
	MaxAttempts int
	Backoff     config.BackoffConfig

	// OnBackoff is called when a retry is scheduled
	OnBackoff func(link string, attempt int, wait time.Duration, err error)
	// OnProgress is called periodically while a zone file is written
	OnProgress func(link string, bytesWritten int64)
}

// Result is the outcome of downloading one zone file
type Result struct {
	Link       string
	TLD        string
	Path       string
	Bytes      int64
	Duration   time.Duration
	Attempts   int
	Err        error
	Skipped    bool
	SkipReason string
}

// Downloader lists and downloads zone files over an authenticated transport
type Downloader struct {
	client      Transport
	files       *output.FileManager
	linksURL    string
	maxAttempts int
	backoff     *backoff.Backoff
	onBackoff   func(string, int, time.Duration, error)
	onProgress  func(string, int64)
}

// NewDownloader creates a downloader that writes into files
func NewDownloader(client Transport, files *output.FileManager, opts Options) *Downloader {
	base := opts.DataBaseURL
	if base == "" {
		base = config.DefaultDataBaseURL
	}
	attempts := max(opts.MaxAttempts, 1)
	bcfg := opts.Backoff
	if bcfg.InitialInterval <= 0 {
		bcfg = config.DefaultBackoffConfig()
	}

	return &Downloader{
		client:      client,
		files:       files,
		linksURL:    config.ClientConfig{DataBaseURL: base}.DataURL(LinksPath),
		maxAttempts: attempts,
		backoff:     backoff.New(bcfg),
		onBackoff:   opts.OnBackoff,
		onProgress:  opts.OnProgress,
	}
}

// IsFatal reports whether err should stop a batch: every later request
// would fail the same way.
func IsFatal(err error) bool {
	return errors.Is(err, apierr.ErrInvalidCredentials) ||
		errors.Is(err, apierr.ErrTermsAcceptanceRequired) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Download fetches one zone file, re-attempting transient failures
func (d *Downloader) Download(ctx context.Context, link string) Result {
	start := time.Now()
	result := Result{Link: link, TLD: TLDFromLink(link)}

	for attempt := 1; ; attempt++ {
		result.Attempts = attempt

		if err := d.backoff.Wait(ctx); err != nil {
			result.Err = err
			break
		}

		err := d.downloadOnce(ctx, link, &result)
		if err == nil {
			d.backoff.Succeeded()
			break
		}
		if !apierr.IsRetryable(err) || attempt >= d.maxAttempts || ctx.Err() != nil {
			result.Err = err
			break
		}

		wait := d.backoff.Failed()
		logging.Warn("Attempt %d/%d for %s failed, retrying in %v: %v", attempt, d.maxAttempts, link, wait, err)
		if d.onBackoff != nil {
			d.onBackoff(link, attempt, wait, err)
		}
	}

	result.Duration = time.Since(start)
	switch {
	case result.Err != nil:
		logging.Error("Download failed for %s: %v", link, result.Err)
	case result.Skipped:
		logging.Info("Skipped %s: %s", link, result.SkipReason)
	default:
		logging.Info("Downloaded %s -> %s (%d bytes in %v)", link, result.Path, result.Bytes, result.Duration)
	}
	return result
}

// downloadOnce probes the link and, if the zone is available, streams it to disk.
// A 503 probe is returned as a transient error so the caller may retry it.
func (d *Downloader) downloadOnce(ctx context.Context, link string, result *Result) error {
	head, err := d.client.Probe(ctx, link)
	if err != nil {
		return err
	}

	switch head.StatusCode {
	case http.StatusForbidden:
		result.Skipped, result.SkipReason = true, "not approved"
		return nil
	case http.StatusNotFound:
		result.Skipped, result.SkipReason = true, "not found"
		return nil
	case http.StatusServiceUnavailable:
		return apierr.Transient(head.StatusCode, link, "service unavailable")
	}
	if head.StatusCode < 200 || head.StatusCode > 299 {
		result.Skipped, result.SkipReason = true, fmt.Sprintf("unexpected status %d", head.StatusCode)
		return nil
	}

	resp, err := d.client.Fetch(ctx, link)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	name := fileName(resp.Header.Get("Content-Disposition"), result.TLD)
	var writer *output.ZoneWriter
	if d.onProgress != nil {
		writer, err = d.files.NewZoneWriterWithProgress(name, func(n int64) { d.onProgress(link, n) })
	} else {
		writer, err = d.files.NewZoneWriter(name)
	}
	if err != nil {
		return err
	}

	if _, err := io.Copy(writer, resp.Body); err != nil {
		writer.Abort()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return apierr.Transport(link, fmt.Errorf("reading body: %w", err))
	}
	if err := writer.Commit(); err != nil {
		return err
	}

	result.Path = writer.Path()
	result.Bytes = writer.Count()
	return nil
}

// DownloadAll downloads links one after another. onResult, if set, is called
// after each link. Returns the first fatal error, after which the remaining
// links are not attempted.
func (d *Downloader) DownloadAll(ctx context.Context, links []string, onResult func(Result)) ([]Result, error) {
	results := make([]Result, 0, len(links))
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := d.Download(ctx, link)
		results = append(results, result)
		if onResult != nil {
			onResult(result)
		}

		if result.Err != nil && IsFatal(result.Err) {
			logging.Error("Fatal error encountered, stopping remaining downloads")
			return results, result.Err
		}
	}
	return results, nil
}

// fileName picks the local file name from Content-Disposition, falling back to <tld>.txt.gz
func fileName(contentDisposition, tld string) string {
	if contentDisposition != "" {
		if _, params, err := mime.ParseMediaType(contentDisposition); err == nil && params["filename"] != "" {
			return params["filename"]
		}
	}
	if tld == "" {
		tld = "zone"
	}
	return tld + ".txt.gz"
}
