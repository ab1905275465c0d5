package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"igvision/pkg/config"
	errs "igvision/pkg/errors"
	"igvision/pkg/logger"
	"igvision/pkg/ratelimit"
	"igvision/pkg/retry"
)

const defaultUserAgent = "igvision/1.0"

var errIdleTimeout = errors.New("no data received within read timeout")

// Fetcher streams a media URL into a local file. The timeout bounds
// connecting, waiting for response headers and each gap between body
// reads; a slow transfer that keeps delivering bytes is never cut off.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	limiter   ratelimit.Limiter
	policy    *retry.Policy
	logger    logger.Logger
}

// NewFetcher creates a fetcher from the download and retry configuration
func NewFetcher(cfg config.DownloadConfig, retryCfg config.RetryConfig, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Fetcher{
		client:    newHTTPClient(timeout),
		timeout:   timeout,
		userAgent: userAgent,
		limiter:   ratelimit.PerMinute(cfg.RequestsPerMinute),
		policy:    retry.FromConfig(retryCfg, log),
		logger:    log,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout
	return &http.Client{Transport: transport}
}

// Fetch downloads url into dest and returns the number of bytes written.
// The body is streamed into dest.tmp and renamed onto dest only after the
// whole body was written, so dest never holds a partial download.
// Every attempt, retries included, waits on the rate limiter.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) (int64, error) {
	return retry.DoWithResult(ctx, f.policy, func(ctx context.Context) (int64, error) {
		if err := f.limiter.Wait(ctx); err != nil {
			return 0, err
		}
		return f.fetchOnce(ctx, url, dest)
	})
}

func (f *Fetcher) fetchOnce(ctx context.Context, url, dest string) (int64, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errs.Wrap(errs.KindNetwork, "download", fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, errs.Wrap(errs.KindNetwork, "download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, errs.FromStatus("download", resp.StatusCode)
	}

	tempFile := dest + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return 0, errs.Wrap(errs.KindIO, "download", fmt.Errorf("failed to create temporary file: %w", err))
	}

	body := newIdleReader(resp.Body, f.timeout, func() { cancel(errIdleTimeout) })
	written, err := io.Copy(out, body)
	body.stop()
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		if cause := context.Cause(ctx); errors.Is(cause, errIdleTimeout) {
			err = cause
		}
		return 0, errs.Wrap(errs.KindNetwork, "download", fmt.Errorf("failed to stream body: %w", err))
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return 0, errs.Wrap(errs.KindIO, "download", fmt.Errorf("failed to close file: %w", closeErr))
	}

	if err := os.Rename(tempFile, dest); err != nil {
		os.Remove(tempFile)
		return 0, errs.Wrap(errs.KindIO, "download", fmt.Errorf("failed to rename temporary file: %w", err))
	}

	f.logger.DebugWithFields("Media written", map[string]interface{}{
		"url":   url,
		"path":  dest,
		"bytes": written,
	})
	return written, nil
}

// idleReader fires onIdle when a single Read blocks longer than timeout
type idleReader struct {
	r       io.Reader
	timeout time.Duration
	timer   *time.Timer
}

func newIdleReader(r io.Reader, timeout time.Duration, onIdle func()) *idleReader {
	return &idleReader{r: r, timeout: timeout, timer: time.AfterFunc(timeout, onIdle)}
}

func (ir *idleReader) Read(p []byte) (int, error) {
	ir.timer.Reset(ir.timeout)
	return ir.r.Read(p)
}

func (ir *idleReader) stop() {
	ir.timer.Stop()
}
