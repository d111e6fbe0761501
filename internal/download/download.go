// Package download fetches remote resources over HTTP with bounded retries.
//
// It is shared by the artifact resolver (phars and signatures), the keyserver
// client and the GitHub release source. Retries live here and nowhere else:
// resolution, trust and registry logic never retry.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Minute
	// DefaultRetries is the default number of download retries
	DefaultRetries = 3
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "pharm/1.0"
	// DefaultBackoff is the delay before the first retry; it doubles per attempt
	DefaultBackoff = time.Second

	// maxFetchBytes bounds in-memory fetches (keys, JSON, signatures).
	maxFetchBytes = 10 << 20
)

// ErrNotFound is returned when the server answers 404. It is never retried.
var ErrNotFound = errors.New("resource not found")

// StatusError is returned for unexpected HTTP status codes.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status code: %d", e.URL, e.StatusCode)
}

// Downloader handles HTTP downloads with retry logic
type Downloader struct {
	client    *http.Client
	userAgent string
	retries   int
	backoff   time.Duration
	headers   map[string]string
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxies.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) {
		d.client = c
	}
}

// WithRetries sets the number of retries after the first attempt.
func WithRetries(n int) Option {
	return func(d *Downloader) {
		d.retries = n
	}
}

// WithBackoff sets the delay before the first retry.
func WithBackoff(b time.Duration) Option {
	return func(d *Downloader) {
		d.backoff = b
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(d *Downloader) {
		d.headers[key] = value
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(d *Downloader) {
		d.userAgent = ua
	}
}

// New creates a new downloader
func New(opts ...Option) *Downloader {
	d := &Downloader{
		client: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: DefaultUserAgent,
		retries:   DefaultRetries,
		backoff:   DefaultBackoff,
		headers:   map[string]string{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// retry runs fn until it succeeds, returns a non-retryable error, or the
// retry budget is exhausted. Backoff doubles per attempt.
func (d *Downloader) retry(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= d.retries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt > 0 {
			wait := d.backoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrNotFound) {
			return err
		}
	}

	return fmt.Errorf("download failed after %d retries: %w", d.retries, lastErr)
}

func (d *Downloader) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	for k, v := range d.headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %w", url, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	return resp, nil
}

// Fetch downloads url into memory.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	var data []byte

	err := d.retry(ctx, func() error {
		resp, err := d.get(ctx, url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}
		if len(body) > maxFetchBytes {
			return fmt.Errorf("response from %s exceeds %d bytes", url, maxFetchBytes)
		}
		data = body
		return nil
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}

// ToFile downloads url to destPath via a temporary file and an atomic rename.
func (d *Downloader) ToFile(ctx context.Context, url, destPath string) error {
	return d.retry(ctx, func() error {
		return d.toFileOnce(ctx, url, destPath)
	})
}

func (d *Downloader) toFileOnce(ctx context.Context, url, destPath string) error {
	resp, err := d.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		return fmt.Errorf("copy response body: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	cleanupNeeded = false
	return nil
}

// FileExists reports whether path is a non-empty regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}
