/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/natefinch/atomic"
)

// ErrTooLarge is returned when a download exceeds the configured limit.
var ErrTooLarge = errors.New("download exceeds size limit")

// IsURL reports whether source is an http(s) URL.
func IsURL(source string) bool {
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Downloader fetches remote submissions into a local directory.
type Downloader struct {
	client   *retryablehttp.Client
	maxBytes int64
	timeout  time.Duration
}

// DownloadOption configures a Downloader.
type DownloadOption func(*Downloader) error

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) DownloadOption {
	return func(d *Downloader) error {
		if c == nil {
			return errors.New("http client cannot be nil")
		}
		d.client.HTTPClient = c
		return nil
	}
}

// WithMaxBytes bounds the size of a download.
func WithMaxBytes(n int64) DownloadOption {
	return func(d *Downloader) error {
		if n <= 0 {
			return fmt.Errorf("max bytes must be positive, got %d", n)
		}
		d.maxBytes = n
		return nil
	}
}

// WithDownloadRetries sets how many times a failed request is retried.
func WithDownloadRetries(n int, wait time.Duration) DownloadOption {
	return func(d *Downloader) error {
		if n < 0 {
			return fmt.Errorf("retries must be non-negative, got %d", n)
		}
		d.client.RetryMax = n
		d.client.RetryWaitMin = wait
		d.client.RetryWaitMax = 10 * wait
		return nil
	}
}

// WithDownloadTimeout bounds a whole download including retries.
func WithDownloadTimeout(t time.Duration) DownloadOption {
	return func(d *Downloader) error {
		if t <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", t)
		}
		d.timeout = t
		return nil
	}
}

// NewDownloader creates a Downloader with a 2 GiB limit and three retries.
func NewDownloader(opts ...DownloadOption) (*Downloader, error) {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil
	d := &Downloader{
		client:   client,
		maxBytes: 2 << 30,
		timeout:  30 * time.Minute,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return d, nil
}

// Download saves the body of rawURL into dir and returns the file path. The
// file name comes from the URL path, with an extension taken from the
// Content-Type when the path has none.
func (d *Downloader) Download(ctx context.Context, rawURL, dir string) (string, error) {
	if !IsURL(rawURL) {
		return "", fmt.Errorf("not an http(s) URL: %q", rawURL)
	}
	u, _ := url.Parse(rawURL)
	log := clog.FromContext(ctx).With("url", u.Redacted())

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: unexpected status %s", u.Redacted(), resp.Status)
	}
	if resp.ContentLength > d.maxBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	dest := filepath.Join(dir, fileName(u, resp.Header.Get("Content-Type")))
	body := &limitedReader{r: resp.Body, remaining: d.maxBytes}
	if err := atomic.WriteFile(dest, body); err != nil {
		return "", fmt.Errorf("saving download: %w", err)
	}
	log.With("path", dest).Info("Downloaded submission")
	return dest, nil
}

func fileName(u *url.URL, contentType string) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = "download"
	}
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r < ' ' {
			return '_'
		}
		return r
	}, name)
	if filepath.Ext(name) != "" {
		return name
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return name
	}
	if ext, ok := mediaExtensions[mt]; ok {
		return name + ext
	}
	if exts, _ := mime.ExtensionsByType(mt); len(exts) > 0 {
		return name + exts[0]
	}
	return name
}

// mediaExtensions covers types missing from the platform MIME tables.
var mediaExtensions = map[string]string{
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/webm":      ".webm",
	"video/x-msvideo": ".avi",
	"audio/mpeg":      ".mp3",
	"audio/wav":       ".wav",
	"audio/x-wav":     ".wav",
	"audio/mp4":       ".m4a",
}

// limitedReader fails instead of truncating once the limit is passed.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
