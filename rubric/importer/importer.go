/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package importer brings externally authored rubrics into a store, either
// from a local file or from an http(s) URL. JSON and YAML documents are
// accepted; the document is stored as supplied so that an imported rubric
// round-trips unchanged.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chainguard.dev/demoreview/rubric"
	"chainguard.dev/demoreview/rubric/store"
	"github.com/chainguard-dev/clog"
	"github.com/hashicorp/go-retryablehttp"
	"gopkg.in/yaml.v3"
)

var (
	// ErrMalformed is returned for sources that cannot be read as a rubric
	// document, including unsupported URL schemes.
	ErrMalformed = errors.New("malformed rubric source")

	// ErrExists is returned when the target name is taken and overwrite was
	// not requested.
	ErrExists = errors.New("rubric already exists")
)

const (
	defaultTimeout  = 10 * time.Second
	defaultRetries  = 2
	maxDocumentSize = 4 << 20
	fallbackName    = "imported_rubric"
)

// Importer fetches rubric documents and saves them into a store.
type Importer struct {
	store   *store.Store
	client  *retryablehttp.Client
	timeout time.Duration
}

// Option configures an Importer.
type Option func(*Importer) error

// WithHTTPClient replaces the underlying HTTP client, for example to point at
// a test server transport.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Importer) error {
		if c == nil {
			return errors.New("http client cannot be nil")
		}
		i.client.HTTPClient = c
		return nil
	}
}

// WithRetries sets how many times a failed fetch is retried.
func WithRetries(n int) Option {
	return func(i *Importer) error {
		if n < 0 {
			return fmt.Errorf("retries must be non-negative, got %d", n)
		}
		i.client.RetryMax = n
		return nil
	}
}

// WithTimeout bounds a URL fetch including retries.
func WithTimeout(d time.Duration) Option {
	return func(i *Importer) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		i.timeout = d
		return nil
	}
}

// New creates an Importer writing into st.
func New(st *store.Store, opts ...Option) (*Importer, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	client := retryablehttp.NewClient()
	client.RetryMax = defaultRetries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = nil

	i := &Importer{
		store:   st,
		client:  client,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return i, nil
}

// Fetch reads a rubric document from a local path or an http(s) URL. The
// document is not validated.
func (i *Importer) Fetch(ctx context.Context, source string) (map[string]any, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("%w: source is empty", ErrMalformed)
	}
	if strings.Contains(source, "://") {
		return i.fetchURL(ctx, source)
	}
	return fetchFile(source)
}

func fetchFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return decode(data, filepath.Ext(path))
}

func (i *Importer) fetchURL(ctx context.Context, raw string) (map[string]any, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: URL must start with http:// or https://", ErrMalformed)
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.1")

	clog.FromContext(ctx).With("url", u.Redacted()).Info("Fetching rubric")
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", u.Redacted(), resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	ext := filepath.Ext(u.Path)
	if ext == "" && strings.Contains(resp.Header.Get("Content-Type"), "yaml") {
		ext = ".yaml"
	}
	return decode(data, ext)
}

// decode parses JSON, or YAML when the extension says so.
func decode(data []byte, ext string) (map[string]any, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: invalid YAML: %w", ErrMalformed, err)
		}
		if doc == nil {
			return nil, fmt.Errorf("%w: document is not a mapping", ErrMalformed)
		}
		return doc, nil
	default:
		doc, err := rubric.ParseDocument(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return doc, nil
	}
}

// SuggestName derives a store name from the document's display name: lower
// case, spaces and hyphens become underscores, and anything other than
// letters, digits and underscores is dropped.
func SuggestName(doc map[string]any) string {
	name, _ := doc["name"].(string)
	if name == "" {
		name = fallbackName
	}
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(name))

	var b strings.Builder
	for _, r := range name {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return fallbackName
	}
	return b.String()
}

// CheckName reports whether name is usable as a store name.
func CheckName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("filename cannot be empty")
	}
	for _, r := range name {
		switch {
		case r == '_', r == '-', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return errors.New("filename can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

// Save stores doc under name. An existing rubric is only replaced when
// overwrite is set, in which case the previous version is backed up first.
func (i *Importer) Save(ctx context.Context, doc map[string]any, name string, overwrite bool) error {
	if err := CheckName(name); err != nil {
		return err
	}
	if i.store.Exists(name) && !overwrite {
		return fmt.Errorf("%s: %w", name, ErrExists)
	}
	if err := i.store.SaveDocument(ctx, doc, name, overwrite); err != nil {
		return err
	}
	clog.FromContext(ctx).With("rubric", name).Info("Imported rubric")
	return nil
}
