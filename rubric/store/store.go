/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package store persists rubrics as named JSON files with a version history.
//
// Layout under the store root:
//
//	{name}.json                                   current version
//	versions/{name}.v{version}.{YYYYmmdd_HHMMSS}.json  archived snapshots
//
// The store assumes a single writer; it does no file locking.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"chainguard.dev/demoreview/rubric"
	"github.com/chainguard-dev/clog"
	"github.com/natefinch/atomic"
)

// ErrNotFound is returned when a rubric, backup or version does not exist.
var ErrNotFound = errors.New("not found")

const (
	versionsDir     = "versions"
	extension       = ".json"
	timestampLayout = "20060102_150405"
)

// Store manages rubric files under a root directory.
type Store struct {
	root string
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store) error

// WithClock overrides the wall clock used to stamp backups.
func WithClock(now func() time.Time) Option {
	return func(s *Store) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		s.now = now
		return nil
	}
}

// New creates a store rooted at dir. The directory is created lazily on the
// first save.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("rubric store directory is required")
	}
	s := &Store{
		root: dir,
		now:  time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return s, nil
}

// Root returns the store directory.
func (s *Store) Root() string { return s.root }

// Path returns the canonical path of the named rubric.
func (s *Store) Path(name string) string {
	return filepath.Join(s.root, CleanName(name)+extension)
}

// CleanName strips a trailing .json and any leading directory.
func CleanName(name string) string {
	return strings.TrimSuffix(filepath.Base(name), extension)
}

// Exists reports whether a current file exists for name.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// LoadDocument reads the named rubric in its generic mapping form.
func (s *Store) LoadDocument(ctx context.Context, name string) (map[string]any, error) {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if CleanName(name) == rubric.SampleName {
			clog.FromContext(ctx).With("path", path).Debug("Using built-in sample rubric")
			return rubric.Sample().Document()
		}
		return nil, fmt.Errorf("rubric file %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := rubric.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return doc, nil
}

// Load reads and decodes the named rubric. It does not validate.
func (s *Store) Load(ctx context.Context, name string) (*rubric.Rubric, error) {
	doc, err := s.LoadDocument(ctx, name)
	if err != nil {
		return nil, err
	}
	r, err := rubric.FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", s.Path(name), err)
	}
	return r, nil
}

// Save writes r as the current version of name. When createBackup is set and a
// current file exists, that file is first copied into the versions area with
// its status set to archive. A failed backup aborts the save.
func (s *Store) Save(ctx context.Context, r *rubric.Rubric, name string, createBackup bool) error {
	if r == nil {
		return errors.New("rubric is required")
	}
	doc, err := r.Document()
	if err != nil {
		return err
	}
	return s.SaveDocument(ctx, doc, name, createBackup)
}

// SaveDocument is Save for a generic mapping, used by imports that keep the
// document exactly as supplied.
func (s *Store) SaveDocument(ctx context.Context, doc map[string]any, name string, createBackup bool) error {
	name = CleanName(name)
	if name == "" || name == "." {
		return errors.New("rubric name is required")
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("creating rubric store: %w", err)
	}

	if createBackup && s.Exists(name) {
		backup, err := s.backup(ctx, name)
		if err != nil {
			return fmt.Errorf("backing up %s: %w", name, err)
		}
		clog.FromContext(ctx).With("rubric", name).With("backup", backup).Info("Created rubric backup")
	}

	if err := writeJSON(s.Path(name), doc); err != nil {
		return fmt.Errorf("saving %s: %w", name, err)
	}
	return nil
}

// backup snapshots the current file of name and returns the backup filename.
func (s *Store) backup(ctx context.Context, name string) (string, error) {
	current := s.Path(name)
	data, err := os.ReadFile(current)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, versionsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	version := "unknown"
	doc, perr := rubric.ParseDocument(data)
	if perr == nil {
		version = rubric.DefaultVersion
		if v, ok := doc["version"]; ok && v != nil {
			version = fmt.Sprint(v)
		}
		doc["status"] = string(rubric.StatusArchive)
	} else {
		clog.FromContext(ctx).With("path", current).With("error", perr).
			Warn("Current rubric is not valid JSON, archiving it verbatim")
	}

	path, err := s.backupPath(name, version)
	if err != nil {
		return "", err
	}
	if perr != nil {
		err = atomic.WriteFile(path, bytes.NewReader(data))
	} else {
		err = writeJSON(path, doc)
	}
	if err != nil {
		return "", err
	}
	return filepath.Base(path), nil
}

// backupPath picks an unused backup filename. Saves within the same second get
// a "-N" suffix on the timestamp.
func (s *Store) backupPath(name, version string) (string, error) {
	stamp := s.now().Format(timestampLayout)
	dir := filepath.Join(s.root, versionsDir)
	for n := 1; n < 1000; n++ {
		ts := stamp
		if n > 1 {
			ts = fmt.Sprintf("%s-%d", stamp, n)
		}
		path := filepath.Join(dir, fmt.Sprintf("%s.v%s.%s%s", name, version, ts, extension))
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
	}
	return "", fmt.Errorf("too many backups of %s at %s", name, stamp)
}

// Entry summarises an available rubric.
type Entry struct {
	Filename    string `json:"filename"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListAvailable returns the valid, current rubrics in the store sorted by
// filename. The built-in sample is listed first whenever the store does not
// provide its own copy, including when the directory is empty or missing.
func (s *Store) ListAvailable(ctx context.Context) ([]Entry, error) {
	log := clog.FromContext(ctx)

	var available []Entry
	entries, err := os.ReadDir(s.root)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("listing rubrics: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), extension) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), extension)
		data, err := os.ReadFile(filepath.Join(s.root, e.Name()))
		if err != nil {
			log.With("rubric", name).With("error", err).Warn("Skipping unreadable rubric")
			continue
		}
		doc, err := rubric.ParseDocument(data)
		if err != nil {
			log.With("rubric", name).With("error", err).Debug("Skipping malformed rubric")
			continue
		}
		if ok, reason := rubric.Validate(doc); !ok {
			log.With("rubric", name).With("reason", reason).Debug("Skipping invalid rubric")
			continue
		}
		if status, _ := doc["status"].(string); status != string(rubric.StatusCurrent) {
			continue
		}
		available = append(available, Entry{
			Filename:    name,
			Name:        stringOr(doc["name"], name),
			Description: stringOr(doc["description"], "No description available"),
		})
	}
	sort.Slice(available, func(i, j int) bool { return available[i].Filename < available[j].Filename })

	for _, e := range available {
		if e.Filename == rubric.SampleName {
			return available, nil
		}
	}
	sample := rubric.Sample()
	return append([]Entry{{
		Filename:    rubric.SampleName,
		Name:        sample.Name,
		Description: sample.Description,
	}}, available...), nil
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func writeJSON(path string, doc map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(append(data, '\n')))
}
