/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"chainguard.dev/demoreview/rubric"
	"github.com/chainguard-dev/clog"
)

// VersionType distinguishes the live file from archived snapshots.
type VersionType string

const (
	TypeCurrent VersionType = "current"
	TypeBackup  VersionType = "backup"
)

// Version is one entry in a rubric's history.
type Version struct {
	Version   string      `json:"version"`
	Filename  string      `json:"filename"`
	Type      VersionType `json:"type"`
	Timestamp string      `json:"timestamp"`
}

// ListVersions returns the current version of name, if any, followed by its
// backups newest first.
func (s *Store) ListVersions(ctx context.Context, name string) ([]Version, error) {
	name = CleanName(name)
	var versions []Version

	data, err := os.ReadFile(s.Path(name))
	switch {
	case err == nil:
		if doc, perr := rubric.ParseDocument(data); perr == nil {
			v := rubric.DefaultVersion
			if raw, ok := doc["version"]; ok && raw != nil {
				v = fmt.Sprint(raw)
			}
			versions = append(versions, Version{
				Version:   v,
				Filename:  name + extension,
				Type:      TypeCurrent,
				Timestamp: string(TypeCurrent),
			})
		} else {
			clog.FromContext(ctx).With("rubric", name).With("error", perr).Warn("Current rubric is malformed")
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	backups, err := s.backups(name)
	if err != nil {
		return nil, err
	}
	for _, b := range backups {
		versions = append(versions, Version{
			Version:   b.version,
			Filename:  b.filename,
			Type:      TypeBackup,
			Timestamp: b.timestamp,
		})
	}
	return versions, nil
}

// Restore makes the newest backup of the given version current again. The
// replaced current file is not backed up.
func (s *Store) Restore(ctx context.Context, name, version string) error {
	name = CleanName(name)
	backups, err := s.backups(name)
	if err != nil {
		return err
	}

	var match *backupFile
	for i := range backups {
		if backups[i].version == version {
			match = &backups[i]
			break
		}
	}
	if match == nil {
		return fmt.Errorf("no backup of %s for version %s: %w", name, version, ErrNotFound)
	}

	path := filepath.Join(s.root, versionsDir, match.filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("loading backup %s: %w", match.filename, err)
	}
	doc, err := rubric.ParseDocument(data)
	if err != nil {
		return fmt.Errorf("loading backup %s: %w", match.filename, err)
	}
	doc["status"] = string(rubric.StatusCurrent)

	if err := writeJSON(s.Path(name), doc); err != nil {
		return fmt.Errorf("restoring %s: %w", name, err)
	}
	clog.FromContext(ctx).With("rubric", name).With("version", version).With("backup", match.filename).
		Info("Restored rubric version")
	return nil
}

type backupFile struct {
	filename  string
	version   string
	timestamp string
}

// backups lists the parseable backups of name, newest first.
func (s *Store) backups(name string) ([]backupFile, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, versionsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}

	prefix := name + ".v"
	var out []backupFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if b, ok := parseBackupName(e.Name(), prefix); ok {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := compareStamps(out[i].timestamp, out[j].timestamp); c != 0 {
			return c > 0
		}
		return out[i].filename > out[j].filename
	})
	return out, nil
}

// parseBackupName reverses "{name}.v{version}.{timestamp}.json". The version
// may itself contain dots; the timestamp is the last segment.
func parseBackupName(filename, prefix string) (backupFile, bool) {
	if !strings.HasPrefix(filename, prefix) || !strings.HasSuffix(filename, extension) {
		return backupFile{}, false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(filename, prefix), extension)
	dot := strings.LastIndex(rest, ".")
	if dot <= 0 || dot == len(rest)-1 {
		return backupFile{}, false
	}
	return backupFile{
		filename:  filename,
		version:   rest[:dot],
		timestamp: rest[dot+1:],
	}, true
}

// compareStamps orders "YYYYmmdd_HHMMSS[-N]" timestamps, treating the
// collision counter numerically.
func compareStamps(a, b string) int {
	abase, an := splitStamp(a)
	bbase, bn := splitStamp(b)
	switch {
	case abase < bbase:
		return -1
	case abase > bbase:
		return 1
	case an < bn:
		return -1
	case an > bn:
		return 1
	default:
		return 0
	}
}

func splitStamp(s string) (string, int) {
	base, counter, ok := strings.Cut(s, "-")
	if !ok {
		return s, 1
	}
	n, err := strconv.Atoi(counter)
	if err != nil {
		return s, 1
	}
	return base, n
}
