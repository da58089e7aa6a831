/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package results

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"
	"github.com/natefinch/atomic"
)

// Dir writes results as files in a local directory.
type Dir struct {
	root string
}

// NewDir creates root if needed.
func NewDir(root string) (*Dir, error) {
	if root == "" {
		return nil, errors.New("results directory is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}
	return &Dir{root: root}, nil
}

// Write implements Sink. Existing files are never replaced.
func (d *Dir) Write(ctx context.Context, name string, data []byte) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	dest := filepath.Join(d.root, name)
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("result %s already exists", dest)
	}
	if err := atomic.WriteFile(dest, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("writing result: %w", err)
	}
	clog.FromContext(ctx).With("path", dest).Debug("Wrote result file")
	return dest, nil
}
