/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package media prepares submissions for analysis: it downloads remote
// videos, extracts a speech-ready audio track and samples still frames. Audio
// and frame work shells out to ffmpeg and ffprobe.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// ErrFFmpegUnavailable is returned when the ffmpeg or ffprobe executable
// cannot be found.
var ErrFFmpegUnavailable = errors.New("ffmpeg not found")

// Frame is a still image sampled from a video.
type Frame struct {
	// At is the frame's offset from the start of the video.
	At       time.Duration
	MIMEType string
	Data     []byte
}

var audioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
	".aac":  true,
}

// IsAudio reports whether path names an audio-only file that can be sent to
// speech-to-text without extraction.
func IsAudio(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

// FFmpeg runs the ffmpeg and ffprobe executables.
type FFmpeg struct {
	ffmpeg      string
	ffprobe     string
	parallelism int
	width       int
}

// Option configures FFmpeg.
type Option func(*FFmpeg) error

// WithBinaries overrides the ffmpeg and ffprobe executables.
func WithBinaries(ffmpeg, ffprobe string) Option {
	return func(f *FFmpeg) error {
		if ffmpeg == "" || ffprobe == "" {
			return errors.New("ffmpeg and ffprobe paths cannot be empty")
		}
		f.ffmpeg, f.ffprobe = ffmpeg, ffprobe
		return nil
	}
}

// WithParallelism bounds concurrent frame extractions.
func WithParallelism(n int) Option {
	return func(f *FFmpeg) error {
		if n < 1 {
			return fmt.Errorf("parallelism must be at least 1, got %d", n)
		}
		f.parallelism = n
		return nil
	}
}

// WithFrameWidth sets the width frames are scaled to, keeping the aspect
// ratio.
func WithFrameWidth(px int) Option {
	return func(f *FFmpeg) error {
		if px < 16 {
			return fmt.Errorf("frame width too small: %d", px)
		}
		f.width = px
		return nil
	}
}

// New configures an FFmpeg runner. The executables are resolved on use, so a
// missing ffmpeg only fails the runs that need it.
func New(opts ...Option) (*FFmpeg, error) {
	f := &FFmpeg{
		ffmpeg:      "ffmpeg",
		ffprobe:     "ffprobe",
		parallelism: 4,
		width:       768,
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return f, nil
}

// Available reports whether both executables can be found.
func (f *FFmpeg) Available() error {
	for _, bin := range []string{f.ffmpeg, f.ffprobe} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrFFmpegUnavailable, bin, err)
		}
	}
	return nil
}

// ExtractAudio writes the audio track of input to dir as 16 kHz mono MP3 and
// returns its path.
func (f *FFmpeg) ExtractAudio(ctx context.Context, input, dir string) (string, error) {
	if err := f.Available(); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	out := filepath.Join(dir, base+".audio.mp3")

	clog.FromContext(ctx).With("input", input).Info("Extracting audio")
	if _, err := f.run(ctx, f.ffmpeg,
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", input,
		"-vn", "-ac", "1", "-ar", "16000", "-b:a", "64k",
		out,
	); err != nil {
		return "", fmt.Errorf("extracting audio: %w", err)
	}
	return out, nil
}

// Duration probes the length of a media file.
func (f *FFmpeg) Duration(ctx context.Context, input string) (time.Duration, error) {
	if err := f.Available(); err != nil {
		return 0, err
	}
	out, err := f.run(ctx, f.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		input,
	)
	if err != nil {
		return 0, fmt.Errorf("probing duration: %w", err)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// SampleFrames returns n JPEG frames spread evenly over the video, each taken
// from the middle of its slice.
func (f *FFmpeg) SampleFrames(ctx context.Context, input string, n int) ([]Frame, error) {
	if n < 1 {
		return nil, fmt.Errorf("frame count must be at least 1, got %d", n)
	}
	d, err := f.Duration(ctx, input)
	if err != nil {
		return nil, err
	}
	if d <= 0 {
		return nil, fmt.Errorf("%s has no duration", input)
	}

	frames := make([]Frame, n)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(f.parallelism)
	for i := range n {
		at := d * time.Duration(2*i+1) / time.Duration(2*n)
		eg.Go(func() error {
			data, err := f.run(ctx, f.ffmpeg,
				"-hide_banner", "-loglevel", "error",
				"-ss", strconv.FormatFloat(at.Seconds(), 'f', 3, 64),
				"-i", input,
				"-frames:v", "1",
				"-vf", fmt.Sprintf("scale=%d:-2", f.width),
				"-f", "image2", "-c:v", "mjpeg",
				"pipe:1",
			)
			if err != nil {
				return fmt.Errorf("frame at %v: %w", at, err)
			}
			if len(data) == 0 {
				return fmt.Errorf("frame at %v: no image data", at)
			}
			frames[i] = Frame{At: at, MIMEType: "image/jpeg", Data: data}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("sampling frames: %w", err)
	}
	return frames, nil
}

// run executes bin and returns its stdout. A failing command's error carries
// the tail of its stderr.
func (f *FFmpeg) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrFFmpegUnavailable, err)
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[len(msg)-512:]
		}
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", filepath.Base(bin), err, msg)
		}
		return nil, fmt.Errorf("%s: %w", filepath.Base(bin), err)
	}
	return stdout.Bytes(), nil
}
