/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retry_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"chainguard.dev/demoreview/agents/retry"
)

func testConfig() retry.Config {
	return retry.Config{
		MaxRetries:  3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  10 * time.Millisecond,
		MaxJitter:   time.Millisecond,
	}
}

func alwaysRetryable(err error) bool { return err != nil }

func TestDo(t *testing.T) {
	t.Parallel()
	transient := errors.New("503 overloaded")
	permanent := errors.New("401 unauthorized")

	tests := []struct {
		name         string
		maxRetries   int
		failures     int32
		err          error
		retryable    func(error) bool
		wantAttempts int32
		wantErr      error
		wantPrefix   string
	}{{
		name:         "first try",
		maxRetries:   3,
		retryable:    alwaysRetryable,
		wantAttempts: 1,
	}, {
		name:         "recovers",
		maxRetries:   3,
		failures:     2,
		err:          transient,
		retryable:    alwaysRetryable,
		wantAttempts: 3,
	}, {
		name:         "exhausted",
		maxRetries:   3,
		failures:     100,
		err:          transient,
		retryable:    alwaysRetryable,
		wantAttempts: 4,
		wantErr:      transient,
		wantPrefix:   "grade failed after 3 retries",
	}, {
		name:         "not retryable",
		maxRetries:   3,
		failures:     100,
		err:          permanent,
		retryable:    func(error) bool { return false },
		wantAttempts: 1,
		wantErr:      permanent,
	}, {
		name:         "retries disabled",
		maxRetries:   0,
		failures:     100,
		err:          transient,
		retryable:    alwaysRetryable,
		wantAttempts: 1,
		wantErr:      transient,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			cfg.MaxRetries = tt.maxRetries

			var attempts atomic.Int32
			got, err := retry.Do(context.Background(), cfg, "grade", tt.retryable, func() (string, error) {
				if attempts.Add(1) <= tt.failures {
					return "", tt.err
				}
				return "ok", nil
			})
			if n := attempts.Load(); n != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", n, tt.wantAttempts)
			}
			if tt.wantErr == nil {
				if err != nil || got != "ok" {
					t.Fatalf("Do() = (%q, %v), want (ok, nil)", got, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Do() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantPrefix != "" && !strings.HasPrefix(err.Error(), tt.wantPrefix) {
				t.Errorf("error = %q, want prefix %q", err, tt.wantPrefix)
			}
		})
	}
}

func TestDoContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cfg := testConfig()
	cfg.BaseBackoff = time.Hour
	cfg.MaxBackoff = time.Hour

	_, err := retry.Do(ctx, cfg, "grade", alwaysRetryable, func() (string, error) {
		cancel()
		return "", errors.New("429 rate limited")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() = %v, want context.Canceled", err)
	}
}

func TestRetryableStatus(t *testing.T) {
	t.Parallel()
	for code, want := range map[int]bool{
		200: false, 400: false, 401: false, 403: false, 404: false,
		429: true, 500: true, 502: true, 503: true, 504: true, 529: true,
	} {
		if got := retry.RetryableStatus(code); got != want {
			t.Errorf("RetryableStatus(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	if err := retry.DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
	for _, cfg := range []retry.Config{
		{MaxRetries: -1},
		{BaseBackoff: -time.Second},
		{MaxBackoff: -time.Second},
		{MaxJitter: -time.Second},
	} {
		if err := cfg.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", cfg)
		}
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()
	cfg := retry.Config{BaseBackoff: time.Second, MaxBackoff: 20 * time.Second}
	for attempt, want := range []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 20 * time.Second, 20 * time.Second,
	} {
		if got := cfg.Backoff(attempt); got != want {
			t.Errorf("Backoff(%d) = %v, want %v", attempt, got, want)
		}
	}
	if got := cfg.Backoff(100); got != cfg.MaxBackoff {
		t.Errorf("Backoff(100) = %v, want %v", got, cfg.MaxBackoff)
	}
}
