/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package retry retries model provider calls that fail with rate limit or
// transient server errors.
package retry

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
)

// Config configures retry behavior for provider calls.
type Config struct {
	// MaxRetries is the maximum number of retry attempts. 0 disables retries.
	MaxRetries int
	// BaseBackoff is the backoff before the first retry; it doubles per attempt.
	BaseBackoff time.Duration
	// MaxBackoff caps the backoff.
	MaxBackoff time.Duration
	// MaxJitter is the maximum random jitter added to each backoff.
	MaxJitter time.Duration
}

// Validate rejects negative values.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative, got %d", c.MaxRetries)
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"base backoff", c.BaseBackoff},
		{"max backoff", c.MaxBackoff},
		{"max jitter", c.MaxJitter},
	} {
		if d.value < 0 {
			return fmt.Errorf("%s cannot be negative, got %v", d.name, d.value)
		}
	}
	return nil
}

// DefaultConfig suits an interactive evaluation: a handful of retries with
// backoffs short enough that a run does not stall for minutes.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		BaseBackoff: 1 * time.Second,
		MaxBackoff:  20 * time.Second,
		MaxJitter:   500 * time.Millisecond,
	}
}

// RetryableStatus reports whether an HTTP status from a provider is worth
// retrying: rate limits, transient server errors and Anthropic's overload code.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		529:
		return true
	}
	return false
}

// Backoff returns the wait before retry number attempt (counting from 0),
// without jitter.
func (c Config) Backoff(attempt int) time.Duration {
	if attempt >= 62 || c.BaseBackoff<<attempt < c.BaseBackoff {
		return c.MaxBackoff
	}
	return min(c.BaseBackoff<<attempt, c.MaxBackoff)
}

func (c Config) jitter() time.Duration {
	if c.MaxJitter <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(c.MaxJitter)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}

// Do runs fn until it succeeds, returns an error isRetryable rejects, or
// cfg.MaxRetries retries are spent. Waits are cut short by ctx.
func Do[T any](ctx context.Context, cfg Config, operation string, isRetryable func(error) bool, fn func() (T, error)) (T, error) {
	log := clog.FromContext(ctx).With("operation", operation)
	for attempt := 0; ; attempt++ {
		result, err := fn()
		switch {
		case err == nil:
			return result, nil
		case !isRetryable(err):
			return result, err
		case cfg.MaxRetries == 0:
			return result, err
		case attempt == cfg.MaxRetries:
			return result, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, err)
		}

		wait := cfg.Backoff(attempt) + cfg.jitter()
		log.With("attempt", attempt+1).
			With("max_retries", cfg.MaxRetries).
			With("backoff", wait).
			With("error", err.Error()).
			Warn("Provider call failed, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}
	}
}
