/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package provider defines the single-turn completion contract shared by the
// hosted model backends (Anthropic, OpenAI and Google) and the errors they
// report.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrAuthentication is returned when a provider rejects the credentials.
var ErrAuthentication = errors.New("provider authentication failed")

// Names accepted by --provider.
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Google    = "google"
)

// Image is an inline image attached to a request.
type Image struct {
	MIMEType string
	Data     []byte
}

// Request is one completion request.
type Request struct {
	// System holds standing instructions; it may be empty.
	System string
	Prompt string
	Images []Image

	MaxTokens   int64
	Temperature float64
	// JSON asks the backend for a JSON object when it supports a response
	// format switch. Prompts still describe the expected shape.
	JSON bool
}

// Response is the text answer and its token usage.
type Response struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Interface is implemented by each backend.
type Interface interface {
	// Name is the provider name, for logs and result files.
	Name() string
	// Model is the configured model identifier.
	Model() string
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Defaults used by backends when a request leaves them unset.
const (
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.2
)

// MaxTokensOrDefault returns req.MaxTokens or the default.
func (req *Request) MaxTokensOrDefault() int64 {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return DefaultMaxTokens
}

// Validate checks the fields every backend needs.
func (req *Request) Validate() error {
	if req == nil {
		return errors.New("request is required")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return errors.New("prompt is required")
	}
	for i, img := range req.Images {
		if len(img.Data) == 0 {
			return fmt.Errorf("image %d is empty", i)
		}
		if img.MIMEType == "" {
			return fmt.Errorf("image %d has no MIME type", i)
		}
	}
	return nil
}

// AuthError wraps a backend error so that errors.Is(err, ErrAuthentication)
// holds while keeping the backend's message.
func AuthError(name string, err error) error {
	return fmt.Errorf("%s: %w: %w", name, ErrAuthentication, err)
}

// Outcome classifies an error for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAuthentication):
		return "auth"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
