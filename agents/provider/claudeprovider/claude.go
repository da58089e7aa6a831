/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package claudeprovider implements provider.Interface with Anthropic's
// Messages API, either directly with an API key or through Vertex AI.
package claudeprovider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chainguard.dev/demoreview/agents/metrics"
	"chainguard.dev/demoreview/agents/provider"
	"chainguard.dev/demoreview/agents/retry"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
	"github.com/chainguard-dev/clog"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5"

type claude struct {
	client      anthropic.Client
	model       string
	retryConfig retry.Config
	metrics     *metrics.GenAI
}

// Option configures the provider.
type Option func(*config) error

type config struct {
	model       string
	retryConfig retry.Config
	requestOpts []option.RequestOption
	auth        bool
}

// WithAPIKey authenticates with an Anthropic API key.
func WithAPIKey(key string) Option {
	return func(c *config) error {
		if key == "" {
			return errors.New("anthropic API key is empty")
		}
		c.requestOpts = append(c.requestOpts, option.WithAPIKey(key))
		c.auth = true
		return nil
	}
}

// WithVertex routes requests through Vertex AI using application default
// credentials.
func WithVertex(ctx context.Context, projectID, region string) Option {
	return func(c *config) error {
		if projectID == "" || region == "" {
			return errors.New("vertex requires both project and region")
		}
		c.requestOpts = append(c.requestOpts, vertex.WithGoogleAuth(ctx, region, projectID))
		c.auth = true
		return nil
	}
}

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(c *config) error {
		if !strings.HasPrefix(model, "claude-") {
			return fmt.Errorf("model %q does not appear to be a Claude model (expected claude-* format)", model)
		}
		c.model = model
		return nil
	}
}

// WithBaseURL points the client at another endpoint, such as a test server.
func WithBaseURL(url string) Option {
	return func(c *config) error {
		c.requestOpts = append(c.requestOpts, option.WithBaseURL(url))
		return nil
	}
}

// WithRetryConfig replaces the retry policy for transient errors.
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *config) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid retry config: %w", err)
		}
		c.retryConfig = cfg
		return nil
	}
}

// New creates the provider. Exactly one of WithAPIKey or WithVertex is
// required.
func New(opts ...Option) (provider.Interface, error) {
	c := &config{
		model:       DefaultModel,
		retryConfig: retry.DefaultConfig(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	if !c.auth {
		return nil, provider.AuthError(provider.Anthropic, errors.New("ANTHROPIC_API_KEY is not set"))
	}

	// Retries are handled by retry.Do so that every provider shares one policy.
	requestOpts := append([]option.RequestOption{option.WithMaxRetries(0)}, c.requestOpts...)
	return &claude{
		client:      anthropic.NewClient(requestOpts...),
		model:       c.model,
		retryConfig: c.retryConfig,
		metrics:     metrics.NewGenAI(metrics.MeterName),
	}, nil
}

func (*claude) Name() string    { return provider.Anthropic }
func (c *claude) Model() string { return c.model }

// Complete implements provider.Interface.
func (c *claude) Complete(ctx context.Context, req *provider.Request) (resp *provider.Response, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	defer func() {
		c.metrics.RecordRequest(ctx, provider.Anthropic, c.model, provider.Outcome(err))
	}()

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(req.Images)+1)
	for _, img := range req.Images {
		blocks = append(blocks, anthropic.NewImageBlockBase64(img.MIMEType, base64.StdEncoding.EncodeToString(img.Data)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.Prompt))

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   req.MaxTokensOrDefault(),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
		Temperature: anthropic.Float(temperature(req)),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	clog.FromContext(ctx).With("model", c.model).
		With("prompt_length", len(req.Prompt)).
		With("images", len(req.Images)).
		Debug("Sending Claude request")

	message, err := retry.Do(ctx, c.retryConfig, "claude_message", isRetryable, func() (*anthropic.Message, error) {
		return c.client.Messages.New(ctx, params)
	})
	if err != nil {
		return nil, classify(err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, errors.New("no text content in Claude's response")
	}

	c.metrics.RecordTokens(ctx, provider.Anthropic, c.model, message.Usage.InputTokens, message.Usage.OutputTokens)
	return &provider.Response{
		Text:         text.String(),
		Model:        c.model,
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}, nil
}

func temperature(req *provider.Request) float64 {
	if req.Temperature > 0 {
		return req.Temperature
	}
	return provider.DefaultTemperature
}

func isRetryable(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return retry.RetryableStatus(apiErr.StatusCode)
	}
	return false
}

func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return provider.AuthError(provider.Anthropic, err)
		}
	}
	return fmt.Errorf("claude request: %w", err)
}
