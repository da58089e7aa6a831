/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaiprovider implements provider.Interface with OpenAI chat
// completions.
package openaiprovider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"chainguard.dev/demoreview/agents/metrics"
	"chainguard.dev/demoreview/agents/provider"
	"chainguard.dev/demoreview/agents/retry"
	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

type chat struct {
	client      openai.Client
	model       string
	retryConfig retry.Config
	metrics     *metrics.GenAI
}

// Option configures the provider.
type Option func(*config) error

type config struct {
	apiKey      string
	model       string
	retryConfig retry.Config
	requestOpts []option.RequestOption
}

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(c *config) error {
		if model == "" {
			return errors.New("model cannot be empty")
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

// New creates the provider authenticated with apiKey.
func New(apiKey string, opts ...Option) (provider.Interface, error) {
	c := &config{
		apiKey:      apiKey,
		model:       DefaultModel,
		retryConfig: retry.DefaultConfig(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	if c.apiKey == "" {
		return nil, provider.AuthError(provider.OpenAI, errors.New("OPENAI_API_KEY is not set"))
	}

	requestOpts := append([]option.RequestOption{
		option.WithAPIKey(c.apiKey),
		option.WithMaxRetries(0),
	}, c.requestOpts...)
	return &chat{
		client:      openai.NewClient(requestOpts...),
		model:       c.model,
		retryConfig: c.retryConfig,
		metrics:     metrics.NewGenAI(metrics.MeterName),
	}, nil
}

func (*chat) Name() string    { return provider.OpenAI }
func (c *chat) Model() string { return c.model }

// Complete implements provider.Interface.
func (c *chat) Complete(ctx context.Context, req *provider.Request) (resp *provider.Response, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	defer func() {
		c.metrics.RecordRequest(ctx, provider.OpenAI, c.model, provider.Outcome(err))
	}()

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	if len(req.Images) == 0 {
		messages = append(messages, openai.UserMessage(req.Prompt))
	} else {
		parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(req.Prompt)}
		for _, img := range req.Images {
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
			}))
		}
		messages = append(messages, openai.UserMessage(parts))
	}

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(c.model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(req.MaxTokensOrDefault()),
		Temperature:         openai.Float(temperature(req)),
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	clog.FromContext(ctx).With("model", c.model).
		With("prompt_length", len(req.Prompt)).
		With("images", len(req.Images)).
		Debug("Sending OpenAI request")

	completion, err := retry.Do(ctx, c.retryConfig, "openai_chat", isRetryable, func() (*openai.ChatCompletion, error) {
		return c.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return nil, errors.New("no content in OpenAI response")
	}

	c.metrics.RecordTokens(ctx, provider.OpenAI, c.model, completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
	return &provider.Response{
		Text:         completion.Choices[0].Message.Content,
		Model:        c.model,
		InputTokens:  completion.Usage.PromptTokens,
		OutputTokens: completion.Usage.CompletionTokens,
	}, nil
}

func temperature(req *provider.Request) float64 {
	if req.Temperature > 0 {
		return req.Temperature
	}
	return provider.DefaultTemperature
}

func isRetryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return retry.RetryableStatus(apiErr.StatusCode)
	}
	return false
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return provider.AuthError(provider.OpenAI, err)
		}
	}
	return fmt.Errorf("openai request: %w", err)
}
