/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package googleprovider implements provider.Interface with Gemini models,
// through either the Gemini API or Vertex AI.
package googleprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chainguard.dev/demoreview/agents/metrics"
	"chainguard.dev/demoreview/agents/provider"
	"chainguard.dev/demoreview/agents/retry"
	"github.com/chainguard-dev/clog"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

type gemini struct {
	client      *genai.Client
	model       string
	retryConfig retry.Config
	metrics     *metrics.GenAI
}

// Option configures the provider.
type Option func(*config) error

type config struct {
	client      genai.ClientConfig
	model       string
	retryConfig retry.Config
}

// WithAPIKey uses the Gemini API with an API key.
func WithAPIKey(key string) Option {
	return func(c *config) error {
		if key == "" {
			return errors.New("gemini API key is empty")
		}
		c.client.APIKey = key
		c.client.Backend = genai.BackendGeminiAPI
		return nil
	}
}

// WithVertex uses Vertex AI with application default credentials.
func WithVertex(projectID, region string) Option {
	return func(c *config) error {
		if projectID == "" || region == "" {
			return errors.New("vertex requires both project and region")
		}
		c.client.Project = projectID
		c.client.Location = region
		c.client.Backend = genai.BackendVertexAI
		return nil
	}
}

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(c *config) error {
		if !strings.HasPrefix(model, "gemini-") {
			return fmt.Errorf("model %q does not appear to be a Gemini model (expected gemini-* format)", model)
		}
		c.model = model
		return nil
	}
}

// WithBaseURL points the client at another endpoint, such as a test server.
func WithBaseURL(url string) Option {
	return func(c *config) error {
		c.client.HTTPOptions.BaseURL = url
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

// New creates the provider. One of WithAPIKey or WithVertex is required.
func New(ctx context.Context, opts ...Option) (provider.Interface, error) {
	c := &config{
		model:       DefaultModel,
		retryConfig: retry.DefaultConfig(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	if c.client.Backend == genai.BackendUnspecified {
		return nil, provider.AuthError(provider.Google, errors.New("GEMINI_API_KEY or GOOGLE_CLOUD_PROJECT is not set"))
	}

	client, err := genai.NewClient(ctx, &c.client)
	if err != nil {
		return nil, fmt.Errorf("creating Google AI client: %w", err)
	}
	return &gemini{
		client:      client,
		model:       c.model,
		retryConfig: c.retryConfig,
		metrics:     metrics.NewGenAI(metrics.MeterName),
	}, nil
}

func (*gemini) Name() string    { return provider.Google }
func (g *gemini) Model() string { return g.model }

// Complete implements provider.Interface.
func (g *gemini) Complete(ctx context.Context, req *provider.Request) (resp *provider.Response, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	defer func() {
		g.metrics.RecordRequest(ctx, provider.Google, g.model, provider.Outcome(err))
	}()

	parts := make([]*genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data}})
	}
	parts = append(parts, &genai.Part{Text: req.Prompt})
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	config := &genai.GenerateContentConfig{
		Temperature:     ptr(float32(temperature(req))),
		MaxOutputTokens: int32(req.MaxTokensOrDefault()),
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	clog.FromContext(ctx).With("model", g.model).
		With("prompt_length", len(req.Prompt)).
		With("images", len(req.Images)).
		Debug("Sending Gemini request")

	out, err := retry.Do(ctx, g.retryConfig, "gemini_generate", isRetryable, func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(ctx, g.model, contents, config)
	})
	if err != nil {
		return nil, classify(err)
	}
	text := out.Text()
	if text == "" {
		return nil, errors.New("no text content in Gemini response")
	}

	resp = &provider.Response{Text: text, Model: g.model}
	if out.UsageMetadata != nil {
		resp.InputTokens = int64(out.UsageMetadata.PromptTokenCount)
		resp.OutputTokens = int64(out.UsageMetadata.CandidatesTokenCount)
		g.metrics.RecordTokens(ctx, provider.Google, g.model, resp.InputTokens, resp.OutputTokens)
	}
	return resp, nil
}

func ptr[T any](v T) *T {
	return &v
}

func temperature(req *provider.Request) float64 {
	if req.Temperature > 0 {
		return req.Temperature
	}
	return provider.DefaultTemperature
}

// statusCode extracts the HTTP status from a genai error, or 0.
func statusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code
	}
	return 0
}

func isRetryable(err error) bool {
	if code := statusCode(err); code != 0 {
		return retry.RetryableStatus(code)
	}
	msg := err.Error()
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "Resource exhausted") ||
		strings.Contains(msg, "UNAVAILABLE") ||
		strings.Contains(msg, "Overloaded") ||
		strings.Contains(msg, "quota exceeded")
}

func classify(err error) error {
	switch code := statusCode(err); {
	case code == http.StatusUnauthorized, code == http.StatusForbidden,
		strings.Contains(err.Error(), "API key not valid"),
		strings.Contains(err.Error(), "PERMISSION_DENIED"),
		strings.Contains(err.Error(), "UNAUTHENTICATED"):
		return provider.AuthError(provider.Google, err)
	}
	return fmt.Errorf("gemini request: %w", err)
}
