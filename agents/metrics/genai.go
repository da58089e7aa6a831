/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics records OpenTelemetry counters for model provider calls.
package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is shared by every provider; provider and model are dimensions.
const MeterName = "chainguard.dev/demoreview/agents"

// GenAI holds token and request counters. A counter that fails to register
// degrades to a no-op instead of failing the caller.
type GenAI struct {
	promptTokens     metric.Int64Counter
	completionTokens metric.Int64Counter
	requests         metric.Int64Counter
}

// NewGenAI creates counters on the global meter provider.
func NewGenAI(meterName string) *GenAI {
	return NewGenAIWithMeter(otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0")))
}

// NewGenAIWithMeter creates counters on a specific meter.
func NewGenAIWithMeter(meter metric.Meter) *GenAI {
	promptTokens, err := meter.Int64Counter("genai.token.prompt",
		metric.WithDescription("The number of prompt tokens used"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("Failed to create prompt tokens counter, metrics will be disabled", "error", err)
		promptTokens = noop.Int64Counter{}
	}

	completionTokens, err := meter.Int64Counter("genai.token.completion",
		metric.WithDescription("The number of completion tokens used"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("Failed to create completion tokens counter, metrics will be disabled", "error", err)
		completionTokens = noop.Int64Counter{}
	}

	requests, err := meter.Int64Counter("genai.requests",
		metric.WithDescription("The number of completion requests by outcome"),
		metric.WithUnit("{requests}"))
	if err != nil {
		slog.Warn("Failed to create request counter, metrics will be disabled", "error", err)
		requests = noop.Int64Counter{}
	}

	return &GenAI{
		promptTokens:     promptTokens,
		completionTokens: completionTokens,
		requests:         requests,
	}
}

// RecordTokens records prompt and completion token usage.
func (m *GenAI) RecordTokens(ctx context.Context, provider, model string, promptTokens, completionTokens int64) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
	)
	m.promptTokens.Add(ctx, promptTokens, attrs)
	m.completionTokens.Add(ctx, completionTokens, attrs)
}

// RecordRequest counts one completion request; outcome is "ok" or an error
// class such as "auth" or "error".
func (m *GenAI) RecordRequest(ctx context.Context, provider, model, outcome string) {
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.String("outcome", outcome),
	))
}
