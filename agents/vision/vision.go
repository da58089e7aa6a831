/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package vision describes what a demo video shows on screen and how well it
// lines up with the narration.
package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chainguard.dev/demoreview/agents/prompt"
	"chainguard.dev/demoreview/agents/provider"
	"chainguard.dev/demoreview/media"
	"github.com/chainguard-dev/clog"
)

const systemPrompt = `You review the visual side of technical product demos. You describe only
what is visible in the frames you are given.`

var analysisPrompt = prompt.MustNew(`<task>
The attached images are {{count}} frames sampled evenly from a demo video, in
order. Their offsets from the start of the video are:
{{offsets}}
</task>

<transcript>
{{transcript}}
</transcript>

<instructions>
1. Describe what each part of the video shows (slides, terminal, product UI, presenter).
2. Say whether the visuals support what the presenter is saying at that point.
3. Point out anything unreadable, such as tiny fonts or cluttered screens.
4. Answer in plain prose, at most three short paragraphs.
</instructions>`)

// Request is the input of one analysis.
type Request struct {
	Frames     []media.Frame
	Transcript string
}

// Analyzer turns sampled frames into a written visual analysis.
type Analyzer struct {
	provider  provider.Interface
	maxTokens int64
}

// New creates an Analyzer backed by p, which must accept image input.
func New(p provider.Interface) (*Analyzer, error) {
	if p == nil {
		return nil, errors.New("provider is required")
	}
	return &Analyzer{provider: p, maxTokens: 1500}, nil
}

// Analyze returns the model's description of the frames.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (string, error) {
	if len(req.Frames) == 0 {
		return "", errors.New("no frames to analyze")
	}

	offsets := make([]string, 0, len(req.Frames))
	images := make([]provider.Image, 0, len(req.Frames))
	for i, f := range req.Frames {
		offsets = append(offsets, fmt.Sprintf("frame %d at %s", i+1, f.At.Round(time.Second)))
		images = append(images, provider.Image{MIMEType: f.MIMEType, Data: f.Data})
	}

	text, err := analysisPrompt.
		MustBindJSON("count", len(req.Frames)).
		MustBindYAML("offsets", offsets).
		MustBindJSON("transcript", req.Transcript).
		Build()
	if err != nil {
		return "", err
	}

	clog.FromContext(ctx).With("frames", len(images)).Info("Requesting visual analysis")
	resp, err := a.provider.Complete(ctx, &provider.Request{
		System:    systemPrompt,
		Prompt:    text,
		Images:    images,
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("visual analysis: %w", err)
	}
	analysis := strings.TrimSpace(resp.Text)
	if analysis == "" {
		return "", errors.New("visual analysis: empty response")
	}
	return analysis, nil
}
