/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package grader scores a transcript against one rubric group using a hosted
// model provider.
package grader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/demoreview/agents/prompt"
	"chainguard.dev/demoreview/agents/provider"
	"chainguard.dev/demoreview/agents/result"
	"chainguard.dev/demoreview/agents/schema"
	"chainguard.dev/demoreview/rubric"
	"chainguard.dev/demoreview/scoring"
	"github.com/chainguard-dev/clog"
)

const systemPrompt = `You are an experienced reviewer of technical product demo videos.
You grade strictly against the rubric you are given and answer only with JSON.`

var gradePrompt = prompt.MustNew(`<task>
Grade the demo transcript below against each criterion of the rubric section
{{group_label}} from the rubric {{rubric_name}}.
</task>

<criteria>
{{criteria}}
</criteria>

<transcript>
{{transcript}}
</transcript>

{{visual_analysis}}

<instructions>
1. Score every criterion listed above, and only those criteria.
2. A score must lie between the criterion's min and max, inclusive.
3. Confidence is how sure you are of the score, from 0 (guess) to 10 (certain).
4. The note is one or two sentences citing what in the demo supports the score.
5. Grade what the transcript shows. Do not reward intentions or claims without evidence.
</instructions>

<output_format>
Respond with a single JSON object that conforms to this schema:
{{schema}}
</output_format>`)

var (
	visualSection = prompt.MustNew(`<visual_analysis>
{{analysis}}
</visual_analysis>`)
	noVisual = prompt.MustNew("")
)

// CriterionScore is the model's grade for one criterion.
type CriterionScore struct {
	CriterionID string  `json:"criterion_id" jsonschema:"required,description=The id of the criterion being scored"`
	Score       float64 `json:"score" jsonschema:"required,description=Score within the criterion's min and max"`
	Confidence  int     `json:"confidence" jsonschema:"required,minimum=0,maximum=10"`
	Note        string  `json:"note" jsonschema:"required,description=Evidence for the score"`
}

// Answer is the structured response requested from the model.
type Answer struct {
	Scores []CriterionScore `json:"scores" jsonschema:"required"`
}

// criterion is the prompt's view of a rubric item.
type criterion struct {
	ID          string  `json:"criterion_id"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
}

// Request asks for the scores of one group.
type Request struct {
	Rubric         *rubric.Rubric
	Group          rubric.Group
	Transcript     string
	VisualAnalysis string
}

// Grader grades rubric groups with a provider.
type Grader struct {
	provider    provider.Interface
	maxTokens   int64
	temperature float64
	schema      map[string]any
}

// Option configures a Grader.
type Option func(*Grader) error

// WithMaxTokens bounds the response length.
func WithMaxTokens(n int64) Option {
	return func(g *Grader) error {
		if n <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", n)
		}
		g.maxTokens = n
		return nil
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(g *Grader) error {
		if t < 0 || t > 1 {
			return fmt.Errorf("temperature must be between 0 and 1, got %v", t)
		}
		g.temperature = t
		return nil
	}
}

// New creates a Grader backed by p.
func New(p provider.Interface, opts ...Option) (*Grader, error) {
	if p == nil {
		return nil, errors.New("provider is required")
	}
	doc, err := schema.Document[Answer]()
	if err != nil {
		return nil, err
	}
	g := &Grader{
		provider:    p,
		maxTokens:   provider.DefaultMaxTokens,
		temperature: provider.DefaultTemperature,
		schema:      doc,
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return g, nil
}

// Grade returns the scores of req.Group keyed by rubric.Item.Key. Criteria the
// model did not score are left out; the caller decides how to fill them.
func (g *Grader) Grade(ctx context.Context, req Request) (map[string]scoring.Score, error) {
	if req.Rubric == nil {
		return nil, errors.New("rubric is required")
	}
	if len(req.Group.Items) == 0 {
		return nil, fmt.Errorf("group %q has no criteria", req.Group.ID)
	}
	if strings.TrimSpace(req.Transcript) == "" {
		return nil, errors.New("transcript is required")
	}
	log := clog.FromContext(ctx).With("group", req.Group.ID)

	text, err := g.render(req)
	if err != nil {
		return nil, err
	}

	resp, err := g.provider.Complete(ctx, &provider.Request{
		System:      systemPrompt,
		Prompt:      text,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("grading %s: %w", req.Group.ID, err)
	}

	answer, err := result.Extract[Answer](resp.Text)
	if err != nil {
		return nil, fmt.Errorf("grading %s: %w", req.Group.ID, err)
	}

	byID := make(map[string]rubric.Item, len(req.Group.Items))
	for _, item := range req.Group.Items {
		byID[item.ID] = item
	}
	scores := make(map[string]scoring.Score, len(answer.Scores))
	for _, cs := range answer.Scores {
		item, ok := byID[strings.TrimSpace(cs.CriterionID)]
		if !ok {
			log.Warnf("Ignoring score for unknown criterion %q", cs.CriterionID)
			continue
		}
		scores[item.Key] = scoring.Score{
			Score:      cs.Score,
			Confidence: min(max(cs.Confidence, 0), 10),
			Note:       strings.TrimSpace(cs.Note),
		}
	}
	if missing := len(req.Group.Items) - len(scores); missing > 0 {
		log.Warnf("Model left %d of %d criteria unscored", missing, len(req.Group.Items))
	}
	return scores, nil
}

func (g *Grader) render(req Request) (string, error) {
	criteria := make([]criterion, 0, len(req.Group.Items))
	for _, item := range req.Group.Items {
		criteria = append(criteria, criterion{
			ID:          item.ID,
			Label:       item.Label,
			Description: item.Desc,
			Min:         item.Min,
			Max:         item.Max,
		})
	}

	p, err := gradePrompt.BindJSON("schema", g.schema)
	if err != nil {
		return "", err
	}
	if p, err = p.BindJSON("group_label", req.Group.Label); err != nil {
		return "", err
	}
	if p, err = p.BindJSON("rubric_name", req.Rubric.Name); err != nil {
		return "", err
	}
	if p, err = p.BindJSON("criteria", criteria); err != nil {
		return "", err
	}
	if p, err = p.BindJSON("transcript", req.Transcript); err != nil {
		return "", err
	}
	visual := noVisual
	if strings.TrimSpace(req.VisualAnalysis) != "" {
		if visual, err = visualSection.BindJSON("analysis", req.VisualAnalysis); err != nil {
			return "", err
		}
	}
	if p, err = p.BindTemplate("visual_analysis", visual); err != nil {
		return "", err
	}
	return p.Build()
}
