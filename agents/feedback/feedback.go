/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package feedback writes qualitative feedback for a demo submitter from the
// transcript and the aggregated scores.
package feedback

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"chainguard.dev/demoreview/agents/prompt"
	"chainguard.dev/demoreview/agents/provider"
	"chainguard.dev/demoreview/agents/result"
	"chainguard.dev/demoreview/agents/schema"
	"chainguard.dev/demoreview/rubric"
	"chainguard.dev/demoreview/scoring"
)

// Tones of the feedback text.
const (
	ToneCongratulatory = "congratulatory"
	ToneSupportive     = "supportive"
)

// points is how many strengths and improvements are requested.
const points = 2

// Point is one strength or area for improvement.
type Point struct {
	Title       string `json:"title" jsonschema:"required,description=A short heading"`
	Description string `json:"description" jsonschema:"required,description=Two or three sentences grounded in the demo"`
}

// Feedback is the qualitative part of an evaluation result.
type Feedback struct {
	Strengths    []Point `json:"strengths" jsonschema:"required"`
	Improvements []Point `json:"improvements" jsonschema:"required"`
	Tone         string  `json:"tone" jsonschema:"required,enum=congratulatory,enum=supportive"`
	Summary      string  `json:"summary" jsonschema:"required,description=A short paragraph addressed to the submitter"`
}

// ToneFor returns the tone that matches a pass status.
func ToneFor(status scoring.Status) string {
	if status == scoring.StatusPass {
		return ToneCongratulatory
	}
	return ToneSupportive
}

// Request carries what the feedback is based on.
type Request struct {
	Rubric     *rubric.Rubric
	Transcript string
	Evaluation *scoring.Evaluation
}

const systemPrompt = `You coach partners who record product demo videos. You are specific,
honest and encouraging, and you answer only with JSON.`

var feedbackPrompt = prompt.MustNew(`<task>
Write feedback for the person who recorded this demo. The demo was graded
against the rubric {{rubric_name}} and the result is {{status}}.
Use a {{tone}} tone.
</task>

<scores>
{{scores}}
</scores>

<transcript>
{{transcript}}
</transcript>

<instructions>
1. Give exactly {{count}} strengths and exactly {{count}} areas for improvement.
2. Tie each point to something the presenter said or showed.
3. Improvements must be actionable for the next recording.
4. Address the presenter directly in the summary.
</instructions>

<output_format>
Respond with a single JSON object that conforms to this schema:
{{schema}}
</output_format>`)

// scoreLine is the prompt's view of one graded criterion.
type scoreLine struct {
	Group     string  `json:"section"`
	Criterion string  `json:"criterion"`
	Score     float64 `json:"score"`
	Max       float64 `json:"max"`
	Note      string  `json:"note,omitempty"`
}

// Generator produces feedback with a provider.
type Generator struct {
	provider provider.Interface
	schema   map[string]any
}

// New creates a Generator backed by p.
func New(p provider.Interface) (*Generator, error) {
	if p == nil {
		return nil, errors.New("provider is required")
	}
	doc, err := schema.Document[Feedback]()
	if err != nil {
		return nil, err
	}
	return &Generator{provider: p, schema: doc}, nil
}

// Generate asks the model for feedback. The tone always follows the pass
// status, whatever the model answered.
func (g *Generator) Generate(ctx context.Context, req Request) (*Feedback, error) {
	if req.Rubric == nil || req.Evaluation == nil {
		return nil, errors.New("rubric and evaluation are required")
	}
	tone := ToneFor(req.Evaluation.Overall.PassStatus)

	var lines []scoreLine
	for _, grp := range req.Rubric.Groups() {
		for _, item := range grp.Items {
			s, ok := req.Evaluation.Scores.Get(item.Key)
			if !ok {
				continue
			}
			lines = append(lines, scoreLine{
				Group:     grp.Label,
				Criterion: item.Label,
				Score:     s.Score,
				Max:       item.Max,
				Note:      s.Note,
			})
		}
	}

	p := feedbackPrompt.
		MustBindJSON("rubric_name", req.Rubric.Name).
		MustBindJSON("status", req.Evaluation.Overall.PassStatus).
		MustBindJSON("tone", tone).
		MustBindJSON("count", points).
		MustBindJSON("scores", lines).
		MustBindJSON("transcript", req.Transcript).
		MustBindJSON("schema", g.schema)
	text, err := p.Build()
	if err != nil {
		return nil, err
	}

	resp, err := g.provider.Complete(ctx, &provider.Request{
		System:      systemPrompt,
		Prompt:      text,
		Temperature: 0.5,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("generating feedback: %w", err)
	}
	fb, err := result.Extract[Feedback](resp.Text)
	if err != nil {
		return nil, fmt.Errorf("generating feedback: %w", err)
	}
	if len(fb.Strengths) == 0 || len(fb.Improvements) == 0 {
		return nil, errors.New("generating feedback: response has no strengths or improvements")
	}
	fb.Strengths = trim(fb.Strengths)
	fb.Improvements = trim(fb.Improvements)
	fb.Tone = tone
	fb.Summary = strings.TrimSpace(fb.Summary)
	return &fb, nil
}

func trim(ps []Point) []Point {
	if len(ps) > points {
		ps = ps[:points]
	}
	return ps
}

type groupResult struct {
	group rubric.Group
	got   float64
	ratio float64
	// notes of the group's best and worst criteria
	best, worst string
}

// Fallback builds feedback from the scores alone, naming the strongest groups
// as strengths and the weakest as improvements.
func Fallback(r *rubric.Rubric, ev *scoring.Evaluation) *Feedback {
	var results []groupResult
	for _, grp := range r.Groups() {
		gr := groupResult{group: grp}
		lowest, highest := 2.0, -1.0
		for _, item := range grp.Items {
			s, ok := ev.Scores.Get(item.Key)
			if !ok {
				continue
			}
			gr.got += s.Score
			ratio := 0.0
			if item.Max > item.Min {
				ratio = (s.Score - item.Min) / (item.Max - item.Min)
			}
			if ratio < lowest {
				lowest, gr.worst = ratio, s.Note
			}
			if ratio > highest {
				highest, gr.best = ratio, s.Note
			}
		}
		if grp.MaxPoints > 0 {
			gr.ratio = gr.got / grp.MaxPoints
		}
		results = append(results, gr)
	}

	// Strongest first; rubric order breaks ties.
	slices.SortStableFunc(results, func(a, b groupResult) int { return cmp.Compare(b.ratio, a.ratio) })

	fb := &Feedback{
		Tone:    ToneFor(ev.Overall.PassStatus),
		Summary: summary(ev),
	}
	for _, gr := range results[:min(points, len(results))] {
		fb.Strengths = append(fb.Strengths, Point{
			Title:       gr.group.Label,
			Description: describe(gr, gr.best),
		})
	}
	for i := len(results) - 1; i >= 0 && len(fb.Improvements) < points; i-- {
		gr := results[i]
		fb.Improvements = append(fb.Improvements, Point{
			Title:       gr.group.Label,
			Description: describe(gr, gr.worst),
		})
	}
	return fb
}

func describe(gr groupResult, note string) string {
	d := fmt.Sprintf("Scored %s of %s points (%.0f%%).", num(gr.got), num(gr.group.MaxPoints), gr.ratio*100)
	if note = strings.TrimSpace(note); note != "" {
		d += " " + note
	}
	return d
}

func summary(ev *scoring.Evaluation) string {
	o := ev.Overall
	status := strings.ToUpper(string(o.PassStatus))
	if o.Format == rubric.FormatLegacy {
		return fmt.Sprintf("Overall result: %s with a weighted score of %.1f.", status, o.WeightedScore)
	}
	return fmt.Sprintf("Overall result: %s with %s of %s points (%.1f%%).", status, num(o.TotalPoints), num(o.MaxPoints), o.Percentage)
}

func num(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}
