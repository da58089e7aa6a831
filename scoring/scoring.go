/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package scoring aggregates per-criterion scores into category and overall
// results for a rubric.
package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"chainguard.dev/demoreview/rubric"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrMissingScore is returned when a criterion has no score. Callers supply a
// fallback score instead of letting the criterion drop out of the denominators.
var ErrMissingScore = errors.New("missing criterion score")

// Status is the pass/revise/fail classification of an overall value.
type Status string

const (
	StatusPass   Status = "pass"
	StatusRevise Status = "revise"
	StatusFail   Status = "fail"
)

// Score is the raw grade of one criterion.
type Score struct {
	Score      float64 `json:"score"`
	Confidence int     `json:"confidence,omitempty"`
	Note       string  `json:"note,omitempty"`
}

// CategoryResult aggregates the criteria of one category.
type CategoryResult struct {
	Points     float64 `json:"points"`
	MaxPoints  float64 `json:"max_points"`
	Percentage float64 `json:"percentage"`
}

// Overall is the rubric-level result. The populated fields depend on the
// rubric format: total points for hierarchical rubrics, a weighted score for
// legacy ones.
type Overall struct {
	Format        rubric.Format `json:"-"`
	Method        string        `json:"method"`
	TotalPoints   float64       `json:"-"`
	MaxPoints     float64       `json:"-"`
	Percentage    float64       `json:"-"`
	WeightedScore float64       `json:"-"`
	PassStatus    Status        `json:"pass_status"`
}

// Value is the number compared against the thresholds.
func (o Overall) Value() float64 {
	if o.Format == rubric.FormatLegacy {
		return o.WeightedScore
	}
	return o.TotalPoints
}

// MarshalJSON emits only the fields of the overall's format.
func (o Overall) MarshalJSON() ([]byte, error) {
	if o.Format == rubric.FormatLegacy {
		return json.Marshal(struct {
			WeightedScore float64 `json:"weighted_score"`
			Method        string  `json:"method"`
			PassStatus    Status  `json:"pass_status"`
		}{o.WeightedScore, o.Method, o.PassStatus})
	}
	return json.Marshal(struct {
		TotalPoints float64 `json:"total_points"`
		MaxPoints   float64 `json:"max_points"`
		Percentage  float64 `json:"percentage"`
		Method      string  `json:"method"`
		PassStatus  Status  `json:"pass_status"`
	}{o.TotalPoints, o.MaxPoints, o.Percentage, o.Method, o.PassStatus})
}

// Evaluation is the aggregated result of grading a transcript against a rubric.
// Scores and categories follow the rubric's declared order.
type Evaluation struct {
	Scores     *orderedmap.OrderedMap[string, Score]          `json:"scores"`
	Categories *orderedmap.OrderedMap[string, CategoryResult] `json:"categories,omitempty"`
	Overall    Overall                                        `json:"overall"`
}

// Aggregate computes category and overall results from per-criterion scores
// keyed by rubric.Item.Key. Scores outside a criterion's range are clamped.
func Aggregate(r *rubric.Rubric, scores map[string]Score) (*Evaluation, error) {
	if r == nil {
		return nil, errors.New("rubric is required")
	}
	format := r.Format()
	if format == rubric.FormatUnknown {
		return nil, errors.New("rubric has no categories or criteria")
	}

	ev := &Evaluation{
		Scores:  orderedmap.New[string, Score](),
		Overall: Overall{Format: format, Method: r.Method()},
	}
	if format == rubric.FormatHierarchical {
		ev.Categories = orderedmap.New[string, CategoryResult]()
	}

	var total, weighted float64
	for _, g := range r.Groups() {
		var points float64
		for _, item := range g.Items {
			s, ok := scores[item.Key]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrMissingScore, item.Key)
			}
			s.Score = clamp(s.Score, item.Min, item.Max)
			ev.Scores.Set(item.Key, s)
			points += s.Score
			weighted += item.Weight * s.Score
		}
		if format == rubric.FormatHierarchical {
			ev.Categories.Set(g.ID, CategoryResult{
				Points:     points,
				MaxPoints:  g.MaxPoints,
				Percentage: percent(points, g.MaxPoints),
			})
		}
		total += points
	}

	if format == rubric.FormatHierarchical {
		ev.Overall.TotalPoints = total
		ev.Overall.MaxPoints = r.OverallMax()
		ev.Overall.Percentage = percent(total, r.OverallMax())
	} else {
		ev.Overall.WeightedScore = weighted
	}
	ev.Overall.PassStatus = Classify(ev.Overall.Value(), r.Thresholds)
	return ev, nil
}

// Classify maps an overall value onto pass/revise/fail.
func Classify(value float64, t rubric.Thresholds) Status {
	switch {
	case value >= t.Pass:
		return StatusPass
	case value >= t.Revise:
		return StatusRevise
	default:
		return StatusFail
	}
}

func percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
