/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rubric

import (
	"encoding/json"
	"fmt"
)

// Format identifies which of the two rubric shapes a document uses.
type Format int

const (
	// FormatUnknown is reported for documents with neither categories nor criteria.
	FormatUnknown Format = iota
	// FormatLegacy is the flat shape: weighted criteria scored on the rubric scale.
	FormatLegacy
	// FormatHierarchical is the point-based shape: weighted categories of criteria.
	FormatHierarchical
)

func (f Format) String() string {
	switch f {
	case FormatLegacy:
		return "legacy"
	case FormatHierarchical:
		return "hierarchical"
	default:
		return "unknown"
	}
}

// Status is the lifecycle marker of a stored rubric version.
type Status string

const (
	StatusCurrent Status = "current"
	StatusArchive Status = "archive"
)

// Aggregation methods written to overall_method.
const (
	MethodTotalPoints  = "total_points"
	MethodWeightedMean = "weighted_mean"
)

// Scale bounds the overall value of a rubric.
type Scale struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Thresholds are the cut points for pass/revise/fail classification.
type Thresholds struct {
	Pass   float64 `json:"pass"`
	Revise float64 `json:"revise"`
}

// Criterion is a scored item nested in a hierarchical category.
type Criterion struct {
	CriterionID string `json:"criterion_id"`
	Label       string `json:"label"`
	Desc        string `json:"desc"`
	MaxPoints   int    `json:"max_points"`
}

// Category groups criteria in the hierarchical format.
type Category struct {
	CategoryID string      `json:"category_id"`
	Label      string      `json:"label"`
	Weight     float64     `json:"weight"`
	MaxPoints  int         `json:"max_points"`
	Criteria   []Criterion `json:"criteria"`
}

// LegacyCriterion is a top-level criterion in the flat format.
type LegacyCriterion struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Desc   string  `json:"desc"`
	Weight float64 `json:"weight"`
}

// Rubric is one version of a grading rubric in either format.
type Rubric struct {
	RubricID      string            `json:"rubric_id,omitempty"`
	Version       string            `json:"version,omitempty"`
	Status        Status            `json:"status,omitempty"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Categories    []Category        `json:"categories,omitempty"`
	Criteria      []LegacyCriterion `json:"criteria,omitempty"`
	Scale         Scale             `json:"scale"`
	OverallMethod string            `json:"overall_method"`
	Thresholds    Thresholds        `json:"thresholds"`
}

// Format reports the shape of the rubric. Categories win over criteria, the
// same precedence the validator applies to raw documents.
func (r *Rubric) Format() Format {
	switch {
	case len(r.Categories) > 0:
		return FormatHierarchical
	case len(r.Criteria) > 0:
		return FormatLegacy
	default:
		return FormatUnknown
	}
}

// Item is one scorable criterion as seen by graders and the scoring engine.
type Item struct {
	// Key identifies the item in score maps.
	Key   string
	ID    string
	Label string
	Desc  string
	// Min and Max bound the raw score for this item.
	Min float64
	Max float64
	// Weight is the legacy criterion weight, zero for hierarchical items.
	Weight float64
}

// Group is the format-agnostic unit of grading: a category, or a single
// legacy criterion.
type Group struct {
	ID        string
	Label     string
	Weight    float64
	MaxPoints float64
	Items     []Item
}

// Groups returns the rubric's scoring units in declared order.
//
// Hierarchical items are keyed by criterion_id. Criterion ids are only unique
// within a category, so an id that appears in more than one category is keyed
// as "category_id/criterion_id" instead.
func (r *Rubric) Groups() []Group {
	switch r.Format() {
	case FormatHierarchical:
		seen := make(map[string]int)
		for _, cat := range r.Categories {
			for _, c := range cat.Criteria {
				seen[c.CriterionID]++
			}
		}
		groups := make([]Group, 0, len(r.Categories))
		for _, cat := range r.Categories {
			g := Group{
				ID:        cat.CategoryID,
				Label:     cat.Label,
				Weight:    cat.Weight,
				MaxPoints: float64(cat.MaxPoints),
				Items:     make([]Item, 0, len(cat.Criteria)),
			}
			for _, c := range cat.Criteria {
				key := c.CriterionID
				if seen[key] > 1 {
					key = cat.CategoryID + "/" + c.CriterionID
				}
				g.Items = append(g.Items, Item{
					Key:   key,
					ID:    c.CriterionID,
					Label: c.Label,
					Desc:  c.Desc,
					Min:   0,
					Max:   float64(c.MaxPoints),
				})
			}
			groups = append(groups, g)
		}
		return groups

	case FormatLegacy:
		groups := make([]Group, 0, len(r.Criteria))
		for _, c := range r.Criteria {
			groups = append(groups, Group{
				ID:        c.ID,
				Label:     c.Label,
				Weight:    c.Weight,
				MaxPoints: r.Scale.Max,
				Items: []Item{{
					Key:    c.ID,
					ID:     c.ID,
					Label:  c.Label,
					Desc:   c.Desc,
					Min:    r.Scale.Min,
					Max:    r.Scale.Max,
					Weight: c.Weight,
				}},
			})
		}
		return groups

	default:
		return nil
	}
}

// Items flattens Groups.
func (r *Rubric) Items() []Item {
	var items []Item
	for _, g := range r.Groups() {
		items = append(items, g.Items...)
	}
	return items
}

// OverallMax is the upper bound of the overall value: scale.max for both formats.
func (r *Rubric) OverallMax() float64 {
	return r.Scale.Max
}

// Method returns the aggregation method implied by the rubric's format:
// total points for categories, weighted mean for flat criteria. The declared
// overall_method is kept in the document but never selects the aggregation.
func (r *Rubric) Method() string {
	if r.Format() == FormatHierarchical {
		return MethodTotalPoints
	}
	return MethodWeightedMean
}

// Clone returns a deep copy of the rubric.
func (r *Rubric) Clone() *Rubric {
	out := *r
	if r.Categories != nil {
		out.Categories = make([]Category, len(r.Categories))
		for i, cat := range r.Categories {
			out.Categories[i] = cat
			out.Categories[i].Criteria = append([]Criterion(nil), cat.Criteria...)
		}
	}
	if r.Criteria != nil {
		out.Criteria = append([]LegacyCriterion(nil), r.Criteria...)
	}
	return &out
}

// Document converts the rubric into the generic mapping the validator and the
// store operate on.
func (r *Rubric) Document() (map[string]any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding rubric: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding rubric document: %w", err)
	}
	return doc, nil
}

// Validate runs the validator against the rubric's document form.
func (r *Rubric) Validate() error {
	doc, err := r.Document()
	if err != nil {
		return err
	}
	return Check(doc)
}
