/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rubric

// SampleName is the filename under which the built-in rubric is always available.
const SampleName = "sample-rubric"

// Sample returns the built-in rubric. Each call returns a fresh copy.
func Sample() *Rubric {
	return &Rubric{
		RubricID:    SampleName,
		Version:     DefaultVersion,
		Status:      StatusCurrent,
		Name:        "Sample Rubric",
		Description: "Built-in sample rubric",
		Categories: []Category{{
			CategoryID: "content",
			Label:      "Content",
			Weight:     0.6,
			MaxPoints:  30,
			Criteria: []Criterion{{
				CriterionID: "problem_statement",
				Label:       "Problem Statement",
				Desc:        "Clearly states the customer problem the demo addresses.",
				MaxPoints:   10,
			}, {
				CriterionID: "solution_fit",
				Label:       "Solution Fit",
				Desc:        "Shows how the product solves the stated problem.",
				MaxPoints:   10,
			}, {
				CriterionID: "technical_accuracy",
				Label:       "Technical Accuracy",
				Desc:        "Statements about the product are accurate and specific.",
				MaxPoints:   10,
			}},
		}, {
			CategoryID: "delivery",
			Label:      "Delivery",
			Weight:     0.4,
			MaxPoints:  20,
			Criteria: []Criterion{{
				CriterionID: "clarity",
				Label:       "Clarity",
				Desc:        "Speaks clearly with a logical flow.",
				MaxPoints:   10,
			}, {
				CriterionID: "call_to_action",
				Label:       "Call to Action",
				Desc:        "Ends with a concrete next step for the viewer.",
				MaxPoints:   10,
			}},
		}},
		Scale:         Scale{Min: 0, Max: 50},
		OverallMethod: MethodTotalPoints,
		Thresholds:    Thresholds{Pass: 35, Revise: 25},
	}
}
