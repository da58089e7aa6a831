/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package scoring

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"chainguard.dev/demoreview/rubric"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func sampleScores(vals ...float64) map[string]Score {
	keys := []string{"problem_statement", "solution_fit", "technical_accuracy", "clarity", "call_to_action"}
	out := make(map[string]Score, len(keys))
	for i, k := range keys {
		out[k] = Score{Score: vals[i], Confidence: 8}
	}
	return out
}

func TestAggregateHierarchical(t *testing.T) {
	tests := []struct {
		name       string
		scores     map[string]Score
		wantTotal  float64
		wantPct    float64
		wantStatus Status
	}{{
		name:       "pass at 40 of 50",
		scores:     sampleScores(10, 10, 8, 6, 6),
		wantTotal:  40,
		wantPct:    80,
		wantStatus: StatusPass,
	}, {
		name:       "revise at 30",
		scores:     sampleScores(6, 6, 6, 6, 6),
		wantTotal:  30,
		wantPct:    60,
		wantStatus: StatusRevise,
	}, {
		name:       "fail at 20",
		scores:     sampleScores(4, 4, 4, 4, 4),
		wantTotal:  20,
		wantPct:    40,
		wantStatus: StatusFail,
	}, {
		name:       "boundary equals pass threshold",
		scores:     sampleScores(10, 10, 5, 5, 5),
		wantTotal:  35,
		wantPct:    70,
		wantStatus: StatusPass,
	}, {
		name:       "out of range scores clamp",
		scores:     sampleScores(15, -3, 10, 10, 10),
		wantTotal:  40,
		wantPct:    80,
		wantStatus: StatusPass,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Aggregate(rubric.Sample(), tt.scores)
			if err != nil {
				t.Fatalf("Aggregate() = %v", err)
			}
			if ev.Overall.TotalPoints != tt.wantTotal {
				t.Errorf("total = %v, want %v", ev.Overall.TotalPoints, tt.wantTotal)
			}
			if ev.Overall.MaxPoints != 50 {
				t.Errorf("max = %v, want 50", ev.Overall.MaxPoints)
			}
			if math.Abs(ev.Overall.Percentage-tt.wantPct) > 1e-9 {
				t.Errorf("percentage = %v, want %v", ev.Overall.Percentage, tt.wantPct)
			}
			if ev.Overall.PassStatus != tt.wantStatus {
				t.Errorf("status = %v, want %v", ev.Overall.PassStatus, tt.wantStatus)
			}
		})
	}
}

func TestAggregateCategoriesInRubricOrder(t *testing.T) {
	ev, err := Aggregate(rubric.Sample(), sampleScores(10, 10, 8, 6, 6))
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	var got []CategoryResult
	for pair := ev.Categories.Oldest(); pair != nil; pair = pair.Next() {
		ids = append(ids, pair.Key)
		got = append(got, pair.Value)
	}
	if diff := cmp.Diff([]string{"content", "delivery"}, ids); diff != "" {
		t.Errorf("category order (-want +got):\n%s", diff)
	}
	want := []CategoryResult{
		{Points: 28, MaxPoints: 30, Percentage: 28.0 / 30 * 100},
		{Points: 12, MaxPoints: 20, Percentage: 60},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("categories (-want +got):\n%s", diff)
	}

	var keys []string
	for pair := ev.Scores.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	if diff := cmp.Diff([]string{"problem_statement", "solution_fit", "technical_accuracy", "clarity", "call_to_action"}, keys); diff != "" {
		t.Errorf("score order (-want +got):\n%s", diff)
	}
}

func TestAggregateMissingScore(t *testing.T) {
	scores := sampleScores(10, 10, 8, 6, 6)
	delete(scores, "clarity")
	if _, err := Aggregate(rubric.Sample(), scores); !errors.Is(err, ErrMissingScore) {
		t.Errorf("Aggregate() = %v, want ErrMissingScore", err)
	}
}

func legacyRubric() *rubric.Rubric {
	return &rubric.Rubric{
		Name: "Legacy",
		Criteria: []rubric.LegacyCriterion{
			{ID: "clarity", Label: "Clarity", Desc: "c", Weight: 0.5},
			{ID: "accuracy", Label: "Accuracy", Desc: "a", Weight: 0.5},
		},
		Scale:         rubric.Scale{Min: 1, Max: 10},
		OverallMethod: rubric.MethodWeightedMean,
		Thresholds:    rubric.Thresholds{Pass: 7, Revise: 5},
	}
}

func TestAggregateLegacy(t *testing.T) {
	ev, err := Aggregate(legacyRubric(), map[string]Score{
		"clarity":  {Score: 8, Confidence: 9, Note: "clear"},
		"accuracy": {Score: 6, Confidence: 7},
	})
	if err != nil {
		t.Fatal(err)
	}
	if ev.Overall.WeightedScore != 7 {
		t.Errorf("weighted = %v, want 7", ev.Overall.WeightedScore)
	}
	if ev.Overall.PassStatus != StatusPass {
		t.Errorf("status = %v, want pass", ev.Overall.PassStatus)
	}
	if ev.Categories != nil {
		t.Error("legacy evaluation has categories")
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"scores":{"clarity":{"score":8,"confidence":9,"note":"clear"},"accuracy":{"score":6,"confidence":7}},` +
		`"overall":{"weighted_score":7,"method":"weighted_mean","pass_status":"pass"}}`
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("JSON (-want +got):\n%s", diff)
	}
}

func TestOverallJSONHierarchical(t *testing.T) {
	o := Overall{Format: rubric.FormatHierarchical, Method: rubric.MethodTotalPoints, TotalPoints: 40, MaxPoints: 50, Percentage: 80, PassStatus: StatusPass}
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"total_points":40,"max_points":50,"percentage":80,"method":"total_points","pass_status":"pass"}`
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("JSON (-want +got):\n%s", diff)
	}
}

func TestClassify(t *testing.T) {
	th := rubric.Thresholds{Pass: 35, Revise: 25}
	for v, want := range map[float64]Status{50: StatusPass, 35: StatusPass, 34.9: StatusRevise, 25: StatusRevise, 24: StatusFail, 0: StatusFail} {
		if got := Classify(v, th); got != want {
			t.Errorf("Classify(%v) = %v, want %v", v, got, want)
		}
	}
}

func TestAggregateIgnoresDeclaredMethod(t *testing.T) {
	legacy := legacyRubric()
	legacy.Scale = rubric.Scale{Min: 0, Max: 10}
	legacy.OverallMethod = "weighted_average"

	hierarchical := rubric.Sample()
	hierarchical.OverallMethod = rubric.MethodWeightedMean

	tests := []struct {
		name       string
		rubric     *rubric.Rubric
		scores     map[string]Score
		wantMethod string
		wantValue  float64
		wantStatus Status
		wantJSON   string
	}{{
		name:       "legacy with unknown method uses weighted mean",
		rubric:     legacy,
		scores:     map[string]Score{"clarity": {Score: 9}, "accuracy": {Score: 9}},
		wantMethod: rubric.MethodWeightedMean,
		wantValue:  9,
		wantStatus: StatusPass,
		wantJSON:   `{"weighted_score":9,"method":"weighted_mean","pass_status":"pass"}`,
	}, {
		name:       "hierarchical declaring weighted mean uses total points",
		rubric:     hierarchical,
		scores:     sampleScores(10, 10, 10, 10, 10),
		wantMethod: rubric.MethodTotalPoints,
		wantValue:  50,
		wantStatus: StatusPass,
		wantJSON:   `{"total_points":50,"max_points":50,"percentage":100,"method":"total_points","pass_status":"pass"}`,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.rubric.Validate(); err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			ev, err := Aggregate(tt.rubric, tt.scores)
			if err != nil {
				t.Fatalf("Aggregate() = %v", err)
			}
			if got := ev.Overall.Method; got != tt.wantMethod {
				t.Errorf("method = %q, want %q", got, tt.wantMethod)
			}
			if got := ev.Overall.Value(); got != tt.wantValue {
				t.Errorf("Value() = %v, want %v", got, tt.wantValue)
			}
			if got := ev.Overall.PassStatus; got != tt.wantStatus {
				t.Errorf("status = %v, want %v", got, tt.wantStatus)
			}
			data, err := json.Marshal(ev.Overall)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.wantJSON, string(data)); diff != "" {
				t.Errorf("JSON (-want +got):\n%s", diff)
			}
		})
	}
}
