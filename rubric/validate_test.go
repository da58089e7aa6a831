/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rubric

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func mustDoc(t *testing.T, src string) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return doc
}

const validHierarchical = `{
  "rubric_id": "demo", "version": "1.0", "status": "current",
  "name": "Demo", "description": "d",
  "categories": [
    {"category_id": "content", "label": "Content", "weight": 0.6, "max_points": 30,
     "criteria": [
       {"criterion_id": "a", "label": "A", "desc": "a", "max_points": 20},
       {"criterion_id": "b", "label": "B", "desc": "b", "max_points": 10}]},
    {"category_id": "delivery", "label": "Delivery", "weight": 0.4, "max_points": 20,
     "criteria": [{"criterion_id": "c", "label": "C", "desc": "c", "max_points": 20}]}
  ],
  "scale": {"min": 0, "max": 50},
  "overall_method": "total_points",
  "thresholds": {"pass": 35, "revise": 25}
}`

const validLegacy = `{
  "name": "Legacy", "description": "d",
  "criteria": [
    {"id": "clarity", "label": "Clarity", "desc": "c", "weight": 0.5},
    {"id": "accuracy", "label": "Accuracy", "desc": "a", "weight": "0.5"}
  ],
  "scale": {"min": 1, "max": 10},
  "overall_method": "weighted_mean",
  "thresholds": {"pass": 7, "revise": 5}
}`

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		mutate   func(map[string]any)
		wantKind Kind
		wantText string
	}{{
		name: "valid hierarchical",
		doc:  validHierarchical,
	}, {
		name: "valid legacy with numeric string weight",
		doc:  validLegacy,
	}, {
		name:     "neither categories nor criteria",
		doc:      `{"name": "x", "scale": {"min": 0, "max": 1}}`,
		wantKind: MissingKey,
		wantText: "either categories or criteria",
	}, {
		name:     "missing top level keys reported sorted",
		doc:      `{"categories": []}`,
		wantKind: MissingKey,
		wantText: "missing required keys: overall_method, scale, thresholds",
	}, {
		name:     "empty categories",
		doc:      validHierarchical,
		mutate:   func(d map[string]any) { d["categories"] = []any{} },
		wantKind: ShapeMismatch,
		wantText: "categories must be a non-empty list",
	}, {
		name: "weights sum to 0.9",
		doc:  validHierarchical,
		mutate: func(d map[string]any) {
			category(d, 0)["weight"] = 0.5
		},
		wantKind: SumMismatch,
		wantText: "category weights must sum to 1.0 (current sum: 0.9000)",
	}, {
		name: "max points does not match criteria",
		doc:  validHierarchical,
		mutate: func(d map[string]any) {
			cat := category(d, 1)
			cat["max_points"] = 10.0
			cat["criteria"] = []any{map[string]any{
				"criterion_id": "c", "label": "C", "desc": "c", "max_points": 8.0,
			}}
		},
		wantKind: SumMismatch,
		wantText: `category "delivery" max_points (10) doesn't match sum of criteria points (8)`,
	}, {
		name: "boolean max points compare as integers",
		doc:  validHierarchical,
		mutate: func(d map[string]any) {
			cat := category(d, 1)
			cat["max_points"] = true
			cat["criteria"] = []any{map[string]any{
				"criterion_id": "c", "label": "C", "desc": "c", "max_points": true,
			}}
		},
	}, {
		name: "boolean max points still checked against the sum",
		doc:  validHierarchical,
		mutate: func(d map[string]any) {
			category(d, 1)["max_points"] = true
		},
		wantKind: SumMismatch,
		wantText: `category "delivery" max_points (true) doesn't match sum of criteria points (20)`,
	}, {
		name: "duplicate category",
		doc:  validHierarchical,
		mutate: func(d map[string]any) {
			category(d, 1)["category_id"] = "content"
		},
		wantKind: DuplicateID,
		wantText: "duplicate category ID: content",
	}, {
		name: "duplicate criterion within category",
		doc:  validHierarchical,
		mutate: func(d map[string]any) {
			crit := category(d, 0)["criteria"].([]any)
			crit[1].(map[string]any)["criterion_id"] = "a"
		},
		wantKind: DuplicateID,
		wantText: `duplicate criterion ID in category "content": a`,
	}, {
		name: "weight not numeric",
		doc:  validHierarchical,
		mutate: func(d map[string]any) {
			category(d, 0)["weight"] = "heavy"
		},
		wantKind: NumericParseFailure,
		wantText: `category "content" weight must be a number`,
	}, {
		name: "weight out of range",
		doc:  validHierarchical,
		mutate: func(d map[string]any) {
			category(d, 0)["weight"] = 1.5
		},
		wantKind: OutOfRange,
	}, {
		name: "category max points negative",
		doc:  validHierarchical,
		mutate: func(d map[string]any) {
			category(d, 0)["max_points"] = -3.0
		},
		wantKind: OutOfRange,
		wantText: `category "content" max_points must be positive`,
	}, {
		name: "criterion missing desc",
		doc:  validHierarchical,
		mutate: func(d map[string]any) {
			crit := category(d, 1)["criteria"].([]any)
			delete(crit[0].(map[string]any), "desc")
		},
		wantKind: MissingKey,
		wantText: `category "delivery" criterion 0 missing required fields: desc`,
	}, {
		name: "criterion max points not an integer",
		doc:  validHierarchical,
		mutate: func(d map[string]any) {
			crit := category(d, 1)["criteria"].([]any)
			crit[0].(map[string]any)["max_points"] = "twenty"
		},
		wantKind: NumericParseFailure,
	}, {
		name: "scale inverted",
		doc:  validHierarchical,
		mutate: func(d map[string]any) {
			d["scale"] = map[string]any{"min": 50.0, "max": 0.0}
		},
		wantKind: OutOfRange,
		wantText: "scale min must be less than max",
	}, {
		name: "scale not a mapping",
		doc:  validHierarchical,
		mutate: func(d map[string]any) {
			d["scale"] = []any{0.0, 50.0}
		},
		wantKind: ShapeMismatch,
	}, {
		name: "thresholds inverted",
		doc:  validHierarchical,
		mutate: func(d map[string]any) {
			d["thresholds"] = map[string]any{"pass": 20.0, "revise": 30.0}
		},
		wantKind: OutOfRange,
		wantText: "revise threshold must be less than pass threshold",
	}, {
		name: "thresholds not numeric",
		doc:  validHierarchical,
		mutate: func(d map[string]any) {
			d["thresholds"] = map[string]any{"pass": "high", "revise": 30.0}
		},
		wantKind: NumericParseFailure,
	}, {
		name: "legacy duplicate id",
		doc:  validLegacy,
		mutate: func(d map[string]any) {
			crit := d["criteria"].([]any)
			crit[1].(map[string]any)["id"] = "clarity"
		},
		wantKind: DuplicateID,
		wantText: "duplicate criterion ID: clarity",
	}, {
		name: "legacy weights too high",
		doc:  validLegacy,
		mutate: func(d map[string]any) {
			crit := d["criteria"].([]any)
			crit[1].(map[string]any)["weight"] = 0.6
		},
		wantKind: SumMismatch,
		wantText: "criterion weights must sum to 1.0 (current sum: 1.1000)",
	}, {
		name: "categories win over criteria",
		doc:  validHierarchical,
		mutate: func(d map[string]any) {
			d["criteria"] = "ignored"
		},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustDoc(t, tt.doc)
			if tt.mutate != nil {
				tt.mutate(doc)
			}

			ok, reason := Validate(doc)
			if tt.wantKind == 0 {
				if !ok {
					t.Fatalf("Validate() = false, %q; want valid", reason)
				}
				return
			}
			if ok {
				t.Fatalf("Validate() = true; want failure of kind %v", tt.wantKind)
			}
			if tt.wantText != "" && !strings.Contains(reason, tt.wantText) {
				t.Errorf("reason = %q, want it to contain %q", reason, tt.wantText)
			}

			var verr *ValidationError
			if err := Check(doc); !errors.As(err, &verr) {
				t.Fatalf("Check() = %v, want *ValidationError", err)
			}
			if verr.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", verr.Kind, tt.wantKind)
			}
		})
	}
}

func TestValidateIsPure(t *testing.T) {
	doc := mustDoc(t, validHierarchical)
	category(doc, 0)["weight"] = 0.5

	before, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	ok1, reason1 := Validate(doc)
	ok2, reason2 := Validate(doc)
	if ok1 != ok2 || reason1 != reason2 {
		t.Errorf("Validate not idempotent: (%v, %q) vs (%v, %q)", ok1, reason1, ok2, reason2)
	}
	after, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("Validate mutated its input")
	}
}

func TestValidateNilAndGarbage(t *testing.T) {
	if ok, _ := Validate(nil); ok {
		t.Error("nil document validated")
	}
	doc := map[string]any{"categories": []any{"not a mapping"}, "scale": 1, "overall_method": 2, "thresholds": 3}
	if ok, reason := Validate(doc); ok || !strings.Contains(reason, "must be a mapping") {
		t.Errorf("Validate() = %v, %q", ok, reason)
	}
}

func TestSampleIsValid(t *testing.T) {
	if err := Sample().Validate(); err != nil {
		t.Fatalf("sample rubric invalid: %v", err)
	}
}

func category(doc map[string]any, i int) map[string]any {
	return doc["categories"].([]any)[i].(map[string]any)
}
