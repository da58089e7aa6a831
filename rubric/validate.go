/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rubric

import (
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a validation failure.
type Kind int

const (
	MissingKey Kind = iota + 1
	ShapeMismatch
	DuplicateID
	OutOfRange
	NumericParseFailure
	SumMismatch
)

func (k Kind) String() string {
	switch k {
	case MissingKey:
		return "MissingKey"
	case ShapeMismatch:
		return "ShapeMismatch"
	case DuplicateID:
		return "DuplicateID"
	case OutOfRange:
		return "OutOfRange"
	case NumericParseFailure:
		return "NumericParseFailure"
	case SumMismatch:
		return "SumMismatch"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ValidationError describes the first structural or numeric defect found in a
// rubric document.
type ValidationError struct {
	Kind   Kind
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Weight sums within this band are accepted as 1.0.
const (
	minWeightSum = 0.99
	maxWeightSum = 1.01
)

var (
	hierarchicalKeys  = []string{"categories", "scale", "overall_method", "thresholds"}
	legacyKeys        = []string{"criteria", "scale", "overall_method", "thresholds"}
	categoryFields    = []string{"category_id", "label", "weight", "max_points", "criteria"}
	criterionFields   = []string{"criterion_id", "label", "desc", "max_points"}
	legacyItemFields  = []string{"id", "label", "desc", "weight"}
	scaleFields       = []string{"min", "max"}
	thresholdFields   = []string{"pass", "revise"}
	errNoFormatReason = "rubric must have either categories or criteria"
)

// Validate reports whether doc is a well-formed rubric in either format and,
// when it is not, the reason for the first violation found. It never mutates
// doc and never panics.
func Validate(doc map[string]any) (bool, string) {
	if err := Check(doc); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// Check is Validate with the failure returned as a *ValidationError.
func Check(doc map[string]any) error {
	if doc == nil {
		return fail(ShapeMismatch, "rubric must be a mapping")
	}
	var err *ValidationError
	switch DetectFormat(doc) {
	case FormatHierarchical:
		err = checkHierarchical(doc)
	case FormatLegacy:
		err = checkLegacy(doc)
	default:
		err = fail(MissingKey, "%s", errNoFormatReason)
	}
	if err != nil {
		return err
	}
	if err := checkScale(doc["scale"]); err != nil {
		return err
	}
	if err := checkThresholds(doc["thresholds"]); err != nil {
		return err
	}
	return nil
}

// DetectFormat classifies a raw document by the presence of its top-level keys.
func DetectFormat(doc map[string]any) Format {
	if _, ok := doc["categories"]; ok {
		return FormatHierarchical
	}
	if _, ok := doc["criteria"]; ok {
		return FormatLegacy
	}
	return FormatUnknown
}

func checkHierarchical(doc map[string]any) *ValidationError {
	if missing := missingKeys(doc, hierarchicalKeys); len(missing) > 0 {
		return fail(MissingKey, "missing required keys: %s", strings.Join(missing, ", "))
	}
	categories, ok := doc["categories"].([]any)
	if !ok || len(categories) == 0 {
		return fail(ShapeMismatch, "categories must be a non-empty list")
	}

	seenCategories := make(map[string]struct{}, len(categories))
	var totalWeight float64
	for i, raw := range categories {
		category, ok := raw.(map[string]any)
		if !ok {
			return fail(ShapeMismatch, "category %d must be a mapping", i)
		}
		if missing := missingKeys(category, categoryFields); len(missing) > 0 {
			return fail(MissingKey, "category %d missing required fields: %s", i, strings.Join(missing, ", "))
		}

		id := idString(category["category_id"])
		if _, dup := seenCategories[id]; dup {
			return fail(DuplicateID, "duplicate category ID: %s", id)
		}
		seenCategories[id] = struct{}{}

		weight, err := toFloat(category["weight"])
		if err != nil {
			return fail(NumericParseFailure, "category %q weight must be a number", id)
		}
		if weight < 0 || weight > 1 {
			return fail(OutOfRange, "category %q weight must be between 0 and 1", id)
		}
		totalWeight += weight

		maxPoints, err := toInt(category["max_points"])
		if err != nil {
			return fail(NumericParseFailure, "category %q max_points must be a positive integer", id)
		}
		if maxPoints <= 0 {
			return fail(OutOfRange, "category %q max_points must be positive", id)
		}

		criteria, ok := category["criteria"].([]any)
		if !ok || len(criteria) == 0 {
			return fail(ShapeMismatch, "category %q criteria must be a non-empty list", id)
		}

		seenCriteria := make(map[string]struct{}, len(criteria))
		var points int
		for j, rawCriterion := range criteria {
			criterion, ok := rawCriterion.(map[string]any)
			if !ok {
				return fail(ShapeMismatch, "category %q criterion %d must be a mapping", id, j)
			}
			if missing := missingKeys(criterion, criterionFields); len(missing) > 0 {
				return fail(MissingKey, "category %q criterion %d missing required fields: %s", id, j, strings.Join(missing, ", "))
			}
			cid := idString(criterion["criterion_id"])
			if _, dup := seenCriteria[cid]; dup {
				return fail(DuplicateID, "duplicate criterion ID in category %q: %s", id, cid)
			}
			seenCriteria[cid] = struct{}{}

			cmax, err := toInt(criterion["max_points"])
			if err != nil {
				return fail(NumericParseFailure, "criterion %q max_points must be a positive integer", cid)
			}
			if cmax <= 0 {
				return fail(OutOfRange, "criterion %q max_points must be positive", cid)
			}
			points += cmax
		}

		if !sameNumber(category["max_points"], points) {
			return fail(SumMismatch, "category %q max_points (%v) doesn't match sum of criteria points (%d)",
				id, category["max_points"], points)
		}
	}

	if totalWeight < minWeightSum || totalWeight > maxWeightSum {
		return fail(SumMismatch, "category weights must sum to 1.0 (current sum: %.4f)", totalWeight)
	}
	return nil
}

func checkLegacy(doc map[string]any) *ValidationError {
	if missing := missingKeys(doc, legacyKeys); len(missing) > 0 {
		return fail(MissingKey, "missing required keys: %s", strings.Join(missing, ", "))
	}
	criteria, ok := doc["criteria"].([]any)
	if !ok || len(criteria) == 0 {
		return fail(ShapeMismatch, "criteria must be a non-empty list")
	}

	seen := make(map[string]struct{}, len(criteria))
	var totalWeight float64
	for i, raw := range criteria {
		criterion, ok := raw.(map[string]any)
		if !ok {
			return fail(ShapeMismatch, "criterion %d must be a mapping", i)
		}
		if missing := missingKeys(criterion, legacyItemFields); len(missing) > 0 {
			return fail(MissingKey, "criterion %d missing required fields: %s", i, strings.Join(missing, ", "))
		}
		id := idString(criterion["id"])
		if _, dup := seen[id]; dup {
			return fail(DuplicateID, "duplicate criterion ID: %s", id)
		}
		seen[id] = struct{}{}

		weight, err := toFloat(criterion["weight"])
		if err != nil {
			return fail(NumericParseFailure, "criterion %q weight must be a number", id)
		}
		if weight < 0 || weight > 1 {
			return fail(OutOfRange, "criterion %q weight must be between 0 and 1", id)
		}
		totalWeight += weight
	}

	if totalWeight < minWeightSum || totalWeight > maxWeightSum {
		return fail(SumMismatch, "criterion weights must sum to 1.0 (current sum: %.4f)", totalWeight)
	}
	return nil
}

func checkScale(raw any) *ValidationError {
	scale, ok := raw.(map[string]any)
	if !ok {
		return fail(ShapeMismatch, "scale must be a mapping")
	}
	if missing := missingKeys(scale, scaleFields); len(missing) > 0 {
		return fail(MissingKey, "scale must have min and max keys")
	}
	lo, err := toFloat(scale["min"])
	if err != nil {
		return fail(NumericParseFailure, "scale min and max must be numbers")
	}
	hi, err := toFloat(scale["max"])
	if err != nil {
		return fail(NumericParseFailure, "scale min and max must be numbers")
	}
	if lo >= hi {
		return fail(OutOfRange, "scale min must be less than max")
	}
	return nil
}

func checkThresholds(raw any) *ValidationError {
	thresholds, ok := raw.(map[string]any)
	if !ok {
		return fail(ShapeMismatch, "thresholds must be a mapping")
	}
	if missing := missingKeys(thresholds, thresholdFields); len(missing) > 0 {
		return fail(MissingKey, "thresholds must have pass and revise keys")
	}
	pass, err := toFloat(thresholds["pass"])
	if err != nil {
		return fail(NumericParseFailure, "thresholds must be numbers")
	}
	revise, err := toFloat(thresholds["revise"])
	if err != nil {
		return fail(NumericParseFailure, "thresholds must be numbers")
	}
	if revise >= pass {
		return fail(OutOfRange, "revise threshold must be less than pass threshold")
	}
	return nil
}

// missingKeys returns the absent keys in sorted order.
func missingKeys(m map[string]any, keys []string) []string {
	var missing []string
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

func idString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func fail(kind Kind, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}
