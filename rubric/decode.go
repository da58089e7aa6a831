/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rubric

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ParseDocument decodes JSON into the generic mapping form.
func ParseDocument(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid rubric JSON: %w", err)
	}
	if doc == nil {
		return nil, errors.New("invalid rubric JSON: document is not an object")
	}
	return doc, nil
}

// Parse decodes a JSON rubric. It does not validate; callers run Validate or
// (*Rubric).Validate when they need the invariants.
func Parse(data []byte) (*Rubric, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc)
}

// FromDocument converts a generic mapping into a Rubric. Numeric fields given
// as coercible strings (for example "0.5") are normalised first so that any
// document the validator accepts also decodes.
func FromDocument(doc map[string]any) (*Rubric, error) {
	data, err := json.Marshal(normalize(doc))
	if err != nil {
		return nil, fmt.Errorf("encoding rubric document: %w", err)
	}
	var r Rubric
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding rubric: %w", err)
	}
	return &r, nil
}

// normalize returns a copy of doc with the known numeric fields coerced.
func normalize(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	if v, ok := out["version"]; ok {
		if _, isString := v.(string); !isString && v != nil {
			out["version"] = fmt.Sprint(v)
		}
	}
	out["scale"] = coerceFields(out["scale"], floatField("min"), floatField("max"))
	out["thresholds"] = coerceFields(out["thresholds"], floatField("pass"), floatField("revise"))

	if cats, ok := out["categories"].([]any); ok {
		normalized := make([]any, len(cats))
		for i, c := range cats {
			cat := coerceFields(c, floatField("weight"), intField("max_points"))
			if m, ok := cat.(map[string]any); ok {
				if crits, ok := m["criteria"].([]any); ok {
					nc := make([]any, len(crits))
					for j, crit := range crits {
						nc[j] = coerceFields(crit, intField("max_points"))
					}
					m["criteria"] = nc
				}
			}
			normalized[i] = cat
		}
		out["categories"] = normalized
	}
	if crits, ok := out["criteria"].([]any); ok {
		normalized := make([]any, len(crits))
		for i, c := range crits {
			normalized[i] = coerceFields(c, floatField("weight"))
		}
		out["criteria"] = normalized
	}
	return out
}

type fieldCoercion struct {
	name string
	conv func(any) (any, bool)
}

func floatField(name string) fieldCoercion {
	return fieldCoercion{name: name, conv: func(v any) (any, bool) {
		f, err := toFloat(v)
		return f, err == nil
	}}
}

func intField(name string) fieldCoercion {
	return fieldCoercion{name: name, conv: func(v any) (any, bool) {
		i, err := toInt(v)
		return i, err == nil
	}}
}

func coerceFields(v any, fields ...fieldCoercion) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		out[k] = val
	}
	for _, f := range fields {
		if raw, ok := out[f.name]; ok {
			if converted, ok := f.conv(raw); ok {
				out[f.name] = converted
			}
		}
	}
	return out
}
