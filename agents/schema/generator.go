/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package schema derives JSON schemas for the structured answers requested
// from model providers. The schemas are embedded in prompts so every provider
// sees the same response contract.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Generator wraps jsonschema.Reflector with the defaults used for response
// schemas: required fields come from `jsonschema:"required"` tags and every
// type is inlined.
type Generator struct {
	reflector jsonschema.Reflector
}

// NewGenerator constructs a generator.
func NewGenerator() *Generator {
	return &Generator{
		reflector: jsonschema.Reflector{
			RequiredFromJSONSchemaTags: true,
			ExpandedStruct:             true,
			DoNotReference:             true,
		},
	}
}

// Reflect returns the JSON schema for v.
func (g *Generator) Reflect(v any) *jsonschema.Schema {
	return g.reflector.Reflect(v)
}

// Reflect derives the JSON schema for v using a default generator.
func Reflect(v any) *jsonschema.Schema {
	return NewGenerator().Reflect(v)
}

// For reflects the zero value of T.
func For[T any]() *jsonschema.Schema {
	var zero T
	return Reflect(&zero)
}

// Document returns the schema for T as a generic mapping, ready to bind into
// a prompt.
func Document[T any]() (map[string]any, error) {
	data, err := json.Marshal(For[T]())
	if err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}
	delete(doc, "$schema")
	delete(doc, "$id")
	return doc, nil
}
