/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package prompt builds model prompts from templates with {{name}}
// placeholders.
//
// Templates are developer-authored string literals. Runtime data such as
// transcripts and rubric criteria is bound through an encoder (JSON or YAML),
// so text supplied by a submitter is always quoted and can never introduce new
// placeholders: substitution is a single pass over the template.
//
//	p := prompt.MustNew(`Score the transcript: {{transcript}}`)
//	p = p.MustBindJSON("transcript", tr.Text)
//	text, err := p.Build()
package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// literal only accepts untyped string constants from callers outside the
// package.
type literal string

// Template is an immutable prompt with bindable placeholders. Bind methods
// return a new Template.
type Template struct {
	text     string
	bindings map[string]binding
}

// New parses a template literal.
func New(text literal) (*Template, error) {
	bindings := make(map[string]binding)
	if _, err := walk(string(text), func(name string) (string, error) {
		bindings[name] = unbound{name: name}
		return "", nil
	}); err != nil {
		return nil, err
	}
	return &Template{text: string(text), bindings: bindings}, nil
}

// MustNew is New for package-level templates.
func MustNew(text literal) *Template {
	t, err := New(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Placeholders returns the placeholder names in sorted order.
func (t *Template) Placeholders() []string {
	return slices.Sorted(maps.Keys(t.bindings))
}

// BindLiteral binds developer-controlled text verbatim.
func (t *Template) BindLiteral(name string, value literal) (*Template, error) {
	return t.bind(name, text(value))
}

// BindJSON binds data encoded as indented JSON.
func (t *Template) BindJSON(name string, data any) (*Template, error) {
	return t.bind(name, jsonValue{data: data})
}

// BindYAML binds data encoded as YAML.
func (t *Template) BindYAML(name string, data any) (*Template, error) {
	return t.bind(name, yamlValue{data: data})
}

// BindTemplate binds another template, rendered when t is built. Its own
// placeholders must all be bound by then.
func (t *Template) BindTemplate(name string, sub *Template) (*Template, error) {
	if sub == nil {
		return nil, fmt.Errorf("binding %q: template is nil", name)
	}
	return t.bind(name, sub)
}

// MustBindJSON is BindJSON that panics on error.
func (t *Template) MustBindJSON(name string, data any) *Template {
	return must(t.BindJSON(name, data))
}

// MustBindYAML is BindYAML that panics on error.
func (t *Template) MustBindYAML(name string, data any) *Template {
	return must(t.BindYAML(name, data))
}

// MustBindLiteral is BindLiteral that panics on error.
func (t *Template) MustBindLiteral(name string, value literal) *Template {
	return must(t.BindLiteral(name, value))
}

func must(t *Template, err error) *Template {
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) bind(name string, b binding) (*Template, error) {
	current, ok := t.bindings[name]
	if !ok {
		return nil, fmt.Errorf("binding %q not found in template", name)
	}
	if _, isUnbound := current.(unbound); !isUnbound {
		return nil, fmt.Errorf("binding %q already bound", name)
	}
	out := &Template{text: t.text, bindings: maps.Clone(t.bindings)}
	out.bindings[name] = b
	return out, nil
}

// Build renders the template. Every placeholder must be bound.
func (t *Template) Build() (string, error) {
	values := make(map[string]string, len(t.bindings))
	for name, b := range t.bindings {
		v, err := b.value()
		if err != nil {
			return "", err
		}
		values[name] = v
	}
	return walk(t.text, func(name string) (string, error) {
		return values[name], nil
	})
}

type binding interface {
	value() (string, error)
}

func (t *Template) value() (string, error) { return t.Build() }

type unbound struct{ name string }

func (u unbound) value() (string, error) {
	return "", fmt.Errorf("unbound placeholder: %s", u.name)
}

type text string

func (t text) value() (string, error) { return string(t), nil }

type jsonValue struct{ data any }

func (j jsonValue) value() (string, error) {
	b, err := json.MarshalIndent(j.data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return string(b), nil
}

type yamlValue struct{ data any }

func (y yamlValue) value() (string, error) {
	b, err := yaml.Marshal(y.data)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}

// walk copies template, replacing each {{name}} with resolve(name). Replaced
// text is never scanned again.
func walk(template string, resolve func(name string) (string, error)) (string, error) {
	var out strings.Builder
	for len(template) > 0 {
		start := strings.Index(template, "{{")
		if start == -1 {
			out.WriteString(template)
			break
		}
		out.WriteString(template[:start])

		end := strings.Index(template[start:], "}}")
		if end == -1 {
			return "", errors.New("unclosed binding: missing '}}'")
		}
		end += start + 2

		name := strings.TrimSpace(template[start+2 : end-2])
		if !identifier(name) {
			return "", fmt.Errorf("invalid binding identifier %q", name)
		}
		v, err := resolve(name)
		if err != nil {
			return "", err
		}
		out.WriteString(v)
		template = template[end:]
	}
	return out.String(), nil
}

func identifier(s string) bool {
	for i, r := range s {
		switch {
		case unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '_'):
		default:
			return false
		}
	}
	return s != ""
}
