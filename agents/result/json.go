/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package result pulls structured JSON answers out of model responses, which
// often wrap the object in markdown fences or surround it with prose.
package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a response contains nothing that looks like a
// JSON object.
var ErrNoJSON = errors.New("no JSON object in response")

// ExtractJSON returns the JSON text of a response. A ```json fenced block
// wins; otherwise surrounding fences are stripped, and if prose remains the
// outermost {...} span is taken.
func ExtractJSON(response string) string {
	var block strings.Builder
	in, found := false, false
	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		if !in && trimmed == "```json" {
			in, found = true, true
			continue
		}
		if in && trimmed == "```" {
			break
		}
		if in {
			if block.Len() > 0 {
				block.WriteString("\n")
			}
			block.WriteString(line)
		}
	}
	if found {
		return strings.TrimSpace(block.String())
	}

	text := strings.TrimSpace(response)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return text
	}

	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

// Extract decodes the JSON answer in response into T.
func Extract[T any](response string) (T, error) {
	var out T
	content := ExtractJSON(response)
	if content == "" {
		return out, ErrNoJSON
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return out, fmt.Errorf("decoding model response: %w", err)
	}
	return out, nil
}
