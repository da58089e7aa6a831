/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{{
		name:  "bare object",
		input: `  {"score": 8}  `,
		want:  `{"score": 8}`,
	}, {
		name:  "fenced block with prose",
		input: "Here are the scores:\n```json\n{\"score\": 8}\n```\nLet me know.",
		want:  `{"score": 8}`,
	}, {
		name:  "indented fence",
		input: "  ```json\n{\"a\": 1,\n \"b\": 2}\n  ```",
		want:  "{\"a\": 1,\n \"b\": 2}",
	}, {
		name:  "plain fence",
		input: "```\n{\"score\": 8}\n```",
		want:  `{"score": 8}`,
	}, {
		name:  "prose around object",
		input: `Sure! {"score": 8, "note": "solid"} Hope that helps.`,
		want:  `{"score": 8, "note": "solid"}`,
	}, {
		name:  "empty fenced block",
		input: "```json\n```",
		want:  "",
	}, {
		name:  "array",
		input: `[1, 2]`,
		want:  `[1, 2]`,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ExtractJSON(tt.input)); diff != "" {
				t.Errorf("ExtractJSON() (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	type scores struct {
		Score float64 `json:"score"`
		Note  string  `json:"note"`
	}

	got, err := Extract[scores]("```json\n{\"score\": 7.5, \"note\": \"ok\"}\n```")
	if err != nil {
		t.Fatalf("Extract() = %v", err)
	}
	if diff := cmp.Diff(scores{Score: 7.5, Note: "ok"}, got); diff != "" {
		t.Errorf("Extract() (-want +got):\n%s", diff)
	}

	if _, err := Extract[scores]("```json\n```"); !errors.Is(err, ErrNoJSON) {
		t.Errorf("Extract(empty) = %v, want ErrNoJSON", err)
	}
	if _, err := Extract[scores]("no json here"); err == nil {
		t.Error("Extract(prose) = nil error")
	}
}
