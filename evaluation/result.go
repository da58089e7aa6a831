/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluation

import (
	"fmt"
	"strings"
	"time"

	"chainguard.dev/demoreview/agents/feedback"
	"chainguard.dev/demoreview/scoring"
	"chainguard.dev/demoreview/transcribe"
)

// Submitter identifies who recorded the demo.
type Submitter struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PartnerName string `json:"partner_name"`
}

// Validate requires every field.
func (s Submitter) Validate() error {
	var missing []string
	if strings.TrimSpace(s.FirstName) == "" {
		missing = append(missing, "first name")
	}
	if strings.TrimSpace(s.LastName) == "" {
		missing = append(missing, "last name")
	}
	if strings.TrimSpace(s.PartnerName) == "" {
		missing = append(missing, "partner name")
	}
	if len(missing) > 0 {
		return fmt.Errorf("submitter is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// RubricRef records which rubric a result was graded against.
type RubricRef struct {
	Name     string `json:"name"`
	Filename string `json:"filename,omitempty"`
	Version  string `json:"version,omitempty"`
}

// Result is the record of one evaluation run. It is written once and never
// modified afterwards.
type Result struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source"`
	Rubric    RubricRef `json:"rubric"`
	Provider  string    `json:"provider,omitempty"`
	Model     string    `json:"model,omitempty"`

	Transcript     string             `json:"transcript"`
	Language       string             `json:"language"`
	Translated     bool               `json:"translated,omitempty"`
	Quality        transcribe.Quality `json:"quality"`
	VisualAnalysis string             `json:"visual_analysis,omitempty"`

	Evaluation       *scoring.Evaluation `json:"evaluation"`
	Feedback         *feedback.Feedback  `json:"feedback"`
	FeedbackFallback bool                `json:"feedback_fallback,omitempty"`
	// FallbackCriteria lists the item keys that received a fallback score.
	FallbackCriteria []string `json:"fallback_criteria,omitempty"`

	Submitter Submitter `json:"submitter"`

	// Location is where the sink stored the result.
	Location string `json:"-"`
}

// FallbackUsed reports whether any criterion was scored by the fallback
// policy instead of the grader.
func (r *Result) FallbackUsed() bool {
	return len(r.FallbackCriteria) > 0
}

// FileName is {first}_{last}_{partner}_{YYYYmmdd_HHMMSS}_{runid8}.json.
func (r *Result) FileName() string {
	id := strings.ReplaceAll(r.RunID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s_%s_%s_%s_%s.json",
		fileSafe(r.Submitter.FirstName),
		fileSafe(r.Submitter.LastName),
		fileSafe(r.Submitter.PartnerName),
		r.CreatedAt.Format("20060102_150405"),
		id,
	)
}

func fileSafe(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}
