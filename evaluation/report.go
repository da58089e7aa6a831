/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluation

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"chainguard.dev/demoreview/internal/tables"
	"chainguard.dev/demoreview/rubric"
	"chainguard.dev/demoreview/transcribe"
)

const rule = "======================================================================"

// ConfidenceLabel buckets a 0-10 grading confidence.
func ConfidenceLabel(c int) string {
	switch {
	case c >= 8:
		return "high"
	case c >= 6:
		return "medium"
	default:
		return "low"
	}
}

// WriteReport renders a human-readable summary of res.
func WriteReport(w io.Writer, r *rubric.Rubric, res *Result) error {
	ev := res.Evaluation
	o := ev.Overall

	fmt.Fprintf(w, "%s\nDEMO VIDEO EVALUATION RESULTS\n%s\n\n", rule, rule)
	fmt.Fprintf(w, "Submitter: %s %s (%s)\n", res.Submitter.FirstName, res.Submitter.LastName, res.Submitter.PartnerName)
	fmt.Fprintf(w, "Rubric: %s", res.Rubric.Name)
	if res.Rubric.Version != "" {
		fmt.Fprintf(w, " v%s", res.Rubric.Version)
	}
	fmt.Fprintf(w, "\nStatus: %s\n", strings.ToUpper(string(o.PassStatus)))
	if o.Format == rubric.FormatLegacy {
		fmt.Fprintf(w, "Overall Score: %.1f/%s\n\n", o.WeightedScore, num(r.Scale.Max))
	} else {
		fmt.Fprintf(w, "Overall Score: %s/%s (%.1f%%)\n\n", num(o.TotalPoints), num(o.MaxPoints), o.Percentage)
	}

	if ev.Categories != nil && ev.Categories.Len() > 0 {
		fmt.Fprintln(w, "Category Breakdown:")
		var rows [][]string
		for _, g := range r.Groups() {
			c, ok := ev.Categories.Get(g.ID)
			if !ok {
				continue
			}
			rows = append(rows, []string{g.Label, num(c.Points) + "/" + num(c.MaxPoints), fmt.Sprintf("%.1f%%", c.Percentage)})
		}
		if err := tables.Write(w, []string{"Category", "Points", "Percent"}, rows); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Criterion Scores:")
	var rows [][]string
	for _, g := range r.Groups() {
		for _, item := range g.Items {
			s, ok := ev.Scores.Get(item.Key)
			if !ok {
				continue
			}
			rows = append(rows, []string{
				item.Label,
				num(s.Score) + "/" + num(item.Max),
				fmt.Sprintf("%s (%d)", ConfidenceLabel(s.Confidence), s.Confidence),
				s.Note,
			})
		}
	}
	if err := tables.Write(w, []string{"Criterion", "Score", "Confidence", "Note"}, rows); err != nil {
		return err
	}
	if res.FallbackUsed() {
		fmt.Fprintf(w, "\nNote: %d criteria received a fallback score because grading did not complete: %s\n",
			len(res.FallbackCriteria), strings.Join(res.FallbackCriteria, ", "))
	}
	fmt.Fprintln(w)

	q := res.Quality
	fmt.Fprintf(w, "Transcription Quality: %s\n", strings.ToUpper(q.Rating))
	lang := strings.ToUpper(res.Language)
	if res.Translated {
		fmt.Fprintf(w, "  Detected Language: %s (translated to English)\n", lang)
	} else {
		fmt.Fprintf(w, "  Detected Language: %s\n", lang)
	}
	fmt.Fprintf(w, "  Confidence: %.1f%%\n", q.AvgConfidence)
	fmt.Fprintf(w, "  Speech Detection: %.1f%%\n", q.SpeechPercentage)
	fmt.Fprintf(w, "  Compression Ratio: %.2f (%.1f-%.1f is typical)\n", q.AvgCompressionRatio, transcribe.MinCompressionRatio, transcribe.MaxCompressionRatio)
	if len(q.Warnings) > 0 {
		fmt.Fprintln(w, "  Quality Warnings:")
		for _, warn := range q.Warnings {
			fmt.Fprintf(w, "    - %s\n", warn)
		}
	}
	fmt.Fprintln(w)

	if fb := res.Feedback; fb != nil {
		fmt.Fprintf(w, "%s\nFEEDBACK (%s TONE)\n%s\n\n", rule, strings.ToUpper(fb.Tone), rule)
		fmt.Fprintln(w, "STRENGTHS:")
		for i, p := range fb.Strengths {
			fmt.Fprintf(w, "%d. %s\n   %s\n", i+1, p.Title, p.Description)
		}
		fmt.Fprintln(w, "\nAREAS FOR IMPROVEMENT:")
		for i, p := range fb.Improvements {
			fmt.Fprintf(w, "%d. %s\n   %s\n", i+1, p.Title, p.Description)
		}
		if fb.Summary != "" {
			fmt.Fprintf(w, "\nSummary: %s\n", fb.Summary)
		}
	}
	if res.Location != "" {
		fmt.Fprintf(w, "\nResults saved to: %s\n", res.Location)
	}
	return nil
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
