/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rubric

import (
	"fmt"
	"io"
	"strconv"

	"chainguard.dev/demoreview/internal/tables"
)

// Render writes a human-readable details view of the rubric.
func Render(w io.Writer, r *Rubric) error {
	fmt.Fprintf(w, "%s\n", r.Name)
	fmt.Fprintf(w, "Description: %s\n", r.Description)
	if r.Format() == FormatHierarchical {
		fmt.Fprintf(w, "Version: %s\n", orDefault(r.Version, DefaultVersion))
		fmt.Fprintf(w, "Rubric ID: %s\n", orDefault(r.RubricID, "unknown"))
	}
	fmt.Fprintf(w, "Scale: %s-%s\n", num(r.Scale.Min), num(r.Scale.Max))
	fmt.Fprintf(w, "Overall Method: %s\n", r.Method())
	fmt.Fprintf(w, "Pass Threshold: >=%s\n", num(r.Thresholds.Pass))
	fmt.Fprintf(w, "Revise Threshold: >=%s\n\n", num(r.Thresholds.Revise))

	switch r.Format() {
	case FormatHierarchical:
		var count int
		for _, cat := range r.Categories {
			count += len(cat.Criteria)
		}
		fmt.Fprintf(w, "Categories (%d) with Criteria (%d total):\n\n", len(r.Categories), count)
		rows := make([][]string, 0, count)
		for _, cat := range r.Categories {
			rows = append(rows, []string{
				fmt.Sprintf("%s (%s)", cat.Label, cat.CategoryID),
				fmt.Sprintf("%.1f%%", cat.Weight*100),
				strconv.Itoa(cat.MaxPoints),
				"",
			})
			for _, c := range cat.Criteria {
				rows = append(rows, []string{
					fmt.Sprintf("  - %s (%s)", c.Label, c.CriterionID),
					"",
					strconv.Itoa(c.MaxPoints),
					c.Desc,
				})
			}
		}
		return tables.Write(w, []string{"Category / Criterion", "Weight", "Points", "Description"}, rows)

	case FormatLegacy:
		fmt.Fprintf(w, "Criteria (%d total):\n\n", len(r.Criteria))
		rows := make([][]string, 0, len(r.Criteria))
		var total float64
		for i, c := range r.Criteria {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				fmt.Sprintf("%s (%s)", c.Label, c.ID),
				fmt.Sprintf("%.1f%%", c.Weight*100),
				c.Desc,
			})
			total += c.Weight
		}
		if err := tables.Write(w, []string{"#", "Criterion", "Weight", "Description"}, rows); err != nil {
			return err
		}
		fmt.Fprintf(w, "\nTotal Weight: %.3f (should be 1.0)\n", total)
		return nil

	default:
		fmt.Fprintln(w, "No categories or criteria defined.")
		return nil
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// num prints whole numbers without a fractional part.
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
