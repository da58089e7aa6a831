/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package builder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"chainguard.dev/demoreview/rubric"
)

type editor struct {
	s *Session
	r *rubric.Rubric
}

// NewEdit starts the edit menu for a copy of r. The finished session yields
// the edited rubric; Finalize validates it and bumps its version.
func NewEdit(r *rubric.Rubric) *Session {
	e := &editor{r: r.Clone()}
	e.s = newSession(func() (*rubric.Rubric, error) { return e.r, nil })
	e.s.queue = []Step{e.menu()}
	return e.s
}

func (e *editor) hierarchical() bool {
	return e.r.Format() == rubric.FormatHierarchical
}

func (e *editor) menu() Step {
	var b strings.Builder
	b.WriteString("What would you like to edit?\n")
	if e.hierarchical() {
		b.WriteString("  1. Basic info (name, description, version)\n")
		b.WriteString("  2. Scale and thresholds\n")
		b.WriteString("  3. Add a new category\n")
		b.WriteString("  4. Edit existing categories/criteria\n")
		b.WriteString("  5. Remove a category\n")
	} else {
		b.WriteString("  1. Basic info (name, description)\n")
		b.WriteString("  2. Scale and thresholds\n")
		b.WriteString("  3. Add a new criterion\n")
		b.WriteString("  4. Edit existing criteria\n")
		b.WriteString("  5. Remove a criterion\n")
	}
	b.WriteString("  6. Cancel\n")
	b.WriteString("Choice (1-6)")

	return Step{
		Prompt: b.String(),
		Apply: func(answer string) error {
			switch answer {
			case "1":
				e.basicInfo()
			case "2":
				e.scaleAndThresholds()
			case "3":
				e.add()
			case "4":
				e.editExisting()
			case "5":
				e.remove()
			case "6":
				return cancelled("edit cancelled")
			default:
				return errors.New("invalid choice")
			}
			return nil
		},
	}
}

func (e *editor) basicInfo() {
	e.s.then(
		keep("Name", e.r.Name, func(v string) { e.r.Name = v }),
		keep("Description", e.r.Description, func(v string) { e.r.Description = v }),
	)
	if e.hierarchical() {
		current := e.r.Version
		if current == "" {
			current = rubric.DefaultVersion
		}
		e.s.then(keep("Version", current, func(v string) { e.r.Version = v }))
	}
}

func (e *editor) scaleAndThresholds() {
	e.s.then(
		keepNumber("Min score", &e.r.Scale.Min),
		keepNumber("Max score", &e.r.Scale.Max),
		keepNumber("Pass threshold", &e.r.Thresholds.Pass),
		keepNumber("Revise threshold", &e.r.Thresholds.Revise),
	)
}

// keepNumber edits an integer-valued field in place.
func keepNumber(prompt string, field *float64) Step {
	return Step{
		Prompt: fmt.Sprintf("%s [%s]", prompt, strconv.FormatFloat(*field, 'f', -1, 64)),
		Apply: func(answer string) error {
			if answer == "" {
				return nil
			}
			n, err := strconv.Atoi(answer)
			if err != nil {
				return fmt.Errorf("invalid input %q: expected a whole number", answer)
			}
			*field = float64(n)
			return nil
		},
	}
}

func (e *editor) add() {
	if e.hierarchical() {
		flow := &categoryFlow{
			s: e.s,
			taken: func(id string) bool {
				for _, cat := range e.r.Categories {
					if cat.CategoryID == id {
						return true
					}
				}
				return false
			},
			weightSoFar: func() float64 {
				var total float64
				for _, cat := range e.r.Categories {
					total += cat.Weight
				}
				return total
			},
			commit: func(cat rubric.Category) {
				e.r.Categories = append(e.r.Categories, cat)
				e.s.notify("Added category %q", cat.Label)
			},
		}
		e.s.then(flow.start())
		return
	}

	var c rubric.LegacyCriterion
	e.s.then(
		Step{
			Prompt: "ID",
			Apply: func(answer string) error {
				id := normalizeID(answer, "_")
				if id == "" {
					return errRequired
				}
				for _, existing := range e.r.Criteria {
					if existing.ID == id {
						return fmt.Errorf("ID %q already exists", id)
					}
				}
				c.ID = id
				return nil
			},
		},
		required("Label", func(v string) { c.Label = v }),
		required("Description", func(v string) { c.Desc = v }),
		Step{
			Prompt: "Weight (0.0-1.0)",
			Apply: func(answer string) error {
				w, err := parseWeight(answer)
				if err != nil {
					return err
				}
				c.Weight = w
				e.r.Criteria = append(e.r.Criteria, c)
				e.s.notify("Added criterion %q", c.Label)
				return nil
			},
		},
	)
}

func (e *editor) editExisting() {
	if e.hierarchical() {
		e.s.then(e.pick("Category number to edit", e.categoryList(), len(e.r.Categories), e.editCategory))
		return
	}
	e.s.then(e.pick("Criterion number to edit", e.criterionList(), len(e.r.Criteria), func(i int) {
		c := &e.r.Criteria[i]
		e.s.then(
			keep("Label", c.Label, func(v string) { c.Label = v }),
			keep("Description", c.Desc, func(v string) { c.Desc = v }),
			keepWeight("Weight", &c.Weight),
		)
	}))
}

func (e *editor) editCategory(i int) {
	cat := &e.r.Categories[i]
	e.s.notify("Editing category: %s", cat.Label)
	e.s.then(
		keep("Category label", cat.Label, func(v string) { cat.Label = v }),
		keepWeight("Category weight", &cat.Weight),
		keepInt("Category max points", &cat.MaxPoints),
	)

	var list strings.Builder
	fmt.Fprintf(&list, "Criteria in %q:\n", cat.Label)
	for j, c := range cat.Criteria {
		fmt.Fprintf(&list, "  %d. %s (%s) - %d points\n", j+1, c.Label, c.CriterionID, c.MaxPoints)
	}
	list.WriteString("Edit a criterion? (number, or n to skip)")
	e.s.then(Step{
		Prompt: list.String(),
		Apply: func(answer string) error {
			if answer == "" || declined(answer) {
				return nil
			}
			j, err := strconv.Atoi(answer)
			if err != nil || j < 1 || j > len(cat.Criteria) {
				return errors.New("invalid criterion number")
			}
			c := &cat.Criteria[j-1]
			e.s.then(
				keep("Criterion label", c.Label, func(v string) { c.Label = v }),
				keep("Criterion description", c.Desc, func(v string) { c.Desc = v }),
				keepInt("Criterion max points", &c.MaxPoints),
			)
			return nil
		},
	})
}

func (e *editor) remove() {
	if e.hierarchical() {
		e.s.then(e.pick("Category number to remove", e.categoryList(), len(e.r.Categories), func(i int) {
			removed := e.r.Categories[i]
			e.r.Categories = append(e.r.Categories[:i], e.r.Categories[i+1:]...)
			e.s.notify("Removed category: %s", removed.Label)
		}))
		return
	}
	e.s.then(e.pick("Criterion number to remove", e.criterionList(), len(e.r.Criteria), func(i int) {
		removed := e.r.Criteria[i]
		e.r.Criteria = append(e.r.Criteria[:i], e.r.Criteria[i+1:]...)
		e.s.notify("Removed: %s", removed.Label)
	}))
}

func (e *editor) categoryList() string {
	var b strings.Builder
	for i, cat := range e.r.Categories {
		fmt.Fprintf(&b, "  %d. %s (%s) - %d criteria\n", i+1, cat.Label, cat.CategoryID, len(cat.Criteria))
	}
	return b.String()
}

func (e *editor) criterionList() string {
	var b strings.Builder
	for i, c := range e.r.Criteria {
		fmt.Fprintf(&b, "  %d. %s (%s) - %.3f\n", i+1, c.Label, c.ID, c.Weight)
	}
	return b.String()
}

// pick asks for a 1-based index into a list of n entries.
func (e *editor) pick(prompt, list string, n int, chosen func(int)) Step {
	return Step{
		Prompt: list + prompt,
		Apply: func(answer string) error {
			i, err := strconv.Atoi(answer)
			if err != nil || i < 1 || i > n {
				return errors.New("invalid number")
			}
			chosen(i - 1)
			return nil
		},
	}
}

func keepWeight(prompt string, field *float64) Step {
	return Step{
		Prompt: fmt.Sprintf("%s [%s]", prompt, strconv.FormatFloat(*field, 'f', -1, 64)),
		Apply: func(answer string) error {
			if answer == "" {
				return nil
			}
			w, err := parseWeight(answer)
			if err != nil {
				return err
			}
			*field = w
			return nil
		},
	}
}

func keepInt(prompt string, field *int) Step {
	return Step{
		Prompt: fmt.Sprintf("%s [%d]", prompt, *field),
		Apply: func(answer string) error {
			if answer == "" {
				return nil
			}
			n, err := positiveInt(answer)
			if err != nil {
				return err
			}
			*field = n
			return nil
		},
	}
}

func parseWeight(answer string) (float64, error) {
	w, err := strconv.ParseFloat(answer, 64)
	if err != nil {
		return 0, errors.New("invalid weight")
	}
	if w < 0 || w > 1 {
		return 0, errors.New("weight must be between 0.0 and 1.0")
	}
	return w, nil
}

// Finalize checks an edited rubric and, for hierarchical rubrics, bumps its
// minor version. The input is not modified.
func Finalize(r *rubric.Rubric) (*rubric.Rubric, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed, changes not saved: %w", err)
	}
	out := r.Clone()
	if out.Format() == rubric.FormatHierarchical {
		current := out.Version
		if current == "" {
			current = rubric.DefaultVersion
		}
		out.Version = rubric.IncrementVersion(current)
	}
	return out, nil
}
