/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package builder

import (
	"errors"
	"fmt"
	"strconv"

	"chainguard.dev/demoreview/rubric"
)

// categoryFlow collects one hierarchical category and its criteria.
type categoryFlow struct {
	s *Session
	// taken reports whether a category id is already used.
	taken func(id string) bool
	// weightSoFar is the sum of the weights of committed categories.
	weightSoFar func() float64
	// commit receives the finished category.
	commit func(rubric.Category)

	cat  rubric.Category
	crit rubric.Criterion
}

// start returns the first step of the flow. Restarting discards the draft.
func (f *categoryFlow) start() Step {
	return Step{
		Prompt: "Category ID (e.g. content_quality)",
		Apply: func(answer string) error {
			id := normalizeID(answer, "_")
			if !validID(id) {
				return errors.New("category ID must use letters, numbers and underscores only")
			}
			if f.taken(id) {
				return fmt.Errorf("category ID %q already exists, choose a different ID", id)
			}
			f.cat = rubric.Category{CategoryID: id}
			f.s.then(
				required("Category label (display name)", func(v string) { f.cat.Label = v }),
				f.weight(),
			)
			return nil
		},
	}
}

func (f *categoryFlow) weight() Step {
	return Step{
		Prompt: "Category weight (0.0-1.0)",
		Apply: func(answer string) error {
			w, err := strconv.ParseFloat(answer, 64)
			if err != nil {
				return errors.New("please enter a valid number")
			}
			if w < 0 || w > 1 {
				return errors.New("weight must be between 0.0 and 1.0")
			}
			if total := f.weightSoFar(); total+w > 1.01 {
				f.s.then(Step{
					Prompt: fmt.Sprintf("Total weight would exceed 1.0 (remaining %.3f). Continue anyway? [y/N]", 1-total),
					Apply: func(answer string) error {
						if !yes(answer) {
							f.s.then(f.weight())
							return nil
						}
						f.cat.Weight = w
						f.s.then(f.maxPoints())
						return nil
					},
				})
				return nil
			}
			f.cat.Weight = w
			f.s.then(f.maxPoints())
			return nil
		},
	}
}

func (f *categoryFlow) maxPoints() Step {
	return Step{
		Prompt: "Category max points",
		Apply: func(answer string) error {
			n, err := positiveInt(answer)
			if err != nil {
				return err
			}
			f.cat.MaxPoints = n
			f.s.notify("Adding criteria for category %q", f.cat.Label)
			f.s.then(f.criterion())
			return nil
		},
	}
}

func (f *categoryFlow) criterion() Step {
	return Step{
		Prompt: fmt.Sprintf("  Criterion #%d ID (e.g. technical_accuracy)", len(f.cat.Criteria)+1),
		Apply: func(answer string) error {
			id := normalizeID(answer, "_")
			if !validID(id) {
				return errors.New("criterion ID must use letters, numbers and underscores only")
			}
			for _, c := range f.cat.Criteria {
				if c.CriterionID == id {
					return fmt.Errorf("criterion ID %q already exists in this category", id)
				}
			}
			f.crit = rubric.Criterion{CriterionID: id}
			f.s.then(
				required("  Criterion label", func(v string) { f.crit.Label = v }),
				required("  Criterion description", func(v string) { f.crit.Desc = v }),
				f.criterionPoints(),
			)
			return nil
		},
	}
}

func (f *categoryFlow) criterionPoints() Step {
	return Step{
		Prompt: "  Criterion max points",
		Apply: func(answer string) error {
			n, err := positiveInt(answer)
			if err != nil {
				return err
			}
			f.crit.MaxPoints = n
			f.cat.Criteria = append(f.cat.Criteria, f.crit)
			f.s.notify("Added criterion. Category points so far: %d", criteriaPoints(f.cat))
			f.s.then(Step{
				Prompt: "  Add another criterion to this category? [Y/n]",
				Apply: func(answer string) error {
					if declined(answer) {
						f.finish()
						return nil
					}
					f.s.then(f.criterion())
					return nil
				},
			})
			return nil
		},
	}
}

// finish commits the category, asking first when its points disagree with
// its criteria.
func (f *categoryFlow) finish() {
	sum := criteriaPoints(f.cat)
	if sum == f.cat.MaxPoints {
		f.commit(f.cat)
		return
	}
	f.s.notify("Category max points (%d) doesn't match sum of criteria points (%d)", f.cat.MaxPoints, sum)
	f.s.then(Step{
		Prompt: "Continue anyway? [y/N]",
		Apply: func(answer string) error {
			if !yes(answer) {
				f.s.notify("Category creation cancelled.")
				f.s.then(f.start())
				return nil
			}
			f.commit(f.cat)
			return nil
		},
	})
}

func criteriaPoints(cat rubric.Category) int {
	var sum int
	for _, c := range cat.Criteria {
		sum += c.MaxPoints
	}
	return sum
}

func positiveInt(answer string) (int, error) {
	n, err := strconv.Atoi(answer)
	if err != nil {
		return 0, errors.New("please enter a valid number")
	}
	if n <= 0 {
		return 0, errors.New("max points must be positive")
	}
	return n, nil
}
