/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package builder

import (
	"fmt"
	"strconv"

	"chainguard.dev/demoreview/rubric"
)

const defaultMaxScore = 50

type creator struct {
	s           *Session
	r           *rubric.Rubric
	totalWeight float64
	categories  *categoryFlow
}

// NewCreate starts the flow that builds a new hierarchical rubric.
func NewCreate() *Session {
	c := &creator{
		r: &rubric.Rubric{
			Status:        rubric.StatusCurrent,
			OverallMethod: rubric.MethodTotalPoints,
		},
	}
	c.s = newSession(func() (*rubric.Rubric, error) { return c.r, nil })
	c.categories = &categoryFlow{
		s: c.s,
		taken: func(id string) bool {
			for _, cat := range c.r.Categories {
				if cat.CategoryID == id {
					return true
				}
			}
			return false
		},
		weightSoFar: func() float64 { return c.totalWeight },
		commit:      c.commitCategory,
	}

	c.s.queue = []Step{
		required("Rubric name", func(v string) { c.r.Name = v }),
		required("Description", func(v string) { c.r.Description = v }),
		{
			Prompt: "Rubric ID (unique identifier, e.g. custom-demo)",
			Apply: func(answer string) error {
				id := normalizeID(answer, "-")
				if id == "" {
					return errRequired
				}
				c.r.RubricID = id
				return nil
			},
		},
		{
			Prompt: "Version [" + rubric.DefaultVersion + "]",
			Apply: func(answer string) error {
				c.r.Version = answer
				if answer == "" {
					c.r.Version = rubric.DefaultVersion
				}
				return nil
			},
		},
		c.maxScore(),
	}
	return c.s
}

func (c *creator) maxScore() Step {
	return Step{
		Prompt: fmt.Sprintf("Maximum total score [%d]", defaultMaxScore),
		Apply: func(answer string) error {
			top := defaultMaxScore
			if answer != "" {
				n, err := strconv.Atoi(answer)
				switch {
				case err != nil:
					c.s.notify("Invalid number, using default (%d).", defaultMaxScore)
				case n <= 0:
					c.s.notify("Maximum score must be positive, using default (%d).", defaultMaxScore)
				default:
					top = n
				}
			}
			c.r.Scale = rubric.Scale{Min: 0, Max: float64(top)}
			c.s.then(c.passThreshold(top))
			return nil
		},
	}
}

// defaultThresholds puts pass at 70% and revise at 50% of the maximum.
func defaultThresholds(top int) rubric.Thresholds {
	return rubric.Thresholds{
		Pass:   float64(top * 7 / 10),
		Revise: float64(top * 5 / 10),
	}
}

func (c *creator) passThreshold(top int) Step {
	def := defaultThresholds(top)
	return Step{
		Prompt: fmt.Sprintf("Pass threshold (>= this score) [%d]", int(def.Pass)),
		Apply: func(answer string) error {
			pass := def.Pass
			if answer != "" {
				n, err := strconv.Atoi(answer)
				if err != nil {
					c.s.notify("Invalid numbers, using defaults.")
					c.r.Thresholds = def
					c.s.then(c.categories.start())
					return nil
				}
				pass = float64(n)
			}
			c.s.then(c.reviseThreshold(def, pass))
			return nil
		},
	}
}

func (c *creator) reviseThreshold(def rubric.Thresholds, pass float64) Step {
	return Step{
		Prompt: fmt.Sprintf("Revise threshold (>= this score) [%d]", int(def.Revise)),
		Apply: func(answer string) error {
			revise := def.Revise
			if answer != "" {
				n, err := strconv.Atoi(answer)
				if err != nil {
					c.s.notify("Invalid numbers, using defaults.")
					c.r.Thresholds = def
					c.s.then(c.categories.start())
					return nil
				}
				revise = float64(n)
			}
			if revise >= pass {
				c.s.notify("Revise threshold must be less than pass threshold, using defaults.")
				c.r.Thresholds = def
			} else {
				c.r.Thresholds = rubric.Thresholds{Pass: pass, Revise: revise}
			}
			c.s.then(c.categories.start())
			return nil
		},
	}
}

func (c *creator) commitCategory(cat rubric.Category) {
	c.r.Categories = append(c.r.Categories, cat)
	c.totalWeight += cat.Weight
	c.s.notify("Added category. Total weight so far: %.3f", c.totalWeight)

	if c.totalWeight >= 0.99 {
		c.s.notify("Total weight is approximately 1.0, no more categories needed.")
		c.checkWeight()
		return
	}
	c.s.then(Step{
		Prompt: "Add another category? [Y/n]",
		Apply: func(answer string) error {
			if declined(answer) {
				c.checkWeight()
				return nil
			}
			c.s.then(c.categories.start())
			return nil
		},
	})
}

// checkWeight asks for confirmation when the final weights do not sum to 1.
func (c *creator) checkWeight() {
	if c.totalWeight >= 0.99 && c.totalWeight <= 1.01 {
		return
	}
	c.s.then(Step{
		Prompt: fmt.Sprintf("Total weight is %.3f, should be 1.0. Continue anyway? [y/N]", c.totalWeight),
		Apply: func(answer string) error {
			if !yes(answer) {
				return cancelled("rubric creation cancelled")
			}
			return nil
		},
	})
}
