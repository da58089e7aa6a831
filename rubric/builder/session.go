/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package builder implements the interactive rubric create and edit flows as
// step machines. A Session holds the draft rubric and the queue of pending
// prompts; callers feed it one answer at a time, so the flows can be driven by
// a terminal (see Run) or directly from tests.
package builder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"chainguard.dev/demoreview/rubric"
)

// ErrCancelled is returned when the user abandons a flow.
var ErrCancelled = errors.New("cancelled")

// Step is one prompt of a flow. Apply receives the trimmed answer; a non-nil
// error is shown to the user and the same step is asked again.
type Step struct {
	Prompt string
	Apply  func(answer string) error
}

// Session is a flow in progress.
type Session struct {
	queue   []Step
	pending []Step
	notices []string
	finish  func() (*rubric.Rubric, error)

	done   bool
	result *rubric.Rubric
	err    error
}

func newSession(finish func() (*rubric.Rubric, error)) *Session {
	return &Session{finish: finish}
}

// Prompt returns the question for the current step, or "" once done.
func (s *Session) Prompt() string {
	if s.done || len(s.queue) == 0 {
		return ""
	}
	return s.queue[0].Prompt
}

// Done reports whether the flow has finished or been cancelled.
func (s *Session) Done() bool { return s.done }

// Result returns the finished rubric, or the reason the flow ended without one.
func (s *Session) Result() (*rubric.Rubric, error) {
	if !s.done {
		return nil, errors.New("session still in progress")
	}
	return s.result, s.err
}

// Submit answers the current step and returns the messages produced while
// handling it.
func (s *Session) Submit(answer string) []string {
	if s.done {
		return nil
	}
	s.notices = nil
	s.pending = nil

	step := s.queue[0]
	s.queue = s.queue[1:]
	if err := step.Apply(strings.TrimSpace(answer)); err != nil {
		s.pending = nil
		if errors.Is(err, ErrCancelled) {
			s.done = true
			s.err = err
			s.notices = append(s.notices, err.Error())
			return s.notices
		}
		s.notices = append(s.notices, err.Error())
		s.queue = append([]Step{step}, s.queue...)
		return s.notices
	}

	s.queue = append(s.pending, s.queue...)
	s.pending = nil
	if len(s.queue) == 0 {
		s.done = true
		s.result, s.err = s.finish()
	}
	return s.notices
}

// then schedules steps to run right after the current one succeeds.
func (s *Session) then(steps ...Step) {
	s.pending = append(s.pending, steps...)
}

func (s *Session) notify(format string, args ...any) {
	s.notices = append(s.notices, fmt.Sprintf(format, args...))
}

// Run drives a session from line-oriented input until it finishes.
func Run(ctx context.Context, s *Session, in io.Reader, out io.Writer) (*rubric.Rubric, error) {
	scanner := bufio.NewScanner(in)
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "%s: ", s.Prompt())
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("reading input: %w", err)
			}
			return nil, fmt.Errorf("input ended before the rubric was complete: %w", ErrCancelled)
		}
		for _, n := range s.Submit(scanner.Text()) {
			fmt.Fprintln(out, n)
		}
	}
	return s.Result()
}

func cancelled(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrCancelled)
}

// yes treats answers starting with y as agreement; anything else is no.
func yes(answer string) bool {
	return strings.HasPrefix(strings.ToLower(answer), "y")
}

// declined treats answers starting with n as refusal; anything else is yes.
func declined(answer string) bool {
	return strings.HasPrefix(strings.ToLower(answer), "n")
}

// normalizeID lower-cases an identifier and replaces spaces with sep.
func normalizeID(answer, sep string) string {
	return strings.ReplaceAll(strings.ToLower(answer), " ", sep)
}

// validID accepts non-empty identifiers of letters, digits and underscores.
func validID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

var errRequired = errors.New("a value is required")

func required(prompt string, set func(string)) Step {
	return Step{
		Prompt: prompt,
		Apply: func(answer string) error {
			if answer == "" {
				return errRequired
			}
			set(answer)
			return nil
		},
	}
}

// keep asks for a replacement value; an empty answer keeps the current one.
func keep(prompt, current string, set func(string)) Step {
	return Step{
		Prompt: fmt.Sprintf("%s [%s]", prompt, current),
		Apply: func(answer string) error {
			if answer != "" {
				set(answer)
			}
			return nil
		},
	}
}
