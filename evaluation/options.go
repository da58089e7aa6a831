/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluation

import (
	"errors"
	"fmt"

	"chainguard.dev/demoreview/rubric"
	"chainguard.dev/demoreview/scoring"
)

// FallbackNote starts the note of every fallback score.
const FallbackNote = "Auto-generated conservative score"

// FallbackPolicy scores criteria the grader could not. Fraction places the
// score within the criterion's range: 0 is the minimum, 1 the maximum.
type FallbackPolicy struct {
	Fraction float64
}

// DefaultFallback scores at the middle of the range.
var DefaultFallback = FallbackPolicy{Fraction: 0.5}

// Validate checks Fraction is within [0, 1].
func (f FallbackPolicy) Validate() error {
	if f.Fraction < 0 || f.Fraction > 1 {
		return fmt.Errorf("fallback fraction must be between 0 and 1, got %v", f.Fraction)
	}
	return nil
}

// Score returns the fallback score for item. Confidence is zero.
func (f FallbackPolicy) Score(item rubric.Item, reason string) scoring.Score {
	return scoring.Score{
		Score:      item.Min + f.Fraction*(item.Max-item.Min),
		Confidence: 0,
		Note:       fmt.Sprintf("%s (%s)", FallbackNote, reason),
	}
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithFetcher enables URL sources.
func WithFetcher(f Fetcher) Option {
	return func(p *Pipeline) error {
		p.fetcher = f
		return nil
	}
}

// WithAudioExtractor enables video sources.
func WithAudioExtractor(e AudioExtractor) Option {
	return func(p *Pipeline) error {
		p.extractor = e
		return nil
	}
}

// WithVision enables visual analysis of n sampled frames per video.
func WithVision(s FrameSampler, a VisionAnalyzer, frames int) Option {
	return func(p *Pipeline) error {
		if s == nil || a == nil {
			return errors.New("vision needs a frame sampler and an analyzer")
		}
		if frames < 1 {
			return fmt.Errorf("frame count must be at least 1, got %d", frames)
		}
		p.sampler, p.vision, p.frames = s, a, frames
		return nil
	}
}

// WithFeedback sets the feedback generator. Without one, feedback is built
// from the scores.
func WithFeedback(g FeedbackGenerator) Option {
	return func(p *Pipeline) error {
		p.feedback = g
		return nil
	}
}

// WithFallback replaces DefaultFallback.
func WithFallback(f FallbackPolicy) Option {
	return func(p *Pipeline) error {
		if err := f.Validate(); err != nil {
			return err
		}
		p.fallback = f
		return nil
	}
}

// WithConcurrency bounds concurrent grading calls.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return fmt.Errorf("concurrency must be at least 1, got %d", n)
		}
		p.concurrency = n
		return nil
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn Progress) Option {
	return func(p *Pipeline) error {
		if fn == nil {
			return errors.New("progress callback cannot be nil")
		}
		p.progress = fn
		return nil
	}
}

// WithWorkDir sets where temporary files are created.
func WithWorkDir(dir string) Option {
	return func(p *Pipeline) error {
		p.workDir = dir
		return nil
	}
}

// WithProvider records the model provider in results.
func WithProvider(name, model string) Option {
	return func(p *Pipeline) error {
		p.providerName, p.model = name, model
		return nil
	}
}
