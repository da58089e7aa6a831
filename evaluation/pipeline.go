/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package evaluation runs a submission through download, transcription,
// optional visual analysis, grading, scoring and feedback, and stores the
// result exactly once.
package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"chainguard.dev/demoreview/agents/feedback"
	"chainguard.dev/demoreview/agents/grader"
	"chainguard.dev/demoreview/agents/vision"
	"chainguard.dev/demoreview/media"
	"chainguard.dev/demoreview/rubric"
	"chainguard.dev/demoreview/scoring"
	"chainguard.dev/demoreview/transcribe"
	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ErrNoTranscript is returned when speech-to-text produced no text.
var ErrNoTranscript = errors.New("no transcript produced")

// State is a pipeline stage.
type State string

const (
	StateInit           State = "init"
	StateDownloading    State = "downloading"
	StateTranscribing   State = "transcribing"
	StateVisualAnalysis State = "visual_analysis"
	StateGrading        State = "grading"
	StateAggregating    State = "aggregating"
	StateFeedback       State = "feedback_generation"
	StatePersisted      State = "persisted"
	StateFailed         State = "failed"
)

// Progress receives a notification as each stage starts.
type Progress func(state State, message string)

// Collaborators, implemented by the media, transcribe, agents and results
// packages.
type (
	Fetcher interface {
		Download(ctx context.Context, url, dir string) (string, error)
	}
	AudioExtractor interface {
		ExtractAudio(ctx context.Context, input, dir string) (string, error)
	}
	FrameSampler interface {
		SampleFrames(ctx context.Context, input string, n int) ([]media.Frame, error)
	}
	Transcriber interface {
		Transcribe(ctx context.Context, path string, translate bool) (*transcribe.Transcript, error)
	}
	VisionAnalyzer interface {
		Analyze(ctx context.Context, req vision.Request) (string, error)
	}
	Grader interface {
		Grade(ctx context.Context, req grader.Request) (map[string]scoring.Score, error)
	}
	FeedbackGenerator interface {
		Generate(ctx context.Context, req feedback.Request) (*feedback.Feedback, error)
	}
	ResultSink interface {
		Write(ctx context.Context, name string, data []byte) (string, error)
	}
)

// Input describes one run.
type Input struct {
	// Source is a local file path or an http(s) URL.
	Source    string
	Rubric    *rubric.Rubric
	RubricRef RubricRef
	Submitter Submitter
	Vision    bool
	Translate bool
}

// Pipeline evaluates submissions. It is safe to run concurrently.
type Pipeline struct {
	fetcher     Fetcher
	extractor   AudioExtractor
	sampler     FrameSampler
	transcriber Transcriber
	vision      VisionAnalyzer
	grader      Grader
	feedback    FeedbackGenerator
	sink        ResultSink

	fallback     FallbackPolicy
	concurrency  int
	frames       int
	progress     Progress
	workDir      string
	providerName string
	model        string

	now   func() time.Time
	newID func() string
}

// New creates a pipeline from its required collaborators.
func New(tr Transcriber, g Grader, sink ResultSink, opts ...Option) (*Pipeline, error) {
	if tr == nil || g == nil || sink == nil {
		return nil, errors.New("transcriber, grader and sink are required")
	}
	p := &Pipeline{
		transcriber: tr,
		grader:      g,
		sink:        sink,
		fallback:    DefaultFallback,
		concurrency: 4,
		frames:      8,
		progress:    func(State, string) {},
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return p, nil
}

type run struct {
	*Pipeline
	in     Input
	log    *clog.Logger
	result *Result
	dir    string
	media  string
}

// Run evaluates in.Source. Grading and feedback failures are recovered; any
// other failure, or cancellation, ends the run before anything is stored.
func (p *Pipeline) Run(ctx context.Context, in Input) (res *Result, err error) {
	if in.Rubric == nil {
		return nil, errors.New("rubric is required")
	}
	if in.Rubric.Format() == rubric.FormatUnknown {
		return nil, errors.New("rubric has no categories or criteria")
	}
	if err := in.Submitter.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Source) == "" {
		return nil, errors.New("source is required")
	}

	r := &run{
		Pipeline: p,
		in:       in,
		result: &Result{
			RunID:     p.newID(),
			CreatedAt: p.now().UTC(),
			Source:    in.Source,
			Rubric:    in.RubricRef,
			Provider:  p.providerName,
			Model:     p.model,
			Submitter: in.Submitter,
		},
	}
	if r.result.Rubric.Name == "" {
		r.result.Rubric.Name = in.Rubric.Name
	}
	if r.result.Rubric.Version == "" {
		r.result.Rubric.Version = in.Rubric.Version
	}
	r.log = clog.FromContext(ctx).With("run_id", r.result.RunID)
	ctx = clog.WithLogger(ctx, r.log)

	ctx, span := otel.Tracer("chainguard.dev/demoreview/evaluation").Start(ctx, "evaluation.run",
		oteltrace.WithAttributes(
			attribute.String("run_id", r.result.RunID),
			attribute.String("rubric", r.result.Rubric.Name),
		))
	defer func() {
		outcome := "error"
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			p.progress(StateFailed, err.Error())
		} else {
			outcome = string(res.Evaluation.Overall.PassStatus)
		}
		runsCounter.WithLabelValues(outcome).Inc()
		span.End()
	}()

	if err := in.Rubric.Validate(); err != nil {
		r.log.Warnf("Rubric did not validate, continuing: %v", err)
	}

	p.progress(StateInit, "Starting evaluation")
	r.dir, err = os.MkdirTemp(p.workDir, "demoreview-")
	if err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}
	defer os.RemoveAll(r.dir)

	for _, stage := range []struct {
		state State
		fn    func(context.Context) error
	}{
		{StateDownloading, r.fetchSource},
		{StateTranscribing, r.transcribeAudio},
		{StateVisualAnalysis, r.analyzeFrames},
		{StateGrading, r.gradeGroups},
		{StateFeedback, r.writeFeedback},
		{StatePersisted, r.persist},
	} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		if err := r.stage(ctx, stage.state, stage.fn); err != nil {
			return nil, err
		}
		stageSeconds.WithLabelValues(string(stage.state)).Observe(time.Since(start).Seconds())
	}
	return r.result, nil
}

func (r *run) stage(ctx context.Context, state State, fn func(context.Context) error) error {
	ctx, span := otel.Tracer("chainguard.dev/demoreview/evaluation").Start(ctx, "evaluation."+string(state))
	defer span.End()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (r *run) fetchSource(ctx context.Context) error {
	r.media = r.in.Source
	if !media.IsURL(r.in.Source) {
		if _, err := os.Stat(r.in.Source); err != nil {
			return fmt.Errorf("reading submission: %w", err)
		}
		return nil
	}
	if r.fetcher == nil {
		return errors.New("source is a URL but no downloader is configured")
	}
	r.progress(StateDownloading, "Downloading video")
	path, err := r.fetcher.Download(ctx, r.in.Source, r.dir)
	if err != nil {
		return fmt.Errorf("downloading submission: %w", err)
	}
	r.media = path
	return nil
}

func (r *run) transcribeAudio(ctx context.Context) error {
	audio := r.media
	if !media.IsAudio(r.media) {
		if r.extractor == nil {
			return errors.New("video input needs an audio extractor")
		}
		r.progress(StateTranscribing, "Extracting audio")
		var err error
		if audio, err = r.extractor.ExtractAudio(ctx, r.media, r.dir); err != nil {
			return err
		}
	}

	r.progress(StateTranscribing, "Transcribing audio")
	tr, err := r.transcriber.Transcribe(ctx, audio, r.in.Translate)
	if err != nil {
		return fmt.Errorf("transcribing: %w", err)
	}
	if tr == nil || strings.TrimSpace(tr.Text) == "" {
		return ErrNoTranscript
	}
	r.result.Transcript = tr.Text
	r.result.Language = tr.Language
	r.result.Translated = tr.Translated
	r.result.Quality = tr.Quality
	for _, w := range tr.Quality.Warnings {
		r.log.Warnf("Transcription quality: %s", w)
	}
	return nil
}

// analyzeFrames is best effort: failures are logged and the run continues without
// a visual analysis.
func (r *run) analyzeFrames(ctx context.Context) error {
	if !r.in.Vision {
		return nil
	}
	switch {
	case r.vision == nil || r.sampler == nil:
		r.log.Warn("Visual analysis requested but not configured")
		return nil
	case media.IsAudio(r.media):
		r.log.Warn("Skipping visual analysis of an audio-only submission")
		return nil
	}

	r.progress(StateVisualAnalysis, "Analyzing video frames")
	frames, err := r.sampler.SampleFrames(ctx, r.media, r.frames)
	if err != nil {
		r.log.Warnf("Visual analysis skipped: %v", err)
		return nil
	}
	analysis, err := r.vision.Analyze(ctx, vision.Request{Frames: frames, Transcript: r.result.Transcript})
	if err != nil {
		r.log.Warnf("Visual analysis failed: %v", err)
		return nil
	}
	r.result.VisualAnalysis = analysis
	return nil
}

func (r *run) gradeGroups(ctx context.Context) error {
	r.progress(StateGrading, "Evaluating against rubric")
	groups := r.in.Rubric.Groups()
	graded := make([]map[string]scoring.Score, len(groups))
	failures := make([]error, len(groups))

	var eg errgroup.Group
	eg.SetLimit(r.concurrency)
	for i, g := range groups {
		eg.Go(func() error {
			scores, err := r.grader.Grade(ctx, grader.Request{
				Rubric:         r.in.Rubric,
				Group:          g,
				Transcript:     r.result.Transcript,
				VisualAnalysis: r.result.VisualAnalysis,
			})
			graded[i], failures[i] = scores, err
			return nil
		})
	}
	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	scores := make(map[string]scoring.Score)
	for i, g := range groups {
		if failures[i] != nil {
			r.log.With("group", g.ID).Warnf("Grading failed, using fallback scores: %v", failures[i])
		}
		for _, item := range g.Items {
			if s, ok := graded[i][item.Key]; ok {
				scores[item.Key] = s
				continue
			}
			reason := "no score returned"
			if failures[i] != nil {
				reason = failures[i].Error()
			}
			scores[item.Key] = r.fallback.Score(item, reason)
			r.result.FallbackCriteria = append(r.result.FallbackCriteria, item.Key)
		}
	}
	fallbackCounter.Add(float64(len(r.result.FallbackCriteria)))

	r.progress(StateAggregating, "Calculating scores")
	ev, err := scoring.Aggregate(r.in.Rubric, scores)
	if err != nil {
		return fmt.Errorf("aggregating scores: %w", err)
	}
	r.result.Evaluation = ev
	return nil
}

func (r *run) writeFeedback(ctx context.Context) error {
	r.progress(StateFeedback, "Generating feedback")
	var fb *feedback.Feedback
	if r.feedback != nil {
		var err error
		fb, err = r.feedback.Generate(ctx, feedback.Request{
			Rubric:     r.in.Rubric,
			Transcript: r.result.Transcript,
			Evaluation: r.result.Evaluation,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			r.log.Warnf("Feedback generation failed, using score-based feedback: %v", err)
			fb = nil
		}
	}
	if fb == nil {
		fb = feedback.Fallback(r.in.Rubric, r.result.Evaluation)
		r.result.FeedbackFallback = true
	}
	fb.Tone = feedback.ToneFor(r.result.Evaluation.Overall.PassStatus)
	r.result.Feedback = fb
	return nil
}

func (r *run) persist(ctx context.Context) error {
	r.progress(StatePersisted, "Saving results")
	data, err := json.MarshalIndent(r.result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	loc, err := r.sink.Write(ctx, r.result.FileName(), data)
	if err != nil {
		return fmt.Errorf("saving result: %w", err)
	}
	r.result.Location = loc
	r.log.With("location", loc).Info("Saved evaluation result")
	return nil
}
