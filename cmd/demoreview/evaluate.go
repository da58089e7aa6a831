/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"chainguard.dev/demoreview/agents/feedback"
	"chainguard.dev/demoreview/agents/grader"
	"chainguard.dev/demoreview/agents/provider"
	"chainguard.dev/demoreview/agents/vision"
	"chainguard.dev/demoreview/evaluation"
	"chainguard.dev/demoreview/media"
	"chainguard.dev/demoreview/results"
	"chainguard.dev/demoreview/rubric"
	"chainguard.dev/demoreview/rubric/store"
	"chainguard.dev/demoreview/transcribe"
	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const banner = "======================================================================"

var (
	errNoSource    = errors.New("the following arguments are required: file (use --list-rubrics to list available rubrics)")
	errNoSubmitter = errors.New("the following arguments are required for evaluation: --first-name, --last-name, --partner-name")
)

type evaluateFlags struct {
	provider        string
	rubric          string
	vision          bool
	noTranslate     bool
	listRubrics     bool
	firstName       string
	lastName        string
	partnerName     string
	metricsTextfile string
}

func newEvaluateCmd(a *app) *cobra.Command {
	var flags evaluateFlags
	cmd := &cobra.Command{
		Use:   "evaluate <file|url>",
		Short: "Evaluate a demo video or audio recording against a rubric",
		Example: `  demoreview evaluate demo.mp4 --rubric sales-demo --first-name John --last-name Doe --partner-name "Jane Smith"
  demoreview evaluate --list-rubrics`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.listRubrics {
				return listRubrics(cmd, a)
			}
			return runEvaluate(cmd, a, flags, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.provider, "provider", provider.OpenAI, "Model provider for grading and feedback: openai, anthropic or google")
	f.StringVar(&flags.rubric, "rubric", rubric.SampleName, "Rubric to evaluate against (see --list-rubrics)")
	f.BoolVar(&flags.vision, "vision", false, "Enable visual alignment checks on sampled video frames")
	f.BoolVar(&flags.noTranslate, "no-translate", false, "Keep the original language instead of translating to English")
	f.BoolVar(&flags.listRubrics, "list-rubrics", false, "List all available rubrics and exit")
	f.StringVar(&flags.firstName, "first-name", "", "First name of the person who made the video")
	f.StringVar(&flags.lastName, "last-name", "", "Last name of the person who made the video")
	f.StringVar(&flags.partnerName, "partner-name", "", "Partner or organization name")
	f.StringVar(&flags.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file when the run ends")
	return cmd
}

func listRubrics(cmd *cobra.Command, a *app) error {
	st, err := store.New(a.cfg.RubricsDir)
	if err != nil {
		return err
	}
	entries, err := st.ListAvailable(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\nAVAILABLE RUBRICS\n%s\n\n", banner, banner)
	for _, e := range entries {
		fmt.Fprintf(out, "%s\n   Filename: %s\n   Description: %s\n\n", e.Name, e.Filename, e.Description)
	}
	fmt.Fprintln(out, "Usage: --rubric <filename>")
	return nil
}

func runEvaluate(cmd *cobra.Command, a *app, flags evaluateFlags, args []string) (err error) {
	ctx := cmd.Context()
	log := clog.FromContext(ctx)

	if len(args) == 0 {
		_ = cmd.Usage()
		return errNoSource
	}
	source := args[0]
	submitter := evaluation.Submitter{
		FirstName:   strings.TrimSpace(flags.firstName),
		LastName:    strings.TrimSpace(flags.lastName),
		PartnerName: strings.TrimSpace(flags.partnerName),
	}
	if submitter.Validate() != nil {
		_ = cmd.Usage()
		return errNoSubmitter
	}
	if !media.IsURL(source) {
		if _, err := os.Stat(source); err != nil {
			return fmt.Errorf("the file %q does not exist", source)
		}
	}

	if flags.metricsTextfile != "" {
		defer func() {
			if werr := prometheus.WriteToTextfile(flags.metricsTextfile, prometheus.DefaultGatherer); werr != nil {
				log.Warnf("Writing metrics to %s: %v", flags.metricsTextfile, werr)
			}
		}()
	}

	st, err := store.New(a.cfg.RubricsDir)
	if err != nil {
		return err
	}
	r, err := st.Load(ctx, flags.rubric)
	if err != nil {
		return fmt.Errorf("loading rubric %q: %w", flags.rubric, err)
	}

	pipeline, closeSink, err := newPipeline(cmd, a.cfg, flags)
	if err != nil {
		return remediate(cmd.ErrOrStderr(), err)
	}
	defer closeSink()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Starting video analysis...\nUsing rubric: %s\n", flags.rubric)
	if flags.noTranslate {
		fmt.Fprintln(out, "Translation disabled: keeping the original language")
	}

	res, err := pipeline.Run(ctx, evaluation.Input{
		Source:    source,
		Rubric:    r,
		RubricRef: evaluation.RubricRef{Name: r.Name, Filename: store.CleanName(flags.rubric), Version: r.Version},
		Submitter: submitter,
		Vision:    flags.vision,
		Translate: !flags.noTranslate,
	})
	if err != nil {
		return remediate(cmd.ErrOrStderr(), err)
	}

	fmt.Fprintln(out, "Analysis complete!")
	fmt.Fprintln(out)
	if err := evaluation.WriteReport(out, r, res); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if res.FallbackUsed() {
		fmt.Fprintf(cmd.ErrOrStderr(), "\nWARNING: %d criteria were scored with a conservative fallback because the %s grader did not return them.\n"+
			"Check the provider API key and quota, then re-run the evaluation.\n", len(res.FallbackCriteria), res.Provider)
	}
	return nil
}

// newPipeline wires the collaborators for one run. The returned func closes
// the result sink.
func newPipeline(cmd *cobra.Command, cfg config, flags evaluateFlags) (*evaluation.Pipeline, func(), error) {
	ctx := cmd.Context()
	noop := func() {}

	p, err := newProvider(ctx, cfg, flags.provider)
	if err != nil {
		return nil, noop, err
	}
	tr, err := transcribe.New(cfg.OpenAIAPIKey, transcribe.WithModel(cfg.WhisperModel))
	if err != nil {
		return nil, noop, err
	}
	g, err := grader.New(p)
	if err != nil {
		return nil, noop, err
	}
	fb, err := feedback.New(p)
	if err != nil {
		return nil, noop, err
	}
	ff, err := media.New()
	if err != nil {
		return nil, noop, err
	}
	dl, err := media.NewDownloader()
	if err != nil {
		return nil, noop, err
	}

	var sinkOpts []results.Option
	if cfg.S3Endpoint != "" {
		sinkOpts = append(sinkOpts, results.WithS3Endpoint(cfg.S3Endpoint))
	}
	if cfg.S3Region != "" {
		sinkOpts = append(sinkOpts, results.WithS3Region(cfg.S3Region))
	}
	sink, err := results.Open(ctx, cfg.ResultsLocation, sinkOpts...)
	if err != nil {
		return nil, noop, err
	}
	closeSink := noop
	if c, ok := sink.(io.Closer); ok {
		closeSink = func() {
			if err := c.Close(); err != nil {
				clog.FromContext(ctx).Warnf("Closing result sink: %v", err)
			}
		}
	}

	progress := cmd.ErrOrStderr()
	opts := []evaluation.Option{
		evaluation.WithFetcher(dl),
		evaluation.WithAudioExtractor(ff),
		evaluation.WithFeedback(fb),
		evaluation.WithFallback(evaluation.FallbackPolicy{Fraction: cfg.FallbackFraction}),
		evaluation.WithConcurrency(cfg.GradingConcurrency),
		evaluation.WithProvider(p.Name(), p.Model()),
		evaluation.WithProgress(func(state evaluation.State, message string) {
			fmt.Fprintf(progress, "[%s] %s\n", state, message)
		}),
	}
	if flags.vision {
		va, err := vision.New(p)
		if err != nil {
			closeSink()
			return nil, noop, err
		}
		opts = append(opts, evaluation.WithVision(ff, va, cfg.VisionFrames))
	}

	pipeline, err := evaluation.New(tr, g, sink, opts...)
	if err != nil {
		closeSink()
		return nil, noop, err
	}
	return pipeline, closeSink, nil
}

// remediate prints guidance for failures the user can fix and returns err.
func remediate(w io.Writer, err error) error {
	switch {
	case errors.Is(err, media.ErrFFmpegUnavailable):
		fmt.Fprintf(w, "%s\nERROR: ffmpeg not found\n%s\n\n", banner, banner)
		fmt.Fprintln(w, "ffmpeg is required for video processing.")
		fmt.Fprintln(w, "To install ffmpeg:")
		fmt.Fprintln(w, "  macOS: brew install ffmpeg")
		fmt.Fprintln(w, "  Linux: sudo apt-get install ffmpeg")
		fmt.Fprintln(w)
	case errors.Is(err, provider.ErrAuthentication):
		fmt.Fprintf(w, "%s\nERROR: model provider authentication failed\n%s\n\n", banner, banner)
		fmt.Fprintln(w, "Transcription always uses OPENAI_API_KEY. Grading uses the key of the selected provider:")
		fmt.Fprintln(w, "  openai:    OPENAI_API_KEY")
		fmt.Fprintln(w, "  anthropic: ANTHROPIC_API_KEY, or GOOGLE_CLOUD_PROJECT for Vertex AI")
		fmt.Fprintln(w, "  google:    GEMINI_API_KEY, or GOOGLE_CLOUD_PROJECT for Vertex AI")
		fmt.Fprintln(w, "Keys can also be placed in a .env file in the working directory.")
		fmt.Fprintln(w)
	case errors.Is(err, evaluation.ErrNoTranscript):
		fmt.Fprintln(w, "No speech was transcribed. Check that the recording has an audible voice track.")
	}
	return err
}
