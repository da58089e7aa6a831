/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package transcribe converts submission audio to text with OpenAI Whisper and
// rates how trustworthy the transcript is.
package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"chainguard.dev/demoreview/agents/metrics"
	"chainguard.dev/demoreview/agents/provider"
	"chainguard.dev/demoreview/agents/retry"
	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is the speech-to-text model used when none is configured.
const DefaultModel = "whisper-1"

// maxUploadBytes is the Whisper API upload limit.
const maxUploadBytes = 25 << 20

// Segment is one timed span of a verbose Whisper transcription.
type Segment struct {
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	AvgLogprob       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
}

// Transcript is the text of a submission and the segments it came from.
type Transcript struct {
	Text     string
	Language string
	Duration float64
	Segments []Segment
	// Translated is set when Text is an English translation of the audio.
	Translated bool
	Quality    Quality
}

// verbose is the verbose_json transcription body.
type verbose struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
}

// Whisper transcribes audio files.
type Whisper struct {
	client      openai.Client
	model       string
	retryConfig retry.Config
	metrics     *metrics.GenAI
}

// Option configures Whisper.
type Option func(*config) error

type config struct {
	model       string
	retryConfig retry.Config
	requestOpts []option.RequestOption
}

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(c *config) error {
		if model == "" {
			return errors.New("model cannot be empty")
		}
		c.model = model
		return nil
	}
}

// WithBaseURL points the client at another endpoint, such as a test server.
func WithBaseURL(url string) Option {
	return func(c *config) error {
		c.requestOpts = append(c.requestOpts, option.WithBaseURL(url))
		return nil
	}
}

// WithRetryConfig replaces the retry policy for transient errors.
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *config) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid retry config: %w", err)
		}
		c.retryConfig = cfg
		return nil
	}
}

// New creates a Whisper client authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Whisper, error) {
	c := &config{
		model:       DefaultModel,
		retryConfig: retry.DefaultConfig(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	if apiKey == "" {
		return nil, provider.AuthError("whisper", errors.New("OPENAI_API_KEY is not set"))
	}
	requestOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, c.requestOpts...)
	return &Whisper{
		client:      openai.NewClient(requestOpts...),
		model:       c.model,
		retryConfig: c.retryConfig,
		metrics:     metrics.NewGenAI(metrics.MeterName),
	}, nil
}

// English reports whether a Whisper language name or code is English.
func English(language string) bool {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "en", "english":
		return true
	default:
		return false
	}
}

// Transcribe converts the audio file at path to text. With translate set, a
// non-English recording is also translated and the translation becomes the
// transcript text; quality is always assessed on the original segments.
func (w *Whisper) Transcribe(ctx context.Context, path string, translate bool) (tr *Transcript, err error) {
	defer func() {
		w.metrics.RecordRequest(ctx, "whisper", w.model, provider.Outcome(err))
	}()
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	if info.Size() > maxUploadBytes {
		return nil, fmt.Errorf("audio file is %d MiB, the transcription limit is %d MiB", info.Size()>>20, maxUploadBytes>>20)
	}
	log := clog.FromContext(ctx).With("model", w.model)

	out, err := retry.Do(ctx, w.retryConfig, "whisper_transcription", isRetryable, func() (*openai.Transcription, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return w.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
			File:           f,
			Model:          openai.AudioModel(w.model),
			ResponseFormat: openai.AudioResponseFormatVerboseJSON,
		})
	})
	if err != nil {
		return nil, classify(err)
	}

	var v verbose
	if raw := out.RawJSON(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decoding transcription: %w", err)
		}
	}
	if v.Text == "" {
		v.Text = out.Text
	}

	tr = &Transcript{
		Text:     strings.TrimSpace(v.Text),
		Language: v.Language,
		Duration: v.Duration,
		Segments: v.Segments,
		Quality:  Assess(v.Segments),
	}
	log.With("language", tr.Language).With("segments", len(tr.Segments)).Info("Transcribed audio")

	if translate && tr.Language != "" && !English(tr.Language) {
		text, err := w.translate(ctx, path)
		if err != nil {
			return nil, err
		}
		tr.Text = text
		tr.Translated = true
		log.With("language", tr.Language).Info("Translated transcript to English")
	}
	return tr, nil
}

func (w *Whisper) translate(ctx context.Context, path string) (string, error) {
	out, err := retry.Do(ctx, w.retryConfig, "whisper_translation", isRetryable, func() (*openai.Translation, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return w.client.Audio.Translations.New(ctx, openai.AudioTranslationNewParams{
			File:  f,
			Model: openai.AudioModel(w.model),
		})
	})
	if err != nil {
		return "", classify(err)
	}
	return strings.TrimSpace(out.Text), nil
}

func isRetryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return retry.RetryableStatus(apiErr.StatusCode)
	}
	return false
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return provider.AuthError("whisper", err)
		}
	}
	return fmt.Errorf("whisper request: %w", err)
}
