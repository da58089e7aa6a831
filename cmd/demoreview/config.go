/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type config struct {
	RubricsDir      string `env:"RUBRICS_DIR,default=rubrics"`
	ResultsLocation string `env:"RESULTS_LOCATION,default=results"`

	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`

	// Vertex AI is used for anthropic and google when no API key is set.
	GoogleProject string `env:"GOOGLE_CLOUD_PROJECT"`
	GoogleRegion  string `env:"GOOGLE_CLOUD_REGION,default=us-east5"`

	OpenAIModel    string `env:"OPENAI_MODEL"`
	AnthropicModel string `env:"ANTHROPIC_MODEL"`
	GoogleModel    string `env:"GOOGLE_MODEL"`
	WhisperModel   string `env:"WHISPER_MODEL,default=whisper-1"`

	// S3-compatible result storage.
	S3Endpoint string `env:"S3_ENDPOINT"`
	S3Region   string `env:"S3_REGION"`

	FallbackFraction   float64    `env:"FALLBACK_SCORE_FRACTION,default=0.5"`
	GradingConcurrency int        `env:"GRADING_CONCURRENCY,default=4"`
	VisionFrames       int        `env:"VISION_FRAMES,default=8"`
	LogLevel           slog.Level `env:"LOG_LEVEL,default=info"`
}

// loadConfig reads envFile, when present, into the process environment and
// then resolves the configuration through l. Variables already set win over
// the file.
func loadConfig(ctx context.Context, envFile string, l envconfig.Lookuper) (config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	if l == nil {
		l = envconfig.OsLookuper()
	}

	var cfg config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return config{}, fmt.Errorf("processing configuration: %w", err)
	}
	if cfg.GradingConcurrency < 1 {
		return config{}, fmt.Errorf("GRADING_CONCURRENCY must be at least 1, got %d", cfg.GradingConcurrency)
	}
	if cfg.VisionFrames < 1 {
		return config{}, fmt.Errorf("VISION_FRAMES must be at least 1, got %d", cfg.VisionFrames)
	}
	return cfg, nil
}
