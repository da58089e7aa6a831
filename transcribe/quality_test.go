/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package transcribe

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// logprob returns the avg_logprob that maps to a confidence percentage.
func logprob(pct float64) float64 { return math.Log(pct / 100) }

func TestAssess(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		want     Quality
	}{{
		name: "clean",
		segments: []Segment{
			{Start: 0, End: 4, AvgLogprob: logprob(90), CompressionRatio: 1.6, NoSpeechProb: 0.02},
			{Start: 4, End: 10, AvgLogprob: logprob(80), CompressionRatio: 1.8, NoSpeechProb: 0.04},
		},
		want: Quality{
			Rating:              RatingHigh,
			Warnings:            []string{},
			AvgConfidence:       85,
			SpeechPercentage:    97,
			AvgCompressionRatio: 1.7,
			Details: QualityDetails{
				Segments:         2,
				MinConfidence:    80,
				ConfidenceStdDev: 5,
				SpeechSeconds:    10,
			},
		},
	}, {
		name: "mumbled",
		segments: []Segment{
			{Start: 0, End: 5, AvgLogprob: logprob(50), CompressionRatio: 1.5, NoSpeechProb: 0.1},
		},
		want: Quality{
			Rating:              RatingMedium,
			Warnings:            []string{"Low transcription confidence (50.0%); the audio may be unclear or noisy"},
			AvgConfidence:       50,
			SpeechPercentage:    90,
			AvgCompressionRatio: 1.5,
			Details: QualityDetails{
				Segments:              1,
				MinConfidence:         50,
				LowConfidenceSegments: 1,
				SpeechSeconds:         5,
			},
		},
	}, {
		name: "silence and repetition",
		segments: []Segment{
			{Start: 0, End: 30, AvgLogprob: logprob(70), CompressionRatio: 3.0, NoSpeechProb: 0.8},
		},
		want: Quality{
			Rating: RatingLow,
			Warnings: []string{
				"Little speech detected (20.0%); much of the audio is silence or noise",
				"High compression ratio (3.00); the transcript may contain repeated or hallucinated text",
			},
			AvgConfidence:       70,
			SpeechPercentage:    20,
			AvgCompressionRatio: 3,
			Details: QualityDetails{
				Segments:      1,
				MinConfidence: 70,
			},
		},
	}, {
		name: "fragmented",
		segments: []Segment{
			{Start: 0, End: 2, AvgLogprob: logprob(75), CompressionRatio: 0.6, NoSpeechProb: 0.3},
		},
		want: Quality{
			Rating:              RatingMedium,
			Warnings:            []string{"Low compression ratio (0.60); the transcript may be fragmented"},
			AvgConfidence:       75,
			SpeechPercentage:    70,
			AvgCompressionRatio: 0.6,
			Details: QualityDetails{
				Segments:      1,
				MinConfidence: 75,
				SpeechSeconds: 2,
			},
		},
	}, {
		name: "no segments",
		want: Quality{
			Rating:   RatingLow,
			Warnings: []string{"No speech segments were detected in the audio"},
		},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Assess(tt.segments)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("Assess() (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEnglish(t *testing.T) {
	for lang, want := range map[string]bool{
		"english": true,
		"EN":      true,
		" en ":    true,
		"spanish": false,
		"de":      false,
		"":        false,
	} {
		if got := English(lang); got != want {
			t.Errorf("English(%q) = %v, want %v", lang, got, want)
		}
	}
}
