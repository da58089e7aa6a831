/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package transcribe

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// Ratings of transcription quality.
const (
	RatingHigh   = "high"
	RatingMedium = "medium"
	RatingLow    = "low"
)

// Limits outside which a transcript is flagged.
const (
	MinConfidence       = 60.0
	MinSpeechPercentage = 50.0
	MaxCompressionRatio = 2.4
	MinCompressionRatio = 1.0
)

// Quality summarizes how trustworthy a transcript is.
type Quality struct {
	Rating              string         `json:"rating"`
	Warnings            []string       `json:"warnings"`
	AvgConfidence       float64        `json:"avg_confidence"`
	SpeechPercentage    float64        `json:"speech_percentage"`
	AvgCompressionRatio float64        `json:"avg_compression_ratio"`
	Details             QualityDetails `json:"details"`
}

// QualityDetails are per-segment statistics behind the summary figures.
type QualityDetails struct {
	Segments              int     `json:"segments"`
	MinConfidence         float64 `json:"min_confidence"`
	ConfidenceStdDev      float64 `json:"confidence_stddev"`
	LowConfidenceSegments int     `json:"low_confidence_segments"`
	SpeechSeconds         float64 `json:"speech_seconds"`
}

// Assess computes quality metrics from Whisper segments. Confidence is the
// mean of exp(avg_logprob) and speech is the mean of 1-no_speech_prob, both as
// percentages. Warnings never block an evaluation.
func Assess(segments []Segment) Quality {
	q := Quality{Warnings: []string{}}
	if len(segments) == 0 {
		q.Rating = RatingLow
		q.Warnings = append(q.Warnings, "No speech segments were detected in the audio")
		return q
	}

	confidence := make(stats.Float64Data, 0, len(segments))
	speech := make(stats.Float64Data, 0, len(segments))
	compression := make(stats.Float64Data, 0, len(segments))
	for _, s := range segments {
		c := math.Exp(s.AvgLogprob) * 100
		confidence = append(confidence, c)
		speech = append(speech, (1-s.NoSpeechProb)*100)
		compression = append(compression, s.CompressionRatio)
		if c < MinConfidence {
			q.Details.LowConfidenceSegments++
		}
		if s.NoSpeechProb < 0.5 && s.End > s.Start {
			q.Details.SpeechSeconds += s.End - s.Start
		}
	}

	q.AvgConfidence = mean(confidence)
	q.SpeechPercentage = mean(speech)
	q.AvgCompressionRatio = mean(compression)
	q.Details.Segments = len(segments)
	q.Details.MinConfidence, _ = confidence.Min()
	q.Details.ConfidenceStdDev, _ = confidence.StandardDeviation()

	if q.AvgConfidence < MinConfidence {
		q.Warnings = append(q.Warnings, fmt.Sprintf("Low transcription confidence (%.1f%%); the audio may be unclear or noisy", q.AvgConfidence))
	}
	if q.SpeechPercentage < MinSpeechPercentage {
		q.Warnings = append(q.Warnings, fmt.Sprintf("Little speech detected (%.1f%%); much of the audio is silence or noise", q.SpeechPercentage))
	}
	switch {
	case q.AvgCompressionRatio > MaxCompressionRatio:
		q.Warnings = append(q.Warnings, fmt.Sprintf("High compression ratio (%.2f); the transcript may contain repeated or hallucinated text", q.AvgCompressionRatio))
	case q.AvgCompressionRatio < MinCompressionRatio:
		q.Warnings = append(q.Warnings, fmt.Sprintf("Low compression ratio (%.2f); the transcript may be fragmented", q.AvgCompressionRatio))
	}

	switch len(q.Warnings) {
	case 0:
		q.Rating = RatingHigh
	case 1:
		q.Rating = RatingMedium
	default:
		q.Rating = RatingLow
	}
	return q
}

func mean(d stats.Float64Data) float64 {
	m, err := d.Mean()
	if err != nil {
		return 0
	}
	return m
}
