/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demoreview_evaluations_total",
			Help: "Evaluation runs by outcome (pass, revise, fail or error)",
		},
		[]string{"outcome"},
	)

	fallbackCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "demoreview_fallback_criteria_total",
			Help: "Criteria scored by the fallback policy instead of the grader",
		},
	)

	stageSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "demoreview_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)
)
