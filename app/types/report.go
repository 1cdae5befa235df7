// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"

	"github.com/go-obvious/timestamp"
)

// Report is the exportable outcome of one processing run: the combined
// metrics produced for the window plus the findings derived from them.
type Report struct {
	ClusterName string `json:"cluster_name"`
	// GeneratedAt is in unix milliseconds.
	GeneratedAt int64      `json:"generated_at"`
	Window      TimeWindow `json:"window"`

	Metrics         []CombinedMetric `json:"metrics"`
	Recommendations []Recommendation `json:"recommendations"`
}

// NewReport stamps a report for the given run output.
func NewReport(cluster string, window TimeWindow, metrics []CombinedMetric, recommendations []Recommendation) *Report {
	return &Report{
		ClusterName:     cluster,
		GeneratedAt:     timestamp.Milli(),
		Window:          window,
		Metrics:         metrics,
		Recommendations: recommendations,
	}
}

// ReportSink receives the report of a completed run. Sink failures degrade
// the run rather than abort it; the metrics are already persisted by the
// time a sink sees them.
type ReportSink interface {
	Write(ctx context.Context, report *Report) error
}
