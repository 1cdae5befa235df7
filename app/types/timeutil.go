// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"strings"
	"time"
)

// Granularity controls how a timestamp is floored into a time bucket for
// intensity caching and grouping.
type Granularity string

const (
	GranularityHour Granularity = "hour"
	GranularityDay  Granularity = "day"
	GranularityNone Granularity = "none"
)

// ParseGranularity validates a granularity setting. Unknown values are a
// startup failure, never a mid-run one.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case GranularityHour:
		return GranularityHour, nil
	case GranularityDay:
		return GranularityDay, nil
	case GranularityNone, "":
		return GranularityNone, nil
	}
	return "", fmt.Errorf("%w: unknown normalization granularity %q", ErrConfigurationInvalid, s)
}

// Bucket floors ts into the bucket for this granularity. The result is always
// UTC so that equivalent instants written with different zero-offset
// notations resolve to the same bucket.
func (g Granularity) Bucket(ts time.Time) time.Time {
	ts = NormalizeTimestamp(ts)
	switch g {
	case GranularityHour:
		return ts.Truncate(time.Hour)
	case GranularityDay:
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return ts
	}
}

// NormalizeTimestamp converts ts to the canonical representation used
// throughout the pipeline: UTC, truncated to whole seconds. Callers may hand
// us instants carrying a "+00:00" style fixed offset or a local zone; after
// normalization equal instants compare equal and format identically.
func NormalizeTimestamp(ts time.Time) time.Time {
	return ts.UTC().Truncate(time.Second)
}

// ParseTimestamp parses an RFC 3339 timestamp, accepting both the "Z" suffix
// and an explicit numeric zero offset, and normalizes the result.
func ParseTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return NormalizeTimestamp(ts), nil
}

// FormatTimestamp renders the canonical wire form, always with the "Z"
// suffix.
func FormatTimestamp(ts time.Time) string {
	return NormalizeTimestamp(ts).Format(time.RFC3339)
}

// TimeWindow is a half-open interval [Start, End) over which a processing
// run operates.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeWindow normalizes both endpoints.
func NewTimeWindow(start, end time.Time) TimeWindow {
	return TimeWindow{Start: NormalizeTimestamp(start), End: NormalizeTimestamp(end)}
}

// Contains reports whether ts falls inside the window.
func (w TimeWindow) Contains(ts time.Time) bool {
	ts = NormalizeTimestamp(ts)
	return !ts.Before(w.Start) && ts.Before(w.End)
}

// Duration returns the window length.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}
