// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package types_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenkube/greenkube-agent/app/types"
)

func TestParseGranularity(t *testing.T) {
	for _, valid := range []string{"hour", "day", "none", "", " Hour "} {
		_, err := types.ParseGranularity(valid)
		assert.NoError(t, err, valid)
	}

	_, err := types.ParseGranularity("fortnight")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfigurationInvalid)
}

func TestGranularity_Bucket(t *testing.T) {
	base := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		g    types.Granularity
		ts   time.Time
		want time.Time
	}{
		{"hour floors start of hour", types.GranularityHour, base, base},
		{"hour floors end of hour", types.GranularityHour, base.Add(59*time.Minute + 59*time.Second), base},
		{"next hour is a different bucket", types.GranularityHour, base.Add(time.Hour), base.Add(time.Hour)},
		{"day floors to midnight UTC", types.GranularityDay, base.Add(7 * time.Hour), time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"none passes through", types.GranularityNone, base.Add(83 * time.Second), base.Add(83 * time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.g.Bucket(tt.ts))
		})
	}
}

func TestGranularity_BucketNormalizesOffsets(t *testing.T) {
	// The same instant written with a "Z" suffix and with an explicit
	// "+00:00" offset must land in the same bucket.
	zulu, err := types.ParseTimestamp("2025-03-14T12:30:00Z")
	require.NoError(t, err)
	offset, err := types.ParseTimestamp("2025-03-14T12:30:00+00:00")
	require.NoError(t, err)

	assert.True(t, zulu.Equal(offset))
	assert.Equal(t, types.GranularityHour.Bucket(zulu), types.GranularityHour.Bucket(offset))
	assert.Equal(t, "2025-03-14T12:30:00Z", types.FormatTimestamp(offset))
}

func TestTimeWindow_Contains(t *testing.T) {
	start := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	w := types.NewTimeWindow(start, start.Add(24*time.Hour))

	assert.True(t, w.Contains(start))
	assert.True(t, w.Contains(start.Add(23*time.Hour)))
	assert.False(t, w.Contains(start.Add(24*time.Hour)), "window end is exclusive")
	assert.False(t, w.Contains(start.Add(-time.Second)))
}
