// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package types_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/greenkube/greenkube-agent/app/types"
)

func TestCombinedMetric_Merge(t *testing.T) {
	ts := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	stored := types.CombinedMetric{
		Pod:               "frontend-abc",
		Namespace:         "e-commerce",
		Timestamp:         ts,
		Joules:            types.Float64(3.6e6),
		CO2eGrams:         types.Float64(500),
		TotalCost:         types.Float64(0.55),
		IsEstimated:       true,
		EstimationReasons: []string{types.ReasonDefaultPUE},
	}

	incoming := types.CombinedMetric{
		Pod:               "frontend-abc",
		Namespace:         "e-commerce",
		Timestamp:         ts,
		TotalCost:         types.Float64(0.75),
		EstimationReasons: []string{types.ReasonDefaultPUE, types.ReasonCostUnavailable},
	}

	stored.Merge(&incoming)

	// only the supplied column changed
	assert.Equal(t, 0.75, types.Deref(stored.TotalCost))
	assert.Equal(t, 500.0, types.Deref(stored.CO2eGrams))
	assert.Equal(t, 3.6e6, types.Deref(stored.Joules))

	// reasons are unioned, order-stable, no duplicates
	assert.Equal(t, []string{types.ReasonDefaultPUE, types.ReasonCostUnavailable}, stored.EstimationReasons)
	assert.True(t, stored.IsEstimated)
}

func TestCombinedMetric_KeyNormalizesTimestamp(t *testing.T) {
	offset := time.FixedZone("UTC+0", 0)
	a := types.CombinedMetric{Pod: "p", Namespace: "n", Timestamp: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
	b := types.CombinedMetric{Pod: "p", Namespace: "n", Timestamp: time.Date(2025, 3, 14, 12, 0, 0, 0, offset)}

	assert.Equal(t, a.Key(), b.Key())
}
