// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

// Package storagetest holds the conformance suite every storage backend must
// pass. The orchestrator assumes identical upsert-on-conflict and
// window-filtering semantics from all backends; these tests are that
// contract, run once per backend instead of leaking backend-specific logic
// into the pipeline.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenkube/greenkube-agent/app/types"
)

var baseTime = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

// RunMetricStoreSuite exercises the types.MetricStore contract.
func RunMetricStoreSuite(t *testing.T, newStore func(t *testing.T) types.MetricStore) {
	t.Helper()
	ctx := context.Background()

	metric := func(pod string, ts time.Time) types.CombinedMetric {
		return types.CombinedMetric{
			Pod:       pod,
			Namespace: "e-commerce",
			Timestamp: ts,
			Joules:    types.Float64(3.6e6),
			CO2eGrams: types.Float64(500),
			TotalCost: types.Float64(0.55),
		}
	}

	t.Run("upsert is idempotent", func(t *testing.T) {
		store := newStore(t)
		m := metric("frontend-abc", baseTime)

		require.NoError(t, store.Upsert(ctx, m))
		require.NoError(t, store.Upsert(ctx, m))

		rows, err := store.Query(ctx, types.MetricFilters{}, types.NewTimeWindow(baseTime.Add(-time.Hour), baseTime.Add(time.Hour)))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, 500.0, types.Deref(rows[0].CO2eGrams))
	})

	t.Run("conflict merges column-wise", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Upsert(ctx, metric("frontend-abc", baseTime)))

		// second run recomputed only the cost
		update := types.CombinedMetric{
			Pod:       "frontend-abc",
			Namespace: "e-commerce",
			Timestamp: baseTime,
			TotalCost: types.Float64(0.75),
		}
		require.NoError(t, store.Upsert(ctx, update))

		rows, err := store.Query(ctx, types.MetricFilters{}, types.NewTimeWindow(baseTime.Add(-time.Hour), baseTime.Add(time.Hour)))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, 0.75, types.Deref(rows[0].TotalCost), "supplied column updated")
		assert.Equal(t, 500.0, types.Deref(rows[0].CO2eGrams), "unsupplied column preserved")
		assert.Equal(t, 3.6e6, types.Deref(rows[0].Joules))
	})

	t.Run("conflict unions estimation reasons", func(t *testing.T) {
		store := newStore(t)
		first := metric("frontend-abc", baseTime)
		first.IsEstimated = true
		first.EstimationReasons = []string{types.ReasonDefaultPUE}
		require.NoError(t, store.Upsert(ctx, first))

		second := metric("frontend-abc", baseTime)
		second.IsEstimated = true
		second.EstimationReasons = []string{types.ReasonDefaultPUE, types.ReasonCostUnavailable}
		require.NoError(t, store.Upsert(ctx, second))

		rows, err := store.Query(ctx, types.MetricFilters{}, types.NewTimeWindow(baseTime.Add(-time.Hour), baseTime.Add(time.Hour)))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.True(t, rows[0].IsEstimated)
		assert.Equal(t, []string{types.ReasonDefaultPUE, types.ReasonCostUnavailable}, rows[0].EstimationReasons)
	})

	t.Run("equivalent zero-offset notations address the same row", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Upsert(ctx, metric("frontend-abc", baseTime)))

		offset := time.FixedZone("UTC+0", 0)
		same := types.CombinedMetric{
			Pod:       "frontend-abc",
			Namespace: "e-commerce",
			Timestamp: baseTime.In(offset),
			TotalCost: types.Float64(1.25),
		}
		require.NoError(t, store.Upsert(ctx, same))

		rows, err := store.Query(ctx, types.MetricFilters{}, types.NewTimeWindow(baseTime.Add(-time.Hour), baseTime.Add(time.Hour)))
		require.NoError(t, err)
		require.Len(t, rows, 1, "offset notation must not create a second row")
		assert.Equal(t, 1.25, types.Deref(rows[0].TotalCost))
	})

	t.Run("query window is half-open", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Upsert(ctx,
			metric("a", baseTime),
			metric("b", baseTime.Add(59*time.Minute)),
			metric("c", baseTime.Add(time.Hour)),
		))

		rows, err := store.Query(ctx, types.MetricFilters{}, types.NewTimeWindow(baseTime, baseTime.Add(time.Hour)))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "a", rows[0].Pod)
		assert.Equal(t, "b", rows[1].Pod)
	})

	t.Run("query filters by namespace and pod", func(t *testing.T) {
		store := newStore(t)
		other := metric("auth-service", baseTime)
		other.Namespace = "security"
		require.NoError(t, store.Upsert(ctx, metric("frontend-abc", baseTime), other))

		window := types.NewTimeWindow(baseTime.Add(-time.Hour), baseTime.Add(time.Hour))

		rows, err := store.Query(ctx, types.MetricFilters{Namespace: "security"}, window)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "auth-service", rows[0].Pod)

		rows, err = store.Query(ctx, types.MetricFilters{Namespace: "e-commerce", Pod: "frontend-abc"}, window)
		require.NoError(t, err)
		require.Len(t, rows, 1)
	})

	t.Run("summary aggregates the window", func(t *testing.T) {
		store := newStore(t)
		a := metric("a", baseTime)
		b := metric("b", baseTime.Add(time.Minute))
		b.Namespace = "security"
		b.IsEstimated = true
		b.EstimationReasons = []string{types.ReasonNoNodeData}
		require.NoError(t, store.Upsert(ctx, a, b))

		summary, err := store.Summary(ctx, types.MetricFilters{}, types.NewTimeWindow(baseTime, baseTime.Add(time.Hour)))
		require.NoError(t, err)
		assert.Equal(t, 2, summary.PodCount)
		assert.Equal(t, 2, summary.NamespaceCount)
		assert.Equal(t, 1, summary.EstimatedCount)
		assert.InDelta(t, 1000.0, summary.TotalCO2eGrams, 1e-9)
		assert.InDelta(t, 1.10, summary.TotalCost, 1e-9)
	})

	t.Run("timeseries buckets by granularity", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Upsert(ctx,
			metric("a", baseTime),
			metric("b", baseTime.Add(30*time.Minute)),
			metric("c", baseTime.Add(90*time.Minute)),
		))

		series, err := store.Timeseries(ctx, types.MetricFilters{},
			types.NewTimeWindow(baseTime, baseTime.Add(2*time.Hour)), types.GranularityHour)
		require.NoError(t, err)
		require.Len(t, series, 2)
		assert.Equal(t, baseTime, series[0].Bucket)
		assert.Equal(t, 2, series[0].PodCount)
		assert.Equal(t, baseTime.Add(time.Hour), series[1].Bucket)
		assert.Equal(t, 1, series[1].PodCount)
	})

	t.Run("namespaces lists distinct values", func(t *testing.T) {
		store := newStore(t)
		a := metric("a", baseTime)
		b := metric("b", baseTime)
		b.Namespace = "security"
		c := metric("c", baseTime.Add(time.Minute))
		require.NoError(t, store.Upsert(ctx, a, b, c))

		namespaces, err := store.Namespaces(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"e-commerce", "security"}, namespaces)
	})
}

// RunNodeStoreSuite exercises the types.NodeStore contract.
func RunNodeStoreSuite(t *testing.T, newStore func(t *testing.T) types.NodeStore) {
	t.Helper()
	ctx := context.Background()

	snapshot := func(node string, capturedAt time.Time, instanceType string) types.NodeSnapshot {
		return types.NodeSnapshot{
			NodeName:         node,
			CapturedAt:       capturedAt,
			Zone:             "FR",
			Region:           "eu-west-3",
			InstanceType:     instanceType,
			CPUCapacityCores: 2,
			Provider:         "aws",
		}
	}

	t.Run("as-of selects greatest captured_at at or before ts", func(t *testing.T) {
		store := newStore(t)
		t0 := baseTime
		t10 := baseTime.Add(10 * time.Minute)
		_, err := store.Save(ctx, snapshot("node-x", t0, "m5.large"), snapshot("node-x", t10, "m5.xlarge"))
		require.NoError(t, err)

		got, err := store.AsOf(ctx, "node-x", t0.Add(5*time.Minute))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "m5.large", got.InstanceType)

		got, err = store.AsOf(ctx, "node-x", t0.Add(15*time.Minute))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "m5.xlarge", got.InstanceType)

		// boundary is inclusive
		got, err = store.AsOf(ctx, "node-x", t10)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "m5.xlarge", got.InstanceType)

		got, err = store.AsOf(ctx, "node-x", t0.Add(-time.Second))
		require.NoError(t, err)
		assert.Nil(t, got, "no snapshot exists before the first capture")
	})

	t.Run("save ignores duplicate captures", func(t *testing.T) {
		store := newStore(t)
		s := snapshot("node-x", baseTime, "m5.large")

		n, err := store.Save(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = store.Save(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, 0, n, "identical (node, captured_at) is ignored")
	})

	t.Run("current returns the newest snapshot", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Save(ctx,
			snapshot("node-x", baseTime, "m5.large"),
			snapshot("node-x", baseTime.Add(time.Hour), "m5.xlarge"),
		)
		require.NoError(t, err)

		got, err := store.Current(ctx, "node-x")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "m5.xlarge", got.InstanceType)

		got, err = store.Current(ctx, "node-unknown")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("inventory returns the newest snapshot per node", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Save(ctx,
			snapshot("node-a", baseTime, "m5.large"),
			snapshot("node-a", baseTime.Add(time.Hour), "m5.xlarge"),
			snapshot("node-b", baseTime, "t3.medium"),
		)
		require.NoError(t, err)

		inventory, err := store.Inventory(ctx)
		require.NoError(t, err)
		require.Len(t, inventory, 2)

		byName := make(map[string]types.NodeSnapshot)
		for _, s := range inventory {
			byName[s.NodeName] = s
		}
		assert.Equal(t, "m5.xlarge", byName["node-a"].InstanceType)
		assert.Equal(t, "t3.medium", byName["node-b"].InstanceType)
	})
}

// RunIntensityStoreSuite exercises the types.IntensityStore contract.
func RunIntensityStoreSuite(t *testing.T, newStore func(t *testing.T) types.IntensityStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("get returns nil on miss", func(t *testing.T) {
		store := newStore(t)
		got, err := store.Get(ctx, "FR", baseTime)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("first write for a bucket is authoritative", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Put(ctx, types.CarbonIntensityRecord{
			Zone: "FR", TimeBucket: baseTime, GCO2ePerKWh: 56, Source: types.IntensitySourceProvider,
		}))
		require.NoError(t, store.Put(ctx, types.CarbonIntensityRecord{
			Zone: "FR", TimeBucket: baseTime, GCO2ePerKWh: 999, Source: types.IntensitySourceProvider,
		}))

		got, err := store.Get(ctx, "FR", baseTime)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 56.0, got.GCO2ePerKWh)
	})

	t.Run("zones are independent keys", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Put(ctx, types.CarbonIntensityRecord{Zone: "FR", TimeBucket: baseTime, GCO2ePerKWh: 56}))
		require.NoError(t, store.Put(ctx, types.CarbonIntensityRecord{Zone: "DE", TimeBucket: baseTime, GCO2ePerKWh: 380}))

		fr, err := store.Get(ctx, "FR", baseTime)
		require.NoError(t, err)
		de, err := store.Get(ctx, "DE", baseTime)
		require.NoError(t, err)
		assert.Equal(t, 56.0, fr.GCO2ePerKWh)
		assert.Equal(t, 380.0, de.GCO2ePerKWh)
	})

	t.Run("equivalent zero-offset notations resolve to the same record", func(t *testing.T) {
		store := newStore(t)
		offset := time.FixedZone("UTC+0", 0)
		require.NoError(t, store.Put(ctx, types.CarbonIntensityRecord{Zone: "FR", TimeBucket: baseTime.In(offset), GCO2ePerKWh: 56}))

		got, err := store.Get(ctx, "FR", baseTime)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 56.0, got.GCO2ePerKWh)
	})
}
