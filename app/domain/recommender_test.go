// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenkube/greenkube-agent/app/config"
	"github.com/greenkube/greenkube-agent/app/domain"
	"github.com/greenkube/greenkube-agent/app/types"
)

var recommenderCfg = config.Recommender{
	LowUtilization:     0.05,
	RightsizingRatio:   0.2,
	SafetyMargin:       1.3,
	MinPodAge:          time.Hour,
	CostNoiseFloor:     0.01,
	CO2eNoiseFloor:     1.0,
	MinCPUMillicores:   10,
	MinMemoryBytes:     16 * 1024 * 1024,
	IdleNamespaceRatio: 0.05,
}

var windowStart = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

// podSeries builds hourly metrics across a 24h window with constant CPU
// usage against a fixed request.
func podSeries(pod, namespace string, usageMillicores, requestMillicores float64, costPerSample float64) []types.CombinedMetric {
	metrics := make([]types.CombinedMetric, 0, 24)
	for h := 0; h < 24; h++ {
		metrics = append(metrics, types.CombinedMetric{
			Pod:                  pod,
			Namespace:            namespace,
			Timestamp:            windowStart.Add(time.Duration(h) * time.Hour),
			CPUUsageMillicores:   types.Float64(usageMillicores),
			CPURequestMillicores: types.Float64(requestMillicores),
			TotalCost:            types.Float64(costPerSample),
			CO2eGrams:            types.Float64(2.0),
		})
	}
	return metrics
}

func analyze(metrics []types.CombinedMetric) []types.Recommendation {
	r := domain.NewRecommender(recommenderCfg)
	return r.Analyze(metrics, types.NewTimeWindow(windowStart, windowStart.Add(24*time.Hour)))
}

func TestZombiePod(t *testing.T) {
	// 2% of a 500m request sustained over 24h with nonzero cost
	findings := analyze(podSeries("batch-leftover", "jobs", 10, 500, 0.05))

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, types.RecommendationZombiePod, f.Type)
	assert.Equal(t, "batch-leftover", f.Pod)
	assert.InDelta(t, 24*0.05, f.PotentialSavingsCost, 1e-9)
	assert.InDelta(t, 24*2.0, f.PotentialSavingsCO2eGrams, 1e-9)
}

func TestWellUtilizedPodProducesNothing(t *testing.T) {
	findings := analyze(podSeries("frontend", "web", 350, 500, 0.05))
	assert.Empty(t, findings)
}

func TestCPURightsizing(t *testing.T) {
	// 15% utilization: above the zombie threshold, below the rightsizing one
	findings := analyze(podSeries("api", "web", 75, 500, 0.10))

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, types.RecommendationCPURightsizing, f.Type)
	assert.Equal(t, 500.0, f.CurrentCPURequestMillicores)
	assert.InDelta(t, 75*1.3, f.RecommendedCPURequestMillicores, 1e-9)
}

func TestRightsizingRecommendationNeverBelowFloor(t *testing.T) {
	// tiny but above-zombie utilization with heavy accumulated cost filtered
	// out by the noise floor path: usage 6% of 100m
	findings := analyze(podSeries("sidecar", "web", 6, 100, 0.0))

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, types.RecommendationCPURightsizing, f.Type)
	assert.Equal(t, 10.0, f.RecommendedCPURequestMillicores)
}

func TestSingleSpikeDefeatsRightsizing(t *testing.T) {
	metrics := podSeries("api", "web", 75, 500, 0.10)
	// one sample at 60% of the request breaks "sustained across the window"
	metrics[12].CPUUsageMillicores = types.Float64(300)

	findings := analyze(metrics)
	assert.Empty(t, findings)
}

func TestYoungPodIsSkipped(t *testing.T) {
	metrics := podSeries("newcomer", "web", 10, 500, 0.05)[:1]
	findings := analyze(metrics)
	assert.Empty(t, findings)
}

func TestEstimatedPodsAreSkipped(t *testing.T) {
	metrics := podSeries("ghost", "web", 10, 500, 0.05)
	metrics[3].IsEstimated = true
	metrics[3].EstimationReasons = []string{types.ReasonNoNodeData}

	findings := analyze(metrics)
	assert.Empty(t, findings)
}

func TestEstimatedForOtherReasonsStillAnalyzed(t *testing.T) {
	metrics := podSeries("batch-leftover", "jobs", 10, 500, 0.05)
	for i := range metrics {
		metrics[i].IsEstimated = true
		metrics[i].EstimationReasons = []string{types.ReasonDefaultPUE}
	}

	findings := analyze(metrics)
	require.Len(t, findings, 1)
	assert.Equal(t, types.RecommendationZombiePod, findings[0].Type)
}

func TestMemoryRightsizing(t *testing.T) {
	peak := int64(64 * 1024 * 1024)
	metrics := podSeries("api", "web", 350, 500, 0.10)
	for i := range metrics {
		metrics[i].MemoryUsageBytes = types.Int64(peak)
		metrics[i].MemoryRequestBytes = types.Int64(2 * 1024 * 1024 * 1024)
	}

	findings := analyze(metrics)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, types.RecommendationMemoryRightsizing, f.Type)
	assert.Equal(t, int64(2*1024*1024*1024), f.CurrentMemoryRequestBytes)
	assert.Equal(t, int64(float64(peak)*1.3), f.RecommendedMemoryRequestBytes)
}

func TestIdleNamespace(t *testing.T) {
	metrics := append(
		podSeries("worker-1", "abandoned", 5, 500, 0.02),
		podSeries("worker-2", "abandoned", 5, 500, 0.02)...,
	)

	findings := analyze(metrics)

	var idle []types.Recommendation
	for _, f := range findings {
		if f.Type == types.RecommendationIdleNamespace {
			idle = append(idle, f)
		}
	}
	require.Len(t, idle, 1)
	assert.Equal(t, "abandoned", idle[0].Namespace)
	assert.Empty(t, idle[0].Pod)
}

func TestFindingsAreOrdered(t *testing.T) {
	metrics := append(
		podSeries("zeta", "b-team", 10, 500, 0.05),
		podSeries("alpha", "a-team", 10, 500, 0.05)...,
	)

	findings := analyze(metrics)
	require.Len(t, findings, 2)
	assert.Equal(t, "a-team", findings[0].Namespace)
	assert.Equal(t, "b-team", findings[1].Namespace)
}
