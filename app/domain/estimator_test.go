// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenkube/greenkube-agent/app/config"
	"github.com/greenkube/greenkube-agent/app/data"
	"github.com/greenkube/greenkube-agent/app/domain"
	"github.com/greenkube/greenkube-agent/app/types"
)

var testDefaults = config.Defaults{PUE: 1.5, IntensityGPerKW: 475, Zone: "FR"}

func testCatalog(t *testing.T) *data.Catalog {
	t.Helper()
	cat, err := data.Load()
	require.NoError(t, err)
	return cat
}

func TestEstimateKnownInstance(t *testing.T) {
	estimator := domain.NewBasicEstimator(testCatalog(t), testDefaults, 5*time.Minute)

	snapshot := &types.NodeSnapshot{
		NodeName:     "node-1",
		Zone:         "FR",
		InstanceType: "m5.large",
		Provider:     "aws",
	}
	sample := types.RawUsageSample{
		Pod:          "frontend-abc",
		Namespace:    "e-commerce",
		CPURateCores: 1.0,
		Timestamp:    time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC),
		NodeName:     "node-1",
	}

	metric := estimator.Estimate(sample, snapshot)

	// m5.large: 2 vcores, 3.23W idle, 36.30W max; 1 core is 50% utilization
	wantWatts := 3.23 + 0.5*(36.30-3.23)
	assert.InDelta(t, wantWatts*300, metric.Joules, 1e-9)
	assert.Equal(t, "FR", metric.Zone)
	assert.Equal(t, 1.15, metric.PUE)
	assert.False(t, metric.Provenance.Estimated)
	assert.Empty(t, metric.Provenance.Reasons)
}

func TestEstimateUtilizationIsCapped(t *testing.T) {
	estimator := domain.NewBasicEstimator(testCatalog(t), testDefaults, 5*time.Minute)

	snapshot := &types.NodeSnapshot{Zone: "FR", InstanceType: "m5.large", Provider: "aws"}
	sample := types.RawUsageSample{Pod: "p", Namespace: "ns", CPURateCores: 5.0}

	metric := estimator.Estimate(sample, snapshot)
	assert.InDelta(t, 36.30*300, metric.Joules, 1e-9)
}

func TestEstimateUnknownInstanceUsesDefaultProfile(t *testing.T) {
	estimator := domain.NewBasicEstimator(testCatalog(t), testDefaults, 5*time.Minute)

	snapshot := &types.NodeSnapshot{Zone: "FR", InstanceType: "quantum.metal-96xl", Provider: "aws"}
	sample := types.RawUsageSample{Pod: "p", Namespace: "ns", CPURateCores: 0.5}

	metric := estimator.Estimate(sample, snapshot)

	// default profile: 2 vcores, 2.0W idle, 12.0W max; 0.5 cores is 25%
	wantWatts := 2.0 + 0.25*(12.0-2.0)
	assert.InDelta(t, wantWatts*300, metric.Joules, 1e-9)
	assert.True(t, metric.Provenance.Estimated)
	assert.Contains(t, metric.Provenance.Reasons, types.ReasonDefaultProfile)
}

func TestEstimateNoNodeData(t *testing.T) {
	estimator := domain.NewBasicEstimator(testCatalog(t), testDefaults, 5*time.Minute)

	sample := types.RawUsageSample{Pod: "p", Namespace: "ns", CPURateCores: 0.5}
	metric := estimator.Estimate(sample, nil)

	assert.True(t, metric.Provenance.Estimated)
	assert.Contains(t, metric.Provenance.Reasons, types.ReasonNoNodeData)
	assert.Contains(t, metric.Provenance.Reasons, types.ReasonDefaultProfile)
	assert.Contains(t, metric.Provenance.Reasons, types.ReasonDefaultZone)
	assert.Contains(t, metric.Provenance.Reasons, types.ReasonDefaultPUE)
	assert.Equal(t, "FR", metric.Zone)
	assert.Equal(t, 1.5, metric.PUE)
}

func TestEstimateNoNodeDataWithLabeledInstanceType(t *testing.T) {
	estimator := domain.NewBasicEstimator(testCatalog(t), testDefaults, 5*time.Minute)

	sample := types.RawUsageSample{Pod: "p", Namespace: "ns", CPURateCores: 1.0, InstanceType: "m5.large"}
	metric := estimator.Estimate(sample, nil)

	// the labeled profile serves, but the result is still estimated
	wantWatts := 3.23 + 0.5*(36.30-3.23)
	assert.InDelta(t, wantWatts*300, metric.Joules, 1e-9)
	assert.Contains(t, metric.Provenance.Reasons, types.ReasonNoNodeData)
	assert.NotContains(t, metric.Provenance.Reasons, types.ReasonDefaultProfile)
}

func TestEstimateZoneResolution(t *testing.T) {
	estimator := domain.NewBasicEstimator(testCatalog(t), testDefaults, 5*time.Minute)

	tests := []struct {
		name        string
		snapshot    types.NodeSnapshot
		wantZone    string
		wantDefault bool
	}{
		{
			name:     "explicit zone wins",
			snapshot: types.NodeSnapshot{Zone: "DE", Region: "eu-west-3", InstanceType: "m5.large", Provider: "aws"},
			wantZone: "DE",
		},
		{
			name:     "region maps to zone",
			snapshot: types.NodeSnapshot{Region: "eu-west-3", InstanceType: "m5.large", Provider: "aws"},
			wantZone: "FR",
		},
		{
			name:        "unmappable region falls back",
			snapshot:    types.NodeSnapshot{Region: "mars-central-1", InstanceType: "m5.large", Provider: "aws"},
			wantZone:    "FR",
			wantDefault: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metric := estimator.Estimate(types.RawUsageSample{Pod: "p", Namespace: "ns", CPURateCores: 1}, &tt.snapshot)
			assert.Equal(t, tt.wantZone, metric.Zone)
			if tt.wantDefault {
				assert.Contains(t, metric.Provenance.Reasons, types.ReasonDefaultZone)
			} else {
				assert.NotContains(t, metric.Provenance.Reasons, types.ReasonDefaultZone)
			}
		})
	}
}

func TestEstimateUnknownProviderUsesDefaultPUE(t *testing.T) {
	estimator := domain.NewBasicEstimator(testCatalog(t), testDefaults, 5*time.Minute)

	snapshot := &types.NodeSnapshot{Zone: "FR", InstanceType: "m5.large", Provider: "colo-basement"}
	metric := estimator.Estimate(types.RawUsageSample{Pod: "p", Namespace: "ns", CPURateCores: 1}, snapshot)

	assert.Equal(t, 1.5, metric.PUE)
	assert.Contains(t, metric.Provenance.Reasons, types.ReasonDefaultPUE)
}
