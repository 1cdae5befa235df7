// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package data_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenkube/greenkube-agent/app/data"
)

func TestLoad(t *testing.T) {
	cat, err := data.Load()
	require.NoError(t, err)
	require.NotNil(t, cat)

	// repeated loads return the cached catalog
	again, err := data.Load()
	require.NoError(t, err)
	assert.Same(t, cat, again)
}

func TestProfileFor(t *testing.T) {
	cat, err := data.Load()
	require.NoError(t, err)

	p, ok := cat.ProfileFor("m5.large")
	require.True(t, ok)
	assert.Equal(t, 2.0, p.VCores)
	assert.Equal(t, 3.23, p.MinWatts)
	assert.Equal(t, 36.30, p.MaxWatts)

	_, ok = cat.ProfileFor("quantum.metal-96xl")
	assert.False(t, ok)

	def := cat.DefaultProfile()
	assert.Greater(t, def.VCores, 0.0)
	assert.Greater(t, def.MaxWatts, def.MinWatts)
}

func TestPUEFor(t *testing.T) {
	cat, err := data.Load()
	require.NoError(t, err)

	pue, ok := cat.PUEFor("gcp")
	require.True(t, ok)
	assert.Equal(t, 1.09, pue)

	_, ok = cat.PUEFor("onprem")
	assert.False(t, ok)
}

func TestZoneFor(t *testing.T) {
	cat, err := data.Load()
	require.NoError(t, err)

	tests := []struct {
		region string
		zone   string
	}{
		{"europe-west9", "FR"},
		{"eu-west-3", "FR"},
		{"eu-central-1", "DE"},
		{"westeurope", "NL"},
	}
	for _, tt := range tests {
		zone, ok := cat.ZoneFor(tt.region)
		require.True(t, ok, tt.region)
		assert.Equal(t, tt.zone, zone)
	}

	_, ok := cat.ZoneFor("mars-central-1")
	assert.False(t, ok)
}

func TestDefaultIntensityFor(t *testing.T) {
	cat, err := data.Load()
	require.NoError(t, err)

	v, ok := cat.DefaultIntensityFor("FR")
	require.True(t, ok)
	assert.Equal(t, 56.0, v)

	_, ok = cat.DefaultIntensityFor("ZZ")
	assert.False(t, ok)
}
