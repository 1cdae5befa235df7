// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package sources_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenkube/greenkube-agent/app/sources"
	"github.com/greenkube/greenkube-agent/app/types"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestUsageCollectorReadsAndFilters(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, sources.UsageFile, `[
		{"pod": "frontend-abc", "namespace": "web", "cpu_rate_cores": 0.5, "timestamp": "2025-03-14T12:00:00Z", "node_name": "node-1"},
		{"pod": "old-pod", "namespace": "web", "cpu_rate_cores": 0.1, "timestamp": "2025-03-13T12:00:00+00:00", "node_name": "node-1"}
	]`)
	writeFile(t, dir, sources.NodesFile, `[]`)
	writeFile(t, dir, sources.CostsFile, `[]`)
	writeFile(t, dir, sources.RequestsFile, `[]`)

	bundle, err := sources.NewFactory(dir)(context.Background())
	require.NoError(t, err)
	defer func() { _ = bundle.Usage.Close() }()

	window := types.NewTimeWindow(
		time.Date(2025, 3, 14, 11, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 14, 13, 0, 0, 0, time.UTC),
	)
	samples, err := bundle.Usage.Fetch(context.Background(), window)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "frontend-abc", samples[0].Pod)
	assert.Equal(t, 0.5, samples[0].CPURateCores)
	assert.Equal(t, "node-1", samples[0].NodeName)
}

func TestMissingFileIsASourceError(t *testing.T) {
	bundle, err := sources.NewFactory(t.TempDir())(context.Background())
	require.NoError(t, err)

	_, err = bundle.Usage.Fetch(context.Background(), types.TimeWindow{})
	assert.Error(t, err)
}

func TestFactoryRequiresDirectory(t *testing.T) {
	_, err := sources.NewFactory("")(context.Background())
	assert.Error(t, err)
}

func TestFileIntensityProvider(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, sources.IntensityFile, `[
		{"zone": "FR", "time_bucket": "2025-03-14T10:00:00Z", "gco2e_per_kwh": 52},
		{"zone": "FR", "time_bucket": "2025-03-14T12:00:00Z", "gco2e_per_kwh": 56},
		{"zone": "DE", "time_bucket": "2025-03-14T12:00:00Z", "gco2e_per_kwh": 380}
	]`)

	provider := sources.NewFileIntensityProvider(dir)
	ctx := context.Background()

	// the newest record at or before the requested instant serves
	record, err := provider.FetchIntensity(ctx, "FR", time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 56.0, record.GCO2ePerKWh)

	record, err = provider.FetchIntensity(ctx, "FR", time.Date(2025, 3, 14, 11, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 52.0, record.GCO2ePerKWh)

	_, err = provider.FetchIntensity(ctx, "GB", time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC))
	assert.Error(t, err, "zones without records miss")

	_, err = provider.FetchIntensity(ctx, "FR", time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
	assert.Error(t, err, "instants before the first record miss")
}
