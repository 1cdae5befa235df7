// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenkube/greenkube-agent/app/config"
	"github.com/greenkube/greenkube-agent/app/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewSettings_Defaults(t *testing.T) {
	path := writeConfig(t, `
cluster_name: test-cluster
`)
	cfg, err := config.NewSettings(path)
	require.NoError(t, err)

	assert.Equal(t, "test-cluster", cfg.ClusterName)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, types.GranularityHour, cfg.NormalizationGranularity())
	assert.Equal(t, 1.5, cfg.Defaults.PUE)
	assert.Equal(t, 475.0, cfg.Defaults.IntensityGPerKW)
	assert.Equal(t, 0.05, cfg.Recommender.LowUtilization)
	assert.Equal(t, "./sources", cfg.Sources.Dir)
	assert.Empty(t, cfg.Export.Formats, "exporting stays off until a directory is configured")
}

func TestNewSettings_ExportFormatsDefaultWhenEnabled(t *testing.T) {
	path := writeConfig(t, `
cluster_name: test-cluster
export:
  dir: /tmp/reports
`)
	cfg, err := config.NewSettings(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"json"}, cfg.Export.Formats)
}

func TestNewSettings_MissingFile(t *testing.T) {
	_, err := config.NewSettings("/does/not/exist.yaml")
	require.Error(t, err)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "valid postgres",
			yaml: `
cluster_name: c
database:
  driver: postgres
  dsn: host=localhost user=greenkube dbname=greenkube
`,
		},
		{
			name: "memory driver needs no dsn",
			yaml: `
cluster_name: c
database:
  driver: memory
  dsn: ""
`,
		},
		{
			name: "unknown driver",
			yaml: `
cluster_name: c
database:
  driver: mongodb
`,
			wantErr: true,
		},
		{
			name: "unknown granularity fails at startup",
			yaml: `
cluster_name: c
processing:
  normalization_granularity: fortnight
`,
			wantErr: true,
		},
		{
			name: "missing cluster name",
			yaml: `
logging:
  level: debug
`,
			wantErr: true,
		},
		{
			name: "PUE below one",
			yaml: `
cluster_name: c
defaults:
  pue: 0.8
`,
			wantErr: true,
		},
		{
			name: "rightsizing ratio out of range",
			yaml: `
cluster_name: c
recommender:
  rightsizing_ratio: 1.5
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.NewSettings(writeConfig(t, tt.yaml))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, types.ErrConfigurationInvalid)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
