// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

// Package sources provides the file-backed collector set. The live cluster
// clients (Prometheus, the Kubernetes API, OpenCost, the grid provider) are
// wired in by the deployment that embeds this engine; the file sources read
// the same shapes from JSON dumps, which is what dev runs and historical
// backfills use.
package sources

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/greenkube/greenkube-agent/app/domain"
	"github.com/greenkube/greenkube-agent/app/types"
)

// File names looked up inside the sources directory.
const (
	UsageFile     = "usage.json"
	NodesFile     = "nodes.json"
	CostsFile     = "costs.json"
	RequestsFile  = "requests.json"
	IntensityFile = "intensity.json"
)

// fileCollector reads one JSON array per fetch. Missing or malformed files
// surface as source errors; the orchestrator decides whether that aborts or
// degrades the run.
type fileCollector[T any] struct {
	path   string
	filter func(T, types.TimeWindow) bool
}

func (f *fileCollector[T]) Fetch(ctx context.Context, window types.TimeWindow) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", f.path)
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", f.path)
	}

	if f.filter == nil {
		return items, nil
	}
	kept := items[:0]
	for _, item := range items {
		if f.filter(item, window) {
			kept = append(kept, item)
		}
	}
	return kept, nil
}

func (f *fileCollector[T]) Close() error {
	return nil
}

// NewFactory returns a collector factory serving JSON dumps from dir.
func NewFactory(dir string) domain.CollectorFactory {
	return func(_ context.Context) (*domain.Collectors, error) {
		if dir == "" {
			return nil, errors.New("sources directory is not configured")
		}
		return &domain.Collectors{
			Usage: &fileCollector[types.RawUsageSample]{
				path: filepath.Join(dir, UsageFile),
				filter: func(s types.RawUsageSample, w types.TimeWindow) bool {
					return w.Contains(s.Timestamp)
				},
			},
			Nodes:    &fileCollector[types.NodeSnapshot]{path: filepath.Join(dir, NodesFile)},
			Costs:    &fileCollector[types.CostSample]{path: filepath.Join(dir, CostsFile)},
			Requests: &fileCollector[types.RequestSample]{path: filepath.Join(dir, RequestsFile)},
		}, nil
	}
}

// FileIntensityProvider serves grid intensity from a JSON dump. A lookup
// misses when no record covers the requested zone and bucket; the calculator
// then falls back to its defaults.
type FileIntensityProvider struct {
	path string
}

func NewFileIntensityProvider(dir string) *FileIntensityProvider {
	return &FileIntensityProvider{path: filepath.Join(dir, IntensityFile)}
}

var _ types.GridIntensityProvider = (*FileIntensityProvider)(nil)

func (p *FileIntensityProvider) FetchIntensity(ctx context.Context, zone string, at time.Time) (*types.CarbonIntensityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(p.path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", p.path)
	}

	var records []types.CarbonIntensityRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", p.path)
	}

	at = types.NormalizeTimestamp(at)
	var best *types.CarbonIntensityRecord
	for i := range records {
		r := &records[i]
		if r.Zone != zone || types.NormalizeTimestamp(r.TimeBucket).After(at) {
			continue
		}
		if best == nil || r.TimeBucket.After(best.TimeBucket) {
			best = r
		}
	}
	if best == nil {
		return nil, errors.Errorf("no intensity record for zone %s at %s", zone, types.FormatTimestamp(at))
	}
	return &types.CarbonIntensityRecord{
		Zone:        zone,
		TimeBucket:  at,
		GCO2ePerKWh: best.GCO2ePerKWh,
		Source:      types.IntensitySourceProvider,
	}, nil
}
