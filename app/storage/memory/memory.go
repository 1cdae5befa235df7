// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

// Package memory provides the in-memory storage backend. It backs tests and
// single-process development runs, and emulates upsert-on-conflict through a
// read-modify-write under the store lock so its observable semantics match
// the SQL backends.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/greenkube/greenkube-agent/app/storage/core"
	"github.com/greenkube/greenkube-agent/app/types"
)

// MetricStore is the in-memory types.MetricStore.
type MetricStore struct {
	mu    sync.RWMutex
	rows  map[types.MetricKey]*types.CombinedMetric
	clock types.TimeProvider
}

var _ types.MetricStore = (*MetricStore)(nil)

func NewMetricStore(clock types.TimeProvider) *MetricStore {
	return &MetricStore{
		rows:  make(map[types.MetricKey]*types.CombinedMetric),
		clock: clock,
	}
}

func (s *MetricStore) Upsert(_ context.Context, metrics ...types.CombinedMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range metrics {
		incoming := metrics[i]
		incoming.Timestamp = types.NormalizeTimestamp(incoming.Timestamp)
		key := incoming.Key()

		if existing, ok := s.rows[key]; ok {
			existing.Merge(&incoming)
			existing.RecordUpdated = s.clock.GetCurrentTime()
			continue
		}

		row := incoming
		row.ID = core.NewID()
		now := s.clock.GetCurrentTime()
		row.RecordCreated, row.RecordUpdated = now, now
		var prov types.Provenance
		prov.MergeReasons(row.EstimationReasons)
		row.EstimationReasons = prov.Reasons
		row.IsEstimated = prov.Estimated
		s.rows[key] = &row
	}
	return nil
}

func (s *MetricStore) Query(_ context.Context, filters types.MetricFilters, window types.TimeWindow) ([]types.CombinedMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var metrics []types.CombinedMetric
	for _, row := range s.rows {
		if !window.Contains(row.Timestamp) {
			continue
		}
		if filters.Namespace != "" && row.Namespace != filters.Namespace {
			continue
		}
		if filters.Pod != "" && row.Pod != filters.Pod {
			continue
		}
		metrics = append(metrics, *row)
	}

	sort.Slice(metrics, func(i, j int) bool {
		if !metrics[i].Timestamp.Equal(metrics[j].Timestamp) {
			return metrics[i].Timestamp.Before(metrics[j].Timestamp)
		}
		if metrics[i].Namespace != metrics[j].Namespace {
			return metrics[i].Namespace < metrics[j].Namespace
		}
		return metrics[i].Pod < metrics[j].Pod
	})
	return metrics, nil
}

func (s *MetricStore) Summary(ctx context.Context, filters types.MetricFilters, window types.TimeWindow) (*types.Summary, error) {
	metrics, err := s.Query(ctx, filters, window)
	if err != nil {
		return nil, err
	}
	return types.Summarize(metrics), nil
}

func (s *MetricStore) Timeseries(ctx context.Context, filters types.MetricFilters, window types.TimeWindow, granularity types.Granularity) ([]types.TimeseriesPoint, error) {
	metrics, err := s.Query(ctx, filters, window)
	if err != nil {
		return nil, err
	}
	return types.BucketSeries(metrics, granularity), nil
}

func (s *MetricStore) Namespaces(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, row := range s.rows {
		seen[row.Namespace] = struct{}{}
	}
	namespaces := make([]string, 0, len(seen))
	for ns := range seen {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	return namespaces, nil
}

// NodeStore is the in-memory types.NodeStore. Snapshots carry an insertion
// sequence so that captured_at ties resolve to the most recently inserted
// row, matching the SQL backends' autoincrement ordering.
type NodeStore struct {
	mu    sync.RWMutex
	rows  []types.NodeSnapshot
	seq   uint
	clock types.TimeProvider
}

var _ types.NodeStore = (*NodeStore)(nil)

func NewNodeStore(clock types.TimeProvider) *NodeStore {
	return &NodeStore{clock: clock}
}

func (s *NodeStore) Save(_ context.Context, snapshots ...types.NodeSnapshot) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for i := range snapshots {
		row := snapshots[i]
		row.CapturedAt = types.NormalizeTimestamp(row.CapturedAt)

		exists := false
		for j := range s.rows {
			if s.rows[j].NodeName == row.NodeName && s.rows[j].CapturedAt.Equal(row.CapturedAt) {
				exists = true
				break
			}
		}
		if exists {
			continue
		}

		s.seq++
		row.ID = s.seq
		row.RecordCreated = s.clock.GetCurrentTime()
		s.rows = append(s.rows, row)
		inserted++
	}
	return inserted, nil
}

func (s *NodeStore) AsOf(_ context.Context, nodeName string, ts time.Time) (*types.NodeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pick(nodeName, func(row *types.NodeSnapshot) bool {
		return !row.CapturedAt.After(types.NormalizeTimestamp(ts))
	}), nil
}

func (s *NodeStore) Current(_ context.Context, nodeName string) (*types.NodeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pick(nodeName, func(*types.NodeSnapshot) bool { return true }), nil
}

// pick returns the eligible snapshot with the greatest (captured_at, id).
func (s *NodeStore) pick(nodeName string, eligible func(*types.NodeSnapshot) bool) *types.NodeSnapshot {
	var best *types.NodeSnapshot
	for i := range s.rows {
		row := &s.rows[i]
		if row.NodeName != nodeName || !eligible(row) {
			continue
		}
		if best == nil ||
			row.CapturedAt.After(best.CapturedAt) ||
			(row.CapturedAt.Equal(best.CapturedAt) && row.ID > best.ID) {
			best = row
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

func (s *NodeStore) Inventory(_ context.Context) ([]types.NodeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0)
	seen := make(map[string]struct{})
	for i := range s.rows {
		if _, ok := seen[s.rows[i].NodeName]; !ok {
			seen[s.rows[i].NodeName] = struct{}{}
			names = append(names, s.rows[i].NodeName)
		}
	}

	inventory := make([]types.NodeSnapshot, 0, len(names))
	for _, name := range names {
		if row := s.pick(name, func(*types.NodeSnapshot) bool { return true }); row != nil {
			inventory = append(inventory, *row)
		}
	}
	return inventory, nil
}

// IntensityStore is the in-memory types.IntensityStore.
type IntensityStore struct {
	mu    sync.RWMutex
	rows  map[intensityKey]types.CarbonIntensityRecord
	clock types.TimeProvider
}

type intensityKey struct {
	zone   string
	bucket int64
}

var _ types.IntensityStore = (*IntensityStore)(nil)

func NewIntensityStore(clock types.TimeProvider) *IntensityStore {
	return &IntensityStore{
		rows:  make(map[intensityKey]types.CarbonIntensityRecord),
		clock: clock,
	}
}

func (s *IntensityStore) Get(_ context.Context, zone string, bucket time.Time) (*types.CarbonIntensityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.rows[intensityKey{zone: zone, bucket: types.NormalizeTimestamp(bucket).Unix()}]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *IntensityStore) Put(_ context.Context, record types.CarbonIntensityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record.TimeBucket = types.NormalizeTimestamp(record.TimeBucket)
	key := intensityKey{zone: record.Zone, bucket: record.TimeBucket.Unix()}
	if _, exists := s.rows[key]; exists {
		// first write for a bucket is authoritative
		return nil
	}
	record.ID = core.NewID()
	record.RecordCreated = s.clock.GetCurrentTime()
	s.rows[key] = record
	return nil
}
