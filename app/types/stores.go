// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
	"time"
)

// MetricFilters narrows metric store reads. Zero values match everything.
type MetricFilters struct {
	Namespace string
	Pod       string
}

// Summary is the aggregate projection over a window of combined metrics.
type Summary struct {
	TotalJoules            float64 `json:"total_joules"`
	TotalCO2eGrams         float64 `json:"total_co2e_grams"`
	TotalEmbodiedCO2eGrams float64 `json:"total_embodied_co2e_grams"`
	TotalCost              float64 `json:"total_cost"`
	PodCount               int     `json:"pod_count"`
	NamespaceCount         int     `json:"namespace_count"`
	EstimatedCount         int     `json:"estimated_count"`
}

// TimeseriesPoint is one bucket of a time-bucketed series.
type TimeseriesPoint struct {
	Bucket            time.Time `json:"bucket"`
	Joules            float64   `json:"joules"`
	CO2eGrams         float64   `json:"co2e_grams"`
	EmbodiedCO2eGrams float64   `json:"embodied_co2e_grams"`
	Cost              float64   `json:"cost"`
	PodCount          int       `json:"pod_count"`
}

// MetricStore persists combined per-pod results. Every backend implements
// identical upsert-on-conflict-by-key and window-filtering semantics
// regardless of its transactional model; the conformance suite in
// app/storage/storagetest holds them to it.
type MetricStore interface {
	// Upsert writes the batch idempotently: one row per (pod, namespace,
	// timestamp), column-level merge on conflict.
	Upsert(ctx context.Context, metrics ...CombinedMetric) error

	// Query lists metrics matching the filters inside [window.Start, window.End).
	Query(ctx context.Context, filters MetricFilters, window TimeWindow) ([]CombinedMetric, error)

	// Summary aggregates totals over the window.
	Summary(ctx context.Context, filters MetricFilters, window TimeWindow) (*Summary, error)

	// Timeseries buckets the window at the given granularity.
	Timeseries(ctx context.Context, filters MetricFilters, window TimeWindow, granularity Granularity) ([]TimeseriesPoint, error)

	// Namespaces lists the distinct namespaces with stored metrics.
	Namespaces(ctx context.Context) ([]string, error)
}

// NodeStore keeps the append-only node snapshot history.
type NodeStore interface {
	// Save appends snapshots, ignoring rows whose (node_name, captured_at)
	// already exist. It returns the number of rows actually inserted.
	Save(ctx context.Context, snapshots ...NodeSnapshot) (int, error)

	// AsOf returns the snapshot with the greatest captured_at <= ts for the
	// node, or nil when the node has no history at or before ts. Ties on
	// captured_at resolve to the most recently inserted row.
	AsOf(ctx context.Context, nodeName string, ts time.Time) (*NodeSnapshot, error)

	// Current returns the node's newest snapshot, or nil when none exists.
	Current(ctx context.Context, nodeName string) (*NodeSnapshot, error)

	// Inventory returns the newest snapshot of every known node.
	Inventory(ctx context.Context) ([]NodeSnapshot, error)
}

// IntensityStore persists grid carbon-intensity lookups by (zone, bucket).
type IntensityStore interface {
	// Get returns the record for the key, or nil when none is stored.
	Get(ctx context.Context, zone string, bucket time.Time) (*CarbonIntensityRecord, error)

	// Put stores the record unless the key already exists; the first write
	// for a bucket is authoritative.
	Put(ctx context.Context, record CarbonIntensityRecord) error
}
