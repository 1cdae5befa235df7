// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
	"time"
)

// Collector is the contract every data source implements. Fetch may fail
// independently of the other collectors; Close releases whatever connection
// or session the collector holds and must be called on every exit path of
// the run that owns it.
type Collector[T any] interface {
	Fetch(ctx context.Context, window TimeWindow) ([]T, error)
	Close() error
}

// The concrete collector roles wired into a processing run. The HTTP
// clients behind these live outside the engine; tests use in-package fakes.
type (
	UsageCollector   = Collector[RawUsageSample]
	NodeCollector    = Collector[NodeSnapshot]
	CostCollector    = Collector[CostSample]
	RequestCollector = Collector[RequestSample]
)

// GridIntensityProvider is the external carbon-intensity API. The calculator
// consults it only on an intensity-store miss, at most once per
// (zone, bucket) key per run.
type GridIntensityProvider interface {
	FetchIntensity(ctx context.Context, zone string, at time.Time) (*CarbonIntensityRecord, error)
}

// EnergyEstimator converts one usage sample plus its resolved node context
// into an energy figure. snapshot may be nil when no node data exists at
// all; implementations then fall back to a default profile and flag the
// result estimated.
type EnergyEstimator interface {
	Estimate(sample RawUsageSample, snapshot *NodeSnapshot) EnergyMetric
}
