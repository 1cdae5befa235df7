// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/greenkube/greenkube-agent/app/config"
	"github.com/greenkube/greenkube-agent/app/data"
	"github.com/greenkube/greenkube-agent/app/types"
)

const (
	joulesPerKWh = 3.6e6
	gramsPerKg   = 1000.0

	// Manufacturing emissions are amortized over the common four-year server
	// depreciation window.
	embodiedLifespanHours = 4 * 365 * 24
)

// IntensityResult is one resolved carbon intensity value plus whether it came
// from a default rather than grid data.
type IntensityResult struct {
	GCO2ePerKWh float64
	Provenance  types.Provenance
}

// CarbonCalculator converts energy into CO2e and resolves grid intensity per
// (zone, time bucket). Each calculator is scoped to exactly one processing
// run: its cache starts empty, fills as the run resolves zones, and is
// discarded with the run, so state never leaks across concurrent runs.
//
// Concurrent lookups for the same key collapse to a single store/provider
// round trip through the singleflight group; the external provider is called
// at most once per key per run.
type CarbonCalculator struct {
	store    types.IntensityStore
	provider types.GridIntensityProvider
	catalog  *data.Catalog
	defaults config.Defaults
	bucket   types.Granularity

	flight singleflight.Group
	mu     sync.Mutex
	cache  map[string]IntensityResult
}

func NewCarbonCalculator(
	store types.IntensityStore,
	provider types.GridIntensityProvider,
	catalog *data.Catalog,
	defaults config.Defaults,
	bucket types.Granularity,
) *CarbonCalculator {
	return &CarbonCalculator{
		store:    store,
		provider: provider,
		catalog:  catalog,
		defaults: defaults,
		bucket:   bucket,
		cache:    make(map[string]IntensityResult),
	}
}

// Intensity returns the grid intensity for a zone at an instant. The instant
// is floored to the configured bucket first, so an inclusive and an exclusive
// boundary representation of the same bucket resolve to the same record.
//
// Resolution order: per-run cache, intensity store, external provider (result
// persisted), then the zone's yearly average or the configured default with
// the result flagged estimated. Defaults are cached for the run but never
// persisted, so a later run can still fetch real grid data for the bucket.
func (c *CarbonCalculator) Intensity(ctx context.Context, zone string, at time.Time) (IntensityResult, error) {
	bucket := c.bucket.Bucket(at)
	key := fmt.Sprintf("%s@%d", zone, bucket.Unix())

	c.mu.Lock()
	if cached, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		// a loser of the singleflight race resolves from cache on its next
		// call; re-check here so the winner's result is reused even within
		// this flight
		c.mu.Lock()
		if cached, ok := c.cache[key]; ok {
			c.mu.Unlock()
			return cached, nil
		}
		c.mu.Unlock()

		result, err := c.resolve(ctx, zone, bucket)
		if err != nil {
			return IntensityResult{}, err
		}

		c.mu.Lock()
		c.cache[key] = result
		c.mu.Unlock()
		return result, nil
	})
	if err != nil {
		return IntensityResult{}, err
	}
	return v.(IntensityResult), nil
}

func (c *CarbonCalculator) resolve(ctx context.Context, zone string, bucket time.Time) (IntensityResult, error) {
	if err := ctx.Err(); err != nil {
		return IntensityResult{}, err
	}

	stored, err := c.store.Get(ctx, zone, bucket)
	if err != nil {
		return IntensityResult{}, err
	}
	if stored != nil {
		var prov types.Provenance
		if stored.IsDefault() {
			prov.Flag(types.ReasonDefaultIntensity)
		}
		return IntensityResult{GCO2ePerKWh: stored.GCO2ePerKWh, Provenance: prov}, nil
	}

	record, err := c.provider.FetchIntensity(ctx, zone, bucket)
	if err == nil && record != nil {
		record.Zone = zone
		record.TimeBucket = bucket
		record.Source = types.IntensitySourceProvider
		if putErr := c.store.Put(ctx, *record); putErr != nil {
			// the value is still good for this run
			log.Ctx(ctx).Warn().Err(putErr).
				Str("zone", zone).
				Time("bucket", bucket).
				Msg("persisting fetched carbon intensity failed")
		}
		return IntensityResult{GCO2ePerKWh: record.GCO2ePerKWh}, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return IntensityResult{}, ctx.Err()
		}
		log.Ctx(ctx).Warn().Err(err).
			Str("zone", zone).
			Time("bucket", bucket).
			Msg("grid intensity provider unavailable, using default")
	}

	var prov types.Provenance
	prov.Flag(types.ReasonDefaultIntensity)
	value := c.defaults.IntensityGPerKW
	if yearly, ok := c.catalog.DefaultIntensityFor(zone); ok {
		value = yearly
	}
	return IntensityResult{GCO2ePerKWh: value, Provenance: prov}, nil
}

// Emissions converts an energy figure into grams of CO2e:
//
//	kWh = joules / 3.6e6
//	co2e_grams = kWh * pue * intensity
func (c *CarbonCalculator) Emissions(joules, intensity, pue float64) float64 {
	if joules == 0 {
		return 0
	}
	return joules / joulesPerKWh * pue * intensity
}

// Embodied amortizes a node's manufacturing emissions onto one sample
// interval, attributed by the pod's share of the node CPU. Returns zero when
// the snapshot carries no manufacturing figure.
func (c *CarbonCalculator) Embodied(snapshot *types.NodeSnapshot, cpuRateCores float64, step time.Duration) float64 {
	if snapshot == nil || snapshot.EmbodiedEmissionsKg <= 0 || snapshot.CPUCapacityCores <= 0 {
		return 0
	}
	share := cpuRateCores / snapshot.CPUCapacityCores
	if share > 1.0 {
		share = 1.0
	}
	if share < 0 {
		return 0
	}
	gramsPerHour := snapshot.EmbodiedEmissionsKg * gramsPerKg / embodiedLifespanHours
	return gramsPerHour * step.Hours() * share
}
