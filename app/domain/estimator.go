// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

// Package domain holds the carbon-accounting pipeline: energy estimation,
// carbon calculation, the processing orchestrator, and the recommender.
package domain

import (
	"time"

	"github.com/greenkube/greenkube-agent/app/config"
	"github.com/greenkube/greenkube-agent/app/data"
	"github.com/greenkube/greenkube-agent/app/types"
)

// BasicEstimator converts CPU utilization into an energy draw figure by
// linear interpolation over the instance type's power envelope:
//
//	watts = min_watts + utilization * (max_watts - min_watts)
//	joules = watts * step_seconds
//
// Unknown instance types fall back to the catalog's default profile and the
// result is flagged estimated.
type BasicEstimator struct {
	catalog  *data.Catalog
	defaults config.Defaults
	step     time.Duration
}

var _ types.EnergyEstimator = (*BasicEstimator)(nil)

func NewBasicEstimator(catalog *data.Catalog, defaults config.Defaults, step time.Duration) *BasicEstimator {
	if step <= 0 {
		step = 5 * time.Minute
	}
	return &BasicEstimator{catalog: catalog, defaults: defaults, step: step}
}

// Estimate derives the energy metric for one usage sample given its resolved
// node context. snapshot carries the node as it existed at the sample's
// timestamp; nil means no node data exists at all.
func (e *BasicEstimator) Estimate(sample types.RawUsageSample, snapshot *types.NodeSnapshot) types.EnergyMetric {
	var prov types.Provenance

	profile, zone, pue := e.resolveContext(sample, snapshot, &prov)

	utilization := 0.0
	if profile.VCores > 0 {
		utilization = sample.CPURateCores / profile.VCores
	}
	if utilization > 1.0 {
		// scrape noise can report more cores than the instance has
		utilization = 1.0
	}
	if utilization < 0 {
		utilization = 0
	}

	watts := profile.MinWatts + utilization*(profile.MaxWatts-profile.MinWatts)

	return types.EnergyMetric{
		Pod:        sample.Pod,
		Namespace:  sample.Namespace,
		Timestamp:  types.NormalizeTimestamp(sample.Timestamp),
		Joules:     watts * e.step.Seconds(),
		NodeName:   sample.NodeName,
		Zone:       zone,
		PUE:        pue,
		Provenance: prov,
	}
}

func (e *BasicEstimator) resolveContext(sample types.RawUsageSample, snapshot *types.NodeSnapshot, prov *types.Provenance) (data.PowerProfile, string, float64) {
	if snapshot == nil {
		prov.Flag(types.ReasonNoNodeData)

		// metric labels may still carry an instance type even when the node
		// store has no history
		if sample.InstanceType != "" {
			if profile, ok := e.catalog.ProfileFor(sample.InstanceType); ok {
				return profile, e.defaultZone(prov), e.defaultPUE("", prov)
			}
		}
		prov.Flag(types.ReasonDefaultProfile)
		return e.catalog.DefaultProfile(), e.defaultZone(prov), e.defaultPUE("", prov)
	}

	instanceType := snapshot.InstanceType
	if instanceType == "" {
		instanceType = sample.InstanceType
	}

	profile, ok := e.catalog.ProfileFor(instanceType)
	if !ok {
		prov.Flag(types.ReasonDefaultProfile)
		profile = e.catalog.DefaultProfile()
	}

	zone := snapshot.Zone
	if zone == "" {
		if mapped, found := e.catalog.ZoneFor(snapshot.Region); found {
			zone = mapped
		}
	}
	if zone == "" {
		zone = e.defaultZone(prov)
	}

	return profile, zone, e.defaultPUE(snapshot.Provider, prov)
}

func (e *BasicEstimator) defaultZone(prov *types.Provenance) string {
	prov.Flag(types.ReasonDefaultZone)
	return e.defaults.Zone
}

func (e *BasicEstimator) defaultPUE(provider string, prov *types.Provenance) float64 {
	if provider != "" {
		if pue, ok := e.catalog.PUEFor(provider); ok {
			return pue
		}
	}
	prov.Flag(types.ReasonDefaultPUE)
	return e.defaults.PUE
}
