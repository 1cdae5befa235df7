// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package types

import "time"

// Intensity sources, recorded so readers can tell an observed grid value
// from a configured fallback.
const (
	IntensitySourceProvider = "provider"
	IntensitySourceDefault  = "default"
)

// CarbonIntensityRecord is a grid carbon-intensity lookup keyed by
// (zone, time bucket). Once a bucket is written it is treated as
// authoritative and never re-fetched.
type CarbonIntensityRecord struct {
	ID            string    `gorm:"primarykey" json:"-"`
	Zone          string    `gorm:"uniqueIndex:idx_zone_bucket;not null" json:"zone"`
	TimeBucket    time.Time `gorm:"uniqueIndex:idx_zone_bucket;not null" json:"time_bucket"`
	GCO2ePerKWh   float64   `json:"gco2e_per_kwh"`
	Source        string    `json:"source"`
	RecordCreated time.Time `json:"-"`
}

func (CarbonIntensityRecord) TableName() string {
	return "carbon_intensity"
}

// IsDefault reports whether the value is a configured fallback rather than a
// provider observation.
func (r *CarbonIntensityRecord) IsDefault() bool {
	return r.Source == IntensitySourceDefault
}
