// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package types

import "time"

// CombinedMetric is the unit of persistence and of external reporting: one
// pod's energy, carbon, and cost figures for one instant. It is uniquely
// identified by (pod, namespace, timestamp).
//
// Measure fields are pointers: nil means "not recomputed in this run" and an
// upsert leaves the previously stored column untouched. This is what gives
// the column-level merge-on-conflict semantics — a run whose cost collector
// failed writes nil cost and does not clobber a cost persisted earlier.
type CombinedMetric struct {
	ID        string    `gorm:"primarykey" json:"-"`
	Pod       string    `gorm:"uniqueIndex:idx_pod_ns_ts;not null" json:"pod"`
	Namespace string    `gorm:"uniqueIndex:idx_pod_ns_ts;not null" json:"namespace"`
	Timestamp time.Time `gorm:"uniqueIndex:idx_pod_ns_ts;not null" json:"timestamp"`

	Joules               *float64 `json:"joules,omitempty"`
	CO2eGrams            *float64 `gorm:"column:co2e_grams" json:"co2e_grams,omitempty"`
	EmbodiedCO2eGrams    *float64 `gorm:"column:embodied_co2e_grams" json:"embodied_co2e_grams,omitempty"`
	GridIntensity        *float64 `json:"grid_intensity,omitempty"`
	PUE                  *float64 `gorm:"column:pue" json:"pue,omitempty"`
	TotalCost            *float64 `json:"total_cost,omitempty"`
	CPUUsageMillicores   *float64 `gorm:"column:cpu_usage_millicores" json:"cpu_usage_millicores,omitempty"`
	CPURequestMillicores *float64 `gorm:"column:cpu_request_millicores" json:"cpu_request_millicores,omitempty"`
	MemoryUsageBytes     *int64   `json:"memory_usage_bytes,omitempty"`
	MemoryRequestBytes   *int64   `json:"memory_request_bytes,omitempty"`

	IsEstimated       bool     `json:"is_estimated"`
	EstimationReasons []string `gorm:"serializer:json" json:"estimation_reasons"`

	RecordCreated time.Time `json:"-"`
	RecordUpdated time.Time `json:"-"`
}

func (CombinedMetric) TableName() string {
	return "combined_metric"
}

// Key returns the logical identity of the record.
func (m *CombinedMetric) Key() MetricKey {
	return MetricKey{Pod: m.Pod, Namespace: m.Namespace, Timestamp: NormalizeTimestamp(m.Timestamp)}
}

// MetricKey identifies one CombinedMetric row.
type MetricKey struct {
	Pod       string
	Namespace string
	Timestamp time.Time
}

// Merge applies incoming onto m column-wise: non-nil measures overwrite,
// nil measures preserve the stored value, and estimation reasons are
// set-unioned rather than appended blindly.
func (m *CombinedMetric) Merge(incoming *CombinedMetric) {
	if incoming.Joules != nil {
		m.Joules = incoming.Joules
	}
	if incoming.CO2eGrams != nil {
		m.CO2eGrams = incoming.CO2eGrams
	}
	if incoming.EmbodiedCO2eGrams != nil {
		m.EmbodiedCO2eGrams = incoming.EmbodiedCO2eGrams
	}
	if incoming.GridIntensity != nil {
		m.GridIntensity = incoming.GridIntensity
	}
	if incoming.PUE != nil {
		m.PUE = incoming.PUE
	}
	if incoming.TotalCost != nil {
		m.TotalCost = incoming.TotalCost
	}
	if incoming.CPUUsageMillicores != nil {
		m.CPUUsageMillicores = incoming.CPUUsageMillicores
	}
	if incoming.CPURequestMillicores != nil {
		m.CPURequestMillicores = incoming.CPURequestMillicores
	}
	if incoming.MemoryUsageBytes != nil {
		m.MemoryUsageBytes = incoming.MemoryUsageBytes
	}
	if incoming.MemoryRequestBytes != nil {
		m.MemoryRequestBytes = incoming.MemoryRequestBytes
	}

	var prov Provenance
	prov.MergeReasons(m.EstimationReasons)
	prov.MergeReasons(incoming.EstimationReasons)
	m.EstimationReasons = prov.Reasons
	m.IsEstimated = prov.Estimated
}

// Float64 returns a pointer to v, for populating measure fields.
func Float64(v float64) *float64 {
	return &v
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}

// Deref returns *v, or 0 when v is nil.
func Deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// DerefInt64 returns *v, or 0 when v is nil.
func DerefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
