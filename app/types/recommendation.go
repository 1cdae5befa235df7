// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package types

// RecommendationType enumerates the optimization findings the recommender
// can emit.
type RecommendationType string

const (
	RecommendationZombiePod         RecommendationType = "ZombiePod"
	RecommendationCPURightsizing    RecommendationType = "CpuRightsizing"
	RecommendationMemoryRightsizing RecommendationType = "MemoryRightsizing"
	RecommendationIdleNamespace     RecommendationType = "IdleNamespace"
)

// Recommendation is an analytical finding over a window of combined metrics.
// Recommendations are derived, not persisted as first-class state; they can
// be recomputed on demand from metric history.
type Recommendation struct {
	Pod       string             `json:"pod,omitempty"`
	Namespace string             `json:"namespace"`
	Type      RecommendationType `json:"type"`
	Reason    string             `json:"reason"`

	PotentialSavingsCO2eGrams float64 `json:"potential_savings_co2e_grams,omitempty"`
	PotentialSavingsCost      float64 `json:"potential_savings_cost,omitempty"`

	CurrentCPURequestMillicores     float64 `json:"current_cpu_request_millicores,omitempty"`
	RecommendedCPURequestMillicores float64 `json:"recommended_cpu_request_millicores,omitempty"`
	CurrentMemoryRequestBytes       int64   `json:"current_memory_request_bytes,omitempty"`
	RecommendedMemoryRequestBytes   int64   `json:"recommended_memory_request_bytes,omitempty"`
}
