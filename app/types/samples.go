// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package types

import "time"

// RawUsageSample is one per-container CPU utilization observation emitted by
// the usage collector. Samples are immutable once emitted.
type RawUsageSample struct {
	Pod          string  `json:"pod"`
	Namespace    string  `json:"namespace"`
	Container    string  `json:"container,omitempty"`
	CPURateCores float64 `json:"cpu_rate_cores"`
	// MemoryUsageBytes is the container working set; zero means the scrape
	// did not include memory data.
	MemoryUsageBytes int64     `json:"memory_usage_bytes,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	// NodeName and InstanceType come from metric labels and may be empty
	// when the scrape lacked them; the pipeline then falls back to the
	// node state store or to defaults.
	NodeName     string `json:"node_name,omitempty"`
	InstanceType string `json:"instance_type,omitempty"`
}

// CostSample is one per-pod cost allocation figure from the cost collector.
type CostSample struct {
	Pod       string    `json:"pod"`
	Namespace string    `json:"namespace"`
	CPUCost   float64   `json:"cpu_cost"`
	RAMCost   float64   `json:"ram_cost"`
	TotalCost float64   `json:"total_cost"`
	Timestamp time.Time `json:"timestamp"`
}

// RequestSample carries a pod's declared resource requests.
type RequestSample struct {
	Pod                  string  `json:"pod"`
	Namespace            string  `json:"namespace"`
	CPURequestMillicores float64 `json:"cpu_request_millicores"`
	MemoryRequestBytes   int64   `json:"memory_request_bytes"`
}

// EnergyMetric is the estimated energy draw for one pod at one instant,
// derived once per (pod, timestamp) per run. It is an intermediate value and
// is not persisted directly.
type EnergyMetric struct {
	Pod        string
	Namespace  string
	Timestamp  time.Time
	Joules     float64
	NodeName   string
	Zone       string
	PUE        float64
	Provenance Provenance
}
