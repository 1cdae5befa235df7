// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package types

// Well-known estimation reasons. Every derived value that substituted a
// default for an observed input carries at least one of these.
const (
	ReasonNoNodeData       = "no node data available"
	ReasonDefaultProfile   = "default instance power profile"
	ReasonDefaultZone      = "default grid zone"
	ReasonDefaultPUE       = "default PUE"
	ReasonDefaultIntensity = "default carbon intensity"
	ReasonCostUnavailable  = "cost data unavailable"
	ReasonStaleNodeData    = "current node snapshot used for historical sample"
)

// Provenance accumulates the "this value is an estimate, and why" flag as a
// record moves through the pipeline. Reasons form an order-stable set: the
// first occurrence of a reason fixes its position, later merges of the same
// reason are dropped. Estimated is true iff at least one reason is present.
type Provenance struct {
	Estimated bool
	Reasons   []string
}

// Flag records a reason and marks the value estimated. Duplicate reasons are
// ignored.
func (p *Provenance) Flag(reason string) {
	for _, r := range p.Reasons {
		if r == reason {
			return
		}
	}
	p.Estimated = true
	p.Reasons = append(p.Reasons, reason)
}

// Merge unions another accumulator into this one, preserving this
// accumulator's existing order.
func (p *Provenance) Merge(other Provenance) {
	for _, r := range other.Reasons {
		p.Flag(r)
	}
}

// MergeReasons unions a plain reason list, e.g. one loaded from storage.
func (p *Provenance) MergeReasons(reasons []string) {
	for _, r := range reasons {
		p.Flag(r)
	}
}
