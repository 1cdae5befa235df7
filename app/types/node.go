// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package types

import "time"

// NodeSnapshot is one append-only row of observed node inventory. A node's
// history is the ordered set of its snapshots; rows are never mutated or
// deleted by normal operation, which is what makes historical backfills
// reconstructable. The primary key is an autoincrement so that rows sharing
// a captured_at resolve deterministically to the most recently inserted one.
type NodeSnapshot struct {
	ID                  uint      `gorm:"primarykey;autoIncrement" json:"-"`
	NodeName            string    `gorm:"uniqueIndex:idx_node_captured;not null" json:"node_name"`
	CapturedAt          time.Time `gorm:"uniqueIndex:idx_node_captured;not null" json:"captured_at"`
	Zone                string    `json:"zone"`
	Region              string    `json:"region"`
	InstanceType        string    `json:"instance_type"`
	CPUCapacityCores    float64   `json:"cpu_capacity_cores"`
	MemoryCapacityBytes int64     `json:"memory_capacity_bytes"`
	Architecture        string    `json:"architecture"`
	Provider            string    `json:"provider"`
	PowerProfileRef     string    `json:"power_profile_ref"`
	EmbodiedEmissionsKg float64   `json:"embodied_emissions_kg"`
	RecordCreated       time.Time `json:"-"`
}

func (NodeSnapshot) TableName() string {
	return "node_snapshot"
}
