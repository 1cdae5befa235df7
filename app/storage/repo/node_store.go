// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/greenkube/greenkube-agent/app/storage/core"
	"github.com/greenkube/greenkube-agent/app/types"
)

type nodeRepoImpl struct {
	core.BaseRepoImpl
	clock types.TimeProvider
}

// NewNodeRepository creates the SQL-backed node snapshot history and
// migrates its schema.
func NewNodeRepository(clock types.TimeProvider, db *gorm.DB) (types.NodeStore, error) {
	if err := db.AutoMigrate(&types.NodeSnapshot{}); err != nil {
		return nil, core.TranslateError(err)
	}

	return &nodeRepoImpl{
		BaseRepoImpl: core.NewBaseRepoImpl(db, &types.NodeSnapshot{}),
		clock:        clock,
	}, nil
}

// Save appends snapshots. Rows whose (node_name, captured_at) already exist
// are ignored; history is append-only and never mutated.
func (r *nodeRepoImpl) Save(ctx context.Context, snapshots ...types.NodeSnapshot) (int, error) {
	inserted := 0
	for i := range snapshots {
		row := snapshots[i]
		row.ID = 0
		row.CapturedAt = types.NormalizeTimestamp(row.CapturedAt)
		row.RecordCreated = r.clock.GetCurrentTime()

		result := r.DB(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "node_name"}, {Name: "captured_at"}},
				DoNothing: true,
			}).Create(&row)
		if result.Error != nil {
			log.Ctx(ctx).Warn().Err(result.Error).
				Str("node", row.NodeName).
				Msg("storage write create failure")
			StorageWriteFailures.With(prometheus.Labels{"store": "node", "action": "create"}).Inc()
			return inserted, core.TranslateError(result.Error)
		}
		inserted += int(result.RowsAffected)
	}
	return inserted, nil
}

// AsOf returns the snapshot with the greatest captured_at <= ts for the
// node; ties resolve to the most recently inserted row. Returns nil without
// error when the node has no history at or before ts.
func (r *nodeRepoImpl) AsOf(ctx context.Context, nodeName string, ts time.Time) (*types.NodeSnapshot, error) {
	var snapshot types.NodeSnapshot
	err := r.DB(ctx).
		Where("node_name = ? AND captured_at <= ?", nodeName, types.NormalizeTimestamp(ts)).
		Order("captured_at DESC, id DESC").
		First(&snapshot).Error
	if err != nil {
		if stderrors.Is(core.TranslateError(err), types.ErrNotFound) {
			return nil, nil
		}
		return nil, core.TranslateError(err)
	}
	return &snapshot, nil
}

// Current returns the node's newest snapshot, or nil when none exists.
func (r *nodeRepoImpl) Current(ctx context.Context, nodeName string) (*types.NodeSnapshot, error) {
	var snapshot types.NodeSnapshot
	err := r.DB(ctx).
		Where("node_name = ?", nodeName).
		Order("captured_at DESC, id DESC").
		First(&snapshot).Error
	if err != nil {
		if stderrors.Is(core.TranslateError(err), types.ErrNotFound) {
			return nil, nil
		}
		return nil, core.TranslateError(err)
	}
	return &snapshot, nil
}

// Inventory returns the newest snapshot of every known node.
func (r *nodeRepoImpl) Inventory(ctx context.Context) ([]types.NodeSnapshot, error) {
	var all []types.NodeSnapshot
	err := r.DB(ctx).
		Order("captured_at ASC, id ASC").
		Find(&all).Error
	if err != nil {
		return nil, core.TranslateError(err)
	}

	latest := make(map[string]types.NodeSnapshot, len(all))
	order := make([]string, 0, len(all))
	for _, s := range all {
		if _, seen := latest[s.NodeName]; !seen {
			order = append(order, s.NodeName)
		}
		latest[s.NodeName] = s
	}

	inventory := make([]types.NodeSnapshot, 0, len(order))
	for _, name := range order {
		inventory = append(inventory, latest[name])
	}
	return inventory, nil
}
