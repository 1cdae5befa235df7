// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/greenkube/greenkube-agent/app/storage/core"
	"github.com/greenkube/greenkube-agent/app/types"
)

type intensityRepoImpl struct {
	core.BaseRepoImpl
	clock types.TimeProvider
}

// NewIntensityRepository creates the SQL-backed carbon intensity store and
// migrates its schema.
func NewIntensityRepository(clock types.TimeProvider, db *gorm.DB) (types.IntensityStore, error) {
	if err := db.AutoMigrate(&types.CarbonIntensityRecord{}); err != nil {
		return nil, core.TranslateError(err)
	}

	return &intensityRepoImpl{
		BaseRepoImpl: core.NewBaseRepoImpl(db, &types.CarbonIntensityRecord{}),
		clock:        clock,
	}, nil
}

// Get returns the record for (zone, bucket), or nil when none is stored.
func (r *intensityRepoImpl) Get(ctx context.Context, zone string, bucket time.Time) (*types.CarbonIntensityRecord, error) {
	var record types.CarbonIntensityRecord
	err := r.DB(ctx).
		Where("zone = ? AND time_bucket = ?", zone, types.NormalizeTimestamp(bucket)).
		First(&record).Error
	if err != nil {
		if stderrors.Is(core.TranslateError(err), types.ErrNotFound) {
			return nil, nil
		}
		return nil, core.TranslateError(err)
	}
	return &record, nil
}

// Put stores the record unless its (zone, time_bucket) key already exists;
// the first write for a bucket is authoritative.
func (r *intensityRepoImpl) Put(ctx context.Context, record types.CarbonIntensityRecord) error {
	record.ID = core.NewID()
	record.TimeBucket = types.NormalizeTimestamp(record.TimeBucket)
	record.RecordCreated = r.clock.GetCurrentTime()

	err := r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "zone"}, {Name: "time_bucket"}},
			DoNothing: true,
		}).Create(&record).Error
	return core.TranslateError(err)
}
