// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package repo_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/greenkube/greenkube-agent/app/storage/repo"
	"github.com/greenkube/greenkube-agent/app/storage/sqlite"
	"github.com/greenkube/greenkube-agent/app/storage/storagetest"
	"github.com/greenkube/greenkube-agent/app/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := sqlite.NewDriver(sqlite.InMemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestSQLMetricStore(t *testing.T) {
	storagetest.RunMetricStoreSuite(t, func(t *testing.T) types.MetricStore {
		store, err := repo.NewMetricRepository(types.UTCClock{}, newTestDB(t), repo.DefaultRetryPolicy)
		require.NoError(t, err)
		return store
	})
}

func TestSQLNodeStore(t *testing.T) {
	storagetest.RunNodeStoreSuite(t, func(t *testing.T) types.NodeStore {
		store, err := repo.NewNodeRepository(types.UTCClock{}, newTestDB(t))
		require.NoError(t, err)
		return store
	})
}

func TestSQLIntensityStore(t *testing.T) {
	storagetest.RunIntensityStoreSuite(t, func(t *testing.T) types.IntensityStore {
		store, err := repo.NewIntensityRepository(types.UTCClock{}, newTestDB(t))
		require.NoError(t, err)
		return store
	})
}
