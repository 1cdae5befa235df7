// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

// Package sqlite provides the SQLite storage backend driver.
package sqlite

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/greenkube/greenkube-agent/app/storage/core"
)

const (
	InMemoryDSN        = ":memory:"
	MemorySharedCached = "file::memory:?cache=shared"
)

// NewDriver creates a gorm SQLite driver configured with our settings.
func NewDriver(dsn string) (*gorm.DB, error) {
	db, err := core.NewDriver(sqlite.Open(dsn))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, core.TranslateError(err)
	}
	// SQLite serializes writers; a single connection plus a busy timeout
	// avoids SQLITE_BUSY under concurrent access.
	// REF: https://github.com/mattn/go-sqlite3/issues/204
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if _, err := sqlDB.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		return nil, core.TranslateError(err)
	}

	return db, nil
}
