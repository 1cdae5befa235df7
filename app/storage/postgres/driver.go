// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

// Package postgres provides the PostgreSQL storage backend driver. The
// repository implementations are shared with the SQLite backend; only the
// dialect differs.
package postgres

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/greenkube/greenkube-agent/app/storage/core"
)

// NewDriver creates a gorm PostgreSQL driver configured with our settings.
func NewDriver(dsn string) (*gorm.DB, error) {
	return core.NewDriver(postgres.Open(dsn))
}
