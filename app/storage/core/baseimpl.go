// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

// Package core provides the shared plumbing for database repository
// implementations: driver construction, transaction management through the
// context, and GORM error translation.
package core

import (
	"context"

	"gorm.io/gorm"
)

// BaseRepoImpl adds core behaviors applicable to any database repository
// implementation. Repositories embed it and invoke database operations
// through DB(ctx), which ensures an ongoing transaction in the context is
// honored.
type BaseRepoImpl struct {
	db    *gorm.DB
	model interface{}
}

// NewBaseRepoImpl creates a new BaseRepoImpl for use in a concrete
// repository. The model parameter names the struct the repository manages.
func NewBaseRepoImpl(db *gorm.DB, model interface{}) BaseRepoImpl {
	return BaseRepoImpl{db: db, model: model}
}

// DB returns a *gorm.DB for use in any database calls. It first looks for a
// *gorm.DB in the context, which allows ongoing transactions to be used.
// Otherwise it uses the default *gorm.DB passed into NewBaseRepoImpl.
func (b *BaseRepoImpl) DB(ctx context.Context) *gorm.DB {
	if tx, found := FromContext(ctx); found {
		return tx.WithContext(ctx)
	}
	return b.db.WithContext(ctx)
}

// Tx starts a database transaction and stores it in a derived context passed
// to block. Repository calls made with that context join the transaction.
// An error from block rolls the transaction back; nil commits it.
func (b *BaseRepoImpl) Tx(ctx context.Context, block func(ctxTx context.Context) error) error {
	return b.DB(ctx).Transaction(func(tx *gorm.DB) error {
		return block(NewContext(ctx, tx))
	})
}

// Count returns the number of rows in the table.
func (b *BaseRepoImpl) Count(ctx context.Context) (int, error) {
	var count int64
	err := b.DB(ctx).Model(b.model).Count(&count).Error
	return int(count), TranslateError(err)
}

// key is an unexported type for context keys defined in this package.
type key int

var dbKey key

// NewContext returns a new Context that carries value db.
func NewContext(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, dbKey, db)
}

// FromContext returns the gorm.DB value stored in ctx, if any.
func FromContext(ctx context.Context) (*gorm.DB, bool) {
	db, ok := ctx.Value(dbKey).(*gorm.DB)
	return db, ok
}
