// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"errors"

	"gorm.io/gorm"

	"github.com/greenkube/greenkube-agent/app/types"
)

// TranslateError maps GORM errors to application-specific errors.
// If the error does not match any known GORM errors, it returns the original error.
func TranslateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return types.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return types.ErrDuplicateKey
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return types.ErrForeignKeyViolation
	case errors.Is(err, gorm.ErrInvalidTransaction):
		return types.ErrInvalidTransaction
	case errors.Is(err, gorm.ErrInvalidData):
		return types.ErrInvalidData
	case errors.Is(err, gorm.ErrMissingWhereClause):
		return types.ErrMissingKey
	}
	return err
}
