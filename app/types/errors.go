// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"errors"
)

// Pipeline errors. These form the failure taxonomy reported by a processing
// run: collector failures degrade or abort, store conflicts retry, and
// configuration problems fail fast at startup.
var (
	// ErrSourceUnavailable is returned when a collector or external API
	// could not be reached.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrDataIncomplete is returned when an expected field is missing from
	// collected data. Callers substitute a default and flag the result
	// estimated instead of aborting.
	ErrDataIncomplete = errors.New("data incomplete")

	// ErrStoreConflict is returned when a concurrent write raced on the
	// same key and retries were exhausted.
	ErrStoreConflict = errors.New("store conflict")

	// ErrConfigurationInvalid is returned for unusable configuration, such
	// as an unknown normalization granularity.
	ErrConfigurationInvalid = errors.New("configuration invalid")

	// ErrPersistenceFailure is returned when a final write to a store
	// failed after retries.
	ErrPersistenceFailure = errors.New("persistence failure")
)

// Storage errors.
var (
	// ErrNotFound is returned when a specific item or record is not found.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a duplicate key is detected during an insert.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated.
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrMissingKey is returned when no key is provided for an operation.
	ErrMissingKey = errors.New("no key provided")

	// ErrInvalidTransaction is returned when an operation runs on an
	// invalid or closed transaction.
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrInvalidData is returned when a record cannot be mapped to its model.
	ErrInvalidData = errors.New("invalid data")
)
