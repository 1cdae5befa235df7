// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package core

import "github.com/google/uuid"

// NewID generates a new unique identifier string using UUID version 4.
func NewID() string {
	return uuid.New().String()
}
