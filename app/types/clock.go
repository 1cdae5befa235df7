// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package types

import "time"

type TimeProvider interface {
	// GetCurrentTime returns the current time.
	GetCurrentTime() time.Time
}

// UTCClock is the production TimeProvider. All pipeline timestamps are UTC.
type UTCClock struct{}

func (UTCClock) GetCurrentTime() time.Time {
	return time.Now().UTC()
}
