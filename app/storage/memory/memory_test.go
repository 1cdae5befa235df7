// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package memory_test

import (
	"testing"

	"github.com/greenkube/greenkube-agent/app/storage/memory"
	"github.com/greenkube/greenkube-agent/app/storage/storagetest"
	"github.com/greenkube/greenkube-agent/app/types"
)

func TestMemoryMetricStore(t *testing.T) {
	storagetest.RunMetricStoreSuite(t, func(t *testing.T) types.MetricStore {
		return memory.NewMetricStore(types.UTCClock{})
	})
}

func TestMemoryNodeStore(t *testing.T) {
	storagetest.RunNodeStoreSuite(t, func(t *testing.T) types.NodeStore {
		return memory.NewNodeStore(types.UTCClock{})
	})
}

func TestMemoryIntensityStore(t *testing.T) {
	storagetest.RunIntensityStoreSuite(t, func(t *testing.T) types.IntensityStore {
		return memory.NewIntensityStore(types.UTCClock{})
	})
}
