// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/greenkube/greenkube-agent/app/types"
)

func TestProvenance_Flag(t *testing.T) {
	var p types.Provenance
	assert.False(t, p.Estimated)
	assert.Empty(t, p.Reasons)

	p.Flag(types.ReasonDefaultPUE)
	assert.True(t, p.Estimated)
	assert.Equal(t, []string{types.ReasonDefaultPUE}, p.Reasons)

	// duplicates are dropped
	p.Flag(types.ReasonDefaultPUE)
	assert.Equal(t, []string{types.ReasonDefaultPUE}, p.Reasons)
}

func TestProvenance_Merge(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		want []string
	}{
		{
			name: "disjoint",
			a:    []string{types.ReasonNoNodeData},
			b:    []string{types.ReasonDefaultPUE},
			want: []string{types.ReasonNoNodeData, types.ReasonDefaultPUE},
		},
		{
			name: "overlap unions without duplication",
			a:    []string{types.ReasonNoNodeData, types.ReasonDefaultZone},
			b:    []string{types.ReasonDefaultZone, types.ReasonDefaultPUE},
			want: []string{types.ReasonNoNodeData, types.ReasonDefaultZone, types.ReasonDefaultPUE},
		},
		{
			name: "empty other leaves order intact",
			a:    []string{types.ReasonDefaultZone, types.ReasonNoNodeData},
			b:    nil,
			want: []string{types.ReasonDefaultZone, types.ReasonNoNodeData},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a, b types.Provenance
			a.MergeReasons(tt.a)
			b.MergeReasons(tt.b)

			a.Merge(b)
			assert.Equal(t, tt.want, a.Reasons)
			assert.Equal(t, len(tt.want) > 0, a.Estimated)
		})
	}
}
