// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package accel

import "math"

// JitterFilter holds an axis at its last emitted value while the change stays
// below Threshold. The first sample after construction or Reset passes through.
type JitterFilter struct {
	Threshold float64

	last   Sample
	seeded bool
}

// NewJitterFilter creates a filter with the given threshold in g
func NewJitterFilter(threshold float64) *JitterFilter {
	return &JitterFilter{Threshold: threshold}
}

// Reset forgets the last emitted sample
func (f *JitterFilter) Reset() {
	f.last = Sample{}
	f.seeded = false
}

// Apply filters s and returns the value to emit along with the number of
// axes that were held.
func (f *JitterFilter) Apply(s Sample) (Sample, int) {
	if !f.seeded {
		f.last = s
		f.seeded = true
		return s, 0
	}

	held := 0
	out := s
	if math.Abs(s.X-f.last.X) < f.Threshold {
		out.X = f.last.X
		held++
	}
	if math.Abs(s.Y-f.last.Y) < f.Threshold {
		out.Y = f.last.Y
		held++
	}
	if math.Abs(s.Z-f.last.Z) < f.Threshold {
		out.Z = f.last.Z
		held++
	}

	f.last = out
	return out, held
}
