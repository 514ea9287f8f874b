// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package accel

// Sample is one decoded acceleration reading in g.
//
// Samples are plain values; every consumer receives its own copy.
type Sample struct {
	X float64 `json:"x" cbor:"1,keyasint"`
	Y float64 `json:"y" cbor:"2,keyasint"`
	Z float64 `json:"z" cbor:"3,keyasint"`
}

// ScaleRaw converts raw sensor counts to g
func ScaleRaw(raw int) float64 {
	return float64(raw) / RawPerG
}

// SampleFromRaw builds a Sample from raw sensor counts
func SampleFromRaw(x, y, z int) Sample {
	return Sample{X: ScaleRaw(x), Y: ScaleRaw(y), Z: ScaleRaw(z)}
}
