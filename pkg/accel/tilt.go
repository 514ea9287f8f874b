// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package accel

import "math"

// Tilt estimates pitch and roll in degrees from the gravity vector:
//
//	pitch = atan2(y, z)
//	roll  = atan2(x, z)
func (s Sample) Tilt() (pitch, roll float64) {
	pitch = math.Atan2(s.Y, s.Z) * 180.0 / math.Pi
	roll = math.Atan2(s.X, s.Z) * 180.0 / math.Pi
	return pitch, roll
}

// Magnitude returns the length of the acceleration vector in g
func (s Sample) Magnitude() float64 {
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
}
