// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package accel

import (
	"gonum.org/v1/gonum/stat"
)

// AxisSummary is the mean and standard deviation of one axis over a window
type AxisSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Summary describes the most recent samples held by a Window
type Summary struct {
	Count int         `json:"count"`
	X     AxisSummary `json:"x"`
	Y     AxisSummary `json:"y"`
	Z     AxisSummary `json:"z"`
}

// Window keeps the last N samples and summarizes them per axis.
// The standard deviation of a resting sensor is a direct read of link noise.
type Window struct {
	xs, ys, zs []float64
	next       int
	full       bool
}

// NewWindow creates a window holding up to size samples
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{
		xs: make([]float64, size),
		ys: make([]float64, size),
		zs: make([]float64, size),
	}
}

// Add records a sample, evicting the oldest one when the window is full
func (w *Window) Add(s Sample) {
	w.xs[w.next] = s.X
	w.ys[w.next] = s.Y
	w.zs[w.next] = s.Z
	w.next++
	if w.next == len(w.xs) {
		w.next = 0
		w.full = true
	}
}

// Len returns the number of samples currently held
func (w *Window) Len() int {
	if w.full {
		return len(w.xs)
	}
	return w.next
}

// Reset empties the window
func (w *Window) Reset() {
	w.next = 0
	w.full = false
}

// Summary computes per-axis mean and standard deviation.
// The standard deviation is zero for fewer than two samples.
func (w *Window) Summary() Summary {
	n := w.Len()
	sum := Summary{Count: n}
	if n == 0 {
		return sum
	}
	sum.X = summarize(w.xs[:n])
	sum.Y = summarize(w.ys[:n])
	sum.Z = summarize(w.zs[:n])
	return sum
}

func summarize(values []float64) AxisSummary {
	if len(values) == 1 {
		return AxisSummary{Mean: values[0]}
	}
	mean, std := stat.MeanStdDev(values, nil)
	return AxisSummary{Mean: mean, StdDev: std}
}
