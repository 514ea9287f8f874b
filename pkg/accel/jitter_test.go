// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package accel

import "testing"

func TestJitterFilter_FirstSamplePassesThrough(t *testing.T) {
	f := NewJitterFilter(DefaultJitterThreshold)
	in := Sample{X: 0.123, Y: -1.5, Z: 2.0}

	out, held := f.Apply(in)
	if out != in {
		t.Errorf("First sample modified: got %+v, want %+v", out, in)
	}
	if held != 0 {
		t.Errorf("Expected 0 held axes, got %d", held)
	}
}

func TestJitterFilter_PerAxis(t *testing.T) {
	f := NewJitterFilter(0.25)
	f.Apply(Sample{X: 0.5, Y: 0.5, Z: 0.5})

	// X moves below threshold, Y exactly at threshold, Z well above
	out, held := f.Apply(Sample{X: 0.625, Y: 0.75, Z: 1.5})
	if out.X != 0.5 {
		t.Errorf("X should be held at 0.5, got %v", out.X)
	}
	if out.Y != 0.75 {
		t.Errorf("Y delta equal to threshold should pass, got %v", out.Y)
	}
	if out.Z != 1.5 {
		t.Errorf("Z should pass, got %v", out.Z)
	}
	if held != 1 {
		t.Errorf("Expected 1 held axis, got %d", held)
	}
}

func TestJitterFilter_ComparesAgainstEmittedValue(t *testing.T) {
	f := NewJitterFilter(0.01)
	f.Apply(Sample{X: 0.0})

	// Slow drift: each step is below threshold relative to the emitted value
	// until the accumulated change reaches it.
	steps := []struct {
		in   float64
		want float64
	}{
		{0.004, 0.0},
		{0.008, 0.0},
		{0.0099, 0.0},
		{0.012, 0.012},
		{0.015, 0.012},
	}

	for i, step := range steps {
		out, _ := f.Apply(Sample{X: step.in})
		if out.X != step.want {
			t.Errorf("step %d: input %v, got %v, want %v", i, step.in, out.X, step.want)
		}
	}
}

func TestJitterFilter_Reset(t *testing.T) {
	f := NewJitterFilter(0.01)
	f.Apply(Sample{X: 1.0})
	f.Reset()

	out, _ := f.Apply(Sample{X: 1.001})
	if out.X != 1.001 {
		t.Errorf("Expected first sample after reset to pass through, got %v", out.X)
	}
}

func TestJitterFilter_ZeroThresholdDisables(t *testing.T) {
	d := NewDecoder(WithJitterThreshold(0))
	samples, _ := decodeAll(d, append(EncodeFrame(0, 0, 0), EncodeFrame(1, 1, 1)...))
	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}
	if samples[1] != SampleFromRaw(1, 1, 1) {
		t.Errorf("Expected unfiltered sample, got %+v", samples[1])
	}
}

func TestDecoder_JitterApplied(t *testing.T) {
	d := NewDecoder()
	var data []byte
	data = append(data, EncodeFrame(16382, 0, 0)...)
	data = append(data, EncodeFrame(16382+100, 0, 0)...) // +0.0061 g, held
	data = append(data, EncodeFrame(16382+200, 0, 0)...) // +0.0122 g, passes

	samples, _ := decodeAll(d, data)
	if len(samples) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(samples))
	}
	if samples[1].X != 1.0 {
		t.Errorf("Expected second sample held at 1.0, got %v", samples[1].X)
	}
	if samples[2].X != ScaleRaw(16382+200) {
		t.Errorf("Expected third sample to pass, got %v", samples[2].X)
	}
}
