// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package accel

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks frame statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames  uint64
	ValidFrames  uint64
	CRCErrors    uint64
	FormatErrors uint64
	ParseErrors  uint64
	OtherErrors  uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records the outcome of one frame: a decoded sample or a decode error
func (s *Statistics) Update(sample *Sample, decodeErr error) {
	s.TotalFrames++

	switch {
	case decodeErr == nil && sample != nil:
		s.ValidFrames++
	case errors.Is(decodeErr, ErrCRCMismatch):
		s.CRCErrors++
	case errors.Is(decodeErr, ErrFormat):
		s.FormatErrors++
	case errors.Is(decodeErr, ErrParse):
		s.ParseErrors++
	default:
		s.OtherErrors++
	}

	s.LastUpdateTime = time.Now()
}

// Errors returns the total number of discarded frames
func (s *Statistics) Errors() uint64 {
	return s.CRCErrors + s.FormatErrors + s.ParseErrors + s.OtherErrors
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// ValidPercent returns the share of valid frames in percent
func (s *Statistics) ValidPercent() float64 {
	if s.TotalFrames == 0 {
		return 0
	}
	return float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	percent := func(n uint64) float64 {
		if s.TotalFrames == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, s.ValidPercent())

	if s.CRCErrors > 0 {
		result += fmt.Sprintf("CRC Errors:      %8d (%.1f%%)\n", s.CRCErrors, percent(s.CRCErrors))
	}
	if s.FormatErrors > 0 {
		result += fmt.Sprintf("Format Errors:   %8d (%.1f%%)\n", s.FormatErrors, percent(s.FormatErrors))
	}
	if s.ParseErrors > 0 {
		result += fmt.Sprintf("Parse Errors:    %8d (%.1f%%)\n", s.ParseErrors, percent(s.ParseErrors))
	}
	if s.OtherErrors > 0 {
		result += fmt.Sprintf("Other Errors:    %8d (%.1f%%)\n", s.OtherErrors, percent(s.OtherErrors))
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
