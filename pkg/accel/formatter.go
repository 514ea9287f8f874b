// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package accel

import (
	"errors"
	"fmt"
	"time"
)

// FormatSample formats a sample as a single human-readable line
func FormatSample(s Sample, ts time.Time) string {
	pitch, roll := s.Tilt()
	return fmt.Sprintf("[%s] X=%+7.3fg Y=%+7.3fg Z=%+7.3fg |a|=%.3fg pitch=%+6.1f° roll=%+6.1f°\n",
		ts.Format("15:04:05.000"), s.X, s.Y, s.Z, s.Magnitude(), pitch, roll)
}

// FormatError formats a decode error as a single human-readable line
func FormatError(err error, ts time.Time) string {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return fmt.Sprintf("[%s] %s ERROR: %s\n", ts.Format("15:04:05.000"), FormatErrorKind(err), frameErr.Error())
	}
	return fmt.Sprintf("[%s] ERROR: %v\n", ts.Format("15:04:05.000"), err)
}

// FormatErrorKind returns an uppercase label for the error kind
func FormatErrorKind(err error) string {
	switch ErrorKind(err) {
	case "crc":
		return "CRC"
	case "format":
		return "FORMAT"
	case "parse":
		return "PARSE"
	default:
		return "UNKNOWN"
	}
}
