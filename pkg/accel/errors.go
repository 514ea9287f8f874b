// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package accel

import (
	"errors"
	"fmt"
)

// Decode error kinds. A frame failing any check is discarded; decoding continues.
var (
	ErrFormat      = errors.New("bad frame format")
	ErrCRCMismatch = errors.New("CRC mismatch")
	ErrParse       = errors.New("parse error")
)

// FrameError describes a discarded frame
type FrameError struct {
	Err    error  // one of ErrFormat, ErrCRCMismatch, ErrParse
	Frame  string // trimmed frame text
	Detail string
}

func (e *FrameError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v: %s (frame %q)", e.Err, e.Detail, e.Frame)
	}
	return fmt.Sprintf("%v (frame %q)", e.Err, e.Frame)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// ErrorKind returns a short label for a decode error, suitable for logs and metrics
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrCRCMismatch):
		return "crc"
	case errors.Is(err, ErrFormat):
		return "format"
	case errors.Is(err, ErrParse):
		return "parse"
	default:
		return "unknown"
	}
}

func newFrameError(kind error, frame, format string, args ...interface{}) *FrameError {
	return &FrameError{Err: kind, Frame: frame, Detail: fmt.Sprintf(format, args...)}
}
