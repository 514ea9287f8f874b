// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package source provides the producers of accelerometer samples: a serial
// port running the frame decoder, and a simulated generator.
package source

import (
	"errors"

	"github.com/Thermoquad/accelstat/pkg/accel"
)

// Kind identifies the active data source
type Kind int

const (
	KindNone Kind = iota
	KindSerial
	KindSimulated
)

func (k Kind) String() string {
	switch k {
	case KindSerial:
		return "serial"
	case KindSimulated:
		return "simulated"
	default:
		return "none"
	}
}

// Sink receives samples from a source, in order, on the source's goroutine
type Sink func(accel.Sample)

// Source is a producer of samples that can be started and stopped.
//
// Implementations call the sink without holding internal locks, so a sink may
// call back into the source, including Stop. A delivery decided before Stop
// may still complete; none starts after Stop returns.
type Source interface {
	Start() error
	Stop() error
	IsRunning() bool
	Kind() Kind
	SetSink(Sink)
}

// Connection errors
var (
	ErrPortOpen         = errors.New("failed to open serial port")
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
	ErrPortLost         = errors.New("serial port read failed")
)
