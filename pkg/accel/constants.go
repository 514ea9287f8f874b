// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package accel implements the accelerometer line protocol used by the
// tri-axial sensor boards.
//
// Each reading is one ASCII line terminated by a carriage return:
//
//	A <x_raw> <y_raw> <z_raw> <CRC>\r
//
// The CRC is a CRC-8 (polynomial 0x07) over "A <x_raw> <y_raw> <z_raw> "
// (including the trailing space), sent as two uppercase hex digits. Raw
// counts are scaled to g by dividing by RawPerG.
//
// This package provides CRC computation, frame decoding with jitter
// suppression, frame encoding, statistics, and formatting.
package accel

// Framing
const (
	FrameTerminator = '\r'
	FrameTag        = "A"
	FieldSeparator  = " "
	FrameFields     = 5 // tag, x, y, z, crc

	// MaxFrameSize bounds the decode buffer on a link that never terminates a frame
	MaxFrameSize = 256
)

// CRC-8 configuration
const (
	crcPolynomial = 0x07
	crcInitial    = 0x00
)

// Scaling and filtering
const (
	RawPerG                = 16382.0
	DefaultJitterThreshold = 0.01 // g
)
