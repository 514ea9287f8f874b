// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package source

// ConnectionState is the lifecycle state of a serial source
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connected                    // port open, incoming data discarded
	Reading                      // port open, frames decoded and delivered
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connected:
		return "Connected"
	case Reading:
		return "Reading"
	default:
		return "Unknown"
	}
}

// stateOf derives the state from the two independent flags
func stateOf(connected, reading bool) ConnectionState {
	switch {
	case !connected:
		return Disconnected
	case reading:
		return Reading
	default:
		return Connected
	}
}
