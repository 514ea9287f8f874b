// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Accelstat - Accelerometer Serial Stream Analyzer
//
// A CLI tool for reading, checking and republishing the text frame stream
// of a 3-axis accelerometer board.

package main

import (
	"os"

	"github.com/Thermoquad/accelstat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
