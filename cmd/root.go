// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Source flags
	portName string
	simulate bool

	// Logging flags
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "accelstat",
	Short: "Accelerometer Serial Stream Analyzer",
	Long: `Accelstat - A CLI tool for reading, checking and republishing the text
frame stream of a 3-axis accelerometer board.

Each frame is "A <x> <y> <z> <crc>\r" at 115200 baud, 8N1, where x, y and z are
raw counts (16382 per g) and crc is a CRC-8 over the frame text.

Data sources:
  Serial:    --port /dev/ttyACM0 (or ACCELSTAT_PORT)
  Simulated: --simulate (random samples every 50 ms, no hardware needed)`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(logLevel, logFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", os.Getenv("ACCELSTAT_PORT"), "Serial port device")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "Use the simulated source instead of a serial port")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format (console, json)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
