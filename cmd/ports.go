// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/accelstat/pkg/source"
)

var portsDetails bool

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available serial ports",
	Long: `List the serial ports present on this system.

With --details, USB ports are shown with vendor and product IDs, product name
and serial number where the platform reports them.

Listing ports never opens them.`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
	portsCmd.Flags().BoolVar(&portsDetails, "details", false, "Show USB details")
}

func runPorts(cmd *cobra.Command, args []string) error {
	if portsDetails {
		details, err := source.ListPortDetails()
		if err != nil {
			return err
		}
		if len(details) == 0 {
			fmt.Println("No serial ports found")
			return nil
		}
		for _, d := range details {
			fmt.Println(d.String())
		}
		return nil
	}

	ports, err := source.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}
