// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/accelstat/pkg/accel"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display decoded samples in human-readable format",
	Long: `Continuously decode and display accelerometer samples as they arrive.

Each valid frame is shown with timestamp, acceleration per axis in g, the
magnitude of the vector and the tilt derived from it. Discarded frames are
shown with the reason (CRC, format or parse error).

Works with both the serial and the simulated source.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feed := newEventFeed(64)
	defer feed.stop()

	sess, err := openSession(feed.onError)
	if err != nil {
		return err
	}
	defer sess.Close()

	fmt.Printf("Accelstat - Raw Sample Log\n")
	fmt.Printf("Source: %s\n", sess.info)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	sess.dist.Subscribe(feed.onSample)
	if err := sess.dist.Start(); err != nil {
		return err
	}

	for {
		select {
		case ev := <-feed.events:
			if ev.err != nil {
				fmt.Print(accel.FormatError(ev.err, time.Now()))
				continue
			}
			fmt.Print(accel.FormatSample(*ev.sample, time.Now()))

		case <-sess.Lost():
			return fmt.Errorf("serial port %s lost", portName)

		case <-ctx.Done():
			return nil
		}
	}
}
