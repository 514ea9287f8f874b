// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	frameTestTimeout int
)

var frameTestCmd = &cobra.Command{
	Use:   "frame_test",
	Short: "Test connection by waiting for a valid frame",
	Long: `Wait for a valid accelerometer frame on the connection until timeout.

This command opens the serial port and waits for any frame that passes the
tag, field count, CRC and integer checks. Frames discarded before that are
counted but otherwise ignored; the first frame after opening a port is
usually partial.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking cabling and baud rate before a longer session.`,
	RunE: runFrameTest,
}

func init() {
	rootCmd.AddCommand(frameTestCmd)
	frameTestCmd.Flags().IntVar(&frameTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runFrameTest(cmd *cobra.Command, args []string) error {
	feed := newEventFeed(16)
	defer feed.stop()

	sess, err := openSession(feed.onError)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Accelstat - Frame Test\n")
	fmt.Printf("Source: %s\n", sess.info)
	fmt.Printf("Timeout: %d seconds\n", frameTestTimeout)
	fmt.Printf("Waiting for valid frame...\n\n")

	sess.dist.Subscribe(feed.onSample)
	if err := sess.dist.Start(); err != nil {
		_ = sess.Close()
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	code := waitForFrame(feed, sess, time.Duration(frameTestTimeout)*time.Second)
	feed.stop()
	_ = sess.Close()
	os.Exit(code)
	return nil
}

// waitForFrame returns the process exit code
func waitForFrame(feed *eventFeed, sess *session, timeout time.Duration) int {
	deadline := time.After(timeout)
	discarded := 0

	for {
		select {
		case ev := <-feed.events:
			if ev.err != nil {
				discarded++
				continue
			}
			if discarded > 0 {
				fmt.Printf("(discarded %d frames before the first valid one)\n", discarded)
			}
			pitch, roll := ev.sample.Tilt()
			fmt.Printf("SUCCESS: Received valid frame\n")
			fmt.Printf("  X: %+.3f g\n", ev.sample.X)
			fmt.Printf("  Y: %+.3f g\n", ev.sample.Y)
			fmt.Printf("  Z: %+.3f g\n", ev.sample.Z)
			fmt.Printf("  |a|: %.3f g, pitch %+.1f°, roll %+.1f°\n", ev.sample.Magnitude(), pitch, roll)
			return 0

		case <-sess.Lost():
			fmt.Fprintf(os.Stderr, "Read error: serial port %s lost\n", portName)
			return 2

		case <-deadline:
			fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %v", timeout)
			if discarded > 0 {
				fmt.Fprintf(os.Stderr, " (%d frames discarded)", discarded)
			}
			fmt.Fprintln(os.Stderr)
			return 1
		}
	}
}
