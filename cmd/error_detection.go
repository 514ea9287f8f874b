// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Thermoquad/accelstat/pkg/accel"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and count corrupted frames",
	Long: `Track discarded frames and link quality with statistics.

This command decodes every frame and classifies failures:
  - CRC mismatches (line noise, baud rate drift)
  - Format errors (wrong tag, wrong field count, overflow without terminator)
  - Parse errors (values that are not 32-bit integers)
  - Statistics and trends (frame rate, error rate, success rate)

By default, only errors are displayed. Use --show-all to display valid samples too.

Errors before the first valid frame are counted separately; the frame in
flight when the port opens is usually cut. A resting board's per-axis
standard deviation is shown as a noise estimate.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all samples (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", term.IsTerminal(int(os.Stdout.Fd())), "Use terminal UI (false for text mode)")
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	feed := newEventFeed(256)
	defer feed.stop()

	sess, err := openSession(feed.onError)
	if err != nil {
		return err
	}
	defer sess.Close()

	sess.dist.Subscribe(feed.onSample)

	if useTUI {
		return runTUIMode(sess, feed)
	}
	return runTextMode(sess, feed)
}

// printDecodeError prints a discarded frame in highlighted format
func printDecodeError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31m%s ERROR:\033[0m %v\n", timestamp, accel.FormatErrorKind(err), err)
	fmt.Printf("  >>> FRAME DISCARDED <<<\n\n")
}

// syncTracker ignores errors until the first valid frame
type syncTracker struct {
	synchronized bool
	skipped      int
}

// observe returns true when ev should be counted, and whether it is the
// frame that established synchronization
func (t *syncTracker) observe(ev frameEvent) (count, synced bool) {
	if t.synchronized {
		return true, false
	}
	if ev.err != nil {
		t.skipped++
		return false, false
	}
	t.synchronized = true
	return true, true
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(sess *session, feed *eventFeed) error {
	m := initialModel(sess.info, statsInterval, showAll)
	p := tea.NewProgram(m)

	// Event pump goroutine
	go func() {
		var tracker syncTracker
		for {
			select {
			case ev := <-feed.events:
				count, synced := tracker.observe(ev)
				if synced {
					p.Send(syncMsg{skipped: tracker.skipped})
				}
				if count {
					p.Send(frameMsg(ev))
				}
			case <-sess.Lost():
				p.Send(portLostMsg{})
				return
			}
		}
	}()

	if err := sess.dist.Start(); err != nil {
		return err
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// runTextMode runs error detection in text mode
func runTextMode(sess *session, feed *eventFeed) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Accelstat - Error Detection Mode\n")
	fmt.Printf("Source: %s\n", sess.info)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := accel.NewStatistics()
	window := accel.NewWindow(noiseWindowSize)
	var tracker syncTracker

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	if err := sess.dist.Start(); err != nil {
		return err
	}

	for {
		select {
		case ev := <-feed.events:
			count, synced := tracker.observe(ev)
			if synced {
				if tracker.skipped > 0 {
					fmt.Printf("[SYNC] Synchronized after discarding %d frames\n\n", tracker.skipped)
				} else {
					fmt.Printf("[SYNC] Synchronized\n\n")
				}
			}
			if !count {
				continue
			}

			stats.Update(ev.sample, ev.err)
			if ev.err != nil {
				printDecodeError(ev.err)
				continue
			}
			window.Add(*ev.sample)
			if showAll {
				fmt.Print(accel.FormatSample(*ev.sample, time.Now()))
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Print(formatNoise(window.Summary()))
			fmt.Println()

		case <-sess.Lost():
			fmt.Print(stats.String())
			return fmt.Errorf("serial port %s lost", portName)

		case <-ctx.Done():
			fmt.Println()
			fmt.Print(stats.String())
			return nil
		}
	}
}

// noiseWindowSize is the number of recent samples in the noise estimate
const noiseWindowSize = 100

// formatNoise formats the per-axis spread of recent samples
func formatNoise(sum accel.Summary) string {
	if sum.Count == 0 {
		return ""
	}
	return fmt.Sprintf("Noise (last %d):  X σ=%.4fg  Y σ=%.4fg  Z σ=%.4fg\n",
		sum.Count, sum.X.StdDev, sum.Y.StdDev, sum.Z.StdDev)
}
