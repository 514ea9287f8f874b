// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/Thermoquad/accelstat/pkg/accel"
	"github.com/Thermoquad/accelstat/pkg/source"
)

var (
	emulateRate     int
	emulateCorrupt  float64
	emulateDuration int
)

var emulateCmd = &cobra.Command{
	Use:   "emulate",
	Short: "Write synthetic frames to a serial port",
	Long: `Act as the accelerometer board: write frames to --port.

The emulated board rocks slowly about its X axis (±30° over ten seconds) with
a little sensor noise, so tilt and noise readouts have something to show.
--corrupt replaces one byte in that fraction of frames, which the receiver
must reject.

Connect two ports with a null-modem cable or a virtual pair (socat) and run
another accelstat command against the other end.

Example:
  accelstat emulate --port /dev/pts/3 --rate 50 --corrupt 0.05`,
	RunE: runEmulate,
}

func init() {
	rootCmd.AddCommand(emulateCmd)
	emulateCmd.Flags().IntVar(&emulateRate, "rate", 20, "Frames per second")
	emulateCmd.Flags().Float64Var(&emulateCorrupt, "corrupt", 0, "Fraction of frames to corrupt (0-1)")
	emulateCmd.Flags().IntVar(&emulateDuration, "duration", 0, "Stop after this many seconds (0 runs until Ctrl+C)")
}

// Emulated motion
const (
	emulatePeriod    = 10 * time.Second
	emulateAmplitude = 30.0 // degrees
	emulateNoise     = 0.002
)

// corruptionBytes never appear in a valid frame, so a substitution is always detected
const corruptionBytes = "#*?!~"

// frameEmulator produces the emulated board's frames
type frameEmulator struct {
	rng     *rand.Rand
	corrupt float64
}

func newFrameEmulator(rng *rand.Rand, corrupt float64) *frameEmulator {
	return &frameEmulator{rng: rng, corrupt: corrupt}
}

// sample returns the board's acceleration at elapsed time t
func (e *frameEmulator) sample(t time.Duration) accel.Sample {
	phase := 2 * math.Pi * t.Seconds() / emulatePeriod.Seconds()
	angle := emulateAmplitude * math.Pi / 180 * math.Sin(phase)
	return accel.Sample{
		X: e.rng.NormFloat64() * emulateNoise,
		Y: math.Sin(angle) + e.rng.NormFloat64()*emulateNoise,
		Z: math.Cos(angle) + e.rng.NormFloat64()*emulateNoise,
	}
}

// frame returns the wire frame at elapsed time t and whether it was corrupted
func (e *frameEmulator) frame(t time.Duration) ([]byte, bool) {
	frame := accel.EncodeSample(e.sample(t))
	if e.corrupt <= 0 || e.rng.Float64() >= e.corrupt {
		return frame, false
	}
	// Any byte but the terminator
	pos := e.rng.IntN(len(frame) - 1)
	frame[pos] = corruptionBytes[e.rng.IntN(len(corruptionBytes))]
	return frame, true
}

func runEmulate(cmd *cobra.Command, args []string) error {
	if portName == "" {
		return fmt.Errorf("--port is required")
	}
	if emulateRate <= 0 {
		return fmt.Errorf("--rate must be positive")
	}
	if emulateCorrupt < 0 || emulateCorrupt > 1 {
		return fmt.Errorf("--corrupt must be between 0 and 1")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if emulateDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(emulateDuration)*time.Second)
		defer cancel()
	}

	port, err := serial.Open(portName, source.Mode())
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	defer port.Close()

	fmt.Printf("Accelstat - Board Emulator\n")
	fmt.Printf("Port: %s @ %d baud\n", portName, source.BaudRate)
	fmt.Printf("Rate: %d frames/s, corrupting %.1f%%\n", emulateRate, emulateCorrupt*100)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	emu := newFrameEmulator(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), emulateCorrupt)
	ticker := time.NewTicker(time.Second / time.Duration(emulateRate))
	defer ticker.Stop()

	start := time.Now()
	var written, corrupted uint64
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("Wrote %d frames (%d corrupted)\n", written, corrupted)
			return nil
		case <-ticker.C:
		}

		frame, bad := emu.frame(time.Since(start))
		if _, err := port.Write(frame); err != nil {
			return fmt.Errorf("write to %s failed: %w", portName, err)
		}
		written++
		if bad {
			corrupted++
			logger.Debug().Str("frame", string(frame)).Msg("corrupted frame written")
		}
	}
}
