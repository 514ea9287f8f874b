// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Thermoquad/accelstat/pkg/accel"
	"github.com/Thermoquad/accelstat/pkg/distributor"
	"github.com/Thermoquad/accelstat/pkg/source"
)

func newTestDistributor(t *testing.T, src source.Source) *distributor.Distributor {
	t.Helper()
	d := distributor.New()
	if err := d.SetSource(src); err != nil {
		t.Fatalf("SetSource failed: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// ============================================================
// Logging Tests
// ============================================================

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "info", "json")
	if err != nil {
		t.Fatalf("newLogger failed: %v", err)
	}

	l.Debug().Msg("hidden")
	l.Info().Str("port", "/dev/ttyACM0").Msg("connected")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Debug message logged at info level: %q", out)
	}
	if !strings.Contains(out, `"port":"/dev/ttyACM0"`) {
		t.Errorf("Expected JSON field in %q", out)
	}
}

func TestNewLogger_Invalid(t *testing.T) {
	if _, err := newLogger(&bytes.Buffer{}, "loud", "json"); err == nil {
		t.Error("Expected error for invalid level")
	}
	if _, err := newLogger(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Error("Expected error for invalid format")
	}
}

// ============================================================
// Emulator Tests
// ============================================================

func TestFrameEmulator_CleanFramesDecode(t *testing.T) {
	emu := newFrameEmulator(rand.New(rand.NewPCG(1, 2)), 0)
	d := accel.NewDecoder()

	valid := 0
	for i := 0; i < 200; i++ {
		frame, bad := emu.frame(time.Duration(i) * 50 * time.Millisecond)
		if bad {
			t.Fatalf("Frame %d corrupted with corrupt=0", i)
		}
		d.Decode(frame, func(accel.Sample) { valid++ }, func(err error) {
			t.Fatalf("Frame %d rejected: %v", i, err)
		})
	}
	if valid != 200 {
		t.Errorf("Expected 200 valid frames, got %d", valid)
	}
}

func TestFrameEmulator_CorruptFramesRejected(t *testing.T) {
	emu := newFrameEmulator(rand.New(rand.NewPCG(3, 4)), 1)
	d := accel.NewDecoder()

	rejected := 0
	for i := 0; i < 200; i++ {
		frame, bad := emu.frame(time.Duration(i) * 50 * time.Millisecond)
		if !bad {
			t.Fatalf("Frame %d not corrupted with corrupt=1", i)
		}
		d.Decode(frame, func(s accel.Sample) {
			t.Fatalf("Corrupted frame %q accepted as %+v", frame, s)
		}, func(error) { rejected++ })
	}
	if rejected != 200 {
		t.Errorf("Expected 200 rejected frames, got %d", rejected)
	}
}

func TestFrameEmulator_Tilt(t *testing.T) {
	emu := newFrameEmulator(rand.New(rand.NewPCG(5, 6)), 0)

	// A quarter period in, the board is at full amplitude
	pitch, _ := emu.sample(emulatePeriod / 4).Tilt()
	if pitch < emulateAmplitude-1 || pitch > emulateAmplitude+1 {
		t.Errorf("Expected pitch near %v, got %v", emulateAmplitude, pitch)
	}
}

// ============================================================
// Error Detection Tests
// ============================================================

func TestSyncTracker(t *testing.T) {
	var tracker syncTracker
	bad := frameEvent{err: errors.New("cut frame")}
	good := frameEvent{sample: &accel.Sample{Z: 1}}

	if count, _ := tracker.observe(bad); count {
		t.Error("Error before sync should not be counted")
	}
	if count, synced := tracker.observe(good); !count || !synced {
		t.Errorf("First valid frame: count=%v synced=%v, want true true", count, synced)
	}
	if count, synced := tracker.observe(bad); !count || synced {
		t.Errorf("Error after sync: count=%v synced=%v, want true false", count, synced)
	}
	if tracker.skipped != 1 {
		t.Errorf("Expected 1 skipped frame, got %d", tracker.skipped)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{0, "0 seconds"},
		{time.Second, "1 second"},
		{61 * time.Second, "1 minute and 1 second"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "2 hours, 3 minutes, and 4 seconds"},
		{time.Hour, "1 hour"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.expected {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.expected)
		}
	}
}

func TestModel_Update(t *testing.T) {
	m := initialModel("Simulated", 10, false)

	var updated tea.Model = m
	updated, _ = updated.Update(syncMsg{skipped: 2})
	updated, _ = updated.Update(frameMsg{sample: &accel.Sample{Z: 1}})
	updated, _ = updated.Update(frameMsg{err: &accel.FrameError{Err: accel.ErrCRCMismatch}})

	got := updated.(model)
	if !got.synchronized || got.skipped != 2 {
		t.Errorf("Expected synchronized with 2 skipped, got %v/%d", got.synchronized, got.skipped)
	}
	if got.stats.ValidFrames != 1 || got.stats.CRCErrors != 1 {
		t.Errorf("Unexpected stats: valid=%d crc=%d", got.stats.ValidFrames, got.stats.CRCErrors)
	}
	if got.lastSample == nil || got.lastSample.Z != 1 {
		t.Errorf("Expected last sample to be recorded, got %+v", got.lastSample)
	}
	if len(got.eventLog) != 2 {
		t.Errorf("Expected sync and error log entries, got %d", len(got.eventLog))
	}

	view := got.View()
	for _, want := range []string{"ERROR DETECTION", "Synchronized", "CRC"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected %q in view", want)
		}
	}
}

func TestModel_LogIsBounded(t *testing.T) {
	m := initialModel("Simulated", 10, true)
	for i := 0; i < 250; i++ {
		m.addLogEntry("entry", false)
	}
	if len(m.eventLog) != m.maxLogEntries {
		t.Errorf("Expected %d log entries, got %d", m.maxLogEntries, len(m.eventLog))
	}
}

// ============================================================
// Monitor Tests
// ============================================================

func TestPortItem(t *testing.T) {
	plain := portItem{details: source.PortDetails{Name: "/dev/ttyS0"}}
	if plain.Title() != "/dev/ttyS0" || plain.Description() != "serial port" {
		t.Errorf("Unexpected item %q / %q", plain.Title(), plain.Description())
	}

	usb := portItem{details: source.PortDetails{Name: "/dev/ttyACM0", IsUSB: true, VID: "2341", PID: "0043", Product: "Uno"}}
	if usb.Description() != "USB 2341:0043 Uno" {
		t.Errorf("Unexpected description %q", usb.Description())
	}
}

func TestMonitorModel_PortsAndSources(t *testing.T) {
	serial := source.NewSerial(source.WithPortOpener(func(name string) (source.Port, error) {
		return nil, errors.New("no hardware")
	}))
	sim := source.NewSimulated(source.WithPeriod(time.Hour))
	dist := newTestDistributor(t, serial)

	var updated tea.Model = initialMonitorModel(dist, serial, sim)
	updated, _ = updated.Update(portsMsg{ports: []source.PortDetails{{Name: "/dev/ttyACM0"}}})

	// Connecting fails but is reported, not fatal
	updated, _ = updated.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	m := updated.(monitorModel)
	if serial.State() != source.Disconnected {
		t.Errorf("Expected Disconnected, got %v", serial.State())
	}
	last := m.eventLog[len(m.eventLog)-1]
	if !last.isError || !strings.Contains(last.message, "no hardware") {
		t.Errorf("Expected open failure in log, got %+v", last)
	}

	// Switching to the simulated source starts it
	updated, _ = updated.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	if dist.Kind() != source.KindSimulated || !sim.IsRunning() {
		t.Errorf("Expected running simulated source, got %v running=%v", dist.Kind(), sim.IsRunning())
	}

	// And back
	updated, _ = updated.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	if dist.Kind() != source.KindSerial || sim.IsRunning() {
		t.Errorf("Expected serial source with simulation stopped")
	}

	if view := updated.View(); !strings.Contains(view, "Disconnected") {
		t.Errorf("Expected connection state in view")
	}
}
