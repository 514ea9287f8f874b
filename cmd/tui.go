// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/accelstat/pkg/accel"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for notices
}

// TUI model
type model struct {
	connInfo      string
	statsInterval int
	showAll       bool
	stats         *accel.Statistics
	window        *accel.Window
	eventLog      []eventLogEntry
	maxLogEntries int
	synchronized  bool
	skipped       int
	lastSample    *accel.Sample
	portLost      bool
	width         int
	height        int
	quitting      bool
}

// Messages
type tickMsg time.Time
type frameMsg frameEvent
type syncMsg struct {
	skipped int
}
type portLostMsg struct{}

// Styles shared by the terminal UIs
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// formatDuration formats a duration as a human-friendly string
func formatDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		return "0 seconds"
	}

	hours := seconds / 3600
	minutes := (seconds / 60) % 60
	seconds %= 60

	plural := func(n int64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	parts := []string{}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func initialModel(connInfo string, statsInterval int, showAll bool) model {
	return model{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		showAll:       showAll,
		stats:         accel.NewStatistics(),
		window:        accel.NewWindow(noiseWindowSize),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "x":
			m.stats.Reset()
			m.window.Reset()
			m.addLogEntry("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case syncMsg:
		m.synchronized = true
		m.skipped = msg.skipped
		if msg.skipped > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after discarding %d frames", msg.skipped), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}

	case frameMsg:
		m.stats.Update(msg.sample, msg.err)
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s: %v", accel.FormatErrorKind(msg.err), msg.err), true)
			break
		}
		sample := *msg.sample
		m.lastSample = &sample
		m.window.Add(sample)
		if m.showAll {
			m.addLogEntry(fmt.Sprintf("X=%+.3f Y=%+.3f Z=%+.3f (valid)", sample.X, sample.Y, sample.Z), false)
		}

	case portLostMsg:
		m.portLost = true
		m.addLogEntry("Serial port lost", true)
	}

	return m, nil
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// renderStats renders the frame counters and rates
func renderStats(stats *accel.Statistics) string {
	stats.CalculateRates()
	errors := stats.Errors()
	var errorPercent float64
	if stats.TotalFrames > 0 {
		errorPercent = float64(errors) * 100.0 / float64(stats.TotalFrames)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.TotalFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", stats.ValidFrames, stats.ValidPercent())),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", errors, errorPercent)),
	))

	if errors > 0 {
		b.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			statsLabelStyle.Render("CRC:"), errorStyle.Render(fmt.Sprintf("%d", stats.CRCErrors)),
			statsLabelStyle.Render("Format:"), errorStyle.Render(fmt.Sprintf("%d", stats.FormatErrors)),
			statsLabelStyle.Render("Parse:"), errorStyle.Render(fmt.Sprintf("%d", stats.ParseErrors)),
		))
	}

	errorRate := statsValueStyle.Render(fmt.Sprintf("%.1f err/s", stats.ErrorRate))
	if stats.ErrorRate > 0 {
		errorRate = errorStyle.Render(fmt.Sprintf("%.1f err/s", stats.ErrorRate))
	}
	b.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", stats.FrameRate)),
		statsLabelStyle.Render("Error Rate:"), errorRate,
	))
	return b.String()
}

// renderSample renders the latest sample with tilt
func renderSample(s accel.Sample) string {
	pitch, roll := s.Tilt()
	return fmt.Sprintf("%s %s   %s %s   %s %s\n%s %s   %s %s   %s %s",
		statsLabelStyle.Render("X:"), statsValueStyle.Render(fmt.Sprintf("%+.3f g", s.X)),
		statsLabelStyle.Render("Y:"), statsValueStyle.Render(fmt.Sprintf("%+.3f g", s.Y)),
		statsLabelStyle.Render("Z:"), statsValueStyle.Render(fmt.Sprintf("%+.3f g", s.Z)),
		statsLabelStyle.Render("|a|:"), statsValueStyle.Render(fmt.Sprintf("%.3f g", s.Magnitude())),
		statsLabelStyle.Render("Pitch:"), statsValueStyle.Render(fmt.Sprintf("%+.1f°", pitch)),
		statsLabelStyle.Render("Roll:"), statsValueStyle.Render(fmt.Sprintf("%+.1f°", roll)),
	)
}

// renderNoise renders the per-axis mean and spread of recent samples
func renderNoise(sum accel.Summary) string {
	return fmt.Sprintf("%s %s   %s %s   %s %s",
		statsLabelStyle.Render("σX:"), statsValueStyle.Render(fmt.Sprintf("%.4f", sum.X.StdDev)),
		statsLabelStyle.Render("σY:"), statsValueStyle.Render(fmt.Sprintf("%.4f", sum.Y.StdDev)),
		statsLabelStyle.Render("σZ:"), statsValueStyle.Render(fmt.Sprintf("%.4f", sum.Z.StdDev)),
	) + headerStyle.Render(fmt.Sprintf("   (last %d samples)", sum.Count))
}

// renderEventLog renders the newest entries that fit in height lines
func renderEventLog(entries []eventLogEntry, height int) string {
	var b strings.Builder
	startIdx := len(entries) - height
	if startIdx < 0 {
		startIdx = 0
	}

	if len(entries) == 0 {
		b.WriteString(headerStyle.Render("  (no events yet)"))
		return b.String()
	}
	for _, entry := range entries[startIdx:] {
		timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
		if entry.isError {
			b.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), errorStyle.Render("✗ "+entry.message)))
		} else {
			b.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), warningStyle.Render("ℹ "+entry.message)))
		}
	}
	return b.String()
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	mode := "Errors only"
	if m.showAll {
		mode = "All frames"
	}

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("ACCELSTAT - ERROR DETECTION"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | Running %s | 'x' reset, 'q' quit",
		m.connInfo, mode, formatDuration(time.Since(m.stats.StartTime)))))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case m.portLost:
		s.WriteString(errorStyle.Render("✗ Serial port lost"))
	case !m.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
	default:
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.skipped > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (discarded %d frames)", m.skipped)))
		}
	}
	s.WriteString("\n\n")

	s.WriteString(boxStyle.Render(renderStats(m.stats)))
	s.WriteString("\n\n")

	// Latest sample (only shown once one arrived)
	if m.lastSample != nil {
		s.WriteString(statsLabelStyle.Render("Latest Sample:"))
		s.WriteString("\n")
		s.WriteString(boxStyle.Render(renderSample(*m.lastSample) + "\n" + renderNoise(m.window.Summary())))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 17 // Reserve space for header, stats and sample
	if logHeight < 5 {
		logHeight = 5
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(renderEventLog(m.eventLog, logHeight)))

	return s.String()
}
