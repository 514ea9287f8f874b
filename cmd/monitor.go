// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/accelstat/pkg/accel"
	"github.com/Thermoquad/accelstat/pkg/distributor"
	"github.com/Thermoquad/accelstat/pkg/source"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive monitor with port picker",
	Long: `Open an interactive terminal monitor.

Pick a serial port from the list and connect, then start and stop reading
without closing the port. The simulated source can be swapped in at any time
to check the display without hardware.

Keys:
  ↑/↓     select port
  c/enter connect to or disconnect from the selected port
  r       start/stop reading
  s       switch between serial and simulated source
  p       refresh port list
  x       reset statistics
  q       quit

--port opens the given port on start; --simulate starts on the simulated source.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// portItem implements list.Item
type portItem struct {
	details source.PortDetails
}

func (p portItem) Title() string { return p.details.Name }
func (p portItem) Description() string {
	if !p.details.IsUSB {
		return "serial port"
	}
	desc := fmt.Sprintf("USB %s:%s", p.details.VID, p.details.PID)
	if p.details.Product != "" {
		desc += " " + p.details.Product
	}
	return desc
}
func (p portItem) FilterValue() string { return p.details.Name }

// monitorModel is the Bubble Tea model for the monitor TUI
type monitorModel struct {
	dist   *distributor.Distributor
	serial *source.Serial
	sim    *source.Simulated

	portList list.Model

	stats         *accel.Statistics
	window        *accel.Window
	lastSample    *accel.Sample
	eventLog      []eventLogEntry
	maxLogEntries int

	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type monitorTickMsg time.Time

type portsMsg struct {
	ports []source.PortDetails
	err   error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialMonitorModel(dist *distributor.Distributor, serial *source.Serial, sim *source.Simulated) monitorModel {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	portList := list.New([]list.Item{}, delegate, 30, 10)
	portList.Title = "Ports"
	portList.SetShowStatusBar(false)
	portList.SetShowHelp(false)
	portList.SetFilteringEnabled(false)

	return monitorModel{
		dist:          dist,
		serial:        serial,
		sim:           sim,
		portList:      portList,
		stats:         accel.NewStatistics(),
		window:        accel.NewWindow(noiseWindowSize),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	var p *tea.Program

	serial := source.NewSerial(
		source.WithSerialLogger(logger),
		source.WithErrorHandler(func(err error) {
			if errors.Is(err, source.ErrPortLost) {
				p.Send(portLostMsg{})
				return
			}
			p.Send(frameMsg{err: err})
		}),
	)
	sim := source.NewSimulated(source.WithSimulatedLogger(logger))
	dist := distributor.New(distributor.WithLogger(logger))
	defer dist.Close()
	defer serial.Close()

	m := initialMonitorModel(dist, serial, sim)
	p = tea.NewProgram(m, tea.WithAltScreen())

	dist.Subscribe(func(sample accel.Sample) {
		p.Send(frameMsg{sample: &sample})
	})

	switch {
	case simulate:
		if err := dist.SetSource(sim); err != nil {
			return err
		}
		if err := dist.Start(); err != nil {
			return err
		}
	case portName != "":
		if err := dist.SetSource(serial); err != nil {
			return err
		}
		if err := serial.Open(portName); err != nil {
			return err
		}
		if err := dist.Start(); err != nil {
			return err
		}
	default:
		if err := dist.SetSource(serial); err != nil {
			return err
		}
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(monitorTickCmd(), loadPortsCmd())
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func loadPortsCmd() tea.Cmd {
	return func() tea.Msg {
		ports, err := source.ListPortDetails()
		return portsMsg{ports: ports, err: err}
	}
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case monitorTickMsg:
		m.stats.CalculateRates()
		return m, monitorTickCmd()

	case portsMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Port enumeration failed: %v", msg.err), true)
			break
		}
		items := make([]list.Item, len(msg.ports))
		for i, d := range msg.ports {
			items[i] = portItem{details: d}
		}
		m.portList.SetItems(items)
		m.addLogEntry(fmt.Sprintf("Found %d ports", len(msg.ports)), false)

	case frameMsg:
		m.stats.Update(msg.sample, msg.err)
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s: %v", accel.FormatErrorKind(msg.err), msg.err), true)
			break
		}
		sample := *msg.sample
		m.lastSample = &sample
		m.window.Add(sample)

	case portLostMsg:
		m.addLogEntry("Serial port lost; select a port and press c to reconnect", true)
	}

	return m, nil
}

func (m monitorModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "c", "enter":
		m.toggleConnection()

	case "r":
		m.toggleReading()

	case "s":
		m.switchSource()

	case "p":
		return m, loadPortsCmd()

	case "x":
		m.stats.Reset()
		m.window.Reset()
		m.addLogEntry("Statistics reset", false)

	default:
		var cmd tea.Cmd
		m.portList, cmd = m.portList.Update(msg)
		return m, cmd
	}
	return m, nil
}

//////////////////////////////////////////////////////////////
// Actions
//////////////////////////////////////////////////////////////

func (m *monitorModel) toggleConnection() {
	if m.dist.Kind() != source.KindSerial {
		m.addLogEntry("Switch to the serial source first ('s')", true)
		return
	}

	if m.serial.State() != source.Disconnected {
		name := m.serial.PortName()
		if err := m.serial.Close(); err != nil {
			m.addLogEntry(fmt.Sprintf("Close %s: %v", name, err), true)
			return
		}
		m.addLogEntry(fmt.Sprintf("Disconnected from %s", name), false)
		return
	}

	item, ok := m.portList.SelectedItem().(portItem)
	if !ok {
		m.addLogEntry("No port selected", true)
		return
	}
	if err := m.serial.Open(item.details.Name); err != nil {
		m.addLogEntry(err.Error(), true)
		return
	}
	m.addLogEntry(fmt.Sprintf("Connected to %s (press r to read)", item.details.Name), false)
}

func (m *monitorModel) toggleReading() {
	if m.dist.IsRunning() {
		if err := m.dist.Stop(); err != nil {
			m.addLogEntry(err.Error(), true)
			return
		}
		m.addLogEntry("Reading stopped", false)
		return
	}
	if err := m.dist.Start(); err != nil {
		m.addLogEntry(err.Error(), true)
		return
	}
	m.addLogEntry("Reading started", false)
}

func (m *monitorModel) switchSource() {
	if m.dist.Kind() == source.KindSimulated {
		if err := m.dist.SetSource(m.serial); err != nil {
			m.addLogEntry(err.Error(), true)
		}
		m.addLogEntry("Switched to serial source", false)
		return
	}

	if err := m.dist.SetSource(m.sim); err != nil {
		m.addLogEntry(err.Error(), true)
	}
	if err := m.dist.Start(); err != nil {
		m.addLogEntry(err.Error(), true)
		return
	}
	m.addLogEntry("Switched to simulated source", false)
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m *monitorModel) updateListSize() {
	listHeight := m.height / 3
	if listHeight < 5 {
		listHeight = 5
	}
	m.portList.SetSize(32, listHeight)
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

// connectionLine describes the active source and its state
func (m monitorModel) connectionLine() string {
	if m.dist.Kind() == source.KindSimulated {
		if m.dist.IsRunning() {
			return statsValueStyle.Render("Simulated: running")
		}
		return warningStyle.Render("Simulated: stopped")
	}

	state := m.serial.State()
	switch state {
	case source.Reading:
		return statsValueStyle.Render(fmt.Sprintf("%s: %s @ %d baud", state, m.serial.PortName(), source.BaudRate))
	case source.Connected:
		return warningStyle.Render(fmt.Sprintf("%s: %s (not reading)", state, m.serial.PortName()))
	default:
		return errorStyle.Render(state.String())
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("ACCELSTAT - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render("c connect | r read | s source | p ports | x reset | q quit"))
	s.WriteString("\n\n")
	s.WriteString(m.connectionLine())
	s.WriteString("\n\n")

	// Right column: sample, noise and statistics
	var right strings.Builder
	if m.lastSample != nil {
		right.WriteString(boxStyle.Render(renderSample(*m.lastSample) + "\n" + renderNoise(m.window.Summary())))
	} else {
		right.WriteString(boxStyle.Render(headerStyle.Render("(no samples yet)")))
	}
	right.WriteString("\n")
	right.WriteString(boxStyle.Render(renderStats(m.stats)))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(m.portList.View()),
		" ",
		right.String(),
	))
	s.WriteString("\n\n")

	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	logHeight := m.height - m.height/3 - 14
	if logHeight < 5 {
		logHeight = 5
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(renderEventLog(m.eventLog, logHeight)))

	return s.String()
}
