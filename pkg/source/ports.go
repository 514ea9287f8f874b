// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package source

import (
	"fmt"
	"io"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// BaudRate is the fixed link speed of the accelerometer board
const BaudRate = 115200

// Port is the read side of an open serial connection
type Port interface {
	io.Reader
	io.Closer
}

// PortOpener opens a port by name
type PortOpener func(name string) (Port, error)

// PortDetails describes an enumerated port
type PortDetails struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

func (d PortDetails) String() string {
	if !d.IsUSB {
		return d.Name
	}
	s := fmt.Sprintf("%s [%s:%s]", d.Name, d.VID, d.PID)
	if d.Product != "" {
		s += " " + d.Product
	}
	if d.SerialNumber != "" {
		s += " (" + d.SerialNumber + ")"
	}
	return s
}

// Mode returns the serial settings: 115200 baud, 8 data bits, no parity, one stop bit
func Mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// OpenSerialPort opens a real serial device. The port is only ever read.
func OpenSerialPort(name string) (Port, error) {
	port, err := serial.Open(name, Mode())
	if err != nil {
		return nil, err
	}
	return port, nil
}

// ListPorts returns the names of the serial ports present on the system
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// ListPortDetails returns the serial ports with USB identification where available
func ListPortDetails() ([]PortDetails, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	details := make([]PortDetails, 0, len(ports))
	for _, p := range ports {
		details = append(details, PortDetails{
			Name:         p.Name,
			IsUSB:        p.IsUSB,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
			Product:      p.Product,
		})
	}
	return details, nil
}
