// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Thermoquad/accelstat/pkg/accel"
	"github.com/Thermoquad/accelstat/pkg/distributor"
	"github.com/Thermoquad/accelstat/pkg/source"
)

// frameEvent is one completed frame: a sample or the reason it was discarded
type frameEvent struct {
	sample *accel.Sample
	err    error
}

// session is the source selected by the flags, attached to a distributor
type session struct {
	dist   *distributor.Distributor
	serial *source.Serial // nil when simulated
	info   string

	lost     chan struct{}
	lostOnce sync.Once
}

// openSession builds the source selected by --port or --simulate. A serial
// port is opened but not yet reading; call dist.Start to begin.
//
// onError receives discarded frames and may be nil. It runs on the source's
// goroutine, in order with samples delivered to subscribers.
func openSession(onError source.ErrorHandler) (*session, error) {
	s := &session{
		dist: distributor.New(distributor.WithLogger(logger)),
		lost: make(chan struct{}),
	}

	handler := func(err error) {
		if errors.Is(err, source.ErrPortLost) {
			s.lostOnce.Do(func() { close(s.lost) })
		}
		if onError != nil {
			onError(err)
		}
	}

	switch {
	case simulate:
		sim := source.NewSimulated(source.WithSimulatedLogger(logger))
		if err := s.dist.SetSource(sim); err != nil {
			return nil, err
		}
		s.info = fmt.Sprintf("Simulated: random samples every %v", source.DefaultSimulatedPeriod)

	case portName != "":
		serial := source.NewSerial(
			source.WithSerialLogger(logger),
			source.WithErrorHandler(handler),
		)
		if err := serial.Open(portName); err != nil {
			return nil, err
		}
		if err := s.dist.SetSource(serial); err != nil {
			_ = serial.Close()
			return nil, err
		}
		s.serial = serial
		s.info = fmt.Sprintf("Serial: %s @ %d baud", portName, source.BaudRate)

	default:
		return nil, fmt.Errorf("either --port or --simulate must be specified")
	}

	return s, nil
}

// Lost is closed when the serial port fails while open
func (s *session) Lost() <-chan struct{} {
	return s.lost
}

// Close stops the source, releases subscribers and closes the port
func (s *session) Close() error {
	err := s.dist.Close()
	if s.serial != nil {
		if closeErr := s.serial.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

// eventFeed forwards samples and discarded frames, in arrival order, to a
// channel read by a command's main loop
type eventFeed struct {
	events chan frameEvent
	done   chan struct{}
	once   sync.Once
}

func newEventFeed(buffer int) *eventFeed {
	return &eventFeed{
		events: make(chan frameEvent, buffer),
		done:   make(chan struct{}),
	}
}

func (f *eventFeed) send(ev frameEvent) {
	select {
	case f.events <- ev:
	case <-f.done:
	}
}

// onSample is a distributor subscriber
func (f *eventFeed) onSample(sample accel.Sample) {
	f.send(frameEvent{sample: &sample})
}

// onError is a source error handler. Port loss is reported by the session.
func (f *eventFeed) onError(err error) {
	if errors.Is(err, source.ErrPortLost) {
		return
	}
	f.send(frameEvent{err: err})
}

// stop releases any sender blocked on a full channel
func (f *eventFeed) stop() {
	f.once.Do(func() { close(f.done) })
}
