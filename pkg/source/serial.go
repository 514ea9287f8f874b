// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package source

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/accelstat/pkg/accel"
)

const readChunkSize = 256

// ErrorHandler receives decode errors and read failures from a serial source
type ErrorHandler func(error)

// SerialOption configures a Serial source
type SerialOption func(*Serial)

// WithPortOpener replaces the function used to open ports
func WithPortOpener(open PortOpener) SerialOption {
	return func(s *Serial) {
		s.open = open
	}
}

// WithPortLister replaces the function used to enumerate ports
func WithPortLister(list func() ([]string, error)) SerialOption {
	return func(s *Serial) {
		s.list = list
	}
}

// WithErrorHandler sets the handler for discarded frames and read failures
func WithErrorHandler(h ErrorHandler) SerialOption {
	return func(s *Serial) {
		s.onError = h
	}
}

// WithSerialLogger sets the logger
func WithSerialLogger(logger zerolog.Logger) SerialOption {
	return func(s *Serial) {
		s.logger = logger
	}
}

// WithDecoderOptions passes options through to the frame decoder
func WithDecoderOptions(opts ...accel.DecoderOption) SerialOption {
	return func(s *Serial) {
		s.decoder = accel.NewDecoder(opts...)
	}
}

// Serial is a source backed by a serial port.
//
// Connecting and reading are independent: an open port that is not Reading
// drains and discards its input. Entering Reading starts from a clean decoder.
type Serial struct {
	open    PortOpener
	list    func() ([]string, error)
	onError ErrorHandler
	logger  zerolog.Logger

	mu        sync.Mutex
	port      Port
	name      string
	connected bool
	reading   bool
	decoder   *accel.Decoder
	sink      Sink

	// conn changes on every open and close; epoch on every change of the
	// reading flag. Workers and deliveries compare against them.
	conn  uint64
	epoch uint64
}

// NewSerial creates a disconnected serial source
func NewSerial(opts ...SerialOption) *Serial {
	s := &Serial{
		open:    OpenSerialPort,
		list:    ListPorts,
		logger:  zerolog.Nop(),
		decoder: accel.NewDecoder(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind implements Source
func (s *Serial) Kind() Kind {
	return KindSerial
}

// SetSink implements Source
func (s *Serial) SetSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// Start implements Source by entering Reading
func (s *Serial) Start() error {
	return s.StartReading()
}

// Stop implements Source by leaving Reading
func (s *Serial) Stop() error {
	return s.StopReading()
}

// IsRunning reports whether the source is Reading
func (s *Serial) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reading
}

// State returns the connection state
func (s *Serial) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stateOf(s.connected, s.reading)
}

// PortName returns the name of the open port, or "" when disconnected
func (s *Serial) PortName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Ports lists the available ports without touching connection state
func (s *Serial) Ports() ([]string, error) {
	return s.list()
}

// Open connects to the named port. The source stays Disconnected on failure.
func (s *Serial) Open(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return fmt.Errorf("%w to %s", ErrAlreadyConnected, s.name)
	}

	port, err := s.open(name)
	if err != nil {
		s.logger.Warn().Err(err).Str("port", name).Msg("open failed")
		return fmt.Errorf("%w %s: %w", ErrPortOpen, name, err)
	}

	s.port = port
	s.name = name
	s.connected = true
	s.reading = false
	s.conn++
	s.decoder.Reset()

	s.logger.Info().Str("port", name).Int("baud", BaudRate).Msg("connected")
	go s.readLoop(port, s.conn)
	return nil
}

// Close disconnects, from either Connected or Reading. Closing while
// Disconnected is a no-op.
func (s *Serial) Close() error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil
	}
	port, name := s.port, s.name
	s.disconnectLocked()
	s.mu.Unlock()

	s.logger.Info().Str("port", name).Msg("disconnected")
	return port.Close()
}

// StartReading moves Connected to Reading and resets the decoder.
// Already Reading is a no-op.
func (s *Serial) StartReading() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	if s.reading {
		return nil
	}
	s.decoder.Reset()
	s.reading = true
	s.epoch++
	s.logger.Debug().Str("port", s.name).Msg("reading started")
	return nil
}

// StopReading moves Reading to Connected. Input is discarded from then on.
func (s *Serial) StopReading() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.reading {
		return nil
	}
	s.reading = false
	s.epoch++
	s.logger.Debug().Str("port", s.name).Msg("reading stopped")
	return nil
}

// ToggleReading flips between Connected and Reading
func (s *Serial) ToggleReading() error {
	if s.IsRunning() {
		return s.StopReading()
	}
	return s.StartReading()
}

func (s *Serial) disconnectLocked() {
	s.port = nil
	s.name = ""
	s.connected = false
	s.reading = false
	s.conn++
	s.epoch++
	s.decoder.Reset()
}

// decoded is one outcome of a completed frame
type decoded struct {
	sample accel.Sample
	err    error
}

func (s *Serial) readLoop(port Port, conn uint64) {
	buf := make([]byte, readChunkSize)
	for {
		n, err := port.Read(buf)
		if err != nil {
			s.readFailed(port, conn, err)
			return
		}
		if n == 0 {
			continue
		}

		s.mu.Lock()
		if s.conn != conn {
			s.mu.Unlock()
			return
		}
		if !s.reading {
			s.mu.Unlock()
			continue
		}
		var out []decoded
		s.decoder.Decode(buf[:n], func(sample accel.Sample) {
			out = append(out, decoded{sample: sample})
		}, func(err error) {
			out = append(out, decoded{err: err})
		})
		epoch := s.epoch
		s.mu.Unlock()

		s.deliver(out, epoch)
	}
}

// deliver hands decode results to the sink and error handler, in order.
// Each delivery rechecks the epoch, so nothing goes out after StopReading.
func (s *Serial) deliver(out []decoded, epoch uint64) {
	for _, d := range out {
		s.mu.Lock()
		if s.epoch != epoch {
			s.mu.Unlock()
			return
		}
		sink, onError := s.sink, s.onError
		s.mu.Unlock()

		if d.err != nil {
			s.logger.Debug().Str("kind", accel.ErrorKind(d.err)).Err(d.err).Msg("frame discarded")
			if onError != nil {
				onError(d.err)
			}
			continue
		}
		if sink != nil {
			sink(d.sample)
		}
	}
}

func (s *Serial) readFailed(port Port, conn uint64, err error) {
	s.mu.Lock()
	if s.conn != conn {
		// Closed on purpose
		s.mu.Unlock()
		return
	}
	name := s.name
	s.disconnectLocked()
	onError := s.onError
	s.mu.Unlock()

	_ = port.Close()
	s.logger.Error().Err(err).Str("port", name).Msg("port lost")
	if onError != nil {
		onError(fmt.Errorf("%w on %s: %w", ErrPortLost, name, err))
	}
}
