// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package source

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/accelstat/pkg/accel"
)

// Simulated generator defaults
const (
	DefaultSimulatedPeriod = 50 * time.Millisecond
	SimulatedRange         = 2.0 // g, per axis
)

// SimulatedOption configures a Simulated source
type SimulatedOption func(*Simulated)

// WithPeriod sets the interval between samples
func WithPeriod(d time.Duration) SimulatedOption {
	return func(s *Simulated) {
		if d > 0 {
			s.period = d
		}
	}
}

// WithRand sets the random generator, for reproducible output
func WithRand(r *rand.Rand) SimulatedOption {
	return func(s *Simulated) {
		s.rng = r
	}
}

// WithSimulatedLogger sets the logger
func WithSimulatedLogger(logger zerolog.Logger) SimulatedOption {
	return func(s *Simulated) {
		s.logger = logger
	}
}

// Simulated emits random samples, each axis uniform in [-2, 2] g
type Simulated struct {
	period time.Duration
	logger zerolog.Logger

	mu      sync.Mutex
	rng     *rand.Rand
	sink    Sink
	running bool
	stop    chan struct{}
	epoch   uint64
}

// NewSimulated creates a stopped simulated source
func NewSimulated(opts ...SimulatedOption) *Simulated {
	s := &Simulated{
		period: DefaultSimulatedPeriod,
		logger: zerolog.Nop(),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind implements Source
func (s *Simulated) Kind() Kind {
	return KindSimulated
}

// SetSink implements Source
func (s *Simulated) SetSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// IsRunning implements Source
func (s *Simulated) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start begins generating samples. Starting a running source is a no-op.
func (s *Simulated) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	s.running = true
	s.epoch++
	s.stop = make(chan struct{})
	go s.run(s.stop, s.epoch)

	s.logger.Debug().Dur("period", s.period).Msg("simulation started")
	return nil
}

// Stop halts generation. Stopping a stopped source is a no-op.
func (s *Simulated) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	s.epoch++
	close(s.stop)

	s.logger.Debug().Msg("simulation stopped")
	return nil
}

func (s *Simulated) run(stop <-chan struct{}, epoch uint64) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.epoch != epoch {
			s.mu.Unlock()
			return
		}
		sample := accel.Sample{X: s.axis(), Y: s.axis(), Z: s.axis()}
		sink := s.sink
		s.mu.Unlock()

		if sink != nil {
			sink(sample)
		}
	}
}

func (s *Simulated) axis() float64 {
	return (s.rng.Float64()*2 - 1) * SimulatedRange
}
