// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package distributor fans samples out from the active source to any number
// of subscribers.
//
// Subscribers are either callbacks, run on the source's goroutine, or
// buffered channels that drop new samples while full. Delivery never blocks
// on a channel subscriber.
package distributor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Thermoquad/accelstat/pkg/accel"
	"github.com/Thermoquad/accelstat/pkg/source"
)

var (
	ErrNoSource           = errors.New("no data source set")
	ErrSubscriberNotFound = errors.New("subscriber not found")
)

// Stats counts deliveries to one subscriber
type Stats struct {
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

type subscriber struct {
	id string
	fn func(accel.Sample)

	// mu guards ch against being closed during a send
	mu sync.Mutex
	ch chan accel.Sample

	removed atomic.Bool
	sent    atomic.Uint64
	dropped atomic.Uint64
}

func (s *subscriber) deliver(sample accel.Sample) {
	if s.fn != nil {
		s.fn(sample)
		s.sent.Add(1)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed.Load() {
		return
	}
	select {
	case s.ch <- sample:
		s.sent.Add(1)
	default:
		s.dropped.Add(1)
	}
}

func (s *subscriber) close() {
	s.removed.Store(true)
	if s.ch == nil {
		return
	}
	s.mu.Lock()
	close(s.ch)
	s.mu.Unlock()
}

// Option configures a Distributor
type Option func(*Distributor)

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Distributor) {
		d.logger = logger
	}
}

// Distributor owns the active source and delivers each of its samples to
// every subscriber, in order.
type Distributor struct {
	logger zerolog.Logger

	mu     sync.Mutex
	source source.Source
	// subs is replaced, never mutated, so a delivery can range over it unlocked
	subs []*subscriber

	published atomic.Uint64
}

// New creates a distributor with no source and no subscribers
func New(opts ...Option) *Distributor {
	d := &Distributor{
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetSource stops and detaches the current source, then attaches src.
// A nil src leaves the distributor without a source.
func (d *Distributor) SetSource(src source.Source) error {
	d.mu.Lock()
	prev := d.source
	d.source = src
	d.mu.Unlock()

	var err error
	if prev != nil {
		if stopErr := prev.Stop(); stopErr != nil {
			err = fmt.Errorf("failed to stop %s source: %w", prev.Kind(), stopErr)
		}
		prev.SetSink(nil)
	}
	if src != nil {
		src.SetSink(d.publish)
		d.logger.Info().Stringer("kind", src.Kind()).Msg("source attached")
	}
	return err
}

// Source returns the active source, or nil
func (d *Distributor) Source() source.Source {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source
}

// Kind returns the kind of the active source
func (d *Distributor) Kind() source.Kind {
	src := d.Source()
	if src == nil {
		return source.KindNone
	}
	return src.Kind()
}

// Start starts the active source. Starting a running source is a no-op.
func (d *Distributor) Start() error {
	src := d.Source()
	if src == nil {
		return ErrNoSource
	}
	if src.IsRunning() {
		return nil
	}
	return src.Start()
}

// Stop stops the active source. Stopping a stopped source is a no-op.
func (d *Distributor) Stop() error {
	src := d.Source()
	if src == nil || !src.IsRunning() {
		return nil
	}
	return src.Stop()
}

// IsRunning reports whether the active source is running
func (d *Distributor) IsRunning() bool {
	src := d.Source()
	return src != nil && src.IsRunning()
}

// Subscribe registers a callback and returns its ID. The callback runs on the
// source's goroutine and starts receiving with the next sample.
func (d *Distributor) Subscribe(fn func(accel.Sample)) string {
	if fn == nil {
		panic("distributor: nil subscriber func")
	}
	return d.add(&subscriber{id: uuid.NewString(), fn: fn})
}

// SubscribeChan registers a buffered channel and returns its ID. Samples
// arriving while the channel is full are dropped and counted. The channel is
// closed by Unsubscribe or Close.
func (d *Distributor) SubscribeChan(buffer int) (string, <-chan accel.Sample) {
	if buffer < 0 {
		buffer = 0
	}
	sub := &subscriber{id: uuid.NewString(), ch: make(chan accel.Sample, buffer)}
	return d.add(sub), sub.ch
}

func (d *Distributor) add(sub *subscriber) string {
	d.mu.Lock()
	subs := make([]*subscriber, len(d.subs), len(d.subs)+1)
	copy(subs, d.subs)
	d.subs = append(subs, sub)
	count := len(d.subs)
	d.mu.Unlock()

	d.logger.Debug().Str("id", sub.id).Int("subscribers", count).Msg("subscribed")
	return sub.id
}

// Unsubscribe removes a subscriber. A delivery in progress skips it if it has
// not reached it yet.
func (d *Distributor) Unsubscribe(id string) error {
	d.mu.Lock()
	idx := -1
	for i, sub := range d.subs {
		if sub.id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSubscriberNotFound, id)
	}
	sub := d.subs[idx]
	subs := make([]*subscriber, 0, len(d.subs)-1)
	subs = append(subs, d.subs[:idx]...)
	d.subs = append(subs, d.subs[idx+1:]...)
	count := len(d.subs)
	d.mu.Unlock()

	sub.close()
	d.logger.Debug().Str("id", id).Int("subscribers", count).Msg("unsubscribed")
	return nil
}

// Stats returns the delivery counters of a subscriber
func (d *Distributor) Stats(id string) (Stats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, sub := range d.subs {
		if sub.id == id {
			return Stats{Sent: sub.sent.Load(), Dropped: sub.dropped.Load()}, nil
		}
	}
	return Stats{}, fmt.Errorf("%w: %s", ErrSubscriberNotFound, id)
}

// Len returns the number of subscribers
func (d *Distributor) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

// Published returns the number of samples received from sources
func (d *Distributor) Published() uint64 {
	return d.published.Load()
}

// Close stops the source and removes every subscriber, closing channels
func (d *Distributor) Close() error {
	err := d.Stop()

	d.mu.Lock()
	subs := d.subs
	d.subs = nil
	d.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	return err
}

// publish is the sink attached to the active source
func (d *Distributor) publish(sample accel.Sample) {
	d.published.Add(1)

	d.mu.Lock()
	subs := d.subs
	d.mu.Unlock()

	for _, sub := range subs {
		if sub.removed.Load() {
			continue
		}
		sub.deliver(sample)
	}
}
