// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package distributor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/accelstat/pkg/accel"
	"github.com/Thermoquad/accelstat/pkg/source"
)

// manualSource is a Source driven directly by the test
type manualSource struct {
	mu      sync.Mutex
	sink    source.Sink
	running bool
	starts  int
	stops   int
	stopErr error
}

func (m *manualSource) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	m.starts++
	return nil
}

func (m *manualSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.stops++
	return m.stopErr
}

func (m *manualSource) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *manualSource) Kind() source.Kind {
	return source.KindSimulated
}

func (m *manualSource) SetSink(sink source.Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
}

// emit pushes a sample through the attached sink, if any
func (m *manualSource) emit(s accel.Sample) {
	m.mu.Lock()
	sink := m.sink
	m.mu.Unlock()
	if sink != nil {
		sink(s)
	}
}

func sampleN(n int) accel.Sample {
	return accel.Sample{X: float64(n)}
}

// ============================================================
// Source Management Tests
// ============================================================

func TestDistributor_NoSource(t *testing.T) {
	d := New()
	assert.ErrorIs(t, d.Start(), ErrNoSource)
	assert.NoError(t, d.Stop())
	assert.False(t, d.IsRunning())
	assert.Equal(t, source.KindNone, d.Kind())
	assert.Nil(t, d.Source())
}

func TestDistributor_StartStopIdempotent(t *testing.T) {
	src := &manualSource{}
	d := New()
	require.NoError(t, d.SetSource(src))

	require.NoError(t, d.Start())
	require.NoError(t, d.Start())
	assert.True(t, d.IsRunning())
	assert.Equal(t, 1, src.starts)

	require.NoError(t, d.Stop())
	require.NoError(t, d.Stop())
	assert.False(t, d.IsRunning())
	assert.Equal(t, 1, src.stops)
}

func TestDistributor_SetSourceStopsPrevious(t *testing.T) {
	first := &manualSource{}
	second := &manualSource{}
	d := New()

	require.NoError(t, d.SetSource(first))
	require.NoError(t, d.Start())
	require.NoError(t, d.SetSource(second))

	assert.False(t, first.IsRunning())
	assert.Nil(t, first.sink, "previous source must be detached")
	assert.NotNil(t, second.sink)
	assert.Same(t, second, d.Source())

	var got []accel.Sample
	d.Subscribe(func(s accel.Sample) { got = append(got, s) })
	first.emit(sampleN(1))
	second.emit(sampleN(2))
	assert.Equal(t, []accel.Sample{sampleN(2)}, got)
}

func TestDistributor_SetSourceReportsStopError(t *testing.T) {
	first := &manualSource{stopErr: errors.New("stuck")}
	d := New()
	require.NoError(t, d.SetSource(first))

	err := d.SetSource(nil)
	assert.ErrorContains(t, err, "stuck")
	assert.Nil(t, d.Source())
	assert.Equal(t, source.KindNone, d.Kind())
}

func TestDistributor_RealSimulatedSource(t *testing.T) {
	d := New()
	require.NoError(t, d.SetSource(source.NewSimulated(source.WithPeriod(time.Millisecond))))
	assert.Equal(t, source.KindSimulated, d.Kind())

	id, ch := d.SubscribeChan(16)
	require.NoError(t, d.Start())

	select {
	case s := <-ch:
		assert.LessOrEqual(t, s.Magnitude(), 2*1.7321)
	case <-time.After(time.Second):
		t.Fatal("no sample from simulated source")
	}

	require.NoError(t, d.Close())
	_, err := d.Stats(id)
	assert.ErrorIs(t, err, ErrSubscriberNotFound)
	assert.False(t, d.IsRunning())
}

// ============================================================
// Fan-out Tests
// ============================================================

func TestDistributor_FanOut(t *testing.T) {
	src := &manualSource{}
	d := New()
	require.NoError(t, d.SetSource(src))

	var a, b []accel.Sample
	d.Subscribe(func(s accel.Sample) { a = append(a, s) })
	d.Subscribe(func(s accel.Sample) { b = append(b, s) })

	for i := 0; i < 5; i++ {
		src.emit(sampleN(i))
	}

	want := []accel.Sample{sampleN(0), sampleN(1), sampleN(2), sampleN(3), sampleN(4)}
	assert.Equal(t, want, a)
	assert.Equal(t, want, b)
	assert.Equal(t, uint64(5), d.Published())
}

func TestDistributor_SubscriberIDs(t *testing.T) {
	d := New()
	id1 := d.Subscribe(func(accel.Sample) {})
	id2, _ := d.SubscribeChan(1)

	assert.NotEqual(t, id1, id2)
	_, err := uuid.Parse(id1)
	assert.NoError(t, err)
	assert.Equal(t, 2, d.Len())
}

func TestDistributor_Unsubscribe(t *testing.T) {
	src := &manualSource{}
	d := New()
	require.NoError(t, d.SetSource(src))

	var got []accel.Sample
	id := d.Subscribe(func(s accel.Sample) { got = append(got, s) })
	src.emit(sampleN(1))
	require.NoError(t, d.Unsubscribe(id))
	src.emit(sampleN(2))

	assert.Equal(t, []accel.Sample{sampleN(1)}, got)
	assert.ErrorIs(t, d.Unsubscribe(id), ErrSubscriberNotFound)
	assert.Zero(t, d.Len())
}

func TestDistributor_RemovedDuringDeliveryIsSkipped(t *testing.T) {
	src := &manualSource{}
	d := New()
	require.NoError(t, d.SetSource(src))

	var secondID string
	var secondGot int
	d.Subscribe(func(accel.Sample) {
		if secondID != "" {
			_ = d.Unsubscribe(secondID)
		}
	})
	secondID = d.Subscribe(func(accel.Sample) { secondGot++ })

	src.emit(sampleN(1))
	assert.Zero(t, secondGot, "subscriber removed before being reached must be skipped")
}

func TestDistributor_AddedDuringDeliveryWaitsForNextSample(t *testing.T) {
	src := &manualSource{}
	d := New()
	require.NoError(t, d.SetSource(src))

	var late []accel.Sample
	added := false
	d.Subscribe(func(accel.Sample) {
		if !added {
			added = true
			d.Subscribe(func(s accel.Sample) { late = append(late, s) })
		}
	})

	src.emit(sampleN(1))
	src.emit(sampleN(2))
	assert.Equal(t, []accel.Sample{sampleN(2)}, late)
}

func TestDistributor_SubscriberMayStopSource(t *testing.T) {
	d := New()
	sim := source.NewSimulated(source.WithPeriod(time.Millisecond))
	require.NoError(t, d.SetSource(sim))

	done := make(chan struct{})
	var once sync.Once
	d.Subscribe(func(accel.Sample) {
		assert.NoError(t, d.Stop())
		once.Do(func() { close(done) })
	})
	require.NoError(t, d.Start())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscriber never ran")
	}
	assert.Eventually(t, func() bool { return !d.IsRunning() }, time.Second, time.Millisecond)
}

// ============================================================
// Channel Subscriber Tests
// ============================================================

func TestDistributor_ChannelDropsWhenFull(t *testing.T) {
	src := &manualSource{}
	d := New()
	require.NoError(t, d.SetSource(src))

	id, ch := d.SubscribeChan(2)
	for i := 0; i < 5; i++ {
		src.emit(sampleN(i))
	}

	stats, err := d.Stats(id)
	require.NoError(t, err)
	assert.Equal(t, Stats{Sent: 2, Dropped: 3}, stats)

	// Drop-new keeps the oldest buffered samples
	assert.Equal(t, sampleN(0), <-ch)
	assert.Equal(t, sampleN(1), <-ch)
}

func TestDistributor_ChannelClosedOnUnsubscribe(t *testing.T) {
	src := &manualSource{}
	d := New()
	require.NoError(t, d.SetSource(src))

	id, ch := d.SubscribeChan(1)
	require.NoError(t, d.Unsubscribe(id))

	_, ok := <-ch
	assert.False(t, ok, "channel must be closed")

	// Publishing after removal must not panic on the closed channel
	src.emit(sampleN(1))
}

func TestDistributor_CloseClosesChannels(t *testing.T) {
	src := &manualSource{}
	d := New()
	require.NoError(t, d.SetSource(src))
	require.NoError(t, d.Start())

	_, ch1 := d.SubscribeChan(1)
	_, ch2 := d.SubscribeChan(1)
	require.NoError(t, d.Close())

	_, ok1 := <-ch1
	_, ok2 := <-ch2
	assert.False(t, ok1)
	assert.False(t, ok2)
	assert.False(t, src.IsRunning())
	assert.Zero(t, d.Len())
}

func TestDistributor_ConcurrentSubscribeAndPublish(t *testing.T) {
	src := &manualSource{}
	d := New()
	require.NoError(t, d.SetSource(src))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			src.emit(sampleN(i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			id, _ := d.SubscribeChan(1)
			_ = d.Unsubscribe(id)
		}
	}()
	wg.Wait()

	assert.Equal(t, uint64(1000), d.Published())
	assert.Zero(t, d.Len())
}

func TestDistributor_SubscribeNilPanics(t *testing.T) {
	assert.Panics(t, func() { New().Subscribe(nil) })
}
