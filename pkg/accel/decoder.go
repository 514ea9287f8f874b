// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package accel

import (
	"bytes"
	"strconv"
	"strings"
)

// Decoder turns a byte stream into validated, scaled and jitter-filtered samples.
//
// A Decoder is not safe for concurrent use; the owning source serializes access.
type Decoder struct {
	buffer []byte
	filter *JitterFilter
}

// DecoderOption configures a Decoder
type DecoderOption func(*Decoder)

// WithJitterThreshold overrides the jitter suppression threshold (in g).
// A threshold of zero disables suppression.
func WithJitterThreshold(threshold float64) DecoderOption {
	return func(d *Decoder) {
		d.filter.Threshold = threshold
	}
}

// NewDecoder creates a new frame decoder
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{
		buffer: make([]byte, 0, MaxFrameSize),
		filter: NewJitterFilter(DefaultJitterThreshold),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Reset drops any partial frame and the jitter filter memory, so the next
// decoded sample is treated as the first one.
func (d *Decoder) Reset() {
	d.buffer = d.buffer[:0]
	d.filter.Reset()
}

// Buffered returns the number of bytes of the pending partial frame
func (d *Decoder) Buffered() int {
	return len(d.buffer)
}

// DecodeByte processes a single byte.
// Returns a sample when b completes a valid frame, an error when it completes
// a frame that was discarded, and (nil, nil) otherwise.
func (d *Decoder) DecodeByte(b byte) (*Sample, error) {
	if b != FrameTerminator {
		if len(d.buffer) >= MaxFrameSize {
			preview := string(bytes.TrimSpace(d.buffer[:16]))
			d.buffer = append(d.buffer[:0], b)
			return nil, newFrameError(ErrFormat, preview, "frame overflow: no terminator within %d bytes", MaxFrameSize)
		}
		d.buffer = append(d.buffer, b)
		return nil, nil
	}

	frame := string(d.buffer)
	d.buffer = d.buffer[:0]

	sample, err := parseFrame(frame)
	if err != nil {
		return nil, err
	}

	filtered, _ := d.filter.Apply(sample)
	return &filtered, nil
}

// Decode feeds a chunk through the decoder, calling emit for every valid
// sample and report for every discarded frame, in the order frames complete.
// Either callback may be nil.
func (d *Decoder) Decode(chunk []byte, emit func(Sample), report func(error)) {
	for _, b := range chunk {
		sample, err := d.DecodeByte(b)
		if err != nil {
			if report != nil {
				report(err)
			}
			continue
		}
		if sample != nil && emit != nil {
			emit(*sample)
		}
	}
}

// parseFrame validates a single frame (without its terminator) and scales it.
// The first failing check determines the error.
func parseFrame(raw string) (Sample, error) {
	frame := strings.TrimSpace(raw)
	parts := strings.Split(frame, FieldSeparator)

	if parts[0] != FrameTag {
		return Sample{}, newFrameError(ErrFormat, frame, "unexpected tag %q", parts[0])
	}
	if len(parts) != FrameFields {
		return Sample{}, newFrameError(ErrFormat, frame, "expected %d fields, got %d", FrameFields, len(parts))
	}

	// The checksum covers the tag and the three values, each followed by a space
	dataLine := strings.Join(parts[:FrameFields-1], FieldSeparator) + FieldSeparator
	received := strings.ToUpper(parts[FrameFields-1])
	calculated := CRCHex([]byte(dataLine))
	if received != calculated {
		return Sample{}, newFrameError(ErrCRCMismatch, frame, "received %s, calculated %s", received, calculated)
	}

	var raw3 [3]int
	for i, token := range parts[1 : FrameFields-1] {
		v, err := strconv.ParseInt(token, 10, 32)
		if err != nil {
			return Sample{}, newFrameError(ErrParse, frame, "axis %d value %q is not an integer", i, token)
		}
		raw3[i] = int(v)
	}

	return SampleFromRaw(raw3[0], raw3[1], raw3[2]), nil
}
