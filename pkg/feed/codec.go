// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package feed republishes distributed samples to network consumers over
// WebSocket and MQTT.
package feed

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/accelstat/pkg/accel"
)

// Encoding selects the wire format of a Message
type Encoding int

const (
	EncodingJSON Encoding = iota
	EncodingCBOR
)

func (e Encoding) String() string {
	switch e {
	case EncodingJSON:
		return "json"
	case EncodingCBOR:
		return "cbor"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// ParseEncoding parses "json" or "cbor". An empty string selects JSON.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return EncodingJSON, nil
	case "cbor":
		return EncodingCBOR, nil
	default:
		return 0, fmt.Errorf("unsupported encoding %q (use json or cbor)", s)
	}
}

// Message is one sample as published to consumers
type Message struct {
	X     float64 `json:"x" cbor:"1,keyasint"`
	Y     float64 `json:"y" cbor:"2,keyasint"`
	Z     float64 `json:"z" cbor:"3,keyasint"`
	Pitch float64 `json:"pitch" cbor:"4,keyasint"`
	Roll  float64 `json:"roll" cbor:"5,keyasint"`
	Time  int64   `json:"t" cbor:"6,keyasint"` // unix milliseconds
}

// NewMessage builds a Message from a sample received at ts
func NewMessage(s accel.Sample, ts time.Time) Message {
	pitch, roll := s.Tilt()
	return Message{
		X:     s.X,
		Y:     s.Y,
		Z:     s.Z,
		Pitch: pitch,
		Roll:  roll,
		Time:  ts.UnixMilli(),
	}
}

// Sample returns the acceleration part of the message
func (m Message) Sample() accel.Sample {
	return accel.Sample{X: m.X, Y: m.Y, Z: m.Z}
}

// Marshal encodes m
func Marshal(enc Encoding, m Message) ([]byte, error) {
	switch enc {
	case EncodingJSON:
		return json.Marshal(m)
	case EncodingCBOR:
		return cbor.Marshal(m)
	default:
		return nil, fmt.Errorf("unsupported encoding %v", enc)
	}
}

// Unmarshal decodes data into m
func Unmarshal(enc Encoding, data []byte, m *Message) error {
	switch enc {
	case EncodingJSON:
		return json.Unmarshal(data, m)
	case EncodingCBOR:
		return cbor.Unmarshal(data, m)
	default:
		return fmt.Errorf("unsupported encoding %v", enc)
	}
}
