// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package accel

import (
	"math"
	"strconv"
	"strings"
)

// EncodeFrame builds a complete wire frame, including checksum and terminator,
// from raw sensor counts.
func EncodeFrame(x, y, z int) []byte {
	var sb strings.Builder
	sb.WriteString(FrameTag)
	for _, v := range []int{x, y, z} {
		sb.WriteString(FieldSeparator)
		sb.WriteString(strconv.Itoa(v))
	}
	sb.WriteString(FieldSeparator)

	dataLine := sb.String()
	sb.WriteString(CRCHex([]byte(dataLine)))
	sb.WriteByte(FrameTerminator)
	return []byte(sb.String())
}

// RawFromG converts a value in g to the nearest raw sensor count
func RawFromG(g float64) int {
	return int(math.Round(g * RawPerG))
}

// EncodeSample builds a wire frame for s
func EncodeSample(s Sample) []byte {
	return EncodeFrame(RawFromG(s.X), RawFromG(s.Y), RawFromG(s.Z))
}
