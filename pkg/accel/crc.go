// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package accel

import "fmt"

// CalculateCRC computes the CRC-8 (poly 0x07, init 0x00, no reflection) checksum for the given data
func CalculateCRC(data []byte) uint8 {
	crc := uint8(crcInitial)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// FormatCRC renders a checksum the way it travels on the wire: two uppercase hex digits
func FormatCRC(crc uint8) string {
	return fmt.Sprintf("%02X", crc)
}

// CRCHex returns the wire representation of the checksum of data
func CRCHex(data []byte) string {
	return FormatCRC(CalculateCRC(data))
}
