// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains the Sensirion wire helpers shared by the sgp30 and
// sht4x packages: the CRC8 checksum and the 16-bit word framing built on it.
package common

// CRC8 calculates the 8-bit CRC of the byte slice parameter and returns the
// calculated value. Polynomial 0x31, initial value 0xff, as used by
// Sensirion sensors.
func CRC8(bytes []byte) byte {
	var crc byte = 0xff
	for _, val := range bytes {
		crc ^= val
		for i := 0; i < 8; i++ {
			if (crc & 0x80) == 0 {
				crc <<= 1
			} else {
				crc = (byte)((crc << 1) ^ 0x31)
			}
		}
	}
	return crc
}
