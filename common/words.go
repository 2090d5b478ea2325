// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import (
	"errors"
	"fmt"
)

// WordSize is the number of bytes a single data word occupies on the wire:
// two big-endian data bytes followed by their CRC8.
const WordSize = 3

// ErrCRC is returned when a received word fails its checksum.
var ErrCRC = errors.New("crc mismatch")

// EncodeWords converts the word values into wire bytes, each word followed
// by its CRC.
func EncodeWords(words ...uint16) []byte {
	b := make([]byte, len(words)*WordSize)
	for ix, val := range words {
		b[ix*WordSize] = byte(val >> 8)
		b[ix*WordSize+1] = byte(val)
		b[ix*WordSize+2] = CRC8(b[ix*WordSize : ix*WordSize+2])
	}
	return b
}

// DecodeWords converts wire bytes back into word values, verifying the CRC of
// every word. The length of b must be a multiple of WordSize.
func DecodeWords(b []byte) ([]uint16, error) {
	if len(b)%WordSize != 0 {
		return nil, fmt.Errorf("invalid response length %d", len(b))
	}
	words := make([]uint16, len(b)/WordSize)
	for ix := range words {
		w := b[ix*WordSize : ix*WordSize+WordSize]
		if CRC8(w[:2]) != w[2] {
			return nil, fmt.Errorf("word %d: %w", ix, ErrCRC)
		}
		words[ix] = uint16(w[0])<<8 | uint16(w[1])
	}
	return words, nil
}
