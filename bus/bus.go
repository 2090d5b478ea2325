// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bus

import (
	"errors"
	"fmt"
)

// Transport is a blocking, exclusively owned two-wire bus.
type Transport interface {
	// Init configures and enables the peripheral. It must be called exactly
	// once before any transfer.
	Init() error
	// Read receives exactly count bytes from addr. On failure no data is
	// returned.
	Read(addr Addr, count uint16) ([]byte, error)
	// Write sends all of data to addr. The bus is released whatever the
	// outcome.
	Write(addr Addr, data []byte) error
	// SleepMicroseconds suspends the caller for at least us microseconds.
	SleepMicroseconds(us uint32)
}

// Addr is a 7-bit device address.
type Addr uint16

// Valid reports whether the address is a 7-bit address outside of the
// reserved ranges 0x00-0x07 and 0x78-0x7f.
func (a Addr) Valid() bool {
	return a >= 0x08 && a <= 0x77
}

func (a Addr) String() string {
	return fmt.Sprintf("0x%02x", uint16(a))
}

// Code classifies a failed transaction. The values match the error codes
// returned by the TWI drivers of small microcontrollers.
type Code int8

const (
	// HardwareFault means the transaction was rejected by the hardware, for
	// example a NACK or an I/O error from the kernel driver.
	HardwareFault Code = 3
	// Busy means the transport was not ready for a new transfer.
	Busy Code = 17
)

func (c Code) String() string {
	switch c {
	case HardwareFault:
		return "hardware fault"
	case Busy:
		return "busy"
	default:
		return fmt.Sprintf("code(%d)", int8(c))
	}
}

// Error is returned by every failed Transport operation.
type Error struct {
	Code Code
	// Op is the failed operation: "init", "read" or "write".
	Op   string
	Addr Addr
	Err  error
}

// Sentinel errors for use with errors.Is. They match any *Error with the
// same Code.
var (
	ErrHardwareFault error = &Error{Code: HardwareFault}
	ErrBusy          error = &Error{Code: Busy}

	// ErrAlreadyInitialized is returned by a second call to Init.
	ErrAlreadyInitialized = errors.New("bus: already initialized")

	errNotInitialized = errors.New("not initialized")
	errInvalidAddr    = errors.New("invalid address")
)

func (e *Error) Error() string {
	s := "bus: "
	if e.Op != "" {
		s += e.Op + " "
		if e.Op != "init" {
			s += e.Addr.String() + " "
		}
	}
	s += e.Code.String()
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is one of the sentinel errors with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Op == "" && t.Err == nil && t.Code == e.Code
}

// CodeOf returns the Code of the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
