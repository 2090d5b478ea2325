// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bus provides the blocking two-wire transport used by the sensor
// drivers in this module.
//
// A Transport performs whole read and write transactions against a 7-bit
// device address and offers a microsecond delay for protocol timing. A
// transaction either completes or fails with an *Error carrying one of two
// codes, HardwareFault or Busy. Failed reads never return partial data.
//
// I2C implements Transport on top of a periph.io I²C bus. The transport is
// owned by one goroutine at a time; a transfer started while another is in
// flight fails immediately with Busy instead of queueing.
package bus
