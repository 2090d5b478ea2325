// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// sht4x is a package for interfacing with the Sensirion SHT-40, SHT-41, and
// SHT-45 temperature and humidity sensors.
//
// In this module the sensor supplies the ambient temperature and relative
// humidity from which the absolute humidity used by the SGP30 compensation
// algorithm is derived. It shares the bus.Transport of the gas sensor.
//
// # Datasheet
//
// https://sensirion.com/media/documents/33FD6951/67EB9032/HT_DS_Datasheet_SHT4x_5.pdf
//
// All devices have a resolution of 0.01 °C and 0.01 %RH, and a specified
// range of –40…+125 °C.
package sht4x

import (
	"fmt"
	"sync"

	"github.com/GermanBionicSystems/iaq/bus"
	"github.com/GermanBionicSystems/iaq/common"
	"periph.io/x/conn/v3/physic"
)

// DefaultAddress is the I²C address of the SHT-40-A, SHT-41 and SHT-45.
const DefaultAddress bus.Addr = 0x44

const (
	cmdSoftReset byte = 0x94
	// Read at highest precision and repeatability
	cmdMeasure          byte = 0xfd
	cmdReadSerialNumber byte = 0x89

	measureDurationUs = 10000
	resetDurationUs   = 2000

	countDivisor = float64(65535)

	minTemperature = -40*physic.Kelvin + physic.ZeroCelsius
	maxTemperature = 125*physic.Kelvin + physic.ZeroCelsius

	minRH = 0 * physic.PercentRH
	maxRH = 100 * physic.PercentRH
)

// Dev represents a SHT-4X series temperature/humidity sensor
type Dev struct {
	t    bus.Transport
	addr bus.Addr
	mu   sync.Mutex
}

// New returns a handle to a sensor on the transport.
func New(t bus.Transport, addr bus.Addr) (*Dev, error) {
	if !addr.Valid() {
		return nil, fmt.Errorf("sht4x: invalid address %s", addr)
	}
	return &Dev{t: t, addr: addr}, nil
}

// If you try to read immediately after a write with this device, you'll get an
// io error. The command is written, the device is given its conversion time,
// then the two CRC-framed words every command returns are read.
func (dev *Dev) command(cmd byte) ([]uint16, error) {
	if err := dev.t.Write(dev.addr, []byte{cmd}); err != nil {
		return nil, fmt.Errorf("sht4x: error transmitting %w", err)
	}
	dev.t.SleepMicroseconds(measureDurationUs)
	r, err := dev.t.Read(dev.addr, 2*common.WordSize)
	if err != nil {
		return nil, fmt.Errorf("sht4x: error reading %w", err)
	}
	words, err := common.DecodeWords(r)
	if err != nil {
		return nil, fmt.Errorf("sht4x: %w", err)
	}
	return words, nil
}

// convert the count to a temperature value.
func countToTemp(count uint16) physic.Temperature {
	// T=-45+175*(count/countDivisor)
	val := physic.Temperature(float64(physic.Kelvin)*(-45.0+175.0*(float64(count)/countDivisor))) + physic.ZeroCelsius
	if val < minTemperature {
		val = minTemperature
	} else if val > maxTemperature {
		val = maxTemperature
	}
	return val
}

func countToHumidity(count uint16) physic.RelativeHumidity {
	// RH=-6 + 125*(count/countDivisor)
	val := physic.RelativeHumidity((-6.0 + 125.0*(float64(count)/countDivisor)) * float64(physic.PercentRH))
	if val < minRH {
		val = minRH
	} else if val > maxRH {
		val = maxRH
	}
	return val
}

// Precision returns the smallest change in readings the device can produce.
func (dev *Dev) Precision(e *physic.Env) {
	e.Temperature = physic.Kelvin / 100
	e.Humidity = physic.PercentRH / 100
	e.Pressure = 0
}

// Reset issues a soft-reset to the device
func (dev *Dev) Reset() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	err := dev.t.Write(dev.addr, []byte{cmdSoftReset})
	if err != nil {
		err = fmt.Errorf("sht4x: error resetting %w", err)
	}
	dev.t.SleepMicroseconds(resetDurationUs)
	return err
}

// Sense reads temperature and humidity from the device. Pressure is always 0.
func (dev *Dev) Sense(e *physic.Env) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	e.Pressure = 0
	words, err := dev.command(cmdMeasure)
	if err != nil {
		e.Temperature = minTemperature
		e.Humidity = minRH
		return fmt.Errorf("sht4x: error reading device %w", err)
	}
	e.Temperature = countToTemp(words[0])
	e.Humidity = countToHumidity(words[1])
	return nil
}

// SerialNumber returns the device serial number set at the factory.
func (dev *Dev) SerialNumber() (uint32, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	words, err := dev.command(cmdReadSerialNumber)
	if err != nil {
		return 0, err
	}
	return uint32(words[0])<<16 | uint32(words[1]), nil
}

// String returns a string representation of the device.
func (dev *Dev) String() string {
	return fmt.Sprintf("sht4x(%s)", dev.addr)
}
