// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"errors"
	"fmt"
	"time"

	"github.com/GermanBionicSystems/iaq/bus"
	"github.com/GermanBionicSystems/iaq/common"
	"github.com/GermanBionicSystems/iaq/sgp30"
	"periph.io/x/conn/v3/physic"
)

// Device is the gas sensor driven by the monitor. *sgp30.Dev implements it.
type Device interface {
	Probe() error
	FeatureSetVersion() (uint16, uint8, error)
	SerialID() (uint64, error)
	MeasureRaw() (sgp30.Raw, error)
	IAQInit() error
	MeasureIAQ() (sgp30.IAQ, error)
	GetBaseline() (sgp30.Baseline, error)
	SetBaseline(sgp30.Baseline) error
}

// HumidityCompensator is implemented by devices that compensate their
// readings with the absolute humidity, in mg/m³.
type HumidityCompensator interface {
	SetAbsoluteHumidity(mgPerM3 uint32) error
}

// EnvSensor supplies the temperature and relative humidity used for humidity
// compensation. *sht4x.Dev implements it.
type EnvSensor interface {
	Sense(e *physic.Env) error
}

// BaselineStore persists the sensor baseline across restarts.
type BaselineStore interface {
	// Load returns the last saved baseline and its age. It returns an error
	// matching baseline.ErrNotFound when nothing was saved.
	Load() (sgp30.Baseline, time.Duration, error)
	Save(sgp30.Baseline) error
}

// Reporter receives readings and error events. Implementations must not
// block the caller.
type Reporter interface {
	ReportReading(Reading)
	ReportError(ErrorEvent)
}

// Mode tags the kind of measurement held by a Reading.
type Mode int

const (
	// ModeIAQ is a compensated TVOC/CO2eq measurement.
	ModeIAQ Mode = iota
	// ModeRaw is an uncompensated ethanol/H2 measurement.
	ModeRaw
)

func (m Mode) String() string {
	switch m {
	case ModeIAQ:
		return "iaq"
	case ModeRaw:
		return "raw"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Reading is one successful measurement. Only the fields of its Mode are set.
type Reading struct {
	Mode  Mode
	TVOC  sgp30.TVOC
	CO2Eq sgp30.CO2
	// Raw signals.
	Ethanol uint16
	H2      uint16
	// Tick is the zero based index of the cycle that produced the reading.
	// Readings taken before the loop starts have Tick 0.
	Tick uint64
	Time time.Time
}

func (r Reading) String() string {
	if r.Mode == ModeRaw {
		return fmt.Sprintf("raw Ethanol: %d H2: %d", r.Ethanol, r.H2)
	}
	return fmt.Sprintf("iaq TVOC: %s CO2eq: %s", r.TVOC, r.CO2Eq)
}

// ErrorKind classifies a failed operation.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindHardwareFault is a transaction rejected by the bus hardware.
	KindHardwareFault
	// KindBusy is a transport that was not ready for a transfer.
	KindBusy
	// KindProtocol is a malformed or unexpected device response.
	KindProtocol
	// KindStore is a baseline store failure.
	KindStore
)

func (k ErrorKind) String() string {
	switch k {
	case KindHardwareFault:
		return "hardware_fault"
	case KindBusy:
		return "busy"
	case KindProtocol:
		return "protocol"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Kinds lists every ErrorKind.
var Kinds = []ErrorKind{KindUnknown, KindHardwareFault, KindBusy, KindProtocol, KindStore}

// Operations named in ErrorEvent.Op.
const (
	OpProbe        = "probe"
	OpFeatureSet   = "feature_set"
	OpSerialID     = "serial_id"
	OpMeasureRaw   = "measure_raw"
	OpIAQInit      = "iaq_init"
	OpLoadBaseline = "load_baseline"
	OpSetBaseline  = "set_baseline"
	OpMeasureIAQ   = "measure_iaq"
	OpGetBaseline  = "get_baseline"
	OpSaveBaseline = "save_baseline"
	OpHumidity     = "humidity"
)

// ErrorEvent describes one failed operation.
type ErrorEvent struct {
	Kind ErrorKind
	Op   string
	Tick uint64
	Err  error
}

func (e ErrorEvent) String() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Kind, e.Err)
}

// Classify returns the ErrorKind of a device or transport error.
func Classify(err error) ErrorKind {
	if code, ok := bus.CodeOf(err); ok {
		switch code {
		case bus.HardwareFault:
			return KindHardwareFault
		case bus.Busy:
			return KindBusy
		}
	}
	for _, target := range []error{common.ErrCRC, sgp30.ErrProductType, sgp30.ErrFeatureSet, sgp30.ErrSelfTest, sgp30.ErrHumidityRange, sgp30.ErrNotInitialized} {
		if errors.Is(err, target) {
			return KindProtocol
		}
	}
	return KindUnknown
}

// discard is used when no Reporter is supplied.
type discard struct{}

func (discard) ReportReading(Reading)  {}
func (discard) ReportError(ErrorEvent) {}
