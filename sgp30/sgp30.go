// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sgp30

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/GermanBionicSystems/iaq/bus"
	"github.com/GermanBionicSystems/iaq/common"
)

// Version of the driver.
const Version = "1.0.0"

// DefaultAddress is the only address the SGP30 answers on.
const DefaultAddress bus.Addr = 0x58

// ProductType is the product type reported by the SGP30 in its feature set.
const ProductType uint8 = 0

// minFeatureSet is the lowest feature set version this driver supports.
const minFeatureSet uint16 = 0x20

// selfTestOK is the result of a passed on-chip self test.
const selfTestOK uint16 = 0xd400

// maxAbsoluteHumidity is the largest value accepted by SetAbsoluteHumidity,
// in mg/m³.
const maxAbsoluteHumidity uint32 = 256000

type cmd uint16

// command describes one sensor command.
type command struct {
	word cmd
	// Number of argument words sent after the command word.
	args int
	// Number of response words.
	response int
	// Maximum execution time in microseconds.
	durationUs uint32
}

var (
	cmdIAQInit       = command{word: 0x2003, durationUs: 10000}
	cmdMeasureIAQ    = command{word: 0x2008, response: 2, durationUs: 12000}
	cmdGetBaseline   = command{word: 0x2015, response: 2, durationUs: 10000}
	cmdSetBaseline   = command{word: 0x201e, args: 2, durationUs: 10000}
	cmdSetHumidity   = command{word: 0x2061, args: 1, durationUs: 10000}
	cmdMeasureTest   = command{word: 0x2032, response: 1, durationUs: 220000}
	cmdGetFeatureSet = command{word: 0x202f, response: 1, durationUs: 10000}
	cmdMeasureRaw    = command{word: 0x2050, response: 2, durationUs: 25000}
	cmdGetSerialID   = command{word: 0x3682, response: 3, durationUs: 500}
)

var (
	// ErrProductType is returned by Probe when the device is not an SGP30.
	ErrProductType = errors.New("sgp30: unexpected product type")
	// ErrFeatureSet is returned by Probe when the feature set is too old.
	ErrFeatureSet = errors.New("sgp30: unsupported feature set")
	// ErrSelfTest is returned when the on-chip self test fails.
	ErrSelfTest = errors.New("sgp30: self test failed")
	// ErrNotInitialized is returned by SetBaseline before IAQInit succeeded.
	ErrNotInitialized = errors.New("sgp30: iaq algorithm not initialized")
	// ErrHumidityRange is returned by SetAbsoluteHumidity for values above
	// 256 g/m³.
	ErrHumidityRange = errors.New("sgp30: absolute humidity out of range")
)

// CO2 represents the equivalent carbon dioxide value in ppm.
type CO2 uint16

func (c CO2) String() string {
	return strconv.Itoa(int(c)) + "ppm"
}

// TVOC represents the total volatile organic compounds value in ppb.
type TVOC uint16

func (t TVOC) String() string {
	return strconv.Itoa(int(t)) + "ppb"
}

// IAQ is a compensated air quality measurement.
type IAQ struct {
	TVOC  TVOC
	CO2Eq CO2
}

func (i IAQ) String() string {
	return fmt.Sprintf("TVOC: %s CO2eq: %s", i.TVOC, i.CO2Eq)
}

// Raw holds the uncompensated sensor signals.
type Raw struct {
	Ethanol uint16
	H2      uint16
}

func (r Raw) String() string {
	return fmt.Sprintf("Ethanol: %d H2: %d", r.Ethanol, r.H2)
}

// Baseline is the opaque state of the compensation algorithm. It is only
// meaningful to the sensor that produced it.
type Baseline [4]byte

func (b Baseline) String() string {
	return hex.EncodeToString(b[:])
}

// MarshalText implements encoding.TextMarshaler.
func (b Baseline) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Baseline) UnmarshalText(text []byte) error {
	p, err := ParseBaseline(string(text))
	if err != nil {
		return err
	}
	*b = p
	return nil
}

// ParseBaseline parses the hexadecimal form returned by Baseline.String.
func ParseBaseline(s string) (Baseline, error) {
	var b Baseline
	if hex.DecodedLen(len(s)) != len(b) {
		return b, fmt.Errorf("sgp30: invalid baseline %q", s)
	}
	if _, err := hex.Decode(b[:], []byte(s)); err != nil {
		return b, fmt.Errorf("sgp30: invalid baseline %q: %w", s, err)
	}
	return b, nil
}

// Opts holds the configuration options for the device.
type Opts struct {
	// SelfTest runs the on-chip self test as part of Probe. It takes 220ms and
	// must not be used once the IAQ algorithm is running.
	SelfTest bool
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{}

// Dev is a handle to an SGP30 device.
type Dev struct {
	t    bus.Transport
	addr bus.Addr
	opts Opts

	mu sync.Mutex
	// True once IAQInit succeeded.
	iaqInit bool
}

// New returns a handle to an SGP30 on the transport. It does not talk to the
// device; use Probe for that. The Opts can be nil.
func New(t bus.Transport, addr bus.Addr, opts *Opts) (*Dev, error) {
	if !addr.Valid() {
		return nil, fmt.Errorf("sgp30: invalid address %s", addr)
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	return &Dev{t: t, addr: addr, opts: *opts}, nil
}

// Probe confirms that an SGP30 with a supported feature set answers on the
// bus. It is safe to call repeatedly.
func (d *Dev) Probe() error {
	version, product, err := d.FeatureSetVersion()
	if err != nil {
		return err
	}
	if product != ProductType {
		return fmt.Errorf("%w %d", ErrProductType, product)
	}
	if version < minFeatureSet {
		return fmt.Errorf("%w 0x%02x", ErrFeatureSet, version)
	}
	if d.opts.SelfTest {
		return d.MeasureTest()
	}
	return nil
}

// FeatureSetVersion returns the feature set version and the product type.
func (d *Dev) FeatureSetVersion() (uint16, uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.sendCommand(cmdGetFeatureSet)
	if err != nil {
		return 0, 0, err
	}
	return words[0] & 0x00ff, uint8((words[0] & 0xf000) >> 12), nil
}

// SerialID returns the 48 bit unique serial number of the device.
func (d *Dev) SerialID() (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.sendCommand(cmdGetSerialID)
	if err != nil {
		return 0, err
	}
	return uint64(words[0])<<32 | uint64(words[1])<<16 | uint64(words[2]), nil
}

// MeasureRaw performs one measurement of the raw ethanol and H2 signals.
func (d *Dev) MeasureRaw() (Raw, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.sendCommand(cmdMeasureRaw)
	if err != nil {
		return Raw{}, err
	}
	return Raw{H2: words[0], Ethanol: words[1]}, nil
}

// IAQInit resets the compensation algorithm. It must be called once before
// the first MeasureIAQ; calling it again discards the learned baseline.
func (d *Dev) IAQInit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.sendCommand(cmdIAQInit); err != nil {
		return err
	}
	d.iaqInit = true
	return nil
}

// MeasureIAQ performs one compensated measurement. For the first 15 seconds
// after IAQInit the sensor returns 400ppm CO2eq and 0ppb TVOC.
func (d *Dev) MeasureIAQ() (IAQ, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.sendCommand(cmdMeasureIAQ)
	if err != nil {
		return IAQ{}, err
	}
	return IAQ{CO2Eq: CO2(words[0]), TVOC: TVOC(words[1])}, nil
}

// GetBaseline returns the current state of the compensation algorithm.
func (d *Dev) GetBaseline() (Baseline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b Baseline
	words, err := d.sendCommand(cmdGetBaseline)
	if err != nil {
		return b, err
	}
	b[0], b[1] = byte(words[0]>>8), byte(words[0])
	b[2], b[3] = byte(words[1]>>8), byte(words[1])
	return b, nil
}

// SetBaseline restores a baseline previously returned by GetBaseline. It is
// only valid after IAQInit.
func (d *Dev) SetBaseline(b Baseline) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.iaqInit {
		return ErrNotInitialized
	}
	// The device accepts the two words in the reverse of the order it
	// returns them.
	w0 := uint16(b[0])<<8 | uint16(b[1])
	w1 := uint16(b[2])<<8 | uint16(b[3])
	_, err := d.sendCommand(cmdSetBaseline, w1, w0)
	return err
}

// SetAbsoluteHumidity sets the absolute humidity in mg/m³ used by the
// compensation algorithm. 0 disables humidity compensation.
func (d *Dev) SetAbsoluteHumidity(mgPerM3 uint32) error {
	if mgPerM3 > maxAbsoluteHumidity {
		return fmt.Errorf("%w: %d mg/m³", ErrHumidityRange, mgPerM3)
	}
	// 8.8 fixed point g/m³; 16777/2^24 approximates 1/1000.
	scaled := uint16((uint64(mgPerM3) * 256 * 16777) >> 24)
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.sendCommand(cmdSetHumidity, scaled)
	return err
}

// MeasureTest runs the on-chip self test.
func (d *Dev) MeasureTest() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.sendCommand(cmdMeasureTest)
	if err != nil {
		return err
	}
	if words[0] != selfTestOK {
		return fmt.Errorf("%w: result 0x%04x", ErrSelfTest, words[0])
	}
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("sgp30(%s)", d.addr)
}

// All commands go through this function. The command word and arguments are
// written, the device is given its execution time, then the response words
// are read and checked.
func (d *Dev) sendCommand(c command, args ...uint16) ([]uint16, error) {
	if len(args) != c.args {
		return nil, fmt.Errorf("sgp30 cmd 0x%04x: %d arguments, expected %d", uint16(c.word), len(args), c.args)
	}
	w := make([]byte, 2, 2+len(args)*common.WordSize)
	w[0] = byte(c.word >> 8)
	w[1] = byte(c.word)
	w = append(w, common.EncodeWords(args...)...)
	if err := d.t.Write(d.addr, w); err != nil {
		return nil, fmt.Errorf("sgp30 cmd 0x%04x: %w", uint16(c.word), err)
	}
	d.t.SleepMicroseconds(c.durationUs)
	if c.response == 0 {
		return nil, nil
	}
	r, err := d.t.Read(d.addr, uint16(c.response*common.WordSize))
	if err != nil {
		return nil, fmt.Errorf("sgp30 cmd 0x%04x: %w", uint16(c.word), err)
	}
	words, err := common.DecodeWords(r)
	if err != nil {
		return nil, fmt.Errorf("sgp30 cmd 0x%04x: %w", uint16(c.word), err)
	}
	return words, nil
}
