// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bus

import (
	"errors"
	"io"
	"sync"
	"syscall"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Opts holds the configuration options for the transport.
type Opts struct {
	// Name of the bus passed to i2creg.Open, for example "1" or "/dev/i2c-1".
	// Empty selects the first registered bus.
	Name string
	// Speed is the bus clock frequency applied in Init. 0 leaves the speed
	// configured by the host, which is what most Linux kernels require.
	Speed physic.Frequency
}

// DefaultOpts holds the default configuration options for the transport.
var DefaultOpts = Opts{}

// I2C is a Transport backed by a periph.io I²C bus.
type I2C struct {
	opts   Opts
	b      i2c.Bus
	closer io.Closer
	open   func(name string) (i2c.BusCloser, error)

	mu          sync.Mutex
	initialized bool
}

// Open returns a transport that opens the named host bus when Init is
// called. The Opts can be nil.
func Open(opts *Opts) *I2C {
	if opts == nil {
		opts = &DefaultOpts
	}
	return &I2C{opts: *opts, open: openHost}
}

// New returns a transport over an already opened bus. Init only applies the
// configured speed. The Opts can be nil.
func New(b i2c.Bus, opts *Opts) *I2C {
	if opts == nil {
		opts = &DefaultOpts
	}
	return &I2C{opts: *opts, b: b}
}

func openHost(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	return i2creg.Open(name)
}

// Init implements Transport.
func (t *I2C) Init() error {
	if !t.mu.TryLock() {
		return &Error{Code: Busy, Op: "init"}
	}
	defer t.mu.Unlock()
	if t.initialized {
		return ErrAlreadyInitialized
	}
	if t.b == nil {
		b, err := t.open(t.opts.Name)
		if err != nil {
			return &Error{Code: HardwareFault, Op: "init", Err: err}
		}
		t.b = b
		t.closer = b
	}
	if t.opts.Speed > 0 {
		if err := t.b.SetSpeed(t.opts.Speed); err != nil {
			return &Error{Code: HardwareFault, Op: "init", Err: err}
		}
	}
	t.initialized = true
	return nil
}

// Read implements Transport.
func (t *I2C) Read(addr Addr, count uint16) ([]byte, error) {
	if err := t.acquire("read", addr); err != nil {
		return nil, err
	}
	defer t.mu.Unlock()
	r := make([]byte, count)
	if count == 0 {
		return r, nil
	}
	if err := t.b.Tx(uint16(addr), nil, r); err != nil {
		return nil, classify("read", addr, err)
	}
	return r, nil
}

// Write implements Transport.
func (t *I2C) Write(addr Addr, data []byte) error {
	if err := t.acquire("write", addr); err != nil {
		return err
	}
	defer t.mu.Unlock()
	if err := t.b.Tx(uint16(addr), data, nil); err != nil {
		return classify("write", addr, err)
	}
	return nil
}

// SleepMicroseconds implements Transport.
func (t *I2C) SleepMicroseconds(us uint32) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}

// Close releases the host bus if it was opened by Init.
func (t *I2C) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.initialized = false
	if t.closer == nil {
		return nil
	}
	err := t.closer.Close()
	t.closer = nil
	t.b = nil
	return err
}

func (t *I2C) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.b == nil {
		return "bus(" + t.opts.Name + ")"
	}
	return "bus(" + t.b.String() + ")"
}

// acquire takes the transport lock for one transaction. The lock is held on
// success only.
func (t *I2C) acquire(op string, addr Addr) error {
	if !addr.Valid() {
		return &Error{Code: HardwareFault, Op: op, Addr: addr, Err: errInvalidAddr}
	}
	if !t.mu.TryLock() {
		return &Error{Code: Busy, Op: op, Addr: addr}
	}
	if !t.initialized {
		t.mu.Unlock()
		return &Error{Code: Busy, Op: op, Addr: addr, Err: errNotInitialized}
	}
	return nil
}

// classify maps a host bus error to a Code. Kernel drivers report a bus held
// by another master as EBUSY or EAGAIN; everything else is a hardware fault.
func classify(op string, addr Addr, err error) error {
	code := HardwareFault
	if errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.EAGAIN) {
		code = Busy
	}
	return &Error{Code: code, Op: op, Addr: addr, Err: err}
}

var _ Transport = &I2C{}
