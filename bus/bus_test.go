// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bus

import (
	"bytes"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

const testAddr Addr = 0x58

// errBus is an i2c.Bus that fails every transaction with err.
type errBus struct {
	err    error
	speed  physic.Frequency
	closed bool
}

func (b *errBus) String() string                    { return "errBus" }
func (b *errBus) Tx(addr uint16, w, r []byte) error { return b.err }
func (b *errBus) SetSpeed(f physic.Frequency) error { b.speed = f; return nil }
func (b *errBus) Close() error                      { b.closed = true; return nil }

var _ i2c.BusCloser = &errBus{}

func newPlayback(t *testing.T, ops ...i2ctest.IO) *I2C {
	tr := New(&i2ctest.Playback{Ops: ops, DontPanic: true}, nil)
	if err := tr.Init(); err != nil {
		t.Fatal(err)
	}
	return tr
}

func TestAddrValid(t *testing.T) {
	for _, test := range []struct {
		addr  Addr
		valid bool
	}{
		{0x00, false},
		{0x07, false},
		{0x08, true},
		{0x58, true},
		{0x77, true},
		{0x78, false},
		{0x200, false},
	} {
		if test.addr.Valid() != test.valid {
			t.Errorf("Addr(%s).Valid()=%t expected %t", test.addr, !test.valid, test.valid)
		}
	}
}

func TestReadWrite(t *testing.T) {
	tr := newPlayback(t,
		i2ctest.IO{Addr: uint16(testAddr), W: []byte{0x20, 0x2f}},
		i2ctest.IO{Addr: uint16(testAddr), R: []byte{0x00, 0x22, 0x65}},
	)
	if err := tr.Write(testAddr, []byte{0x20, 0x2f}); err != nil {
		t.Fatal(err)
	}
	r, err := tr.Read(testAddr, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, []byte{0x00, 0x22, 0x65}) {
		t.Errorf("Read() returned %#v", r)
	}
}

func TestReadNoPartialData(t *testing.T) {
	// The playback expects a 6 byte read; asking for 3 makes it fail.
	tr := newPlayback(t, i2ctest.IO{Addr: uint16(testAddr), R: []byte{1, 2, 3, 4, 5, 6}})
	r, err := tr.Read(testAddr, 3)
	if err == nil {
		t.Fatal("expected an error")
	}
	if r != nil {
		t.Errorf("failed Read() returned data %#v", r)
	}
	if !errors.Is(err, ErrHardwareFault) {
		t.Errorf("expected a hardware fault, got %v", err)
	}
}

func TestNotInitialized(t *testing.T) {
	tr := New(&i2ctest.Playback{DontPanic: true}, nil)
	if _, err := tr.Read(testAddr, 2); !errors.Is(err, ErrBusy) {
		t.Errorf("Read() before Init returned %v expected busy", err)
	}
	if err := tr.Write(testAddr, []byte{0}); !errors.Is(err, ErrBusy) {
		t.Errorf("Write() before Init returned %v expected busy", err)
	}
	if err := tr.Init(); err != nil {
		t.Fatal(err)
	}
	if err := tr.Init(); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Init() returned %v", err)
	}
}

func TestBusyWhileInFlight(t *testing.T) {
	tr := newPlayback(t)
	tr.mu.Lock()
	_, err := tr.Read(testAddr, 2)
	tr.mu.Unlock()
	if code, ok := CodeOf(err); !ok || code != Busy {
		t.Errorf("Read() during a transfer returned %v expected busy", err)
	}
}

func TestInvalidAddress(t *testing.T) {
	tr := newPlayback(t)
	if err := tr.Write(0x80, []byte{0}); !errors.Is(err, ErrHardwareFault) {
		t.Errorf("Write() to 0x80 returned %v", err)
	}
}

func TestClassify(t *testing.T) {
	for _, test := range []struct {
		err  error
		code Code
	}{
		{fmt.Errorf("sysfs-i2c: %w", syscall.EBUSY), Busy},
		{fmt.Errorf("sysfs-i2c: %w", syscall.EAGAIN), Busy},
		{fmt.Errorf("sysfs-i2c: %w", syscall.EREMOTEIO), HardwareFault},
		{errors.New("nack"), HardwareFault},
	} {
		tr := New(&errBus{err: test.err}, nil)
		if err := tr.Init(); err != nil {
			t.Fatal(err)
		}
		err := tr.Write(testAddr, []byte{1})
		if code, _ := CodeOf(err); code != test.code {
			t.Errorf("%v classified as %s expected %s", test.err, code, test.code)
		}
		if !errors.Is(err, test.err) {
			t.Errorf("%v does not wrap %v", err, test.err)
		}
	}
}

func TestOpenInitClose(t *testing.T) {
	b := &errBus{}
	tr := Open(&Opts{Name: "1", Speed: 100 * physic.KiloHertz})
	var opened string
	tr.open = func(name string) (i2c.BusCloser, error) {
		opened = name
		return b, nil
	}
	if err := tr.Init(); err != nil {
		t.Fatal(err)
	}
	if opened != "1" {
		t.Errorf("opened bus %q", opened)
	}
	if b.speed != 100*physic.KiloHertz {
		t.Errorf("speed=%s", b.speed)
	}
	if err := tr.Close(); err != nil {
		t.Error(err)
	}
	if !b.closed {
		t.Error("Close() did not close the host bus")
	}
}

func TestInitFailure(t *testing.T) {
	tr := Open(nil)
	tr.open = func(string) (i2c.BusCloser, error) {
		return nil, errors.New("no bus")
	}
	err := tr.Init()
	if !errors.Is(err, ErrHardwareFault) {
		t.Errorf("Init() returned %v", err)
	}
	if s := err.Error(); s != "bus: init hardware fault: no bus" {
		t.Errorf("Error()=%q", s)
	}
}

func TestSleepMicroseconds(t *testing.T) {
	tr := New(&i2ctest.Playback{}, nil)
	start := time.Now()
	tr.SleepMicroseconds(2000)
	if d := time.Since(start); d < 2*time.Millisecond {
		t.Errorf("slept %s, expected at least 2ms", d)
	}
}

func TestErrorString(t *testing.T) {
	err := &Error{Code: Busy, Op: "read", Addr: testAddr}
	if s := err.Error(); s != "bus: read 0x58 busy" {
		t.Errorf("Error()=%q", s)
	}
	if errors.Is(err, ErrHardwareFault) {
		t.Error("busy error matched ErrHardwareFault")
	}
}
