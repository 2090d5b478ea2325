// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/GermanBionicSystems/iaq/baseline"
	"github.com/GermanBionicSystems/iaq/bus"
	"github.com/GermanBionicSystems/iaq/common"
	"github.com/GermanBionicSystems/iaq/sgp30"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

func TestLoopFirstCycle(t *testing.T) {
	dev := &fakeDevice{measure: func(int) (sgp30.IAQ, error) {
		return sgp30.IAQ{TVOC: 120, CO2Eq: 450}, nil
	}}
	rec := &recorder{}
	opts, _, _ := testOpts()
	l := NewLoop(dev, baseline.NewMemory(), rec, opts)

	l.Cycle()
	want := []Reading{{Mode: ModeIAQ, TVOC: 120, CO2Eq: 450, Tick: 0, Time: testTime}}
	if !reflect.DeepEqual(rec.readings, want) {
		t.Errorf("readings=%v expected %v", rec.readings, want)
	}
	if l.Ticks() != 1 {
		t.Errorf("Ticks()=%d", l.Ticks())
	}
	if dev.count("get_baseline") != 0 {
		t.Error("baseline read on the first cycle")
	}
}

func TestLoopTicksOnFailure(t *testing.T) {
	dev := &fakeDevice{measure: func(n int) (sgp30.IAQ, error) {
		if n%2 == 1 {
			return sgp30.IAQ{}, bus.ErrBusy
		}
		return sgp30.IAQ{TVOC: 5, CO2Eq: 410}, nil
	}}
	rec := &recorder{}
	opts, _, _ := testOpts()
	l := NewLoop(dev, nil, rec, opts)
	for i := 0; i < 4; i++ {
		l.Cycle()
	}
	if l.Ticks() != 4 {
		t.Errorf("Ticks()=%d", l.Ticks())
	}
	if len(rec.readings) != 2 || rec.readings[1].Tick != 2 {
		t.Errorf("readings=%v", rec.readings)
	}
	errs := rec.errorsFor(OpMeasureIAQ)
	if len(errs) != 2 || errs[0].Tick != 1 || errs[1].Tick != 3 || errs[0].Kind != KindBusy {
		t.Errorf("errors=%v", errs)
	}
}

func TestLoopPersistSchedule(t *testing.T) {
	dev := &fakeDevice{baseline: token}
	store := baseline.NewMemory()
	opts, _, hook := testOpts()
	l := NewLoop(dev, store, nil, opts)
	for i := 0; i < 7205; i++ {
		l.Cycle()
	}
	// GetBaseline follows the measurement of cycle indices 3599 and 7199.
	if !reflect.DeepEqual(dev.getBaselines, []int{3600, 7200}) {
		t.Errorf("GetBaseline() after measurements %v", dev.getBaselines)
	}
	if store.Saves() != 2 {
		t.Errorf("Saves()=%d", store.Saves())
	}
	b, _, err := store.Load()
	if err != nil || b != token {
		t.Errorf("Load()=%s, %v", b, err)
	}
	if e := hook.LastEntry(); e == nil || e.Message != "sgp30 baseline persisted" || e.Data["tick"] != uint64(7199) {
		t.Errorf("last log entry=%+v", e)
	}
}

func TestLoopPersistEvery(t *testing.T) {
	dev := &fakeDevice{baseline: token}
	opts, _, _ := testOpts()
	opts.PersistEvery = 3
	l := NewLoop(dev, nil, nil, opts)
	for i := 0; i < 7; i++ {
		l.Cycle()
	}
	if !reflect.DeepEqual(dev.getBaselines, []int{3, 6}) {
		t.Errorf("GetBaseline() after measurements %v", dev.getBaselines)
	}
}

func TestLoopPersistFailures(t *testing.T) {
	opts, _, _ := testOpts()
	opts.PersistEvery = 1

	dev := &fakeDevice{baselineErr: bus.ErrHardwareFault}
	store := &failingStore{}
	rec := &recorder{}
	NewLoop(dev, store, rec, opts).Cycle()
	if store.saves != 0 {
		t.Error("saved a baseline that could not be read")
	}
	if e := rec.errorsFor(OpGetBaseline); len(e) != 1 || e[0].Kind != KindHardwareFault {
		t.Errorf("errors=%v", rec.errors)
	}

	dev = &fakeDevice{baseline: token}
	store = &failingStore{saveErr: errTest}
	rec = &recorder{}
	l := NewLoop(dev, store, rec, opts)
	l.Cycle()
	l.Cycle()
	if store.saves != 2 {
		t.Errorf("saves=%d", store.saves)
	}
	e := rec.errorsFor(OpSaveBaseline)
	if len(e) != 2 || e[0].Kind != KindStore || !errors.Is(e[0].Err, errTest) {
		t.Errorf("errors=%v", rec.errors)
	}
	if len(rec.readings) != 2 {
		t.Errorf("readings=%v", rec.readings)
	}
}

func TestLoopRunMaxCycles(t *testing.T) {
	dev := &fakeDevice{}
	rec := &recorder{}
	opts, s, _ := testOpts()
	opts.MaxCycles = 5
	opts.Period = 2 * time.Second
	l := NewLoop(dev, nil, rec, opts)
	if err := l.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if l.Ticks() != 5 || len(rec.readings) != 5 {
		t.Errorf("Ticks()=%d readings=%d", l.Ticks(), len(rec.readings))
	}
	if len(s.slept) != 4 || s.slept[0] != 2*time.Second {
		t.Errorf("slept=%v", s.slept)
	}
}

func TestLoopRunCancelled(t *testing.T) {
	dev := &fakeDevice{}
	opts, _, _ := testOpts()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := NewLoop(dev, nil, nil, opts)
	if err := l.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() returned %v", err)
	}
	if l.Ticks() != 1 {
		t.Errorf("Ticks()=%d", l.Ticks())
	}
}

func TestLoopHumidity(t *testing.T) {
	env := &envSensor{env: physic.Env{Temperature: 25*physic.Celsius + physic.ZeroCelsius, Humidity: 50 * physic.PercentRH}}
	dev := &fakeDevice{}
	rec := &recorder{}
	opts, _, _ := testOpts()
	opts.Humidity = env
	l := NewLoop(dev, nil, rec, opts)
	l.Cycle()
	if !reflect.DeepEqual(dev.calls, []string{"set_humidity", "measure_iaq"}) {
		t.Errorf("calls=%v", dev.calls)
	}
	if len(dev.humidity) != 1 || dev.humidity[0] < 11400 || dev.humidity[0] > 11600 {
		t.Errorf("humidity=%v", dev.humidity)
	}

	env.err = errTest
	l.Cycle()
	if e := rec.errorsFor(OpHumidity); len(e) != 1 || e[0].Tick != 1 {
		t.Errorf("errors=%v", rec.errors)
	}
	if len(rec.readings) != 2 {
		t.Errorf("failed compensation skipped the measurement: %v", rec.readings)
	}
}

func TestMonitorRun(t *testing.T) {
	dev := &fakeDevice{baseline: token}
	store := baseline.NewMemory()
	store.Now = func() time.Time { return testTime }
	store.Put(sgp30.Baseline{1, 2, 3, 4}, testTime.Add(-time.Minute))
	rec := &recorder{}
	opts, _, _ := testOpts()
	opts.MaxCycles = 3
	opts.PersistEvery = 2
	if err := New(dev, store, rec, opts).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if dev.count("iaq_init") != 1 {
		t.Errorf("iaq_init called %d times", dev.count("iaq_init"))
	}
	if dev.count("measure_iaq") != 3 {
		t.Errorf("measured %d times", dev.count("measure_iaq"))
	}
	// The raw reading of the sequencer then three IAQ readings.
	if len(rec.readings) != 4 || rec.readings[0].Mode != ModeRaw || rec.readings[3].Tick != 2 {
		t.Errorf("readings=%v", rec.readings)
	}
	if b, _, _ := store.Load(); b != token {
		t.Errorf("stored baseline %s", b)
	}
}

func TestMonitorProbeExhausted(t *testing.T) {
	dev := &fakeDevice{alwaysFail: bus.ErrBusy}
	opts, _, _ := testOpts()
	opts.MaxProbeAttempts = 2
	err := New(dev, nil, nil, opts).Run(context.Background())
	if !errors.Is(err, ErrProbeExhausted) {
		t.Errorf("Run() returned %v", err)
	}
	if dev.count("measure_iaq") != 0 {
		t.Error("measured without a device")
	}
}

func TestLoopDeviceOverBus(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x58, W: []byte{0x20, 0x08}},
			{Addr: 0x58, R: common.EncodeWords(450, 120)},
		},
		DontPanic: true,
	}
	tr := bus.New(pb, nil)
	if err := tr.Init(); err != nil {
		t.Fatal(err)
	}
	dev, err := sgp30.New(tr, sgp30.DefaultAddress, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	opts, _, _ := testOpts()
	l := NewLoop(dev, nil, rec, opts)

	l.Cycle()
	if len(rec.readings) != 1 || rec.readings[0].TVOC != 120 || rec.readings[0].CO2Eq != 450 {
		t.Errorf("readings=%v", rec.readings)
	}

	// The playback has no more operations so every transfer fails.
	l.Cycle()
	if len(rec.readings) != 1 {
		t.Errorf("reading reported for a failed transfer: %v", rec.readings)
	}
	if e := rec.errorsFor(OpMeasureIAQ); len(e) != 1 || e[0].Kind != KindHardwareFault {
		t.Errorf("errors=%v", rec.errors)
	}
	if l.Ticks() != 2 {
		t.Errorf("Ticks()=%d", l.Ticks())
	}
}
