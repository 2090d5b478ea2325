// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"
)

// Loop is the steady state measurement loop.
type Loop struct {
	dev   Device
	comp  HumidityCompensator
	store BaselineStore
	rep   Reporter
	opts  Opts
	ticks atomic.Uint64
}

// NewLoop returns a Loop. store and rep can be nil. The Opts can be nil.
func NewLoop(dev Device, store BaselineStore, rep Reporter, opts *Opts) *Loop {
	if rep == nil {
		rep = discard{}
	}
	l := &Loop{dev: dev, store: store, rep: rep, opts: opts.withDefaults()}
	if l.opts.Humidity != nil {
		l.comp, _ = dev.(HumidityCompensator)
	}
	return l
}

// Ticks returns the number of completed cycles.
func (l *Loop) Ticks() uint64 {
	return l.ticks.Load()
}

// Run executes cycles separated by Period until ctx is done or MaxCycles is
// reached.
func (l *Loop) Run(ctx context.Context) error {
	l.opts.Log.WithFields(logrus.Fields{"period": l.opts.Period, "persist_every": l.opts.PersistEvery}).Info("sgp30 measurement loop started")
	for {
		l.Cycle()
		if l.opts.MaxCycles > 0 && l.Ticks() >= l.opts.MaxCycles {
			return nil
		}
		if err := l.opts.Sleep(ctx, l.opts.Period); err != nil {
			return err
		}
	}
}

// Cycle runs one measurement cycle without the trailing pause.
func (l *Loop) Cycle() {
	idx := l.ticks.Load()
	l.compensate(idx)
	if iaq, err := l.dev.MeasureIAQ(); err != nil {
		l.report(OpMeasureIAQ, idx, Classify(err), err)
	} else {
		l.rep.ReportReading(Reading{Mode: ModeIAQ, TVOC: iaq.TVOC, CO2Eq: iaq.CO2Eq, Tick: idx, Time: l.opts.Now()})
	}
	l.ticks.Add(1)
	if idx%l.opts.PersistEvery == l.opts.PersistEvery-1 {
		l.persist(idx)
	}
}

func (l *Loop) report(op string, idx uint64, kind ErrorKind, err error) {
	l.rep.ReportError(ErrorEvent{Kind: kind, Op: op, Tick: idx, Err: err})
}

// persist reads the baseline and saves it. Either failure skips persistence
// until the next scheduled cycle.
func (l *Loop) persist(idx uint64) {
	b, err := l.dev.GetBaseline()
	if err != nil {
		l.report(OpGetBaseline, idx, Classify(err), err)
		return
	}
	if l.store == nil {
		return
	}
	if err := l.store.Save(b); err != nil {
		l.report(OpSaveBaseline, idx, KindStore, err)
		return
	}
	l.opts.Log.WithFields(logrus.Fields{"baseline": b, "tick": idx}).Info("sgp30 baseline persisted")
}

// compensate feeds the current absolute humidity to the device.
func (l *Loop) compensate(idx uint64) {
	if l.comp == nil {
		return
	}
	var e physic.Env
	if err := l.opts.Humidity.Sense(&e); err != nil {
		l.report(OpHumidity, idx, Classify(err), err)
		return
	}
	if err := l.comp.SetAbsoluteHumidity(AbsoluteHumidity(e.Temperature, e.Humidity)); err != nil {
		l.report(OpHumidity, idx, Classify(err), err)
	}
}
