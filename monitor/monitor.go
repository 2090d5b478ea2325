// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Opts holds the configuration options of the monitor. Zero values select
// the defaults.
type Opts struct {
	// Period is the pause after every measurement cycle. The SGP30 expects
	// one IAQ measurement per second. The pause is flat, so the cycle time
	// drifts by the duration of the measurement itself. Default is 1s.
	Period time.Duration
	// ProbeBackoff is the wait between failed probes. Default is 1s.
	ProbeBackoff time.Duration
	// MaxProbeAttempts bounds the number of probes. 0 probes forever.
	MaxProbeAttempts int
	// PersistEvery is the number of cycles between baseline persistence.
	// Default is 3600, once an hour at the default period.
	PersistEvery uint64
	// MaxBaselineAge is the age above which a stored baseline is not
	// restored. Default is one week.
	MaxBaselineAge time.Duration
	// MaxCycles stops the loop after that many cycles. 0 runs forever.
	MaxCycles uint64
	// Humidity, when set and the device implements HumidityCompensator,
	// feeds the absolute humidity to the device before every measurement.
	Humidity EnvSensor
	// Log receives lifecycle messages. Default is the logrus standard logger.
	Log logrus.FieldLogger
	// Sleep waits for d or until ctx is done. Default uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Now timestamps readings. Default is time.Now.
	Now func() time.Time
}

// DefaultOpts holds the default configuration options of the monitor.
var DefaultOpts = Opts{
	Period:         time.Second,
	ProbeBackoff:   time.Second,
	PersistEvery:   3600,
	MaxBaselineAge: 7 * 24 * time.Hour,
}

// withDefaults returns a copy of opts with zero values replaced.
func (o *Opts) withDefaults() Opts {
	var r Opts
	if o != nil {
		r = *o
	}
	if r.Period <= 0 {
		r.Period = DefaultOpts.Period
	}
	if r.ProbeBackoff <= 0 {
		r.ProbeBackoff = DefaultOpts.ProbeBackoff
	}
	if r.PersistEvery == 0 {
		r.PersistEvery = DefaultOpts.PersistEvery
	}
	if r.MaxBaselineAge <= 0 {
		r.MaxBaselineAge = DefaultOpts.MaxBaselineAge
	}
	if r.Log == nil {
		r.Log = logrus.StandardLogger()
	}
	if r.Sleep == nil {
		r.Sleep = sleep
	}
	if r.Now == nil {
		r.Now = time.Now
	}
	return r
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Monitor runs a Sequencer then a Loop on the same device.
type Monitor struct {
	Sequencer *Sequencer
	Loop      *Loop
}

// New returns a monitor for dev. store and rep can be nil. The Opts can be
// nil.
func New(dev Device, store BaselineStore, rep Reporter, opts *Opts) *Monitor {
	return &Monitor{
		Sequencer: NewSequencer(dev, store, rep, opts),
		Loop:      NewLoop(dev, store, rep, opts),
	}
}

// Run initializes the device and then measures until ctx is done or
// MaxCycles is reached. It returns an error only when the device could not
// be discovered or ctx was cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if _, err := m.Sequencer.Run(ctx); err != nil {
		return err
	}
	return m.Loop.Run(ctx)
}
