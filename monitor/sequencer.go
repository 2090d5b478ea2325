// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/GermanBionicSystems/iaq/baseline"
	"github.com/sirupsen/logrus"
)

// State is a step of the initialization sequence.
type State int32

const (
	Discovering State = iota
	Probed
	FeatureQueried
	WarmedUp
	Ready
)

func (s State) String() string {
	switch s {
	case Discovering:
		return "discovering"
	case Probed:
		return "probed"
	case FeatureQueried:
		return "feature_queried"
	case WarmedUp:
		return "warmed_up"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ErrProbeExhausted is returned when MaxProbeAttempts probes failed.
var ErrProbeExhausted = errors.New("monitor: device not found")

// Info is what the Sequencer learned about the device.
type Info struct {
	FeatureSet    uint16
	ProductType   uint8
	SerialID      uint64
	ProbeAttempts int
	// IAQInitialized is false when IAQInit failed; the loop then runs
	// degraded.
	IAQInitialized   bool
	BaselineRestored bool
}

// Sequencer brings the device from power-up to Ready.
type Sequencer struct {
	dev   Device
	store BaselineStore
	rep   Reporter
	opts  Opts
	state atomic.Int32
}

// NewSequencer returns a Sequencer. store and rep can be nil. The Opts can be
// nil.
func NewSequencer(dev Device, store BaselineStore, rep Reporter, opts *Opts) *Sequencer {
	if rep == nil {
		rep = discard{}
	}
	return &Sequencer{dev: dev, store: store, rep: rep, opts: opts.withDefaults()}
}

// State returns the current state.
func (s *Sequencer) State() State {
	return State(s.state.Load())
}

func (s *Sequencer) setState(st State) {
	s.state.Store(int32(st))
	s.opts.Log.WithField("state", st).Debug("sgp30 init")
}

func (s *Sequencer) report(op string, err error) {
	s.rep.ReportError(ErrorEvent{Kind: Classify(err), Op: op, Err: err})
}

// Run executes the sequence. Only probe exhaustion and ctx cancellation
// return an error; every later failure is reported and skipped.
func (s *Sequencer) Run(ctx context.Context) (Info, error) {
	var info Info
	log := s.opts.Log
	s.setState(Discovering)
	for {
		info.ProbeAttempts++
		err := s.dev.Probe()
		if err == nil {
			break
		}
		s.report(OpProbe, err)
		log.WithError(err).WithField("attempt", info.ProbeAttempts).Warn("sgp30 probing failed")
		if s.opts.MaxProbeAttempts > 0 && info.ProbeAttempts >= s.opts.MaxProbeAttempts {
			return info, fmt.Errorf("%w after %d attempts: %w", ErrProbeExhausted, info.ProbeAttempts, err)
		}
		if err := s.opts.Sleep(ctx, s.opts.ProbeBackoff); err != nil {
			return info, err
		}
	}
	s.setState(Probed)
	log.Info("sgp30 probing successful")

	var err error
	if info.FeatureSet, info.ProductType, err = s.dev.FeatureSetVersion(); err != nil {
		s.report(OpFeatureSet, err)
	} else {
		log.WithFields(logrus.Fields{"feature_set": fmt.Sprintf("0x%02x", info.FeatureSet), "product_type": info.ProductType}).Info("sgp30 feature set")
	}
	if info.SerialID, err = s.dev.SerialID(); err != nil {
		s.report(OpSerialID, err)
	} else {
		log.WithField("serial_id", fmt.Sprintf("0x%012x", info.SerialID)).Info("sgp30 serial id")
	}
	s.setState(FeatureQueried)

	if raw, err := s.dev.MeasureRaw(); err != nil {
		s.report(OpMeasureRaw, err)
	} else {
		s.rep.ReportReading(Reading{Mode: ModeRaw, Ethanol: raw.Ethanol, H2: raw.H2, Time: s.opts.Now()})
	}

	if err := s.dev.IAQInit(); err != nil {
		s.report(OpIAQInit, err)
		log.WithError(err).Warn("sgp30 iaq init failed, continuing degraded")
	} else {
		info.IAQInitialized = true
		info.BaselineRestored = s.restoreBaseline()
	}
	s.setState(WarmedUp)
	s.setState(Ready)
	return info, nil
}

// restoreBaseline pushes a stored baseline that is not older than
// MaxBaselineAge into the device.
func (s *Sequencer) restoreBaseline() bool {
	if s.store == nil {
		return false
	}
	log := s.opts.Log
	b, age, err := s.store.Load()
	switch {
	case errors.Is(err, baseline.ErrNotFound):
		log.Info("no stored sgp30 baseline")
		return false
	case err != nil:
		s.rep.ReportError(ErrorEvent{Kind: KindStore, Op: OpLoadBaseline, Err: err})
		return false
	case age < 0 || age > s.opts.MaxBaselineAge:
		log.WithFields(logrus.Fields{"baseline": b, "age": age}).Info("stored sgp30 baseline is stale, not restoring")
		return false
	}
	if err := s.dev.SetBaseline(b); err != nil {
		s.report(OpSetBaseline, err)
		return false
	}
	log.WithFields(logrus.Fields{"baseline": b, "age": age}).Info("sgp30 baseline restored")
	return true
}
