// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/GermanBionicSystems/iaq/sgp30"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"periph.io/x/conn/v3/physic"
)

// fakeDevice is a scripted Device. Every call is appended to calls.
type fakeDevice struct {
	// probeErrs is consumed by successive probes; once empty, probes succeed.
	probeErrs   []error
	alwaysFail  error
	featureErr  error
	serialErr   error
	rawErr      error
	initErr     error
	setErr      error
	baseline    sgp30.Baseline
	baselineErr error
	humidityErr error
	// measure returns the result of the n-th (zero based) MeasureIAQ.
	measure func(n int) (sgp30.IAQ, error)

	calls        []string
	measures     int
	getBaselines []int // measure count at each GetBaseline
	setBaselines []sgp30.Baseline
	humidity     []uint32
}

func (d *fakeDevice) count(name string) int {
	n := 0
	for _, c := range d.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (d *fakeDevice) Probe() error {
	d.calls = append(d.calls, "probe")
	if d.alwaysFail != nil {
		return d.alwaysFail
	}
	if len(d.probeErrs) > 0 {
		err := d.probeErrs[0]
		d.probeErrs = d.probeErrs[1:]
		return err
	}
	return nil
}

func (d *fakeDevice) FeatureSetVersion() (uint16, uint8, error) {
	d.calls = append(d.calls, "feature_set")
	return 0x22, 0, d.featureErr
}

func (d *fakeDevice) SerialID() (uint64, error) {
	d.calls = append(d.calls, "serial_id")
	return 0x0148d4e2, d.serialErr
}

func (d *fakeDevice) MeasureRaw() (sgp30.Raw, error) {
	d.calls = append(d.calls, "measure_raw")
	if d.rawErr != nil {
		return sgp30.Raw{}, d.rawErr
	}
	return sgp30.Raw{Ethanol: 18900, H2: 13500}, nil
}

func (d *fakeDevice) IAQInit() error {
	d.calls = append(d.calls, "iaq_init")
	return d.initErr
}

func (d *fakeDevice) MeasureIAQ() (sgp30.IAQ, error) {
	d.calls = append(d.calls, "measure_iaq")
	n := d.measures
	d.measures++
	if d.measure == nil {
		return sgp30.IAQ{TVOC: 0, CO2Eq: 400}, nil
	}
	return d.measure(n)
}

func (d *fakeDevice) GetBaseline() (sgp30.Baseline, error) {
	d.calls = append(d.calls, "get_baseline")
	d.getBaselines = append(d.getBaselines, d.measures)
	return d.baseline, d.baselineErr
}

func (d *fakeDevice) SetBaseline(b sgp30.Baseline) error {
	d.calls = append(d.calls, "set_baseline")
	d.setBaselines = append(d.setBaselines, b)
	return d.setErr
}

func (d *fakeDevice) SetAbsoluteHumidity(mgPerM3 uint32) error {
	d.calls = append(d.calls, "set_humidity")
	d.humidity = append(d.humidity, mgPerM3)
	return d.humidityErr
}

// recorder is a Reporter keeping everything it receives.
type recorder struct {
	readings []Reading
	errors   []ErrorEvent
}

func (r *recorder) ReportReading(rd Reading) { r.readings = append(r.readings, rd) }
func (r *recorder) ReportError(e ErrorEvent) { r.errors = append(r.errors, e) }

func (r *recorder) errorsFor(op string) []ErrorEvent {
	var out []ErrorEvent
	for _, e := range r.errors {
		if e.Op == op {
			out = append(out, e)
		}
	}
	return out
}

// sleeper records the requested pauses without waiting.
type sleeper struct {
	slept []time.Duration
}

func (s *sleeper) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.slept = append(s.slept, d)
	return nil
}

// failingStore is a BaselineStore whose operations fail.
type failingStore struct {
	loadErr error
	saveErr error
	saves   int
}

func (s *failingStore) Load() (sgp30.Baseline, time.Duration, error) {
	return sgp30.Baseline{}, 0, s.loadErr
}

func (s *failingStore) Save(sgp30.Baseline) error {
	s.saves++
	return s.saveErr
}

// envSensor is a scripted EnvSensor.
type envSensor struct {
	env physic.Env
	err error
}

func (e *envSensor) Sense(env *physic.Env) error {
	if e.err != nil {
		return e.err
	}
	*env = e.env
	return nil
}

var errTest = errors.New("test failure")

var testTime = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

// testOpts returns options with recorded sleeps, a fixed clock and a null
// logger.
func testOpts() (*Opts, *sleeper, *test.Hook) {
	s := &sleeper{}
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return &Opts{
		Sleep: s.sleep,
		Log:   logger,
		Now:   func() time.Time { return testTime },
	}, s, hook
}
