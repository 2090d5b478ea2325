// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package report

import (
	"github.com/GermanBionicSystems/iaq/monitor"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the last readings as Prometheus gauges and counts errors
// per kind.
type Metrics struct {
	tvoc    prometheus.Gauge
	co2eq   prometheus.Gauge
	ethanol prometheus.Gauge
	h2      prometheus.Gauge
	ticks   prometheus.Gauge
	errors  *prometheus.CounterVec
}

func newGauge(name string, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// selects prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		tvoc:    newGauge("sgp30_tvoc_ppb", "Total volatile organic compounds (units: ppb)"),
		co2eq:   newGauge("sgp30_co2eq_ppm", "CO2 equivalent (units: ppm)"),
		ethanol: newGauge("sgp30_raw_ethanol", "Raw ethanol signal"),
		h2:      newGauge("sgp30_raw_h2", "Raw H2 signal"),
		ticks:   newGauge("sgp30_ticks", "Completed measurement cycles"),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sgp30_errors_total",
				Help: "Failed operations by kind",
			},
			[]string{"kind"},
		),
	}
	for _, c := range []prometheus.Collector{m.tvoc, m.co2eq, m.ethanol, m.h2, m.ticks, m.errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	// Export every kind from the start so rate() works on the first error.
	for _, k := range monitor.Kinds {
		m.errors.WithLabelValues(k.String())
	}
	return m, nil
}

// ReportReading implements monitor.Reporter.
func (m *Metrics) ReportReading(r monitor.Reading) {
	if r.Mode == monitor.ModeRaw {
		m.ethanol.Set(float64(r.Ethanol))
		m.h2.Set(float64(r.H2))
		return
	}
	m.tvoc.Set(float64(r.TVOC))
	m.co2eq.Set(float64(r.CO2Eq))
	m.ticks.Set(float64(r.Tick + 1))
}

// ReportError implements monitor.Reporter.
func (m *Metrics) ReportError(e monitor.ErrorEvent) {
	m.errors.WithLabelValues(e.Kind.String()).Inc()
	if e.Op == monitor.OpMeasureIAQ {
		m.ticks.Set(float64(e.Tick + 1))
	}
}

var _ monitor.Reporter = &Metrics{}
