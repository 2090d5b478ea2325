// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package monitor runs the SGP30 measurement and calibration control loop.
//
// A Sequencer discovers the sensor, reports its identity and one raw
// measurement, initializes the IAQ algorithm and restores a recent baseline.
// A Loop then measures once per period, reports every reading or failure and
// hands the sensor baseline to a BaselineStore every PersistEvery cycles.
//
// Everything runs on the caller's goroutine. Failures in steady state are
// reported and the loop carries on; only an exhausted probe stops the
// sequencer.
package monitor
