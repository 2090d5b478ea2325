// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sgp30 controls a Sensirion SGP30 multi-pixel gas sensor.
//
// The sensor reports total volatile organic compounds (TVOC, ppb) and
// equivalent CO2 (CO2eq, ppm) computed by an on-chip compensation algorithm.
// After IAQInit, MeasureIAQ must be called once per second for the algorithm
// to stay accurate; the caller owns that cadence.
//
// The algorithm's state, the baseline, can be read with GetBaseline and
// restored with SetBaseline after IAQInit to skip the 12 hour warm-up. A
// baseline older than one week must not be restored.
//
// # Datasheet
//
// https://sensirion.com/media/documents/984E0DD5/61644B8B/Sensirion_Gas_Sensors_Datasheet_SGP30.pdf
package sgp30
