// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package iaq is a container for the SGP30 indoor air quality monitor.
//
// The driver lives in sgp30, the measurement and calibration control loop in
// monitor, and the daemon in cmd/iaqd.
package iaq
