// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package report implements monitor.Reporter sinks for SGP30 readings and
// errors.
//
// Every reporter returns quickly: network sinks publish asynchronously or
// drop messages for slow consumers, so a stalled broker or browser never
// delays a measurement cycle.
package report
