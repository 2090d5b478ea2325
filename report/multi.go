// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package report

import "github.com/GermanBionicSystems/iaq/monitor"

// Multi fans out to every non-nil reporter in order.
type Multi []monitor.Reporter

// ReportReading implements monitor.Reporter.
func (m Multi) ReportReading(r monitor.Reading) {
	for _, rep := range m {
		if rep != nil {
			rep.ReportReading(r)
		}
	}
}

// ReportError implements monitor.Reporter.
func (m Multi) ReportError(e monitor.ErrorEvent) {
	for _, rep := range m {
		if rep != nil {
			rep.ReportError(e)
		}
	}
}

var _ monitor.Reporter = Multi{}
