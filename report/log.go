// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package report

import (
	"github.com/GermanBionicSystems/iaq/monitor"
	"github.com/sirupsen/logrus"
)

// Log writes readings at Info and errors at Warn level.
type Log struct {
	log logrus.FieldLogger
}

// NewLog returns a Log reporter. A nil logger selects the logrus standard
// logger.
func NewLog(l logrus.FieldLogger) *Log {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Log{log: l}
}

// ReportReading implements monitor.Reporter.
func (l *Log) ReportReading(r monitor.Reading) {
	f := logrus.Fields{"mode": r.Mode}
	if r.Mode == monitor.ModeIAQ {
		f["tick"] = r.Tick
	}
	l.log.WithFields(f).Info(r.String())
}

// ReportError implements monitor.Reporter.
func (l *Log) ReportError(e monitor.ErrorEvent) {
	l.log.WithFields(logrus.Fields{"kind": e.Kind, "op": e.Op, "tick": e.Tick}).WithError(e.Err).Warn("sgp30 " + e.Op + " failed")
}

var _ monitor.Reporter = &Log{}
