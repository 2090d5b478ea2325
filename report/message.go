// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package report

import (
	"encoding/json"
	"time"

	"github.com/GermanBionicSystems/iaq/monitor"
)

// Message is the JSON document published by MQTT and Hub.
type Message struct {
	// Type is "iaq", "raw" or "error".
	Type    string    `json:"type"`
	Tick    uint64    `json:"tick"`
	Time    time.Time `json:"time,omitempty"`
	TVOC    *uint16   `json:"tvoc_ppb,omitempty"`
	CO2Eq   *uint16   `json:"co2eq_ppm,omitempty"`
	Ethanol *uint16   `json:"ethanol,omitempty"`
	H2      *uint16   `json:"h2,omitempty"`
	Kind    string    `json:"kind,omitempty"`
	Op      string    `json:"op,omitempty"`
	Error   string    `json:"error,omitempty"`
}

func u16(v uint16) *uint16 { return &v }

// NewReadingMessage converts a reading.
func NewReadingMessage(r monitor.Reading) Message {
	m := Message{Type: r.Mode.String(), Tick: r.Tick, Time: r.Time}
	if r.Mode == monitor.ModeRaw {
		m.Ethanol = u16(r.Ethanol)
		m.H2 = u16(r.H2)
	} else {
		m.TVOC = u16(uint16(r.TVOC))
		m.CO2Eq = u16(uint16(r.CO2Eq))
	}
	return m
}

// NewErrorMessage converts an error event. t is the time of the report.
func NewErrorMessage(e monitor.ErrorEvent, t time.Time) Message {
	m := Message{Type: "error", Tick: e.Tick, Time: t, Kind: e.Kind.String(), Op: e.Op}
	if e.Err != nil {
		m.Error = e.Err.Error()
	}
	return m
}

func (m Message) marshal() []byte {
	// Message only holds marshalable fields.
	b, _ := json.Marshal(m)
	return b
}
