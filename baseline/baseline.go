// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package baseline persists SGP30 baselines across restarts.
//
// A store keeps the last saved baseline together with the time it was saved,
// and reports its age on Load so the caller can refuse stale values.
package baseline

import (
	"sync"
	"time"

	"github.com/GermanBionicSystems/iaq/sgp30"
	"github.com/pkg/errors"
)

// ErrNotFound is returned by Load when no baseline was saved yet.
var ErrNotFound = errors.New("baseline: not found")

// Memory is a store that lives as long as the process. It is used when no
// file is configured, and in tests.
type Memory struct {
	// Now returns the current time. Default is time.Now.
	Now func() time.Time

	mu      sync.Mutex
	b       sgp30.Baseline
	savedAt time.Time
	saved   bool
	saves   int
}

// NewMemory returns an empty memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Put stores b as if it had been saved at savedAt.
func (m *Memory) Put(b sgp30.Baseline, savedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.b, m.savedAt, m.saved = b, savedAt, true
}

// Load returns the stored baseline and its age.
func (m *Memory) Load() (sgp30.Baseline, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.saved {
		return sgp30.Baseline{}, 0, ErrNotFound
	}
	return m.b, now(m.Now).Sub(m.savedAt), nil
}

// Save stores b.
func (m *Memory) Save(b sgp30.Baseline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.b, m.savedAt, m.saved = b, now(m.Now), true
	m.saves++
	return nil
}

// Saves returns the number of calls to Save.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func now(f func() time.Time) time.Time {
	if f == nil {
		return time.Now()
	}
	return f()
}
