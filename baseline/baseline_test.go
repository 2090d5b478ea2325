// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package baseline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GermanBionicSystems/iaq/sgp30"
	"github.com/pkg/errors"
)

var token = sgp30.Baseline{0xde, 0xad, 0xbe, 0xef}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestMemory(t *testing.T) {
	c := &clock{t: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)}
	m := NewMemory()
	m.Now = c.now
	if _, _, err := m.Load(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() on empty store returned %v", err)
	}
	if err := m.Save(token); err != nil {
		t.Fatal(err)
	}
	c.t = c.t.Add(90 * time.Minute)
	b, age, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if b != token || age != 90*time.Minute {
		t.Errorf("Load()=%s,%s", b, age)
	}
	if m.Saves() != 1 {
		t.Errorf("Saves()=%d", m.Saves())
	}

	m.Put(sgp30.Baseline{1, 2, 3, 4}, c.t.Add(-8*24*time.Hour))
	if _, age, _ = m.Load(); age != 8*24*time.Hour {
		t.Errorf("age after Put()=%s", age)
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sgp30.json")
	c := &clock{t: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)}
	f := NewFile(path)
	f.Now = c.now

	if _, _, err := f.Load(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() of missing file returned %v", err)
	}
	if err := f.Save(token); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"baseline":"deadbeef","saved_at":"2026-10-17T12:00:00Z"}`; strings.TrimSpace(string(data)) != want {
		t.Errorf("file=%s expected %s", data, want)
	}

	c.t = c.t.Add(36 * time.Hour)
	b, age, err := f.Load()
	if err != nil {
		t.Fatal(err)
	}
	if b != token || age != 36*time.Hour {
		t.Errorf("Load()=%s,%s", b, age)
	}

	// Overwrite and make sure no temporary files are left behind.
	if err := f.Save(sgp30.Baseline{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries", len(entries))
	}
}

func TestFileCorrupt(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"garbage":  "not json",
		"baseline": `{"baseline":"dead","saved_at":"2026-10-17T12:00:00Z"}`,
		"saved_at": `{"baseline":"deadbeef"}`,
	} {
		path := filepath.Join(dir, name+".json")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		_, _, err := NewFile(path).Load()
		if err == nil || errors.Is(err, ErrNotFound) {
			t.Errorf("%s: Load() returned %v", name, err)
		}
	}
}

func TestFileSaveError(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "missing", "sgp30.json"))
	if err := f.Save(token); err == nil {
		t.Error("Save() into a missing directory did not fail")
	}
}
