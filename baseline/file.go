// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package baseline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/GermanBionicSystems/iaq/sgp30"
	"github.com/pkg/errors"
)

// record is the on-disk format of a File store.
type record struct {
	Baseline sgp30.Baseline `json:"baseline"`
	SavedAt  time.Time      `json:"saved_at"`
}

// File is a store backed by a small JSON document:
//
//	{"baseline":"deadbeef","saved_at":"2026-10-17T12:00:00Z"}
//
// Saves are atomic: the document is written to a temporary file in the same
// directory and renamed over the previous one.
type File struct {
	Path string
	// Now returns the current time. Default is time.Now.
	Now func() time.Time
}

// NewFile returns a store writing to path.
func NewFile(path string) *File {
	return &File{Path: path}
}

// Load returns the stored baseline and its age.
func (f *File) Load() (sgp30.Baseline, time.Duration, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return sgp30.Baseline{}, 0, ErrNotFound
	}
	if err != nil {
		return sgp30.Baseline{}, 0, errors.Wrap(err, "baseline: read")
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return sgp30.Baseline{}, 0, errors.Wrapf(err, "baseline: decode %s", f.Path)
	}
	if rec.SavedAt.IsZero() {
		return sgp30.Baseline{}, 0, errors.Errorf("baseline: %s has no saved_at", f.Path)
	}
	return rec.Baseline, now(f.Now).Sub(rec.SavedAt), nil
}

// Save replaces the stored baseline with b.
func (f *File) Save(b sgp30.Baseline) error {
	data, err := json.Marshal(record{Baseline: b, SavedAt: now(f.Now).UTC()})
	if err != nil {
		return errors.Wrap(err, "baseline: encode")
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), filepath.Base(f.Path)+".*")
	if err != nil {
		return errors.Wrap(err, "baseline: create")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return errors.Wrap(err, "baseline: write")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "baseline: sync")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "baseline: close")
	}
	return errors.Wrap(os.Rename(tmp.Name(), f.Path), "baseline: rename")
}
