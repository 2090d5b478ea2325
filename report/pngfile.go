// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package report

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	"periph.io/x/conn/v3/display"
)

// PNGFile is a display.Drawer that keeps its content in memory and writes it
// to Path as a PNG image after every Draw.
type PNGFile struct {
	Path string

	mu  sync.Mutex
	img *image.NRGBA
}

// NewPNGFile returns a w x h PNGFile.
func NewPNGFile(path string, w, h int) *PNGFile {
	return &PNGFile{Path: path, img: image.NewNRGBA(image.Rect(0, 0, w, h))}
}

func (p *PNGFile) String() string {
	return "PNGFile(" + p.Path + ")"
}

// Halt implements conn.Resource.
func (p *PNGFile) Halt() error {
	return nil
}

// ColorModel implements display.Drawer.
func (p *PNGFile) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (p *PNGFile) Bounds() image.Rectangle {
	return p.img.Bounds()
}

// Draw implements display.Drawer.
func (p *PNGFile) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	r = r.Intersect(p.img.Bounds())
	draw.Copy(p.img, r.Min, src, image.Rectangle{Min: sp, Max: sp.Add(r.Size())}, draw.Src, nil)
	return p.flush()
}

// flush replaces the file atomically so viewers never see a partial image.
func (p *PNGFile) flush() error {
	f, err := os.CreateTemp(filepath.Dir(p.Path), ".panel-*.png")
	if err != nil {
		return errors.Wrap(err, "panel png")
	}
	defer os.Remove(f.Name())
	if err := png.Encode(f, p.img); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %s", p.Path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "write %s", p.Path)
	}
	return errors.Wrapf(os.Rename(f.Name(), p.Path), "rename %s", p.Path)
}

var _ display.Drawer = &PNGFile{}
