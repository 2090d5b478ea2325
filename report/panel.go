// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package report

import (
	"fmt"
	"image"
	"sync"

	"github.com/GermanBionicSystems/iaq/monitor"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/display"
)

// Panel renders the last IAQ reading on a display, e.g. an e-paper or OLED
// panel, or a PNGFile.
type Panel struct {
	d    display.Drawer
	face font.Face
	log  logrus.FieldLogger

	mu     sync.Mutex
	last   monitor.Reading
	has    bool
	status string
}

// NewPanel returns a Panel drawing on d. A nil logger selects the logrus
// standard logger.
func NewPanel(d display.Drawer, l logrus.FieldLogger) (*Panel, error) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, errors.Wrap(err, "panel font")
	}
	size := float64(d.Bounds().Dy()) / 5
	if size < 8 {
		size = 8
	}
	return &Panel{d: d, face: truetype.NewFace(f, &truetype.Options{Size: size}), log: l}, nil
}

// ReportReading implements monitor.Reporter. Raw readings are ignored.
func (p *Panel) ReportReading(r monitor.Reading) {
	if r.Mode != monitor.ModeIAQ {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = r
	p.has = true
	p.status = fmt.Sprintf("#%d %s", r.Tick, r.Time.Format("15:04:05"))
	p.draw()
}

// ReportError implements monitor.Reporter.
func (p *Panel) ReportError(e monitor.ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = e.Op + " failed"
	p.draw()
}

// Render returns the current panel image.
func (p *Panel) Render() image.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.render()
}

func (p *Panel) draw() {
	if err := p.d.Draw(p.d.Bounds(), p.render(), image.Point{}); err != nil {
		p.log.WithError(err).WithField("display", p.d.String()).Warn("panel draw failed")
	}
}

func (p *Panel) render() image.Image {
	b := p.d.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(p.face)
	dc.SetRGB(0, 0, 0)
	padding := h / 20
	_, th := dc.MeasureString("0")
	tvoc, co2 := "TVOC --", "CO2eq --"
	if p.has {
		tvoc = "TVOC " + p.last.TVOC.String()
		co2 = "CO2eq " + p.last.CO2Eq.String()
	}
	dc.DrawString(tvoc, padding, padding+th)
	dc.DrawString(co2, padding, 2*(padding+th))
	dc.DrawString(p.status, padding, 3*(padding+th))

	// TVOC bar along the bottom edge, full at 2200ppb.
	barH := h / 8
	dc.DrawRectangle(padding, h-padding-barH, w-2*padding, barH)
	dc.Stroke()
	if p.has {
		frac := float64(p.last.TVOC) / 2200
		if frac > 1 {
			frac = 1
		}
		c := TVOCColor(p.last.TVOC)
		dc.SetRGB255(int(c.R), int(c.G), int(c.B))
		dc.DrawRectangle(padding, h-padding-barH, (w-2*padding)*frac, barH)
		dc.Fill()
	}
	return dc.Image()
}

var _ monitor.Reporter = &Panel{}
