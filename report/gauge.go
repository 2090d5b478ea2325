// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package report

import (
	"bytes"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/GermanBionicSystems/iaq/monitor"
	"github.com/GermanBionicSystems/iaq/sgp30"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// GaugeOpts represents the options of the console gauge.
type GaugeOpts struct {
	// Width is the number of character cells of the bar. Default is 40.
	Width int
	// Max is the TVOC value of a full bar. Default is 2200ppb.
	Max     sgp30.TVOC
	Palette *ansi256.Palette
	// W defaults to a colorable stdout.
	W io.Writer
}

// DefaultGaugeOpts is the default gauge configuration.
var DefaultGaugeOpts = GaugeOpts{
	Width: 40,
	Max:   2200,
}

// Gauge draws the TVOC level of every IAQ reading as a coloured bar on the
// console, rewriting the same line.
//
// Gauge is also a one line display.Drawer.
type Gauge struct {
	w       io.Writer
	l       int
	max     sgp30.TVOC
	palette ansi256.Palette

	mu     sync.Mutex
	pixels []byte
	label  string
	buf    bytes.Buffer
}

// NewGauge returns a Gauge. The Opts can be nil.
func NewGauge(opts *GaugeOpts) *Gauge {
	if opts == nil {
		opts = &DefaultGaugeOpts
	}
	o := *opts
	if o.Width <= 0 {
		o.Width = DefaultGaugeOpts.Width
	}
	if o.Max == 0 {
		o.Max = DefaultGaugeOpts.Max
	}
	if o.Palette == nil {
		o.Palette = ansi256.Default
	}
	if o.W == nil {
		o.W = colorable.NewColorableStdout()
	}
	return &Gauge{
		w:       o.W,
		l:       o.Width,
		max:     o.Max,
		palette: *o.Palette,
		pixels:  make([]byte, 3*o.Width),
	}
}

func (g *Gauge) String() string {
	return "Gauge"
}

// Halt implements conn.Resource.
//
// It terminates the line and resets the terminal colours.
func (g *Gauge) Halt() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, err := g.w.Write([]byte("\n\033[0m"))
	return err
}

// ColorModel implements display.Drawer.
func (g *Gauge) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (g *Gauge) Bounds() image.Rectangle {
	return image.Rectangle{Max: image.Point{X: g.l, Y: 1}}
}

// Draw implements display.Drawer.
func (g *Gauge) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.draw(r, src, sp)
}

func (g *Gauge) draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(g.Bounds())
	srcR := src.Bounds()
	srcR.Min = srcR.Min.Add(sp)
	if dX := r.Dx(); dX < srcR.Dx() {
		srcR.Max.X = srcR.Min.X + dX
	}
	deltaX3 := 3 * (r.Min.X - srcR.Min.X)
	for sX := srcR.Min.X; sX < srcR.Max.X; sX++ {
		r16, g16, b16, _ := src.At(sX, srcR.Min.Y).RGBA()
		dX3 := 3*sX + deltaX3
		g.pixels[dX3] = byte(r16 >> 8)
		g.pixels[dX3+1] = byte(g16 >> 8)
		g.pixels[dX3+2] = byte(b16 >> 8)
	}
	return g.refresh()
}

func (g *Gauge) refresh() error {
	g.buf.Reset()
	_, _ = g.buf.WriteString("\r\033[0m")
	for i := 0; i < len(g.pixels)/3; i++ {
		c := color.NRGBA{g.pixels[3*i], g.pixels[3*i+1], g.pixels[3*i+2], 255}
		_, _ = io.WriteString(&g.buf, g.palette.Block(c))
	}
	_, _ = g.buf.WriteString("\033[0m ")
	_, _ = g.buf.WriteString(g.label)
	_, _ = g.buf.WriteString("\033[K")
	_, err := g.buf.WriteTo(g.w)
	return err
}

// TVOCColor returns the colour of a TVOC concentration: green up to 220ppb,
// yellow up to 660ppb, orange up to 2200ppb and red above.
func TVOCColor(t sgp30.TVOC) color.NRGBA {
	switch {
	case t <= 220:
		return color.NRGBA{0x00, 0xc0, 0x00, 0xff}
	case t <= 660:
		return color.NRGBA{0xe0, 0xe0, 0x00, 0xff}
	case t <= 2200:
		return color.NRGBA{0xff, 0x80, 0x00, 0xff}
	default:
		return color.NRGBA{0xff, 0x00, 0x00, 0xff}
	}
}

var gaugeBackground = color.NRGBA{0x30, 0x30, 0x30, 0xff}

// ReportReading implements monitor.Reporter. Raw readings are ignored.
func (g *Gauge) ReportReading(r monitor.Reading) {
	if r.Mode != monitor.ModeIAQ {
		return
	}
	n := g.l
	if r.TVOC < g.max {
		n = int(r.TVOC) * g.l / int(g.max)
	}
	img := image.NewNRGBA(g.Bounds())
	fg := TVOCColor(r.TVOC)
	for x := 0; x < g.l; x++ {
		if x < n {
			img.SetNRGBA(x, 0, fg)
		} else {
			img.SetNRGBA(x, 0, gaugeBackground)
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.label = r.String()
	_ = g.draw(g.Bounds(), img, image.Point{})
}

// ReportError implements monitor.Reporter. The bar is kept and the label
// names the failed operation.
func (g *Gauge) ReportError(e monitor.ErrorEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.label = e.Op + " failed: " + e.Kind.String()
	_ = g.refresh()
}

var _ display.Drawer = &Gauge{}
var _ monitor.Reporter = &Gauge{}
