// Package vga generates the sync and enable pulses of a video timing
// signal, one tick per pixel clock. It is the signal source the scan-out
// engine in package term is driven by.
package vga

import (
	"fmt"

	"vgaterm/term"
)

// Timing describes one video mode: the active region and the blanking
// intervals on both axes, in pixels and lines, plus the pixel clock.
type Timing struct {
	HActive     int
	HFrontPorch int
	HSyncWidth  int
	HBackPorch  int

	VActive     int
	VFrontPorch int
	VSyncWidth  int
	VBackPorch  int

	PixelHz int
}

// Mode640x480 is the standard 640x480@60 timing at a 25.175MHz pixel
// clock: 800 ticks per line, 525 lines per frame.
var Mode640x480 = Timing{
	HActive: 640, HFrontPorch: 16, HSyncWidth: 96, HBackPorch: 48,
	VActive: 480, VFrontPorch: 10, VSyncWidth: 2, VBackPorch: 33,
	PixelHz: 25175000,
}

// HTotal returns the number of ticks per line.
func (t Timing) HTotal() int { return t.HActive + t.HFrontPorch + t.HSyncWidth + t.HBackPorch }

// VTotal returns the number of lines per frame.
func (t Timing) VTotal() int { return t.VActive + t.VFrontPorch + t.VSyncWidth + t.VBackPorch }

// TicksPerFrame returns the number of pixel clocks in one full frame,
// blanking included.
func (t Timing) TicksPerFrame() int { return t.HTotal() * t.VTotal() }

// RefreshHz returns the frame rate this timing produces.
func (t Timing) RefreshHz() float64 { return float64(t.PixelHz) / float64(t.TicksPerFrame()) }

// BlinkHalfPeriod returns the tick count between blink phase inversions
// for a 1Hz full blink cycle at this mode's pixel clock.
func (t Timing) BlinkHalfPeriod() int { return t.PixelHz / 2 }

func (t Timing) validate() error {
	if t.HActive < 1 || t.VActive < 1 {
		return fmt.Errorf("active region %dx%d: want at least 1x1", t.HActive, t.VActive)
	}
	if t.HSyncWidth < 1 || t.VSyncWidth < 1 {
		return fmt.Errorf("sync widths %d/%d: want at least 1", t.HSyncWidth, t.VSyncWidth)
	}
	if t.HFrontPorch < 0 || t.HBackPorch < 0 || t.VFrontPorch < 0 || t.VBackPorch < 0 {
		return fmt.Errorf("negative porch interval")
	}
	if t.HSyncWidth+t.HBackPorch < 2 {
		// The engine's read pipeline needs at least one blanking tick
		// after the hsync strobe to preload the next line's first glyph.
		return fmt.Errorf("blanking after hsync narrower than 2 ticks")
	}
	if t.PixelHz < 1 {
		return fmt.Errorf("pixel clock %dHz: want >= 1", t.PixelHz)
	}
	return nil
}

// Generator sweeps raster positions in scan order and emits the per-tick
// signals. HSync strobes for a single tick on entry to the horizontal sync
// interval of every line; VSync strobes for a single tick at the start of
// the vertical sync interval, once per frame.
type Generator struct {
	t Timing
	x int
	y int
}

// NewGenerator validates t and returns a generator positioned at the top
// left of the active region.
func NewGenerator(t Timing) (*Generator, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &Generator{t: t}, nil
}

// Timing returns the mode the generator was built with.
func (g *Generator) Timing() Timing { return g.t }

// Pos returns the raster position the next Tick will emit signals for.
// Positions inside the active region correspond one-to-one with output
// pixels.
func (g *Generator) Pos() (x, y int) { return g.x, g.y }

// Tick returns the signals for the current raster position and advances to
// the next.
func (g *Generator) Tick() term.Signal {
	s := term.Signal{
		HEnable: g.x < g.t.HActive,
		VEnable: g.y < g.t.VActive,
		HSync:   g.x == g.t.HActive+g.t.HFrontPorch,
		VSync:   g.y == g.t.VActive+g.t.VFrontPorch && g.x == 0,
	}

	g.x++
	if g.x == g.t.HTotal() {
		g.x = 0
		g.y++
		if g.y == g.t.VTotal() {
			g.y = 0
		}
	}
	return s
}
