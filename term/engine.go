// Package term implements a character-display scan-out engine: driven by
// per-tick sync/enable signals from a video timing generator, it converts a
// grid of character codes and attribute bytes into a one-bit-per-channel
// RGB pixel stream, one pixel per tick, using a bitmap font.
package term

import (
	"fmt"
	"math/bits"
)

// Signal is the per-tick input from the timing generator. VSync and HSync
// are single-tick strobes; the enables are level signals held across the
// active portion of the sweep.
type Signal struct {
	VSync   bool
	VEnable bool
	HSync   bool
	HEnable bool
}

// Pixel is the per-tick output. One bit per channel; background is always
// black, there are no intensity levels.
type Pixel struct {
	R, G, B bool
}

// Attribute is the unpacked form of a cell's attribute byte.
type Attribute struct {
	Red       bool
	Green     bool
	Blue      bool
	Underline bool
	Blink     bool
}

// DecodeAttribute unpacks an attribute byte: bit 0 red, bit 1 green,
// bit 2 blue, bit 3 underline, bit 4 blink. The upper three bits are
// ignored.
func DecodeAttribute(b byte) Attribute {
	return Attribute{
		Red:       b&0x01 != 0,
		Green:     b&0x02 != 0,
		Blue:      b&0x04 != 0,
		Underline: b&0x08 != 0,
		Blink:     b&0x10 != 0,
	}
}

// Config fixes the engine's geometry, blink rate and initial memory
// contents. It is immutable once the engine is constructed.
type Config struct {
	ActiveWidth  int
	ActiveHeight int
	GlyphWidth   int
	GlyphHeight  int

	// BlinkHalfPeriod is the tick count between blink phase inversions.
	// Half the pixel clock frequency gives a 1Hz full blink cycle.
	BlinkHalfPeriod int

	// Font holds GlyphHeight*256 glyph rows, one byte per row. A row
	// lives in the byte's low GlyphWidth bits with the leftmost pixel at
	// bit GlyphWidth-1; the bits above that are ignored. At width 8 this
	// is the usual most-significant-bit-leftmost layout.
	Font []byte

	// Chars and Attrs hold one byte per cell, row-major. Nil leaves the
	// buffer zeroed.
	Chars []byte
	Attrs []byte
}

// Cols returns the number of character columns.
func (c Config) Cols() int { return c.ActiveWidth / c.GlyphWidth }

// Rows returns the number of character rows.
func (c Config) Rows() int { return c.ActiveHeight / c.GlyphHeight }

// Cells returns the total number of character cells.
func (c Config) Cells() int { return c.Cols() * c.Rows() }

func (c Config) validate() error {
	if c.GlyphWidth < 1 || c.GlyphWidth > 8 {
		return fmt.Errorf("glyph width %d: want 1..8 (one byte per font row)", c.GlyphWidth)
	}
	if c.GlyphHeight < 1 {
		return fmt.Errorf("glyph height %d: want >= 1", c.GlyphHeight)
	}
	if c.ActiveWidth < c.GlyphWidth || c.ActiveWidth%c.GlyphWidth != 0 {
		return fmt.Errorf("active width %d: not a positive multiple of glyph width %d",
			c.ActiveWidth, c.GlyphWidth)
	}
	if c.ActiveHeight < c.GlyphHeight || c.ActiveHeight%c.GlyphHeight != 0 {
		return fmt.Errorf("active height %d: not a positive multiple of glyph height %d",
			c.ActiveHeight, c.GlyphHeight)
	}
	if c.BlinkHalfPeriod < 1 {
		return fmt.Errorf("blink half-period %d: want >= 1", c.BlinkHalfPeriod)
	}
	if len(c.Font) != c.GlyphHeight*256 {
		return fmt.Errorf("font: got %d bytes, want %d (glyph height %d * 256 codes)",
			len(c.Font), c.GlyphHeight*256, c.GlyphHeight)
	}
	if c.Chars != nil && len(c.Chars) != c.Cells() {
		return fmt.Errorf("character buffer: got %d cells, want %d", len(c.Chars), c.Cells())
	}
	if c.Attrs != nil && len(c.Attrs) != c.Cells() {
		return fmt.Errorf("attribute buffer: got %d cells, want %d", len(c.Attrs), c.Cells())
	}
	return nil
}

// fetch is the one-slot read pipeline: glyph row and attribute read with
// the previous tick's scan position, consumed at the next latch event.
type fetch struct {
	row     byte // glyph row, bit-reversed so the leftmost pixel sits at bit 0
	attr    byte
	lastRow bool // read during the final scanline of the glyph
}

// Engine is the scan-out state machine. It is a pure function of
// (state, tick inputs): Tick must be called exactly once per pixel clock
// and performs no I/O and no locking. The character and attribute buffers
// are read every tick; callers that update them (SetCell, LoadChars,
// LoadAttrs) must do so between frames, never during active scan-out.
type Engine struct {
	cfg   Config
	font  []byte
	chars []byte
	attrs []byte

	// scan position
	cell     int // cell about to be fetched; runs one glyph ahead of output
	rowStart int // cell index at the start of the current character row
	glyphCol int // pixel column within the current glyph
	glyphRow int // scanline within the current glyph

	fetched fetch

	// render latch
	shreg     byte
	attr      Attribute
	underline bool

	// blink oscillator, free-running, never touched by sync events
	blinkCtr   int
	blinkPhase bool
}

// New validates cfg and returns a ready engine. The font and buffer
// contents are copied; the caller's slices are not retained.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg}
	e.font = append([]byte(nil), cfg.Font...)
	e.chars = make([]byte, cfg.Cells())
	copy(e.chars, cfg.Chars)
	e.attrs = make([]byte, cfg.Cells())
	copy(e.attrs, cfg.Attrs)
	return e, nil
}

// Tick advances the engine by one pixel clock and returns the pixel for
// this tick. The returned value is only meaningful while both enables are
// asserted; during blanking the engine still shifts and fetches, exactly
// like the circuit it models.
func (e *Engine) Tick(in Signal) Pixel {
	out := e.compose()

	// Glyph serializer: reload at every glyph-column boundary, and
	// continuously during horizontal blanking so the first cell of a line
	// is preloaded before its pixels are due. Otherwise shift, exposing
	// the next foreground bit at position 0.
	if !in.HEnable || e.glyphCol == e.cfg.GlyphWidth-1 {
		e.shreg = e.fetched.row
		e.attr = DecodeAttribute(e.fetched.attr)
		e.underline = e.fetched.lastRow
	} else {
		e.shreg >>= 1
	}

	// Scan position, first match wins.
	switch {
	case in.VSync:
		// Frame reset.
		e.cell, e.rowStart, e.glyphRow, e.glyphCol = 0, 0, 0, 0
	case in.HSync && in.VEnable:
		// Line advance. A character row is scanned once per glyph
		// scanline: roll the cell counter back to the row start until the
		// last scanline has been emitted, then commit the counter (which
		// has overrun onto the next row) as the new baseline.
		if e.glyphRow == e.cfg.GlyphHeight-1 {
			e.rowStart = e.cell
			e.glyphRow = 0
		} else {
			e.cell = e.rowStart
			e.glyphRow++
		}
		e.glyphCol = 0
	case in.VEnable && in.HEnable:
		// Pixel advance. The cell counter moves at the start of each
		// glyph span, one glyph ahead of the pixels being emitted.
		if e.glyphCol == 0 {
			e.cell++
		}
		if e.glyphCol == e.cfg.GlyphWidth-1 {
			e.glyphCol = 0
		} else {
			e.glyphCol++
		}
	}

	// Refill the read pipeline from the updated scan position. At the
	// tail of a line the cell counter points one past the row's last
	// cell; the hardware read there is a don't-care, so fetch blank data.
	e.fetched = fetch{lastRow: e.glyphRow == e.cfg.GlyphHeight-1}
	if e.cell < len(e.chars) {
		code := int(e.chars[e.cell])
		row := e.font[code*e.cfg.GlyphHeight+e.glyphRow]
		e.fetched.row = bits.Reverse8(row) >> (8 - e.cfg.GlyphWidth)
		e.fetched.attr = e.attrs[e.cell]
	}

	// Blink oscillator.
	if e.blinkCtr == e.cfg.BlinkHalfPeriod-1 {
		e.blinkCtr = 0
		e.blinkPhase = !e.blinkPhase
	} else {
		e.blinkCtr++
	}

	return out
}

// compose is the pixel compositor: the foreground is lit when the current
// glyph bit is set or the underline row of an underlined cell is being
// drawn, gated by the blink oscillator for blinking cells. Colour channels
// are the latched attribute's colour bits masked by the foreground.
func (e *Engine) compose() Pixel {
	fg := (e.shreg&0x01 != 0 || (e.underline && e.attr.Underline)) &&
		(!e.attr.Blink || e.blinkPhase)
	return Pixel{
		R: fg && e.attr.Red,
		G: fg && e.attr.Green,
		B: fg && e.attr.Blue,
	}
}

// SetCell writes one cell's character code and attribute byte. Writes to
// cells outside the grid are dropped. Only legal between frames.
func (e *Engine) SetCell(i int, code, attr byte) {
	if i < 0 || i >= len(e.chars) {
		return
	}
	e.chars[i] = code
	e.attrs[i] = attr
}

// LoadChars replaces the character buffer. Only legal between frames.
func (e *Engine) LoadChars(b []byte) error {
	if len(b) != len(e.chars) {
		return fmt.Errorf("character buffer: got %d cells, want %d", len(b), len(e.chars))
	}
	copy(e.chars, b)
	return nil
}

// LoadAttrs replaces the attribute buffer. Only legal between frames.
func (e *Engine) LoadAttrs(b []byte) error {
	if len(b) != len(e.attrs) {
		return fmt.Errorf("attribute buffer: got %d cells, want %d", len(b), len(e.attrs))
	}
	copy(e.attrs, b)
	return nil
}
