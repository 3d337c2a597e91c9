// Package font loads glyph bitmaps for the scan-out engine: raw character
// generator dumps, Linux console PSF fonts, and a built-in face so the
// engine runs with no font file at all.
//
// A glyph table is glyphHeight*256 bytes: one byte per glyph row, the row
// in the byte's low width bits with the leftmost pixel at bit width-1,
// rows of glyph N at N*height..N*height+height-1. For 8-wide glyphs that
// is the usual most-significant-bit-leftmost layout; narrower PSF fonts,
// which store rows left-aligned, are shifted down when loaded. Every 8-bit
// code has a defined glyph, even if blank.
package font

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

const numCodes = 256

// PSF magic numbers, per the Linux console tools.
var (
	psf1Magic = []byte{0x36, 0x04}
	psf2Magic = []byte{0x72, 0xb5, 0x4a, 0x86}
)

// LoadFile reads a font file and returns its glyph table, glyph height and
// glyph width. PSF1 and PSF2 fonts are detected by magic and carry their
// own geometry; anything else is treated as a raw dump of rawHeight*256
// glyph rows, the format of the classic ibmvga8x16.bin character ROM
// images, whose width the file does not declare (returned as 0).
func LoadFile(path string, rawHeight int) ([]byte, int, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, 0, err
	}
	switch {
	case hasMagic(data, psf2Magic):
		return parsePSF2(data)
	case hasMagic(data, psf1Magic):
		return parsePSF1(data)
	}
	if rawHeight < 1 {
		return nil, 0, 0, fmt.Errorf("raw font %s: glyph height %d: want >= 1", path, rawHeight)
	}
	if len(data) != rawHeight*numCodes {
		return nil, 0, 0, fmt.Errorf("raw font %s: got %d bytes, want %d (height %d * 256 codes)",
			path, len(data), rawHeight*numCodes, rawHeight)
	}
	return data, rawHeight, 0, nil
}

func hasMagic(data, magic []byte) bool {
	if len(data) < len(magic) {
		return false
	}
	for i, m := range magic {
		if data[i] != m {
			return false
		}
	}
	return true
}

// parsePSF1 handles the fixed 8-wide PSF1 format: a 4-byte header (magic,
// mode, charsize) followed by 256 or 512 glyphs of charsize rows each.
func parsePSF1(data []byte) ([]byte, int, int, error) {
	if len(data) < 4 {
		return nil, 0, 0, fmt.Errorf("psf1 font: truncated header")
	}
	mode := data[2]
	height := int(data[3])
	if height < 1 {
		return nil, 0, 0, fmt.Errorf("psf1 font: zero glyph height")
	}
	glyphs := 256
	if mode&0x01 != 0 {
		glyphs = 512
	}
	if glyphs*height > len(data[4:]) {
		return nil, 0, 0, fmt.Errorf("psf1 font: %d glyphs but only %d bytes of data", glyphs, len(data[4:]))
	}
	return packGlyphs(data[4:], glyphs, height, height, 0), height, 8, nil
}

// parsePSF2 handles the 32-byte-header PSF2 format. Fonts wider than 8
// pixels are rejected: the engine serializes one byte per glyph row. PSF2
// rows are left-aligned in the byte, so narrow fonts are shifted down to
// the table's low-bit convention.
func parsePSF2(data []byte) ([]byte, int, int, error) {
	if len(data) < 32 {
		return nil, 0, 0, fmt.Errorf("psf2 font: truncated header")
	}
	headerSize := int(binary.LittleEndian.Uint32(data[8:12]))
	glyphs := int(binary.LittleEndian.Uint32(data[16:20]))
	bytesPerGlyph := int(binary.LittleEndian.Uint32(data[20:24]))
	height := int(binary.LittleEndian.Uint32(data[24:28]))
	width := int(binary.LittleEndian.Uint32(data[28:32]))

	if width < 1 || width > 8 {
		return nil, 0, 0, fmt.Errorf("psf2 font: glyph width %d: want 1..8", width)
	}
	if height < 1 || bytesPerGlyph != height {
		return nil, 0, 0, fmt.Errorf("psf2 font: %d bytes per glyph for height %d", bytesPerGlyph, height)
	}
	if headerSize < 32 || headerSize > len(data) {
		return nil, 0, 0, fmt.Errorf("psf2 font: header size %d out of range", headerSize)
	}
	body := data[headerSize:]
	if glyphs*bytesPerGlyph > len(body) {
		return nil, 0, 0, fmt.Errorf("psf2 font: %d glyphs but only %d bytes of data", glyphs, len(body))
	}
	return packGlyphs(body, glyphs, bytesPerGlyph, height, uint(8-width)), height, width, nil
}

// packGlyphs copies up to 256 glyphs into a full table, blank-filling the
// rest. Each row byte is shifted right by shift, moving left-aligned
// source rows down to the low bits.
func packGlyphs(body []byte, glyphs, stride, height int, shift uint) []byte {
	table := make([]byte, height*numCodes)
	if glyphs > numCodes {
		glyphs = numCodes
	}
	for g := 0; g < glyphs; g++ {
		for r := 0; r < height; r++ {
			table[g*height+r] = body[g*stride+r] >> shift
		}
	}
	return table
}

// BuiltinHeight is the glyph height of the built-in face.
const BuiltinHeight = 16

// Builtin returns an 8x16 glyph table rasterized from the inconsolata
// bitmap face. Codes outside 0x20..0x7E are blank.
func Builtin() []byte {
	table := make([]byte, BuiltinHeight*numCodes)
	face := inconsolata.Regular8x16
	dot := fixed.P(0, face.Ascent)
	for code := 0x20; code <= 0x7e; code++ {
		dr, mask, maskp, _, ok := face.Glyph(dot, rune(code))
		if !ok {
			continue
		}
		for y := dr.Min.Y; y < dr.Max.Y; y++ {
			if y < 0 || y >= BuiltinHeight {
				continue
			}
			var row byte
			for x := dr.Min.X; x < dr.Max.X; x++ {
				if x < 0 || x >= 8 {
					continue
				}
				mx := maskp.X + (x - dr.Min.X)
				my := maskp.Y + (y - dr.Min.Y)
				if _, _, _, a := mask.At(mx, my).RGBA(); a >= 0x8000 {
					row |= 0x80 >> uint(x)
				}
			}
			table[code*BuiltinHeight+y] = row
		}
	}
	return table
}
