package font

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "font.bin")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadRaw(t *testing.T) {
	data := make([]byte, 16*256)
	data[int('A')*16+2] = 0x7E
	path := writeTemp(t, data)

	table, height, width, err := LoadFile(path, 16)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if height != 16 {
		t.Errorf("height: got %d, want 16", height)
	}
	if width != 0 {
		t.Errorf("width: got %d, want 0 (raw fonts declare none)", width)
	}
	if table[int('A')*16+2] != 0x7E {
		t.Errorf("glyph data did not survive the round trip")
	}
}

func TestLoadRawSizeMismatch(t *testing.T) {
	path := writeTemp(t, make([]byte, 1000))
	if _, _, _, err := LoadFile(path, 16); err == nil {
		t.Errorf("LoadFile accepted a short raw font")
	}
}

func TestLoadPSF1(t *testing.T) {
	// 8x8, 256 glyphs, no unicode table.
	var buf bytes.Buffer
	buf.Write([]byte{0x36, 0x04, 0x00, 0x08})
	glyphs := make([]byte, 256*8)
	glyphs[int('B')*8+1] = 0xAA
	buf.Write(glyphs)

	table, height, width, err := LoadFile(writeTemp(t, buf.Bytes()), 0)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if height != 8 {
		t.Errorf("height: got %d, want 8", height)
	}
	if width != 8 {
		t.Errorf("width: got %d, want 8", width)
	}
	if len(table) != 8*256 {
		t.Errorf("table size: got %d, want %d", len(table), 8*256)
	}
	if table[int('B')*8+1] != 0xAA {
		t.Errorf("psf1 glyph data misplaced")
	}
}

func TestLoadPSF1Truncated(t *testing.T) {
	data := []byte{0x36, 0x04, 0x00, 0x10, 0x00}
	if _, _, _, err := LoadFile(writeTemp(t, data), 0); err == nil {
		t.Errorf("LoadFile accepted a truncated psf1 font")
	}
}

func psf2Header(glyphs, bytesPerGlyph, height, width uint32) []byte {
	h := make([]byte, 32)
	copy(h, psf2Magic)
	binary.LittleEndian.PutUint32(h[8:12], 32) // header size
	binary.LittleEndian.PutUint32(h[16:20], glyphs)
	binary.LittleEndian.PutUint32(h[20:24], bytesPerGlyph)
	binary.LittleEndian.PutUint32(h[24:28], height)
	binary.LittleEndian.PutUint32(h[28:32], width)
	return h
}

func TestLoadPSF2(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(psf2Header(2, 16, 16, 8))
	glyphs := make([]byte, 2*16)
	glyphs[16+5] = 0x18 // glyph 1, row 5
	buf.Write(glyphs)

	table, height, width, err := LoadFile(writeTemp(t, buf.Bytes()), 0)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if height != 16 {
		t.Errorf("height: got %d, want 16", height)
	}
	if width != 8 {
		t.Errorf("width: got %d, want 8", width)
	}
	if table[1*16+5] != 0x18 {
		t.Errorf("psf2 glyph data misplaced")
	}
	// Codes past the glyph count are blank.
	for i := 2 * 16; i < len(table); i++ {
		if table[i] != 0 {
			t.Fatalf("code %d not blank-filled", i/16)
		}
	}
}

func TestLoadPSF2WideRejected(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(psf2Header(1, 32, 16, 9))
	buf.Write(make([]byte, 32))
	if _, _, _, err := LoadFile(writeTemp(t, buf.Bytes()), 0); err == nil {
		t.Errorf("LoadFile accepted a 9-pixel-wide psf2 font")
	}
}

// Narrow PSF2 rows are left-aligned in the file; the loaded table holds
// them in the low width bits, leftmost pixel at bit width-1.
func TestLoadPSF2Narrow(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(psf2Header(2, 8, 8, 6))
	glyphs := make([]byte, 2*8)
	glyphs[1*8+3] = 0b10000100 // glyph 1, row 3: leftmost and rightmost pixels
	buf.Write(glyphs)

	table, height, width, err := LoadFile(writeTemp(t, buf.Bytes()), 0)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if height != 8 || width != 6 {
		t.Errorf("geometry: got %dx%d, want 6x8", width, height)
	}
	if got := table[1*8+3]; got != 0b100001 {
		t.Errorf("row: got %#08b, want %#08b", got, 0b100001)
	}
}

func TestBuiltin(t *testing.T) {
	table := Builtin()
	if len(table) != BuiltinHeight*256 {
		t.Fatalf("table size: got %d, want %d", len(table), BuiltinHeight*256)
	}

	blank := func(code int) bool {
		for r := 0; r < BuiltinHeight; r++ {
			if table[code*BuiltinHeight+r] != 0 {
				return false
			}
		}
		return true
	}

	for _, code := range []int{'A', '0', '#', 'g'} {
		if blank(code) {
			t.Errorf("printable %q has a blank glyph", code)
		}
	}
	if !blank(' ') {
		t.Errorf("space is not blank")
	}
	for _, code := range []int{0x00, 0x1F, 0x80, 0xFF} {
		if !blank(code) {
			t.Errorf("code %#x outside the printable range is not blank", code)
		}
	}
}
