package main

// Default screen contents: a fixed demonstration pattern exercising every
// attribute feature. A white banner, a run of digits cycling through the
// underlined colours (9..15) then the plain ones (1..7), and a blinking
// tail in the last cells.

const demoBanner = "Hello world! "
const demoTail = "blink"

func demoContent(cells int) (chars, attrs []byte) {
	chars = make([]byte, cells)
	attrs = make([]byte, cells)
	for i := range chars {
		chars[i] = ' '
	}

	n := copy(chars, demoBanner)
	for i := 0; i < n; i++ {
		attrs[i] = 0x07
	}

	tail := len(demoTail)
	colour := 0
	for i := n; i < cells-tail; i++ {
		chars[i] = '0' + byte((i-n)%10)
		// 9..15 are underlined colours, 1..7 plain.
		if colour < 7 {
			attrs[i] = byte(9 + colour)
		} else {
			attrs[i] = byte(colour - 6)
		}
		colour = (colour + 1) % 14
	}

	blink := [...]byte{0x10 | 3, 0x10 | 5, 0x10 | 7, 0x10 | 5, 0x10 | 3}
	for i := 0; i < tail && cells-tail+i >= 0; i++ {
		chars[cells-tail+i] = demoTail[i]
		attrs[cells-tail+i] = blink[i%len(blink)]
	}
	return chars, attrs
}

// textContent lays a text file out on the grid, one line per character
// row, in plain white. Long lines are clipped, extra lines dropped.
func textContent(cols, cells int, text []byte) (chars, attrs []byte) {
	chars = make([]byte, cells)
	attrs = make([]byte, cells)
	for i := range chars {
		chars[i] = ' '
		attrs[i] = 0x07
	}

	cell := 0
	col := 0
	for _, b := range text {
		if cell >= cells {
			break
		}
		switch b {
		case '\n':
			cell += cols - col
			col = 0
		case '\r':
			// ignore
		default:
			if col < cols {
				chars[cell] = b
				cell++
				col++
			}
		}
	}
	return chars, attrs
}
