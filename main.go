package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"vgaterm/font"
	"vgaterm/term"
	"vgaterm/vga"
)

var logger *zap.SugaredLogger

func usage() {
	fmt.Printf("Usage: %s [options]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	fontFile := flag.String("font", "",
		"Font file, PSF or raw character ROM dump. Default: built-in 8x16 face.")
	fontWidth := flag.Int("font-width", 8,
		"Glyph width in pixels (max 8), for raw font files. PSF fonts declare their own.")
	fontHeight := flag.Int("font-height", 16, "Glyph height in pixels, for raw font files.")
	scale := flag.Int("scale", 1, "Window scale factor.")
	headless := flag.Bool("headless", false, "Scan frames without opening a window.")
	listen := flag.String("listen", ":8740",
		"Address for the content/metrics HTTP server. Empty to disable.")
	textFile := flag.String("text", "",
		"File with initial screen text. Default: demonstration pattern.")

	flag.Parse()
	if !flag.Parsed() {
		usage()
		os.Exit(1)
	}

	base, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	logger = base.Sugar()
	defer logger.Sync()

	mode := vga.Mode640x480

	glyphs := font.Builtin()
	height := font.BuiltinHeight
	width := *fontWidth
	if *fontFile != "" {
		var w int
		glyphs, height, w, err = font.LoadFile(*fontFile, *fontHeight)
		if err != nil {
			logger.Fatalw("unable to load font",
				"file", *fontFile,
				"err", err)
		}
		// PSF fonts carry their width; the flag only governs raw dumps.
		if w != 0 && w != width {
			logger.Infow("font file declares its own glyph width",
				"file", *fontFile,
				"width", w)
			width = w
		}
	}

	cfg := term.Config{
		ActiveWidth:     mode.HActive,
		ActiveHeight:    mode.VActive,
		GlyphWidth:      width,
		GlyphHeight:     height,
		BlinkHalfPeriod: mode.BlinkHalfPeriod(),
		Font:            glyphs,
	}
	cfg.Chars, cfg.Attrs = demoContent(cfg.Cells())
	if *textFile != "" {
		text, err := os.ReadFile(*textFile)
		if err != nil {
			logger.Fatalw("unable to read text file",
				"file", *textFile,
				"err", err)
		}
		cfg.Chars, cfg.Attrs = textContent(cfg.Cols(), cfg.Cells(), text)
	}

	eng, err := term.New(cfg)
	if err != nil {
		logger.Fatalw("bad engine configuration", "err", err)
	}

	logger.Infow("engine configured",
		"mode", fmt.Sprintf("%dx%d@%.2f", mode.HActive, mode.VActive, mode.RefreshHz()),
		"glyph", fmt.Sprintf("%dx%d", width, height),
		"grid", fmt.Sprintf("%dx%d", cfg.Cols(), cfg.Rows()))

	srv := newContentServer(cfg.Cols(), cfg.Rows(), cfg.Chars, cfg.Attrs)
	if *listen != "" {
		go srv.serve(*listen)
	}

	run(eng, mode, *scale, *headless, srv)
}
