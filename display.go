package main

import (
	"fmt"
	"runtime"
	"time"
	"unsafe"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/veandco/go-sdl2/sdl"

	"vgaterm/term"
	"vgaterm/vga"
)

var metricFrames = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vgaterm_frames_total",
	Help: "The total number of frames scanned out",
})

var metricMissedDeadlines = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vgaterm_missed_deadlines_total",
	Help: "Frames whose scan-out exceeded the refresh interval",
})

var metricFrameTime = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "vgaterm_frame_scan_seconds",
	Help:    "Time spent scanning out one frame",
	Buckets: prometheus.LinearBuckets(0, 0.002, 10),
})

type display struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	pixels   unsafe.Pointer

	width  int
	height int
	scale  int
}

func newDisplay(width, height, scale int) *display {
	d := &display{width: width, height: height, scale: scale}

	runtime.LockOSThread() // Latch this goroutine to the same thread for SDL.
	sdl.Init(sdl.INIT_VIDEO)
	window, err := sdl.CreateWindow("vgaterm", sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED, int32(width*scale), int32(height*scale), sdl.WINDOW_SHOWN)
	if err != nil {
		panic(fmt.Errorf("failed to create window: %v", err))
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		panic(fmt.Errorf("failed to create renderer: %v", err))
	}

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888,
		sdl.TEXTUREACCESS_STREAMING, int32(width), int32(height))
	if err != nil {
		panic(fmt.Errorf("failed to create texture: %v", err))
	}

	d.window = window
	d.renderer = renderer
	d.texture = texture
	return d
}

// paintFrame scans one full frame out of the engine into the streaming
// texture and flips it onto the window.
func (d *display) paintFrame(eng *term.Engine, gen *vga.Generator) {
	var pitch int
	err := d.texture.Lock(nil, &d.pixels, &pitch)
	if err != nil {
		panic(fmt.Errorf("error locking texture: %v", err))
	}
	if pitch != d.width*4 {
		panic(fmt.Errorf("unexpected pitch: %d", pitch))
	}

	scanFrame(eng, gen, d.writePixel)

	d.texture.Unlock()
	err = d.renderer.Clear()
	if err != nil {
		panic(fmt.Errorf("failed to clear renderer: %v", err))
	}
	err = d.renderer.Copy(d.texture, &sdl.Rect{X: 0, Y: 0, W: int32(d.width), H: int32(d.height)},
		&sdl.Rect{X: 0, Y: 0, W: int32(d.width * d.scale), H: int32(d.height * d.scale)})
	if err != nil {
		panic(fmt.Errorf("failed to copy texture: %v", err))
	}

	d.renderer.Present()
}

// writePixel expands the one-bit channels to ARGB8888.
func (d *display) writePixel(x, y int, p term.Pixel) {
	offset := uintptr(y*d.width+x) * 4
	var c uint32 = 0xff000000
	if p.R {
		c |= 0x00ff0000
	}
	if p.G {
		c |= 0x0000ff00
	}
	if p.B {
		c |= 0x000000ff
	}
	*(*uint32)(unsafe.Pointer(uintptr(d.pixels) + offset)) = c
}

func (d *display) cleanup() {
	d.texture.Destroy()
	d.renderer.Destroy()
	d.window.Destroy()
	sdl.Quit()
}

// pollEvents drains the SDL event queue. Returns true when the window was
// closed.
func pollEvents() bool {
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		switch ev.(type) {
		case *sdl.QuitEvent:
			return true
		}
	}
	return false
}

// scanFrame drives the engine through one complete frame of timing
// signals. put is called for every active-region pixel; nil skips output.
func scanFrame(eng *term.Engine, gen *vga.Generator, put func(x, y int, p term.Pixel)) {
	ticks := gen.Timing().TicksPerFrame()
	for i := 0; i < ticks; i++ {
		x, y := gen.Pos()
		s := gen.Tick()
		p := eng.Tick(s)
		if put != nil && s.HEnable && s.VEnable {
			put(x, y, p)
		}
	}
}

// run is the fixed-rate frame loop: one frame of pixel clocks per display
// refresh. Content updates land only between frames; a frame that misses
// its deadline is reported, not stretched.
func run(eng *term.Engine, mode vga.Timing, scale int, headless bool, srv *contentServer) {
	gen, err := vga.NewGenerator(mode)
	if err != nil {
		logger.Fatalw("bad video timing", "err", err)
	}

	var disp *display
	if !headless {
		disp = newDisplay(mode.HActive, mode.VActive, scale)
		defer disp.cleanup()
	}

	frameBudget := time.Duration(float64(time.Second) / mode.RefreshHz())
	ticker := time.NewTicker(frameBudget)
	defer ticker.Stop()

	for range ticker.C {
		start := time.Now()

		srv.applyPending(eng)
		if disp != nil {
			disp.paintFrame(eng, gen)
			if pollEvents() {
				return
			}
		} else {
			scanFrame(eng, gen, nil)
		}

		elapsed := time.Since(start)
		metricFrames.Inc()
		metricFrameTime.Observe(elapsed.Seconds())
		if elapsed > frameBudget {
			metricMissedDeadlines.Inc()
			logger.Warnw("frame deadline missed",
				"took", elapsed,
				"budget", frameBudget)
		}
	}
}
