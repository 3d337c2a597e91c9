package main

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vgaterm/term"
)

// TextEvent is one queued write into the character grid: text placed at
// (row, col), every cell taking the raw attribute byte. Writes wrap to the
// next row and are clipped at the end of the grid.
type TextEvent struct {
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Text string `json:"text"`
	Attr byte   `json:"attr"`
}

// contentServer queues display writes from HTTP and websocket clients and
// hands them to the frame loop at frame boundaries. It keeps a shadow copy
// of the cell buffers so reads never touch the engine mid-scan.
type contentServer struct {
	cols int
	rows int

	mu      sync.Mutex
	pending []TextEvent
	chars   []byte
	attrs   []byte
}

func newContentServer(cols, rows int, chars, attrs []byte) *contentServer {
	s := &contentServer{
		cols:  cols,
		rows:  rows,
		chars: make([]byte, cols*rows),
		attrs: make([]byte, cols*rows),
	}
	copy(s.chars, chars)
	copy(s.attrs, attrs)
	return s
}

func (s *contentServer) router() *mux.Router {
	r := mux.NewRouter()
	r.Path("/text").Methods("POST").HandlerFunc(s.postText)
	r.Path("/cells").Methods("GET").HandlerFunc(s.getCells)
	r.Path("/ws").HandlerFunc(s.handleWS)
	r.Path("/metrics").Handler(promhttp.Handler())
	return r
}

func (s *contentServer) serve(addr string) {
	logger.Infow("serving content api", "addr", addr)
	if err := http.ListenAndServe(addr, s.router()); err != nil {
		logger.Errorw("content server stopped", "err", err)
	}
}

func (s *contentServer) postText(w http.ResponseWriter, r *http.Request) {
	var ev TextEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.enqueue(ev)
	w.WriteHeader(http.StatusAccepted)
}

func (s *contentServer) getCells(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := struct {
		Cols  int    `json:"cols"`
		Rows  int    `json:"rows"`
		Chars string `json:"chars"`
		Attrs string `json:"attrs"`
	}{
		Cols:  s.cols,
		Rows:  s.rows,
		Chars: base64.StdEncoding.EncodeToString(s.chars),
		Attrs: base64.StdEncoding.EncodeToString(s.attrs),
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *contentServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnw("unable to upgrade websocket", "err", err)
		return
	}
	defer conn.Close()

	for {
		var ev TextEvent
		if err := conn.ReadJSON(&ev); err != nil {
			logger.Debugw("client disconnected", "err", err)
			return
		}
		s.enqueue(ev)
	}
}

func (s *contentServer) enqueue(ev TextEvent) {
	s.mu.Lock()
	s.pending = append(s.pending, ev)
	s.mu.Unlock()
}

// applyPending drains queued writes into the engine and the shadow copy.
// Called by the frame loop between frames; the engine's buffers are never
// written during active scan-out.
func (s *contentServer) applyPending(eng *term.Engine) {
	s.mu.Lock()
	events := s.pending
	s.pending = nil
	for _, ev := range events {
		applyEvent(ev, s.cols, s.rows, func(i int, code, attr byte) {
			s.chars[i] = code
			s.attrs[i] = attr
		})
	}
	s.mu.Unlock()

	for _, ev := range events {
		applyEvent(ev, s.cols, s.rows, eng.SetCell)
	}
}

// applyEvent maps an event's text onto linear cell writes, wrapping at the
// right edge and clipping at the end of the grid.
func applyEvent(ev TextEvent, cols, rows int, set func(i int, code, attr byte)) {
	if ev.Row < 0 || ev.Col < 0 || ev.Row >= rows || ev.Col >= cols {
		return
	}
	cell := ev.Row*cols + ev.Col
	for i := 0; i < len(ev.Text) && cell < cols*rows; i++ {
		set(cell, ev.Text[i], ev.Attr)
		cell++
	}
}
