// Package gui presents a World with ebiten on desktop and in the browser.
// The board is rasterized one pixel per tile into an RGBA buffer and scaled
// up when drawn.
package gui

import (
	"github.com/birdhop/game/internal/color"
	"github.com/birdhop/game/internal/sim"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Frame is an RGBA raster of the board, x mirrored so east is on the right
// of the player's view, north up.
type Frame struct {
	W, H int
	Pix  []byte
}

func (f *Frame) resize(w, h int) {
	if f.W == w && f.H == h {
		return
	}
	f.W, f.H = w, h
	f.Pix = make([]byte, w*h*4)
}

func (f *Frame) set(x, z int, c color.RGB) {
	if x < 0 || x >= f.W || z < 0 || z >= f.H {
		return
	}
	i := ((f.H-1-z)*f.W + (f.W - 1 - x)) * 4
	r, g, b := c.RGB255()
	f.Pix[i+0] = r
	f.Pix[i+1] = g
	f.Pix[i+2] = b
	f.Pix[i+3] = 0xff
}

// At returns the color painted for board tile (x, z).
func (f *Frame) At(x, z int) (r, g, b uint8) {
	i := ((f.H-1-z)*f.W + (f.W - 1 - x)) * 4
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Paint rasterizes w. Airborne players are drawn lighter.
func (f *Frame) Paint(w *sim.World) {
	b := w.Board()
	f.resize(b.Width, b.Height)
	for z := 0; z < f.H; z++ {
		for x := 0; x < f.W; x++ {
			f.set(x, z, color.Tile)
		}
	}
	for e := range w.Query(sim.OfKind(sim.KindLog)) {
		lo, hi := e.Lane.Span(e.Tile.X)
		for x := lo; x <= hi; x++ {
			f.set(x, e.Tile.Z, e.Tint)
		}
	}
	for e := range w.Query(sim.OfKind(sim.KindBird)) {
		if e.OnBoard {
			f.set(e.Tile.X, e.Tile.Z, e.Tint)
		}
	}
	for e := range w.Query(sim.OfKind(sim.KindPlayer)) {
		c := e.Tint
		if e.Tile.Y > sim.GroundY {
			c = color.Lerp(c, color.White, 0.4)
		}
		f.set(e.Tile.X, e.Tile.Z, c)
	}
}

var printer = message.NewPrinter(language.English)

// Status is the HUD text for w.
func Status(w *sim.World) string {
	rescued, left := w.Rescued()
	s := printer.Sprintf("%s  step %d  birds %d/%d", w.LevelName(), w.Step(), rescued, rescued+left)
	switch {
	case w.Outcome() == sim.GameOver:
		s += "\nGAME OVER"
	case w.Outcome() == sim.Won:
		s += "\nALL BIRDS RESCUED"
	case w.Phase() == sim.Paused:
		s += "\nPAUSED"
	}
	return s
}
