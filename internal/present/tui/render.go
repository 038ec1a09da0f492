package tui

import (
	"github.com/birdhop/game/internal/asset"
	"github.com/birdhop/game/internal/color"
	"github.com/birdhop/game/internal/data"
	"github.com/birdhop/game/internal/sim"
	"github.com/gdamore/tcell/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Models resolves the model handle carried by an entity.
type Models interface {
	Model(h asset.Handle) (*data.Model, error)
}

var fallbackGlyph = map[sim.Kind]rune{
	sim.KindPlayer: '@',
	sim.KindLog:    '=',
	sim.KindBird:   'v',
}

// Renderer draws the board two columns per tile with a HUD line below.
type Renderer struct {
	models Models
	p      *message.Printer
}

func NewRenderer(models Models) *Renderer {
	return &Renderer{models: models, p: message.NewPrinter(language.English)}
}

// Cell returns the screen position of board tile (x, z) on a board of the
// given size. Row 0 is the top border.
func Cell(b data.Board, x, z int) (col, row int) {
	return 2*(b.Width-1-x) + 1, b.Height - z
}

func style(c color.RGB) tcell.Style {
	r, g, b := c.RGB255()
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(r), int32(g), int32(b)))
}

func (r *Renderer) glyph(e sim.Entity) rune {
	if r.models != nil && e.Model.Valid() {
		if m, err := r.models.Model(e.Model); err == nil {
			if g := []rune(m.Glyph); len(g) > 0 {
				return g[0]
			}
		}
	}
	return fallbackGlyph[e.Kind]
}

// Draw renders one frame of w.
func (r *Renderer) Draw(s tcell.Screen, w *sim.World) {
	s.Clear()
	b := w.Board()
	ground := style(color.Tile)
	border := tcell.StyleDefault.Foreground(tcell.ColorGray)

	width := 2*b.Width + 1
	for c := 0; c < width; c++ {
		s.SetContent(c, 0, '-', nil, border)
		s.SetContent(c, b.Height+1, '-', nil, border)
	}
	for z := 0; z < b.Height; z++ {
		_, row := Cell(b, 0, z)
		s.SetContent(0, row, '|', nil, border)
		s.SetContent(width-1, row, '|', nil, border)
		for x := 0; x < b.Width; x++ {
			col, _ := Cell(b, x, z)
			s.SetContent(col, row, '.', nil, ground)
		}
	}

	put := func(x, z int, g rune, st tcell.Style) {
		if x < 0 || x >= b.Width || z < 0 || z >= b.Height {
			return
		}
		col, row := Cell(b, x, z)
		s.SetContent(col, row, g, nil, st)
	}

	// Logs first so birds and the player stay visible on top.
	for e := range w.Query(sim.OfKind(sim.KindLog)) {
		lo, hi := e.Lane.Span(e.Tile.X)
		g := r.glyph(e)
		for x := lo; x <= hi; x++ {
			put(x, e.Tile.Z, g, style(e.Tint))
		}
	}
	for e := range w.Query(sim.OfKind(sim.KindBird)) {
		if e.OnBoard {
			put(e.Tile.X, e.Tile.Z, r.glyph(e), style(e.Tint))
		}
	}
	for e := range w.Query(sim.OfKind(sim.KindPlayer)) {
		st := style(e.Tint)
		if e.Tile.Y > sim.GroundY {
			st = st.Bold(true)
		}
		put(e.Tile.X, e.Tile.Z, r.glyph(e), st)
	}

	r.hud(s, w, b.Height+2)
	s.Show()
}

func (r *Renderer) hud(s tcell.Screen, w *sim.World, row int) {
	clk := w.Clock()
	rescued, left := w.Rescued()
	line := r.p.Sprintf("%s  tick %d  step %d  birds %d/%d", w.LevelName(), clk.Tick, w.Step(), rescued, rescued+left)
	if a, c := w.Debug(); a || c {
		line += "  [debug]"
	}
	text(s, 0, row, line, tcell.StyleDefault)

	banner, st := "", tcell.StyleDefault
	switch {
	case w.Outcome() == sim.GameOver:
		banner, st = "GAME OVER", st.Foreground(tcell.ColorRed).Bold(true)
	case w.Outcome() == sim.Won:
		banner, st = "ALL BIRDS RESCUED", style(color.Gold).Bold(true)
	case w.Phase() == sim.Paused:
		banner, st = "PAUSED", st.Reverse(true)
	}
	if banner != "" {
		text(s, 0, row+1, banner, st)
	}
}

func text(s tcell.Screen, x, y int, str string, st tcell.Style) {
	for _, c := range str {
		s.SetContent(x, y, c, nil, st)
		x++
	}
}
