package tui

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/birdhop/game/internal/asset"
	"github.com/birdhop/game/internal/data"
	"github.com/birdhop/game/internal/rng"
	"github.com/birdhop/game/internal/sim"
	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap/zaptest"
)

const level = `
level:
  name: tui
  board: {width: 6, height: 6}
  start: {x: 1, z: 0}
  models: [player]
  birds:
    - {x: 4, z: 3}
  lanes:
    - nth_step: [1, 0, 0, 0, 0, 0, 0, 0]
      offset_z: [3, 0, 0, 0, 0, 0, 0, 0]
      base_x: 3
      length: 2
`

func newWorld(t *testing.T) (*sim.World, *asset.Registry) {
	t.Helper()
	fsys := fstest.MapFS{
		"level.yaml":  {Data: []byte(level)},
		"player.yaml": {Data: []byte("model:\n  name: player\n  glyph: P\n")},
	}
	r := asset.NewRegistry(fsys, 1, zaptest.NewLogger(t))
	t.Cleanup(r.Close)
	r.Request(asset.Descriptor{Name: "level_1", Path: "level.yaml", Kind: asset.KindLevel})
	r.Request(asset.Descriptor{Name: "player", Path: "player.yaml", Kind: asset.KindModel})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	w, err := sim.Initialize(r, sim.Options{Logger: zaptest.NewLogger(t)})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return w, r
}

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	s.SetSize(40, 12)
	t.Cleanup(s.Fini)
	return s
}

func runeAt(s tcell.Screen, col, row int) rune {
	r, _, _, _ := s.GetContent(col, row)
	return r
}

func TestMapKey(t *testing.T) {
	tests := []struct {
		key  tcell.Key
		r    rune
		want sim.Input
		cmd  Command
	}{
		{tcell.KeyRune, 'w', sim.Move(sim.DirNorth), CmdInput},
		{tcell.KeyRune, 'S', sim.Move(sim.DirSouth), CmdInput},
		{tcell.KeyRune, 'a', sim.Move(sim.DirEast), CmdInput},
		{tcell.KeyRune, 'd', sim.Move(sim.DirWest), CmdInput},
		{tcell.KeyLeft, 0, sim.Move(sim.DirEast), CmdInput},
		{tcell.KeyRune, 'j', sim.Jump(), CmdInput},
		{tcell.KeyRune, ' ', sim.Pause(), CmdInput},
		{tcell.KeyRune, 'z', sim.Input{Kind: sim.InputToggleSkipAction}, CmdInput},
		{tcell.KeyRune, 'x', sim.Input{Kind: sim.InputToggleSkipCollision}, CmdInput},
		{tcell.KeyRune, 'q', sim.Input{}, CmdQuit},
		{tcell.KeyEscape, 0, sim.Input{}, CmdQuit},
		{tcell.KeyRune, 'k', sim.Input{}, CmdNone},
		{tcell.KeyTab, 0, sim.Input{}, CmdNone},
	}
	for _, tt := range tests {
		in, cmd := MapKey(tcell.NewEventKey(tt.key, tt.r, tcell.ModNone))
		if in != tt.want || cmd != tt.cmd {
			t.Errorf("MapKey(%v %q) = %v %v, want %v %v", tt.key, tt.r, in, cmd, tt.want, tt.cmd)
		}
	}
}

func TestDrawBoard(t *testing.T) {
	w, r := newWorld(t)
	s := newScreen(t)
	if err := w.Advance(16*time.Millisecond, rng.New(1), nil); err != nil {
		t.Fatal(err)
	}
	NewRenderer(r).Draw(s, w)

	b := data.Board{Width: 6, Height: 6}
	col, row := Cell(b, 1, 0)
	if got := runeAt(s, col, row); got != 'P' {
		t.Errorf("player cell = %q, want model glyph P", got)
	}
	col, row = Cell(b, 4, 3)
	if got := runeAt(s, col, row); got != 'v' {
		t.Errorf("bird cell = %q, want v", got)
	}
	// log at x=3 z=3 spans x 2..3
	for _, x := range []int{2, 3} {
		col, row = Cell(b, x, 3)
		if got := runeAt(s, col, row); got != '=' {
			t.Errorf("log cell x=%d = %q, want =", x, got)
		}
	}
	col, row = Cell(b, 5, 5)
	if got := runeAt(s, col, row); got != '.' {
		t.Errorf("empty cell = %q, want .", got)
	}

	var hud strings.Builder
	for c := 0; c < 40; c++ {
		hud.WriteRune(runeAt(s, c, b.Height+2))
	}
	if !strings.Contains(hud.String(), "tick 1") || !strings.Contains(hud.String(), "birds 0/1") {
		t.Errorf("hud = %q", hud.String())
	}
}

func TestGameCollectsInputsBetweenTicks(t *testing.T) {
	w, r := newWorld(t)
	s := newScreen(t)
	g := NewGame(s, w, rng.New(1), r, 16*time.Millisecond, zaptest.NewLogger(t))
	var seen [][]sim.Input
	g.OnTick = func(_ time.Duration, in []sim.Input) { seen = append(seen, in) }

	if !g.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone)) {
		t.Fatal("z ended the game")
	}
	if err := g.Step(16 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := g.Step(16 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || len(seen[0]) != 1 || len(seen[1]) != 0 {
		t.Fatalf("inputs per tick = %v", seen)
	}
	if a, _ := w.Debug(); !a {
		t.Fatalf("skip action not toggled")
	}
	if g.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) {
		t.Fatal("q did not quit")
	}
}

func TestRunStopsOnQuit(t *testing.T) {
	w, r := newWorld(t)
	s := newScreen(t)
	g := NewGame(s, w, rng.New(1), r, 5*time.Millisecond, zaptest.NewLogger(t))
	s.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	done := make(chan error, 1)
	go func() { done <- g.Run(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after q")
	}
}
