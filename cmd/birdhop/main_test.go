package main

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/birdhop/game/internal/asset"
	"github.com/birdhop/game/internal/rng"
	"github.com/birdhop/game/internal/sim"
	"go.uber.org/zap/zaptest"
)

// One bird north of the start; every animation runs two 50ms frames.
const northBird = `
level:
  name: north
  board: {width: 6, height: 6}
  start: {x: 0, z: 0}
  birds:
    - {x: 0, z: 1}
  timing: {move: 0.1, jump: 0.1, game_move: 0.1, land: 0.1, game_over: 0.2, win: 0.2}
`

func TestTallyCountsLastTick(t *testing.T) {
	fsys := fstest.MapFS{"levels/north.yaml": {Data: []byte(northBird)}}
	reg := asset.NewRegistry(fsys, 1, zaptest.NewLogger(t))
	t.Cleanup(reg.Close)
	reg.Request(asset.Descriptor{Name: "north", Path: "levels/north.yaml", Kind: asset.KindLevel, Required: true})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := reg.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	w, err := sim.Initialize(reg, sim.Options{Level: "north", Logger: zaptest.NewLogger(t)})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer w.Shutdown()

	var score tally
	score.subscribe(w)
	src := rng.New(1)
	// Move north at tick 2, jump at tick 7; the rescue and win land on tick 9.
	for i := 1; i <= 9; i++ {
		var in []sim.Input
		switch i {
		case 2:
			in = []sim.Input{sim.Move(sim.DirNorth)}
		case 7:
			in = []sim.Input{sim.Jump()}
		}
		if err := w.Advance(50*time.Millisecond, src, in); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}
	if w.Outcome() != sim.Won {
		t.Fatalf("outcome = %v, want won", w.Outcome())
	}
	if score.wins != 0 || score.rescued != 0 {
		t.Fatalf("delivered before drain: %+v", score)
	}
	score.drain(w)
	if score.wins != 1 || score.rescued != 1 || score.losses != 0 {
		t.Fatalf("tally = %+v, want 1 win 1 rescue", score)
	}
}
