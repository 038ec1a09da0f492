package sim

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/birdhop/game/internal/asset"
	"github.com/birdhop/game/internal/rng"
	"go.uber.org/zap/zaptest"
)

const frameDT = 50 * time.Millisecond

// fast timing: every animation takes two frames after the entry tick.
const tinyTiming = `
  timing: {move: 0.1, jump: 0.1, game_move: 0.1, land: 0.1, game_over: 0.2, win: 0.2}
`

// tinyLevel has one bird directly north of the start and no lanes.
const tinyLevel = `
level:
  name: tiny
  board: {width: 6, height: 6}
  start: {x: 0, z: 0}
  birds:
    - {x: 0, z: 1}
` + tinyTiming

func waitAssets(t *testing.T, r *asset.Registry) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Wait(ctx); err != nil {
		t.Fatalf("wait for assets: %v", err)
	}
}

// loadLevel serves level as level_1 next to files and requests level_1 plus
// the extra descriptors.
func loadLevel(t *testing.T, level string, files fstest.MapFS, extra ...asset.Descriptor) (*asset.Registry, fstest.MapFS) {
	t.Helper()
	fsys := fstest.MapFS{"levels/level_1.yaml": {Data: []byte(level)}}
	for k, v := range files {
		fsys[k] = v
	}
	r := asset.NewRegistry(fsys, 2, zaptest.NewLogger(t))
	t.Cleanup(r.Close)
	r.Request(asset.Descriptor{Name: "level_1", Path: "levels/level_1.yaml", Kind: asset.KindLevel, Required: true})
	for _, d := range extra {
		r.Request(d)
	}
	waitAssets(t, r)
	return r, fsys
}

func newTestWorld(t *testing.T, level string) *World {
	t.Helper()
	r, _ := loadLevel(t, level, nil)
	w, err := Initialize(r, Options{Logger: zaptest.NewLogger(t)})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return w
}

func tick(t *testing.T, w *World, src rng.Source, inputs ...Input) {
	t.Helper()
	if err := w.Advance(frameDT, src, inputs); err != nil {
		t.Fatalf("Advance at tick %d: %v", w.Clock().Tick, err)
	}
}

func ticks(t *testing.T, w *World, src rng.Source, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		tick(t, w, src)
	}
}

func player(t *testing.T, w *World) Entity {
	t.Helper()
	for e := range w.Query(OfKind(KindPlayer)) {
		return e
	}
	t.Fatalf("no player")
	return Entity{}
}

func logs(w *World) []Entity {
	var out []Entity
	for e := range w.Query(OfKind(KindLog)) {
		out = append(out, e)
	}
	return out
}
