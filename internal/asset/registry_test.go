package asset

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"
	"time"

	"github.com/birdhop/game/internal/data"
	"go.uber.org/zap/zaptest"
)

const levelYAML = `
level:
  name: level_1
  start: {x: 3, z: 0}
  birds:
    - {x: 7, z: 2}
  lanes:
    - nth_step: [1, 0, 1, 1, 1, 0, 0, 0]
      base_x: 2
`

// gatedFS blocks every Open of a gated path until release is closed.
type gatedFS struct {
	fs.FS
	gated   map[string]bool
	release chan struct{}
}

func (g gatedFS) Open(name string) (fs.File, error) {
	if g.gated[name] {
		<-g.release
	}
	return g.FS.Open(name)
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"levels/level_1.yaml": {Data: []byte(levelYAML)},
		"models/bird.yaml":    {Data: []byte("model:\n  name: bird\n  glyph: b\n")},
		"models/broken.yaml":  {Data: []byte("model: [\n")},
		"scripts/level_1.lua": {Data: []byte("function should_spawn(s, l, d) return d end\n")},
	}
}

func waitIdle(t *testing.T, r *Registry) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestRequestIsPendingUntilLoaded(t *testing.T) {
	gate := gatedFS{FS: testFS(), gated: map[string]bool{"levels/level_1.yaml": true}, release: make(chan struct{})}
	r := NewRegistry(gate, 2, zaptest.NewLogger(t))
	defer r.Close()

	h := r.Request(Descriptor{Name: "level_1", Path: "levels/level_1.yaml", Kind: KindLevel, Required: true})
	if st := r.State(h); st != Pending {
		t.Fatalf("state = %v, want pending", st)
	}
	p := r.PollProgress()
	if p.Loaded != 0 || p.Total != 1 || len(p.Failed) != 0 {
		t.Fatalf("progress = %+v, want 0/1", p)
	}
	if _, err := r.Level(h); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Level before load: err = %v, want ErrNotLoaded", err)
	}

	close(gate.release)
	waitIdle(t, r)

	p = r.PollProgress()
	if p.Loaded != 1 || p.Total != 1 || !p.Done() {
		t.Fatalf("progress = %+v, want 1/1", p)
	}
	lv, err := r.Level(h)
	if err != nil {
		t.Fatalf("Level: %v", err)
	}
	if lv.Name != "level_1" || len(lv.Birds) != 1 {
		t.Fatalf("level = %+v", lv)
	}
}

func TestPollProgressHasNoSideEffects(t *testing.T) {
	r := NewRegistry(testFS(), 1, zaptest.NewLogger(t))
	defer r.Close()
	r.Request(Descriptor{Name: "bird", Path: "models/bird.yaml", Kind: KindModel})
	waitIdle(t, r)
	a := r.PollProgress()
	b := r.PollProgress()
	if a.Loaded != b.Loaded || a.Total != b.Total || len(a.Failed) != len(b.Failed) {
		t.Fatalf("progress changed between polls: %+v vs %+v", a, b)
	}
}

func TestFailureIsIsolated(t *testing.T) {
	r := NewRegistry(testFS(), 3, zaptest.NewLogger(t))
	defer r.Close()
	good := r.Request(Descriptor{Name: "bird", Path: "models/bird.yaml", Kind: KindModel})
	bad := r.Request(Descriptor{Name: "broken", Path: "models/broken.yaml", Kind: KindModel})
	missing := r.Request(Descriptor{Name: "ghost", Path: "models/ghost.yaml", Kind: KindModel})
	waitIdle(t, r)

	if st := r.State(good); st != Loaded {
		t.Errorf("good state = %v", st)
	}
	for _, h := range []Handle{bad, missing} {
		_, st, err := r.Get(h)
		if st != Failed {
			t.Errorf("%v state = %v, want failed", h, st)
		}
		var le *LoadError
		if !errors.As(err, &le) {
			t.Errorf("%v err = %v, want *LoadError", h, err)
		}
	}
	if _, st, err := r.Get(missing); st != Failed || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing err = %v, want fs.ErrNotExist", err)
	}
	p := r.PollProgress()
	if p.Loaded != 1 || p.Total != 3 || len(p.Failed) != 2 {
		t.Fatalf("progress = %+v", p)
	}
}

func TestRequestSameNameReturnsSameHandle(t *testing.T) {
	r := NewRegistry(testFS(), 1, zaptest.NewLogger(t))
	defer r.Close()
	d := Descriptor{Name: "bird", Path: "models/bird.yaml", Kind: KindModel}
	if a, b := r.Request(d), r.Request(d); a != b {
		t.Fatalf("handles differ: %v %v", a, b)
	}
	if got := r.PollProgress().Total; got != 1 {
		t.Fatalf("total = %d, want 1", got)
	}
}

func TestUnknownKindAndHandle(t *testing.T) {
	r := NewRegistry(testFS(), 1, zaptest.NewLogger(t))
	defer r.Close()
	h := r.Request(Descriptor{Name: "x", Path: "models/bird.yaml", Kind: "mesh"})
	if st := r.State(h); st != Failed {
		t.Fatalf("unknown kind state = %v", st)
	}
	if _, _, err := r.Get(Handle{}); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("zero handle err = %v", err)
	}
	if _, err := r.Script(h); err == nil {
		t.Fatalf("Script on failed handle succeeded")
	}
}

func TestWrongKind(t *testing.T) {
	r := NewRegistry(testFS(), 1, zaptest.NewLogger(t))
	defer r.Close()
	h := r.Request(Descriptor{Name: "script", Path: "scripts/level_1.lua", Kind: KindScript})
	waitIdle(t, r)
	if _, err := r.Level(h); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("Level on script err = %v, want ErrWrongKind", err)
	}
	src, err := r.Script(h)
	if err != nil || src == "" {
		t.Fatalf("Script = %q, %v", src, err)
	}
}

func TestReloadKeepsHandleAndLastGoodValue(t *testing.T) {
	fsys := testFS()
	r := NewRegistry(fsys, 1, zaptest.NewLogger(t))
	defer r.Close()
	h := r.Request(Descriptor{Name: "bird", Path: "models/bird.yaml", Kind: KindModel})
	waitIdle(t, r)
	if v := r.Version(h); v != 1 {
		t.Fatalf("version = %d, want 1", v)
	}

	fsys["models/bird.yaml"] = &fstest.MapFile{Data: []byte("model:\n  name: bird\n  glyph: B\n"), ModTime: time.Unix(10, 0)}
	if got := r.Changed(); len(got) != 1 || got[0] != "bird" {
		t.Fatalf("Changed = %v, want [bird]", got)
	}
	if err := r.Reload("bird"); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, r)
	m, err := r.Model(h)
	if err != nil || m.Glyph != "B" {
		t.Fatalf("after reload model = %+v, %v", m, err)
	}
	if v := r.Version(h); v != 2 {
		t.Fatalf("version = %d, want 2", v)
	}
	if got := r.Changed(); len(got) != 0 {
		t.Fatalf("Changed after reload = %v", got)
	}

	fsys["models/bird.yaml"] = &fstest.MapFile{Data: []byte("model: [\n"), ModTime: time.Unix(20, 0)}
	if err := r.Reload("bird"); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, r)
	v, st, err := r.Get(h)
	if st != Loaded || err == nil {
		t.Fatalf("failed reload: state = %v err = %v, want loaded with error", st, err)
	}
	if v.(*data.Model).Glyph != "B" {
		t.Fatalf("last good value lost: %+v", v)
	}
	if err := r.Reload("nobody"); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("Reload unknown err = %v", err)
	}
}

func TestWatchReloadsChangedFile(t *testing.T) {
	fsys := testFS()
	r := NewRegistry(fsys, 1, zaptest.NewLogger(t))
	defer r.Close()
	h := r.Request(Descriptor{Name: "bird", Path: "models/bird.yaml", Kind: KindModel})
	waitIdle(t, r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fsys["models/bird.yaml"] = &fstest.MapFile{Data: []byte("model:\n  name: bird\n  glyph: W\n"), ModTime: time.Unix(30, 0)}
	go r.Watch(ctx, 5*time.Millisecond)

	deadline := time.Now().Add(5 * time.Second)
	for r.Version(h) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("watch did not reload")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCloseFailsLaterRequests(t *testing.T) {
	gate := gatedFS{FS: testFS(), gated: map[string]bool{"models/bird.yaml": true}, release: make(chan struct{})}
	r := NewRegistry(gate, 1, zaptest.NewLogger(t))
	inflight := r.Request(Descriptor{Name: "bird", Path: "models/bird.yaml", Kind: KindModel})
	queued := r.Request(Descriptor{Name: "level_1", Path: "levels/level_1.yaml", Kind: KindLevel})
	time.AfterFunc(20*time.Millisecond, func() { close(gate.release) })
	r.Close()

	for _, h := range []Handle{inflight, queued} {
		if _, st, err := r.Get(h); st != Failed || !errors.Is(err, ErrClosed) {
			t.Errorf("%v after close: state = %v err = %v", h, st, err)
		}
	}
	late := r.Request(Descriptor{Name: "script", Path: "scripts/level_1.lua", Kind: KindScript})
	if _, st, err := r.Get(late); st != Failed || !errors.Is(err, ErrClosed) {
		t.Fatalf("late request: state = %v err = %v", st, err)
	}
	if err := r.Reload("bird"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Reload after close err = %v", err)
	}
	if err := r.Wait(context.Background()); err != nil {
		t.Fatalf("Wait after close: %v", err)
	}
}

func TestLoadManifest(t *testing.T) {
	fsys := fstest.MapFS{
		"manifest.yaml": {Data: []byte("assets:\n  - {name: level_1, path: levels/level_1.yaml, kind: level, required: true}\n  - {name: blob, path: blob.bin}\n")},
	}
	ds, err := LoadManifest(fsys, "manifest.yaml")
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(ds) != 2 || ds[0].Kind != KindLevel || !ds[0].Required || ds[1].Kind != KindRaw {
		t.Fatalf("descriptors = %+v", ds)
	}
}
