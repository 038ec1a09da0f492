package boot

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/birdhop/game/internal/config"
	"github.com/birdhop/game/internal/sim"
	"go.uber.org/zap/zaptest"
)

func TestFlagsConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "birdhop.toml")
	if err := os.WriteFile(path, []byte("[game]\nseed = 5\nlevel = \"level_2\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var f Flags
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f.Bind(fs)
	if err := fs.Parse([]string{"-config", path, "-seed", "9", "-assets", dir}); err != nil {
		t.Fatal(err)
	}
	cfg, got, found, err := f.Config()
	if err != nil || !found || got != path {
		t.Fatalf("Config() path=%q found=%v err=%v", got, found, err)
	}
	if cfg.Game.Seed != 9 || cfg.Game.Level != "level_2" || cfg.Assets.Embedded || cfg.Assets.Dir != dir {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestLoadAssetsEmbedded(t *testing.T) {
	cfg := config.Defaults()
	log := zaptest.NewLogger(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a, err := LoadAssets(ctx, cfg, AssetFS(cfg.Assets), log)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.Registry.Close)
	if !a.Progress.Done() || len(a.Progress.Failed) != 0 {
		t.Fatalf("progress = %+v", a.Progress)
	}
	want := []string{"player", "log", "bird", "level_1"}
	if len(a.Required) != len(want) {
		t.Fatalf("required = %v, want %v", a.Required, want)
	}
	for i := range want {
		if a.Required[i] != want[i] {
			t.Fatalf("required = %v, want %v", a.Required, want)
		}
	}
	if _, err := sim.Initialize(a.Registry, a.Options(cfg, log)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
}

func TestLoadAssetsFailedRequired(t *testing.T) {
	cfg := config.Defaults()
	cfg.Game.Models = nil
	fsys := fstest.MapFS{
		"manifest.yaml": {Data: []byte("assets:\n  - {name: level_1, path: missing.yaml, kind: level, required: true}\n")},
	}
	log := zaptest.NewLogger(t)
	a, err := LoadAssets(context.Background(), cfg, fsys, log)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.Registry.Close)
	if len(a.Progress.Failed) != 1 {
		t.Fatalf("failed = %v", a.Progress.Failed)
	}
	_, err = sim.Initialize(a.Registry, a.Options(cfg, log))
	if _, ok := err.(*sim.InitializationError); !ok {
		t.Fatalf("err = %v, want *InitializationError", err)
	}
}
