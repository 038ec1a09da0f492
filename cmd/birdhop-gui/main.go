//go:build ebiten

// Command birdhop-gui plays the game in a window, or in the browser when
// built for js/wasm.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/birdhop/game/internal/boot"
	"github.com/birdhop/game/internal/logging"
	"github.com/birdhop/game/internal/present/gui"
	"github.com/birdhop/game/internal/rng"
	"github.com/birdhop/game/internal/sim"
	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"
)

func main() {
	var f boot.Flags
	f.Bind(flag.CommandLine)
	var scale int
	flag.IntVar(&scale, "scale", 40, "pixels per tile")
	flag.Parse()

	cfg, _, _, err := f.Config()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	a, err := boot.LoadAssets(loadCtx, cfg, boot.AssetFS(cfg.Assets), logger)
	cancel()
	if err != nil {
		logger.Fatal("assets", zap.Error(err))
	}
	a.Watch(ctx, cfg.Assets, logger)

	w, err := sim.Initialize(a.Registry, a.Options(cfg, logger))
	if err != nil {
		logger.Fatal("cannot start level", zap.String("level", cfg.Game.Level), zap.Error(err))
	}

	tps := int(time.Second / cfg.Game.TickRate)
	game := gui.New(w, rng.New(rng.Resolve(cfg.Game.Seed, logger)), scale, tps, logger)
	b := w.Board()

	ebiten.SetWindowTitle("birdhop: " + w.LevelName())
	ebiten.SetTPS(tps)
	ebiten.SetWindowSize(b.Width*scale, b.Height*scale)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		logger.Fatal("game", zap.Error(err))
	}
	w.Shutdown()
	a.Registry.Close()
}
