// Command birdhop-tui plays the game in a terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/birdhop/game/internal/boot"
	"github.com/birdhop/game/internal/logging"
	"github.com/birdhop/game/internal/present/tui"
	"github.com/birdhop/game/internal/replay"
	"github.com/birdhop/game/internal/rng"
	"github.com/birdhop/game/internal/sim"
	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var f boot.Flags
	f.Bind(flag.CommandLine)
	logPath := flag.String("log", "birdhop-tui.log", "log file")
	record := flag.String("record", "", "write the session as a recording to this file")
	flag.Parse()

	cfg, _, _, err := f.Config()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// The terminal is the screen, so logs go to a file.
	log, err := logging.NewFile(cfg.Logging, *logPath)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	a, err := boot.LoadAssets(loadCtx, cfg, boot.AssetFS(cfg.Assets), log)
	cancel()
	if err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	defer a.Registry.Close()
	a.Watch(ctx, cfg.Assets, log)

	w, err := sim.Initialize(a.Registry, a.Options(cfg, log))
	if err != nil {
		var ierr *sim.InitializationError
		if errors.As(err, &ierr) {
			return fmt.Errorf("cannot start %s: %w", cfg.Game.Level, ierr)
		}
		return err
	}
	defer w.Shutdown()

	seed := rng.Resolve(cfg.Game.Seed, log)
	src := rng.New(seed)

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	game := tui.NewGame(screen, w, src, a.Registry, cfg.Game.TickRate, log)
	var frames []replay.Frame
	if *record != "" {
		game.OnTick = func(dt time.Duration, in []sim.Input) {
			frames = append(frames, replay.Frame{Delta: dt, Inputs: in})
		}
	}
	log.Info("game started", zap.String("level", w.LevelName()), zap.Uint64("seed", seed))
	if err := game.Run(ctx); err != nil {
		return err
	}
	if *record != "" {
		d := w.Digest()
		rec := &replay.Recording{
			Format:  replay.Format,
			Seed:    seed,
			Level:   w.LevelAsset(),
			Scripts: cfg.Script.Enabled,
			Frames:  frames,
			Final:   fmt.Sprintf("%x", d[:]),
		}
		return replay.Save(*record, rec)
	}
	return nil
}
