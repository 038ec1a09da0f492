// Command birdhop runs the simulation headless: it plays a fixed number of
// ticks, optionally records them, verifies recordings and stores a summary
// of every run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/birdhop/game/internal/boot"
	"github.com/birdhop/game/internal/config"
	"github.com/birdhop/game/internal/core/event"
	"github.com/birdhop/game/internal/logging"
	"github.com/birdhop/game/internal/persist"
	"github.com/birdhop/game/internal/replay"
	"github.com/birdhop/game/internal/rng"
	"github.com/birdhop/game/internal/sim"
	"go.uber.org/zap"
)

const version = "v0.3.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	boot.Flags
	ticks    int
	input    string
	record   string
	verify   string
	realtime bool
}

func run() error {
	var opt options
	opt.Bind(flag.CommandLine)
	flag.IntVar(&opt.ticks, "ticks", 3600, "ticks to run")
	flag.StringVar(&opt.input, "input", "", "recording whose frames drive the run")
	flag.StringVar(&opt.record, "record", "", "write the run as a recording to this file")
	flag.StringVar(&opt.verify, "verify", "", "replay a recording twice and compare digests")
	flag.BoolVar(&opt.realtime, "realtime", false, "sleep one tick_rate between ticks")
	flag.Parse()

	// 1. Load config
	cfg, cfgPath, found, err := opt.Config()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	if !found {
		log.Info("no config file, using defaults", zap.String("path", cfgPath))
	}

	con := logging.NewConsole(os.Stdout)
	con.Banner("birdhop", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Run store
	con.Section("Store")
	store, closeStore, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer closeStore()
	if cfg.Database.Enabled {
		con.OK("PostgreSQL connected, migrations applied")
	} else {
		con.OK("database disabled, runs kept in memory")
	}

	// 4. Assets
	con.Section("Assets")
	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	a, err := boot.LoadAssets(loadCtx, cfg, boot.AssetFS(cfg.Assets), log)
	cancel()
	if err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	defer a.Registry.Close()
	con.Stat("loaded", a.Progress.Loaded)
	con.Stat("failed", len(a.Progress.Failed))
	a.Watch(ctx, cfg.Assets, log)

	if opt.verify != "" {
		return verify(ctx, con, cfg, a, opt.verify, store, log)
	}

	// 5. World
	w, err := sim.Initialize(a.Registry, a.Options(cfg, log))
	if err != nil {
		var ierr *sim.InitializationError
		if errors.As(err, &ierr) {
			con.Fail(ierr.Error())
		}
		return err
	}
	defer w.Shutdown()

	var frames []replay.Frame
	if opt.input != "" {
		rec, err := replay.Load(opt.input)
		if err != nil {
			return fmt.Errorf("input: %w", err)
		}
		frames = rec.Frames
		if cfg.Game.Seed == 0 {
			cfg.Game.Seed = rec.Seed
		}
	}
	seed := rng.Resolve(cfg.Game.Seed, log)
	src := rng.New(seed)

	var score tally
	score.subscribe(w)
	rec := replay.NewRecorder(w, seed, cfg.Script.Enabled)

	con.Section("Run")
	con.Ready(fmt.Sprintf("%s seed %d, %d ticks of %s", w.LevelName(), seed, opt.ticks, cfg.Game.TickRate))
	for i := 0; i < opt.ticks; i++ {
		if ctx.Err() != nil {
			log.Info("interrupted", zap.Uint64("tick", w.Clock().Tick))
			break
		}
		dt := cfg.Game.TickRate
		var inputs []sim.Input
		if i < len(frames) {
			dt, inputs = frames[i].Delta, frames[i].Inputs
		}
		if err := rec.Advance(dt, src, inputs); err != nil {
			return err
		}
		if opt.realtime {
			time.Sleep(cfg.Game.TickRate)
		}
	}

	score.drain(w)

	out := rec.Recording()
	if opt.record != "" {
		if err := saveRecording(cfg, opt.record, out); err != nil {
			return err
		}
		con.OK("recording written to " + opt.record)
	}

	rescued, _ := w.Rescued()
	row := &persist.RunRow{
		Seed:    seed,
		Level:   w.LevelName(),
		Ticks:   w.Clock().Tick,
		Games:   w.Stats().Games,
		Wins:    score.wins,
		Losses:  score.losses,
		Rescued: score.rescued,
		Outcome: w.Outcome().String(),
		Digest:  out.Final,
	}
	log.Info("run finished",
		zap.Uint64("ticks", row.Ticks),
		zap.Int("games", row.Games),
		zap.Int("rescued_now", rescued),
		zap.Uint64("dropped_inputs", w.Stats().DroppedInputs),
		zap.Uint64("entity_failures", w.Stats().EntityFailures),
		zap.String("digest", row.Digest))
	return report(ctx, con, store, row)
}

// tally counts game results from the event stream.
type tally struct {
	wins, losses, rescued int
}

func (t *tally) subscribe(w *sim.World) {
	sim.Subscribe(w, func(ev event.GameWon) { t.add(ev) })
	sim.Subscribe(w, func(ev event.GameOver) { t.add(ev) })
	sim.Subscribe(w, func(ev event.BirdRescued) { t.add(ev) })
}

func (t *tally) add(ev any) {
	switch ev.(type) {
	case event.GameWon:
		t.wins++
	case event.GameOver:
		t.losses++
	case event.BirdRescued:
		t.rescued++
	}
}

// drain counts the events of the last tick, which no later Advance will
// deliver.
func (t *tally) drain(w *sim.World) {
	for _, ev := range w.PendingEvents() {
		t.add(ev)
	}
}

func verify(ctx context.Context, con *logging.Console, cfg *config.Config, a *boot.Assets, path string, store persist.RunStore, log *zap.Logger) error {
	rec, err := replay.Load(path)
	if err != nil {
		return err
	}
	con.Section("Verify")
	var loaded []*boot.Assets
	defer func() {
		for _, b := range loaded {
			b.Registry.Close()
		}
	}()
	fresh := func() (sim.AssetSource, error) {
		b, err := boot.LoadAssets(ctx, cfg, boot.AssetFS(cfg.Assets), log)
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, b)
		return b.Registry, nil
	}
	res, err := replay.Verify(ctx, fresh, a.Options(cfg, log), rec)
	if err != nil {
		con.Fail(err.Error())
		return err
	}
	con.OK(fmt.Sprintf("%d frames replayed twice, digest %s", len(rec.Frames), res.DigestHex()))
	return report(ctx, con, store, &persist.RunRow{
		Seed:    rec.Seed,
		Level:   rec.Level,
		Ticks:   res.Ticks,
		Games:   res.Stats.Games,
		Rescued: res.Rescued,
		Outcome: res.Outcome.String(),
		Digest:  res.DigestHex(),
	})
}

func saveRecording(cfg *config.Config, path string, rec *replay.Recording) error {
	if !filepath.IsAbs(path) && filepath.Dir(path) == "." && cfg.Replay.Dir != "" {
		if err := os.MkdirAll(cfg.Replay.Dir, 0o755); err != nil {
			return err
		}
		path = filepath.Join(cfg.Replay.Dir, path)
	}
	return replay.Save(path, rec)
}

func report(ctx context.Context, con *logging.Console, store persist.RunStore, row *persist.RunRow) error {
	if err := store.Save(ctx, row); err != nil {
		return err
	}
	recent, err := store.Recent(ctx, 5)
	if err != nil {
		return err
	}
	con.Section("Recent runs")
	for _, r := range recent {
		con.Ready(r.Summary())
	}
	return nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (persist.RunStore, func(), error) {
	if !cfg.Enabled {
		return persist.NewMemoryRuns(), func() {}, nil
	}
	dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	db, err := persist.Open(dbCtx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return persist.NewRunRepo(db), db.Close, nil
}
