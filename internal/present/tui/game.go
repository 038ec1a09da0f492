package tui

import (
	"context"
	"time"

	"github.com/birdhop/game/internal/rng"
	"github.com/birdhop/game/internal/sim"
	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"
)

// Game runs a World in a terminal: keys collected between ticks are passed
// to the next Advance.
type Game struct {
	screen   tcell.Screen
	world    *sim.World
	src      rng.Source
	render   *Renderer
	tickRate time.Duration
	log      *zap.Logger

	pending []sim.Input

	// OnTick, when set, is called after every Advance.
	OnTick func(dt time.Duration, inputs []sim.Input)
}

func NewGame(screen tcell.Screen, w *sim.World, src rng.Source, models Models, tickRate time.Duration, log *zap.Logger) *Game {
	return &Game{
		screen:   screen,
		world:    w,
		src:      src,
		render:   NewRenderer(models),
		tickRate: tickRate,
		log:      log,
	}
}

// HandleEvent applies one terminal event and reports whether the game
// should keep running.
func (g *Game) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		in, cmd := MapKey(ev)
		switch cmd {
		case CmdQuit:
			return false
		case CmdInput:
			g.pending = append(g.pending, in)
		}
	case *tcell.EventResize:
		g.screen.Sync()
	}
	return true
}

// Step advances the world by dt with the collected inputs and redraws.
func (g *Game) Step(dt time.Duration) error {
	inputs := g.pending
	g.pending = nil
	if err := g.world.Advance(dt, g.src, inputs); err != nil {
		return err
	}
	if g.OnTick != nil {
		g.OnTick(dt, inputs)
	}
	g.render.Draw(g.screen, g.world)
	return nil
}

// Run drives the game until ctx is done or the player quits. The caller
// owns the screen.
func (g *Game) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.tickRate)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := g.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	g.render.Draw(g.screen, g.world)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if !g.HandleEvent(ev) {
				g.log.Info("player quit", zap.Uint64("tick", g.world.Clock().Tick))
				return nil
			}
		case <-ticker.C:
			if err := g.Step(g.tickRate); err != nil {
				return err
			}
		}
	}
}
