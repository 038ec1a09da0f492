//go:build ebiten

package gui

import (
	"time"

	"github.com/birdhop/game/internal/rng"
	"github.com/birdhop/game/internal/sim"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"
)

var keymap = []struct {
	keys []ebiten.Key
	in   sim.Input
}{
	{[]ebiten.Key{ebiten.KeyW, ebiten.KeyArrowUp}, sim.Move(sim.DirNorth)},
	{[]ebiten.Key{ebiten.KeyS, ebiten.KeyArrowDown}, sim.Move(sim.DirSouth)},
	{[]ebiten.Key{ebiten.KeyA, ebiten.KeyArrowLeft}, sim.Move(sim.DirEast)},
	{[]ebiten.Key{ebiten.KeyD, ebiten.KeyArrowRight}, sim.Move(sim.DirWest)},
	{[]ebiten.Key{ebiten.KeyJ}, sim.Jump()},
	{[]ebiten.Key{ebiten.KeySpace}, sim.Pause()},
	{[]ebiten.Key{ebiten.KeyZ}, sim.Input{Kind: sim.InputToggleSkipAction}},
	{[]ebiten.Key{ebiten.KeyX}, sim.Input{Kind: sim.InputToggleSkipCollision}},
}

// Game adapts a World to the ebiten.Game interface. Every Update is one
// Advance of 1/TPS.
type Game struct {
	world *sim.World
	src   rng.Source
	log   *zap.Logger

	frame Frame
	img   *ebiten.Image
	scale int
	dt    time.Duration
}

// New constructs a Game drawing each tile as scale×scale pixels.
func New(w *sim.World, src rng.Source, scale, tps int, log *zap.Logger) *Game {
	return &Game{
		world: w,
		src:   src,
		log:   log,
		scale: scale,
		dt:    time.Second / time.Duration(tps),
	}
}

// Update collects this frame's key presses and advances the world.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.log.Info("player quit", zap.Uint64("tick", g.world.Clock().Tick))
		return ebiten.Termination
	}
	var inputs []sim.Input
	for _, m := range keymap {
		for _, k := range m.keys {
			if inpututil.IsKeyJustPressed(k) {
				inputs = append(inputs, m.in)
				break
			}
		}
	}
	return g.world.Advance(g.dt, g.src, inputs)
}

// Draw renders the current world state.
func (g *Game) Draw(screen *ebiten.Image) {
	g.frame.Paint(g.world)
	if g.img == nil || g.img.Bounds().Dx() != g.frame.W || g.img.Bounds().Dy() != g.frame.H {
		g.img = ebiten.NewImage(g.frame.W, g.frame.H)
	}
	g.img.WritePixels(g.frame.Pix)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(g.scale), float64(g.scale))
	screen.DrawImage(g.img, op)
	ebitenutil.DebugPrint(screen, Status(g.world))
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	b := g.world.Board()
	return b.Width * g.scale, b.Height * g.scale
}
