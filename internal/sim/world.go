package sim

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/birdhop/game/internal/asset"
	"github.com/birdhop/game/internal/color"
	"github.com/birdhop/game/internal/core/ecs"
	"github.com/birdhop/game/internal/core/event"
	"github.com/birdhop/game/internal/core/system"
	"github.com/birdhop/game/internal/data"
	"github.com/birdhop/game/internal/rng"
	"github.com/birdhop/game/internal/script"
	"go.uber.org/zap"
)

// DefaultLevel is the level asset loaded when Options.Level is empty.
const DefaultLevel = "level_1"

// Model asset names looked up for entity AssetRefs. They are only required
// when listed in Options.Required or a level's models.
var modelNames = map[Kind]string{
	KindPlayer: "player",
	KindLog:    "log",
	KindBird:   "bird",
}

// AssetSource is the read side of the asset registry.
type AssetSource interface {
	Lookup(name string) (asset.Handle, bool)
	Get(h asset.Handle) (any, asset.State, error)
}

// Options configures Initialize.
type Options struct {
	Level    string
	Required []string // extra asset names that must be Loaded
	Scripts  bool     // run the level's Lua hooks
	Logger   *zap.Logger
}

// Stats counts absorbed failures and entity churn over the world's life.
type Stats struct {
	DroppedInputs  uint64
	EntityFailures uint64
	Spawned        uint64
	Despawned      uint64
	Games          int
}

type frame struct {
	src    rng.Source
	inputs []Input
}

// gameState is reset at the start of every game.
type gameState struct {
	outcome     Outcome
	outcomeAt   uint64
	outcomeTime time.Duration

	phase     TurnPhase
	prevPhase TurnPhase
	phaseAt   uint64
	phaseTime time.Duration
	action    Input

	step      uint32
	player    ecs.EntityID
	birdsLeft int
	rescued   int
	spawnDue  bool
	sweptAt   uint64
}

// World owns every game entity and advances them one tick per Advance.
// Methods are safe for concurrent use; ticks are serialized.
type World struct {
	mu   sync.RWMutex
	log  *zap.Logger
	life Lifecycle

	ecs    *ecs.World
	bus    *event.Bus
	runner *system.Runner

	kinds   *ecs.Store[Kind]
	tiles   *ecs.Store[Tile]
	motions *ecs.Store[Motion]
	tints   *ecs.Store[Tint]
	lanes   *ecs.Store[LaneInfo]
	carried *ecs.Store[Carried]
	refs    *ecs.Store[AssetRef]

	assets      AssetSource
	opts        Options
	levelHandle asset.Handle
	level       *data.Level
	timing      Timing
	palette     []color.RGB
	models      map[Kind]asset.Handle
	script      *script.Engine
	scriptSrc   string

	skipAction    bool
	skipCollision bool

	clock Clock
	frame frame
	game  gameState
	stats Stats
}

// Initialize builds a world from loaded assets. It fails with an
// *InitializationError when the level, a required asset, or the level's
// script is not Loaded.
func Initialize(assets AssetSource, opts Options) (*World, error) {
	if opts.Level == "" {
		opts.Level = DefaultLevel
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ierr := &InitializationError{}
	resolve := func(name string) (any, asset.Handle, bool) {
		h, ok := assets.Lookup(name)
		if !ok {
			ierr.Missing = append(ierr.Missing, name)
			return nil, h, false
		}
		v, st, err := assets.Get(h)
		switch st {
		case asset.Loaded:
			return v, h, true
		case asset.Failed:
			ierr.Failed = append(ierr.Failed, name)
			if ierr.Cause == nil {
				ierr.Cause = err
			}
		default:
			ierr.Missing = append(ierr.Missing, name)
		}
		return nil, h, false
	}

	var lv *data.Level
	v, lh, ok := resolve(opts.Level)
	if ok {
		if lv, ok = v.(*data.Level); !ok {
			ierr.Failed = append(ierr.Failed, opts.Level)
			ierr.Cause = fmt.Errorf("asset %s holds %T, want a level", opts.Level, v)
		}
	}
	required := slices.Clone(opts.Required)
	if lv != nil {
		for _, m := range lv.Models {
			if !slices.Contains(required, m) {
				required = append(required, m)
			}
		}
	}
	for _, name := range required {
		resolve(name)
	}
	var src string
	if lv != nil && lv.Script != "" && opts.Scripts {
		if v, _, ok := resolve(lv.Script); ok {
			if src, ok = v.(string); !ok {
				ierr.Failed = append(ierr.Failed, lv.Script)
				ierr.Cause = fmt.Errorf("asset %s holds %T, want a script", lv.Script, v)
			}
		}
	}
	if !ierr.empty() {
		opts.Logger.Warn("world not initialized",
			zap.Strings("missing", ierr.Missing),
			zap.Strings("failed", ierr.Failed),
			zap.Error(ierr.Cause))
		return nil, ierr
	}

	w := newWorld(assets, opts)
	w.levelHandle = lh
	if src != "" {
		eng, err := script.New(lv.Script, src, w.log)
		if err != nil {
			return nil, &InitializationError{Failed: []string{lv.Script}, Cause: err}
		}
		w.script, w.scriptSrc = eng, src
	}
	for kind, name := range modelNames {
		if h, ok := assets.Lookup(name); ok {
			w.models[kind] = h
		}
	}
	w.startGame(lv)
	w.life = Ready
	w.log.Info("world initialized",
		zap.String("level", lv.Name),
		zap.Int("entities", w.ecs.Pool().Live()),
		zap.Int("lanes", len(lv.Lanes)),
		zap.Bool("script", w.script != nil))
	return w, nil
}

func newWorld(assets AssetSource, opts Options) *World {
	ew := ecs.NewWorld()
	w := &World{
		log:     opts.Logger,
		ecs:     ew,
		bus:     event.NewBus(),
		runner:  system.NewRunner(),
		kinds:   ecs.Register[Kind](ew),
		tiles:   ecs.Register[Tile](ew),
		motions: ecs.Register[Motion](ew),
		tints:   ecs.Register[Tint](ew),
		lanes:   ecs.Register[LaneInfo](ew),
		carried: ecs.Register[Carried](ew),
		refs:    ecs.Register[AssetRef](ew),
		assets:  assets,
		opts:    opts,
		models:  make(map[Kind]asset.Handle, len(modelNames)),
	}
	registerSystems(w)
	return w
}

// Advance runs one tick. dt is the time since the previous tick; a negative
// dt is treated as zero. The tick counter grows by one on every successful
// call, including paused and ended games.
func (w *World) Advance(dt time.Duration, src rng.Source, inputs []Input) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.life {
	case Uninitialized:
		return ErrNotReady
	case Terminated:
		return ErrTerminated
	}
	if src == nil {
		return ErrNoSource
	}
	if dt < 0 {
		w.log.Warn("negative delta clamped", zap.Duration("dt", dt), zap.Uint64("tick", w.clock.Tick+1))
		dt = 0
	}

	w.life = Advancing
	w.clock.Tick++
	w.clock.Elapsed += dt
	w.frame = frame{src: src, inputs: inputs}

	w.bus.SwapBuffers()
	w.bus.DispatchAll()
	w.runner.Tick(dt)

	w.frame = frame{}
	w.life = Ready
	return nil
}

// Shutdown moves the world to Terminated. It is idempotent.
func (w *World) Shutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.life == Terminated {
		return
	}
	w.life = Terminated
	if w.script != nil {
		w.script.Close()
		w.script = nil
	}
	w.bus.Reset()
	w.log.Info("world terminated", zap.Uint64("tick", w.clock.Tick))
}

// Subscribe registers fn for events of type T. Events emitted during tick N
// are delivered at the start of tick N+1, inside Advance. fn must not call
// back into the World.
func Subscribe[T any](w *World, fn func(T)) {
	event.Subscribe(w.bus, fn)
}

// Events returns the events delivered at the start of the last tick.
func (w *World) Events() []any {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.bus.Front()
}

// PendingEvents returns the events emitted by the last tick. Subscribers
// receive them at the start of the next Advance.
func (w *World) PendingEvents() []any {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.bus.Back()
}

func (w *World) Clock() Clock {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.clock
}

func (w *World) Lifecycle() Lifecycle {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.life
}

func (w *World) Outcome() Outcome {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.game.outcome
}

func (w *World) Phase() TurnPhase {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.game.phase
}

// Step returns the game turn counter of the current game.
func (w *World) Step() uint32 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.game.step
}

// Rescued returns how many birds the player carries.
func (w *World) Rescued() (rescued, left int) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.game.rescued, w.game.birdsLeft
}

// Board returns the board size of the running level.
func (w *World) Board() data.Board {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.level.Board
}

// LevelName returns the name of the running level.
func (w *World) LevelName() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.level.Name
}

// LevelAsset returns the asset name the level was loaded from.
func (w *World) LevelAsset() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.opts.Level
}

// Progress reports how far the current animation has run, in [0, 1].
func (w *World) Progress() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	d := w.phaseDuration()
	if d <= 0 {
		return 0
	}
	return math.Min(1, float64(w.game.phaseTime)/float64(d))
}

func (w *World) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// Debug returns the debug toggles.
func (w *World) Debug() (skipAction, skipCollision bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.skipAction, w.skipCollision
}

// Order lists the systems in tick order.
func (w *World) Order() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runner.Order()
}

// startGame builds a fresh board from lv.
func (w *World) startGame(lv *data.Level) {
	w.level = lv
	w.timing = timingOf(lv.Timing)
	w.palette = w.paletteOf(lv)
	w.game = gameState{phase: PlayerIdle, phaseAt: w.clock.Tick, spawnDue: true}
	w.stats.Games++

	w.game.player = w.spawn(KindPlayer, Tile{X: lv.Start.X, Y: GroundY, Z: lv.Start.Z})
	w.tints.Set(w.game.player, &Tint{Color: color.Player})
	for _, b := range lv.Birds {
		id := w.spawn(KindBird, Tile{X: b.X, Y: BirdY, Z: b.Z})
		w.tints.Set(id, &Tint{Color: color.Bird})
		w.game.birdsLeft++
	}
}

func (w *World) spawn(kind Kind, t Tile) ecs.EntityID {
	id := w.ecs.CreateEntity()
	k := kind
	w.kinds.Set(id, &k)
	w.tiles.Set(id, &t)
	w.motions.Set(id, &Motion{From: t, To: t})
	if h, ok := w.models[kind]; ok {
		w.refs.Set(id, &AssetRef{Model: h})
	}
	return id
}

// newGame rebuilds the board after an ended game. The level handle is
// resolved again so a hot-reloaded level takes effect here.
func (w *World) newGame() {
	lv := w.level
	if v, st, err := w.assets.Get(w.levelHandle); st == asset.Loaded {
		if fresh, ok := v.(*data.Level); ok && fresh != lv {
			w.log.Info("level reloaded", zap.String("level", fresh.Name))
			lv = fresh
		}
		if err != nil {
			w.log.Warn("level reload failed, keeping last good", zap.Error(err))
		}
	}
	w.reloadScript(lv)
	w.ecs.Reset()
	w.startGame(lv)
	event.Emit(w.bus, event.GameReset{Tick: w.clock.Tick, Game: w.stats.Games})
	w.log.Info("new game", zap.Int("game", w.stats.Games), zap.String("level", lv.Name))
}

func (w *World) reloadScript(lv *data.Level) {
	if !w.opts.Scripts || lv.Script == "" {
		return
	}
	h, ok := w.assets.Lookup(lv.Script)
	if !ok {
		return
	}
	v, st, _ := w.assets.Get(h)
	src, isStr := v.(string)
	if st != asset.Loaded || !isStr || src == w.scriptSrc {
		return
	}
	eng, err := script.New(lv.Script, src, w.log)
	if err != nil {
		w.log.Warn("script reload failed, keeping previous", zap.String("script", lv.Script), zap.Error(err))
		return
	}
	if w.script != nil {
		w.script.Close()
	}
	w.script, w.scriptSrc = eng, src
}

func (w *World) paletteOf(lv *data.Level) []color.RGB {
	hexes := lv.Palette
	if len(hexes) == 0 {
		hexes = color.DefaultPalette
	}
	pal, bad := color.ParsePalette(hexes)
	if len(bad) > 0 {
		w.log.Warn("bad palette entries replaced with black", zap.Strings("entries", bad))
	}
	return pal
}

func timingOf(t data.Timing) Timing {
	sec := func(s float64) time.Duration {
		return time.Duration(math.Round(s * float64(time.Second)))
	}
	return Timing{
		Move:     sec(t.Move),
		Jump:     sec(t.Jump),
		GameMove: sec(t.GameMove),
		Land:     sec(t.Land),
		GameOver: sec(t.GameOver),
		Win:      sec(t.Win),
	}
}

// setPhase enters p and restarts the phase timer.
func (w *World) setPhase(p TurnPhase) {
	from := w.game.phase
	w.game.phase = p
	w.game.phaseAt = w.clock.Tick
	w.game.phaseTime = 0
	if p == PlayerIdle {
		w.game.spawnDue = true
	}
	event.Emit(w.bus, event.PhaseChanged{Tick: w.clock.Tick, From: from.String(), To: p.String()})
	w.log.Debug("phase", zap.Uint64("tick", w.clock.Tick), zap.Stringer("from", from), zap.Stringer("to", p))
}

// elapse adds dt to the phase timer, except on the tick the phase was
// entered, and reports whether d has been reached.
func (w *World) elapse(dt, d time.Duration) bool {
	if w.game.phaseAt != w.clock.Tick {
		w.game.phaseTime += dt
	}
	return w.game.phaseTime >= d
}

func (w *World) phaseDuration() time.Duration {
	switch w.game.phase {
	case PlayerAction:
		if w.game.action.Kind == InputJump {
			return w.timing.Jump
		}
		return w.timing.Move
	case GameTurn:
		return w.timing.GameMove
	case PlayerLanding:
		return w.timing.Land
	}
	return 0
}

func (w *World) endGame(o Outcome, cause ecs.EntityID) {
	w.game.outcome = o
	w.game.outcomeAt = w.clock.Tick
	w.game.outcomeTime = 0
	switch o {
	case GameOver:
		event.Emit(w.bus, event.GameOver{Tick: w.clock.Tick, Player: w.game.player, Log: cause})
		w.log.Info("game over", zap.Uint64("tick", w.clock.Tick), zap.Uint32("step", w.game.step), zap.Int("rescued", w.game.rescued))
	case Won:
		event.Emit(w.bus, event.GameWon{Tick: w.clock.Tick, Rescued: w.game.rescued})
		w.log.Info("all birds rescued", zap.Uint64("tick", w.clock.Tick), zap.Uint32("step", w.game.step))
	}
}

func (w *World) dropInput(err *InputError) {
	w.stats.DroppedInputs++
	event.Emit(w.bus, event.InputDropped{Tick: w.clock.Tick, Reason: err.Reason})
	w.log.Warn("input dropped", zap.Uint64("tick", w.clock.Tick), zap.Error(err))
}

// guard runs one entity's update. An error or panic is logged as an
// *EntityUpdateError and the entity is left as it was for this tick.
func (w *World) guard(id ecs.EntityID, sys string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			w.entityFailed(id, sys, fmt.Errorf("panic: %v", r))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		w.entityFailed(id, sys, err)
		return false
	}
	return true
}

func (w *World) entityFailed(id ecs.EntityID, sys string, err error) {
	w.stats.EntityFailures++
	w.log.Warn("entity update skipped", zap.Error(&EntityUpdateError{
		Tick:   w.clock.Tick,
		Entity: id,
		System: sys,
		Err:    err,
	}))
}

var errMissingComponent = errors.New("missing component")
