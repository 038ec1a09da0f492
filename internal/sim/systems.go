package sim

import (
	"fmt"
	"time"

	"github.com/birdhop/game/internal/core/ecs"
	"github.com/birdhop/game/internal/core/event"
	"github.com/birdhop/game/internal/core/system"
	"github.com/birdhop/game/internal/data"
	"github.com/birdhop/game/internal/rng"
	"go.uber.org/zap"
)

// Tick order. Every Advance runs exactly these systems in this order:
//
//	input        validate inputs, pause and debug toggles, start actions
//	action       player action and landing timers, rescue on jump
//	environment  game turn timer, log roll, despawn, step counter
//	interaction  player and log collision
//	spawn        log spawn after entering PlayerIdle
//	outcome      win check, end-of-game timers, new game
//	cleanup      flush deferred destruction
//
// Randomness is drawn only by spawn, lane by lane in level order.
func registerSystems(w *World) {
	w.runner.Register(&inputSystem{w})
	w.runner.Register(&actionSystem{w})
	w.runner.Register(&environmentSystem{w})
	w.runner.Register(&collisionSystem{w})
	w.runner.Register(&spawnSystem{w})
	w.runner.Register(&outcomeSystem{w})
	w.runner.Register(&cleanupSystem{w})
}

// RollDistance is how far logs roll toward -z per game turn.
const RollDistance = 2

type inputSystem struct{ w *World }

func (s *inputSystem) Phase() system.Phase { return system.PhaseInput }
func (s *inputSystem) Name() string        { return "input" }

func (s *inputSystem) Update(time.Duration) {
	w := s.w
	started := false
	for _, in := range w.frame.inputs {
		if err := in.validate(); err != nil {
			w.dropInput(err.(*InputError))
			continue
		}
		switch in.Kind {
		case InputToggleSkipAction:
			w.skipAction = !w.skipAction
			w.log.Info("debug skip action", zap.Bool("on", w.skipAction))
			continue
		case InputToggleSkipCollision:
			w.skipCollision = !w.skipCollision
			w.log.Info("debug skip collision", zap.Bool("on", w.skipCollision))
			continue
		}
		if w.game.outcome != Playing {
			continue
		}
		if in.Kind == InputPause {
			w.togglePause()
			continue
		}
		// An action is accepted once per tick, only while idle with the
		// step's logs already placed.
		if started || w.game.phase != PlayerIdle || w.game.spawnDue {
			continue
		}
		if err := w.startAction(in); err != nil {
			w.dropInput(err)
			continue
		}
		started = true
	}
	if !started && w.skipAction && w.game.outcome == Playing &&
		w.game.phase == PlayerIdle && !w.game.spawnDue && w.game.phaseAt != w.clock.Tick {
		w.beginTurn()
	}
}

func (w *World) togglePause() {
	if w.game.phase == Paused {
		resume := w.game.prevPhase
		if resume == PhaseNone {
			resume = PlayerIdle
		}
		w.game.phase = resume
		w.game.prevPhase = PhaseNone
		w.game.phaseAt = w.clock.Tick
		event.Emit(w.bus, event.PhaseChanged{Tick: w.clock.Tick, From: Paused.String(), To: resume.String()})
		return
	}
	w.game.prevPhase = w.game.phase
	w.game.phase = Paused
	event.Emit(w.bus, event.PhaseChanged{Tick: w.clock.Tick, From: w.game.prevPhase.String(), To: Paused.String()})
}

func (w *World) startAction(in Input) *InputError {
	id := w.game.player
	t, ok := w.tiles.Get(id)
	if !ok {
		return &InputError{Input: in, Reason: "no player on the board"}
	}
	to := *t
	switch in.Kind {
	case InputMove:
		dx, dz := in.Dir.Delta()
		to.X += dx
		to.Z += dz
		if !w.level.InBoard(data.Point{X: to.X, Z: to.Z}) {
			return &InputError{Input: in, Reason: "move leaves the board"}
		}
	case InputJump:
		to.Y = AirborneY
	}
	w.motions.Set(id, &Motion{From: *t, To: to})
	w.game.action = in
	w.setPhase(PlayerAction)
	return nil
}

type actionSystem struct{ w *World }

func (s *actionSystem) Phase() system.Phase { return system.PhaseAction }
func (s *actionSystem) Name() string        { return "action" }

func (s *actionSystem) Update(dt time.Duration) {
	w := s.w
	if w.game.outcome != Playing {
		return
	}
	switch w.game.phase {
	case PlayerAction:
		if !w.elapse(dt, w.phaseDuration()) {
			return
		}
		w.guard(w.game.player, "action", w.commitPlayer)
		if w.game.action.Kind == InputJump {
			w.rescue()
		}
		w.beginTurn()
	case PlayerLanding:
		if !w.elapse(dt, w.timing.Land) {
			return
		}
		w.guard(w.game.player, "landing", w.commitPlayer)
		w.setPhase(PlayerIdle)
	}
}

func (w *World) commitPlayer() error {
	t, ok := w.tiles.Get(w.game.player)
	m, ok2 := w.motions.Get(w.game.player)
	if !ok || !ok2 {
		return errMissingComponent
	}
	*t = m.To
	*m = Motion{From: m.To, To: m.To}
	return nil
}

// rescue picks up the bird above the player, if any.
func (w *World) rescue() {
	pt, ok := w.tiles.Get(w.game.player)
	if !ok {
		return
	}
	var found ecs.EntityID
	ecs.Each2(w.kinds, w.tiles, func(id ecs.EntityID, k *Kind, t *Tile) {
		if found.IsZero() && *k == KindBird && t.X == pt.X && t.Z == pt.Z {
			found = id
		}
	})
	if found.IsZero() {
		return
	}
	w.guard(found, "rescue", func() error {
		t, _ := w.tiles.Get(found)
		x, z := t.X, t.Z
		w.tiles.Remove(found)
		w.motions.Remove(found)
		w.carried.Set(found, &Carried{Order: w.game.rescued})
		w.game.rescued++
		w.game.birdsLeft--
		event.Emit(w.bus, event.BirdRescued{
			Tick:      w.clock.Tick,
			Bird:      found,
			X:         x,
			Z:         z,
			Remaining: w.game.birdsLeft,
			Rescued:   w.game.rescued,
		})
		w.log.Info("bird rescued", zap.Int("rescued", w.game.rescued), zap.Int("left", w.game.birdsLeft))
		return nil
	})
}

// beginTurn sets every log rolling and enters GameTurn.
func (w *World) beginTurn() {
	for _, id := range w.lanes.IDs() {
		w.guard(id, "environment", func() error {
			t, ok := w.tiles.Get(id)
			if !ok {
				return errMissingComponent
			}
			to := *t
			to.Z -= RollDistance
			w.motions.Set(id, &Motion{From: *t, To: to})
			return nil
		})
	}
	w.setPhase(GameTurn)
}

type environmentSystem struct{ w *World }

func (s *environmentSystem) Phase() system.Phase { return system.PhaseEnvironment }
func (s *environmentSystem) Name() string        { return "environment" }

func (s *environmentSystem) Update(dt time.Duration) {
	w := s.w
	if w.game.outcome != Playing || w.game.phase != GameTurn {
		return
	}
	if !w.elapse(dt, w.timing.GameMove) {
		return
	}
	for _, id := range w.lanes.IDs() {
		w.guard(id, "environment", func() error {
			t, ok := w.tiles.Get(id)
			m, ok2 := w.motions.Get(id)
			if !ok || !ok2 {
				return errMissingComponent
			}
			*t = m.To
			if t.Z < 0 {
				w.ecs.MarkForDestruction(id)
				w.stats.Despawned++
				event.Emit(w.bus, event.LogDespawned{Tick: w.clock.Tick, Log: id})
			}
			return nil
		})
	}
	w.game.sweptAt = w.clock.Tick
	w.game.step++

	pt, ok := w.tiles.Get(w.game.player)
	if ok && pt.Y > GroundY {
		landed := *pt
		landed.Y = GroundY
		w.motions.Set(w.game.player, &Motion{From: *pt, To: landed})
		w.setPhase(PlayerLanding)
		return
	}
	w.setPhase(PlayerIdle)
}

type collisionSystem struct{ w *World }

func (s *collisionSystem) Phase() system.Phase { return system.PhaseInteraction }
func (s *collisionSystem) Name() string        { return "collision" }

// Update ends the game when a grounded player shares a tile with a log. On
// the tick a roll completes each log covers every row it passed through.
func (s *collisionSystem) Update(time.Duration) {
	w := s.w
	if w.game.outcome != Playing || w.game.phase == Paused || w.skipCollision {
		return
	}
	pt, ok := w.tiles.Get(w.game.player)
	if !ok || pt.Y != GroundY {
		return
	}
	swept := w.game.sweptAt == w.clock.Tick
	var hit ecs.EntityID
	ecs.Each3(w.lanes, w.tiles, w.motions, func(id ecs.EntityID, l *LaneInfo, t *Tile, m *Motion) {
		if !hit.IsZero() {
			return
		}
		lo, hi := l.Span(t.X)
		if pt.X < lo || pt.X > hi {
			return
		}
		zlo, zhi := t.Z, t.Z
		if swept {
			zlo, zhi = min(m.From.Z, m.To.Z), max(m.From.Z, m.To.Z)
		}
		if pt.Z >= zlo && pt.Z <= zhi {
			hit = id
		}
	})
	if !hit.IsZero() {
		w.endGame(GameOver, hit)
	}
}

type spawnSystem struct{ w *World }

func (s *spawnSystem) Phase() system.Phase { return system.PhaseSpawn }
func (s *spawnSystem) Name() string        { return "spawn" }

func (s *spawnSystem) Update(time.Duration) {
	w := s.w
	if !w.game.spawnDue || w.game.outcome != Playing {
		return
	}
	w.game.spawnDue = false
	for i := range w.level.Lanes {
		w.spawnLane(i, &w.level.Lanes[i])
	}
}

// spawnLane places the lane's log for the current step. Draws, in order:
// one skip draw when 0 < skip_chance < 1, then one tint draw when the lane
// uses random tints.
func (w *World) spawnLane(i int, lane *data.Lane) {
	step := w.game.step
	slot := data.SlotIndex(step)
	scheduled := lane.Scheduled(step)
	if w.script != nil {
		v, err := w.script.ShouldSpawn(step, i, scheduled)
		if err != nil {
			w.entityFailed(0, "spawn", fmt.Errorf("lane %d: %w", i, err))
		}
		scheduled = v
	}
	if !scheduled {
		return
	}
	if lane.SkipChance > 0 && rng.Chance(w.frame.src, lane.SkipChance) {
		w.log.Debug("log skipped", zap.Int("lane", i), zap.Uint32("step", step))
		return
	}
	length := lane.Length
	if w.script != nil {
		n, err := w.script.LogLength(step, i, length)
		if err != nil {
			w.entityFailed(0, "spawn", fmt.Errorf("lane %d: %w", i, err))
		}
		length = n
	}
	tint := w.palette[slot%len(w.palette)]
	if lane.RandomTint {
		tint, _ = rng.Choose(w.frame.src, w.palette)
	}

	tile := Tile{X: lane.SpawnX(slot), Y: GroundY, Z: lane.SpawnZ(slot, w.level.Board.Height)}
	id := w.spawn(KindLog, tile)
	w.tints.Set(id, &Tint{Color: tint})
	w.lanes.Set(id, &LaneInfo{Lane: i, Slot: slot, Length: length})
	w.stats.Spawned++
	event.Emit(w.bus, event.LogSpawned{Tick: w.clock.Tick, Log: id, Lane: i, X: tile.X, Z: tile.Z})
}

type outcomeSystem struct{ w *World }

func (s *outcomeSystem) Phase() system.Phase { return system.PhaseOutcome }
func (s *outcomeSystem) Name() string        { return "outcome" }

func (s *outcomeSystem) Update(dt time.Duration) {
	w := s.w
	if w.game.outcome == Playing {
		if w.game.rescued > 0 && w.game.birdsLeft == 0 {
			w.endGame(Won, 0)
		}
		return
	}
	if w.game.outcomeAt != w.clock.Tick {
		w.game.outcomeTime += dt
	}
	limit := w.timing.GameOver
	if w.game.outcome == Won {
		limit = w.timing.Win
	}
	if w.game.outcomeTime >= limit {
		w.newGame()
	}
}

type cleanupSystem struct{ w *World }

func (s *cleanupSystem) Phase() system.Phase { return system.PhaseCleanup }
func (s *cleanupSystem) Name() string        { return "cleanup" }

func (s *cleanupSystem) Update(time.Duration) {
	if n := s.w.ecs.FlushDestroyQueue(); n > 0 {
		s.w.log.Debug("entities destroyed", zap.Int("count", n), zap.Uint64("tick", s.w.clock.Tick))
	}
}
