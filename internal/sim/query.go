package sim

import (
	"encoding/binary"
	"iter"
	"math"
	"time"

	"github.com/birdhop/game/internal/asset"
	"github.com/birdhop/game/internal/color"
	"github.com/birdhop/game/internal/core/ecs"
	"golang.org/x/crypto/blake2b"
)

// Entity is a read-only view of one game entity.
type Entity struct {
	ID      ecs.EntityID
	Kind    Kind
	Tile    Tile
	OnBoard bool // false for carried birds
	Motion  Motion
	Tint    color.RGB
	Lane    LaneInfo
	Carried int // stack position, -1 when not carried
	Model   asset.Handle
}

// OfKind matches entities of kind k.
func OfKind(k Kind) func(Entity) bool {
	return func(e Entity) bool { return e.Kind == k }
}

// At matches entities on tile (x, z) at any height.
func At(x, z int) func(Entity) bool {
	return func(e Entity) bool { return e.OnBoard && e.Tile.X == x && e.Tile.Z == z }
}

// Query returns the entities matching pred (nil matches all) in creation
// order. Each iteration takes a fresh snapshot, so the sequence can be
// restarted and never observes a half-finished tick.
func (w *World) Query(pred func(Entity) bool) iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for _, e := range w.views() {
			if pred != nil && !pred(e) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Count returns the number of entities matching pred.
func (w *World) Count(pred func(Entity) bool) int {
	n := 0
	for range w.Query(pred) {
		n++
	}
	return n
}

func (w *World) views() []Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.viewsLocked()
}

func (w *World) viewsLocked() []Entity {
	out := make([]Entity, 0, w.kinds.Len())
	w.kinds.Each(func(id ecs.EntityID, k *Kind) {
		e := Entity{ID: id, Kind: *k, Carried: -1}
		if t, ok := w.tiles.Get(id); ok {
			e.Tile, e.OnBoard = *t, true
		}
		if m, ok := w.motions.Get(id); ok {
			e.Motion = *m
		}
		if c, ok := w.tints.Get(id); ok {
			e.Tint = c.Color
		}
		if l, ok := w.lanes.Get(id); ok {
			e.Lane = *l
		}
		if c, ok := w.carried.Get(id); ok {
			e.Carried = c.Order
		}
		if r, ok := w.refs.Get(id); ok {
			e.Model = r.Model
		}
		out = append(out, e)
	})
	return out
}

// Snapshot is a copy of all observable world state.
type Snapshot struct {
	Clock         Clock
	Lifecycle     Lifecycle
	Outcome       Outcome
	Phase         TurnPhase
	PhaseTime     time.Duration
	OutcomeTime   time.Duration
	Step          uint32
	Game          int
	Rescued       int
	BirdsLeft     int
	SkipAction    bool
	SkipCollision bool
	Entities      []Entity
}

func (w *World) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Snapshot{
		Clock:         w.clock,
		Lifecycle:     w.life,
		Outcome:       w.game.outcome,
		Phase:         w.game.phase,
		PhaseTime:     w.game.phaseTime,
		OutcomeTime:   w.game.outcomeTime,
		Step:          w.game.step,
		Game:          w.stats.Games,
		Rescued:       w.game.rescued,
		BirdsLeft:     w.game.birdsLeft,
		SkipAction:    w.skipAction,
		SkipCollision: w.skipCollision,
		Entities:      w.viewsLocked(),
	}
}

// Digest is the blake2b-256 hash of the world's canonical encoding.
func (w *World) Digest() [32]byte {
	return w.Snapshot().Digest()
}

// Digest hashes the snapshot. Asset handles are left out since they depend
// on registry request order, not on simulation state.
func (s Snapshot) Digest() [32]byte {
	return blake2b.Sum256(s.encode())
}

func (s Snapshot) encode() []byte {
	b := make([]byte, 0, 64+len(s.Entities)*96)
	u64 := func(v uint64) { b = binary.BigEndian.AppendUint64(b, v) }
	i64 := func(v int) { u64(uint64(int64(v))) }
	f64 := func(v float64) { u64(math.Float64bits(v)) }
	flag := func(v bool) {
		if v {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
	}
	tile := func(t Tile) {
		i64(t.X)
		i64(t.Y)
		i64(t.Z)
	}

	u64(s.Clock.Tick)
	i64(int(s.Clock.Elapsed))
	b = append(b, byte(s.Lifecycle), byte(s.Outcome), byte(s.Phase))
	i64(int(s.PhaseTime))
	i64(int(s.OutcomeTime))
	u64(uint64(s.Step))
	i64(s.Game)
	i64(s.Rescued)
	i64(s.BirdsLeft)
	flag(s.SkipAction)
	flag(s.SkipCollision)
	u64(uint64(len(s.Entities)))
	for _, e := range s.Entities {
		u64(uint64(e.ID))
		b = append(b, byte(e.Kind))
		flag(e.OnBoard)
		tile(e.Tile)
		tile(e.Motion.From)
		tile(e.Motion.To)
		f64(e.Tint.R)
		f64(e.Tint.G)
		f64(e.Tint.B)
		i64(e.Lane.Lane)
		i64(e.Lane.Slot)
		i64(e.Lane.Length)
		i64(e.Carried)
	}
	return b
}
