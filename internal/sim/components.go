package sim

import (
	"github.com/birdhop/game/internal/asset"
	"github.com/birdhop/game/internal/color"
)

// Kind tags what an entity is.
type Kind uint8

const (
	KindPlayer Kind = iota + 1
	KindLog
	KindBird
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindLog:
		return "log"
	case KindBird:
		return "bird"
	}
	return "unknown"
}

// Heights on the Y axis.
const (
	GroundY   = 0
	AirborneY = 1
	BirdY     = 2
)

// Tile is an integer board position. X runs east, Z runs north.
type Tile struct {
	X, Y, Z int
}

// Motion is the segment an entity is animating along. Presentation
// interpolates From to To with World.Progress.
type Motion struct {
	From, To Tile
}

// Tint is a visual tag. No rule reads it.
type Tint struct {
	Color color.RGB
}

// LaneInfo ties a log to the lane and sequence slot that spawned it.
type LaneInfo struct {
	Lane   int
	Slot   int
	Length int
}

// Span returns the inclusive x range covered by a log anchored at x.
func (l LaneInfo) Span(x int) (lo, hi int) {
	lo = x - l.Length/2
	return lo, lo + l.Length - 1
}

// Carried marks a rescued bird riding on the player.
type Carried struct {
	Order int
}

// AssetRef is a weak reference to the model an entity is drawn with.
type AssetRef struct {
	Model asset.Handle
}
