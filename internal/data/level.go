package data

import (
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// SequenceLength is the fixed cycle length of every lane's spawn tables.
const SequenceLength = 8

// Default board and timing values.
const (
	DefaultBoardSize = 12
	DefaultLogLength = 4
)

// Board is the playfield size in tiles (x by z).
type Board struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Point is a tile coordinate on the ground plane.
type Point struct {
	X int `yaml:"x"`
	Z int `yaml:"z"`
}

// Lane describes one log spawner. Every table is indexed by step mod 8.
type Lane struct {
	Name       string `yaml:"name"`
	NthStep    []int  `yaml:"nth_step"`
	StepLength int    `yaml:"step_length"`
	OffsetX    []int  `yaml:"offset_x"`
	OffsetZ    []int  `yaml:"offset_z"`
	BaseX      int    `yaml:"base_x"`
	Length     int    `yaml:"length"`
	// SkipChance is the probability a scheduled spawn is skipped.
	SkipChance float64 `yaml:"skip_chance"`
	// RandomTint picks the log tint from the palette instead of by slot.
	RandomTint bool `yaml:"random_tint"`
}

// Timing holds animation durations in seconds.
type Timing struct {
	Move     float64 `yaml:"move"`
	Jump     float64 `yaml:"jump"`
	GameMove float64 `yaml:"game_move"`
	Land     float64 `yaml:"land"`
	GameOver float64 `yaml:"game_over"`
	Win      float64 `yaml:"win"`
}

// DefaultTiming returns the stock animation durations.
func DefaultTiming() Timing {
	return Timing{
		Move:     0.44,
		Jump:     0.39,
		GameMove: 0.47,
		Land:     0.42,
		GameOver: 1.6,
		Win:      2.6,
	}
}

// Level is the declarative description of one board.
type Level struct {
	Name    string   `yaml:"name"`
	Board   Board    `yaml:"board"`
	Start   Point    `yaml:"start"`
	Lanes   []Lane   `yaml:"lanes"`
	Birds   []Point  `yaml:"birds"`
	Palette []string `yaml:"palette"`
	Script  string   `yaml:"script"`
	Models  []string `yaml:"models"`
	Timing  Timing   `yaml:"timing"`
}

type levelFile struct {
	Level Level `yaml:"level"`
}

// ParseLevel decodes a level record and fills defaults for omitted fields.
func ParseLevel(raw []byte) (*Level, error) {
	var f levelFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse level: %w", err)
	}
	lv := &f.Level
	lv.applyDefaults()
	if err := lv.Validate(); err != nil {
		return nil, err
	}
	return lv, nil
}

// MarshalLevel encodes lv in the same layout ParseLevel reads.
func MarshalLevel(lv *Level) ([]byte, error) {
	return yaml.Marshal(levelFile{Level: *lv})
}

func (lv *Level) applyDefaults() {
	if lv.Board.Width == 0 {
		lv.Board.Width = DefaultBoardSize
	}
	if lv.Board.Height == 0 {
		lv.Board.Height = DefaultBoardSize
	}
	def := DefaultTiming()
	fill := func(v *float64, d float64) {
		if *v <= 0 {
			*v = d
		}
	}
	fill(&lv.Timing.Move, def.Move)
	fill(&lv.Timing.Jump, def.Jump)
	fill(&lv.Timing.GameMove, def.GameMove)
	fill(&lv.Timing.Land, def.Land)
	fill(&lv.Timing.GameOver, def.GameOver)
	fill(&lv.Timing.Win, def.Win)
	for i := range lv.Lanes {
		l := &lv.Lanes[i]
		if l.Length <= 0 {
			l.Length = DefaultLogLength
		}
		if l.OffsetX == nil {
			l.OffsetX = make([]int, SequenceLength)
		}
		if l.OffsetZ == nil {
			l.OffsetZ = make([]int, SequenceLength)
		}
	}
}

// InBoard reports whether p lies on the board.
func (lv *Level) InBoard(p Point) bool {
	return p.X >= 0 && p.X < lv.Board.Width && p.Z >= 0 && p.Z < lv.Board.Height
}

// Validate rejects levels the simulation cannot run.
func (lv *Level) Validate() error {
	var errs []error
	if lv.Board.Width <= 0 || lv.Board.Height <= 0 {
		errs = append(errs, fmt.Errorf("board %dx%d must be positive", lv.Board.Width, lv.Board.Height))
	}
	if !lv.InBoard(lv.Start) {
		errs = append(errs, fmt.Errorf("start %v is off the board", lv.Start))
	}
	seen := make(map[Point]bool, len(lv.Birds))
	for _, b := range lv.Birds {
		if !lv.InBoard(b) {
			errs = append(errs, fmt.Errorf("bird %v is off the board", b))
		}
		if seen[b] {
			errs = append(errs, fmt.Errorf("duplicate bird at %v", b))
		}
		seen[b] = true
	}
	for i, l := range lv.Lanes {
		if len(l.NthStep) != SequenceLength {
			errs = append(errs, fmt.Errorf("lane %d: nth_step has %d entries, want %d", i, len(l.NthStep), SequenceLength))
		}
		if len(l.OffsetX) != SequenceLength {
			errs = append(errs, fmt.Errorf("lane %d: offset_x has %d entries, want %d", i, len(l.OffsetX), SequenceLength))
		}
		if len(l.OffsetZ) != SequenceLength {
			errs = append(errs, fmt.Errorf("lane %d: offset_z has %d entries, want %d", i, len(l.OffsetZ), SequenceLength))
		}
		if math.IsNaN(l.SkipChance) || l.SkipChance < 0 || l.SkipChance > 1 {
			errs = append(errs, fmt.Errorf("lane %d: skip_chance %v outside [0,1]", i, l.SkipChance))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid level %q: %w", lv.Name, errors.Join(errs...))
	}
	return nil
}

// SlotIndex returns the sequence slot for step.
func SlotIndex(step uint32) int {
	return int(step % SequenceLength)
}

// Scheduled reports whether the lane spawns a log at step.
func (l *Lane) Scheduled(step uint32) bool {
	return l.NthStep[SlotIndex(step)] > 0
}

// SpawnX returns the anchor column for the given slot.
func (l *Lane) SpawnX(slot int) int {
	return l.BaseX + l.OffsetX[slot]
}

// SpawnZ returns the spawn row for the given slot on a board of height h.
func (l *Lane) SpawnZ(slot int, h int) int {
	return h - l.OffsetZ[slot]
}
