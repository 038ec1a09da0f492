package sim

import "time"

// Lifecycle is the world's coarse state.
type Lifecycle uint8

const (
	Uninitialized Lifecycle = iota
	Ready
	Advancing
	Terminated
)

func (l Lifecycle) String() string {
	switch l {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Advancing:
		return "advancing"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// Outcome is the result state of the current game.
type Outcome uint8

const (
	Playing Outcome = iota
	GameOver
	Won
)

func (o Outcome) String() string {
	switch o {
	case Playing:
		return "playing"
	case GameOver:
		return "game_over"
	case Won:
		return "won"
	}
	return "unknown"
}

// TurnPhase is the turn-level state while Playing.
type TurnPhase uint8

const (
	PhaseNone TurnPhase = iota
	PlayerIdle
	PlayerAction
	GameTurn
	PlayerLanding
	Paused
)

var turnNames = [...]string{"none", "player_idle", "player_action", "game_turn", "player_landing", "paused"}

func (p TurnPhase) String() string {
	if int(p) < len(turnNames) {
		return turnNames[p]
	}
	return "unknown"
}

// Clock is the simulation clock. Only Advance writes it.
type Clock struct {
	Tick    uint64
	Elapsed time.Duration
}

// Timing is a level's animation durations.
type Timing struct {
	Move     time.Duration
	Jump     time.Duration
	GameMove time.Duration
	Land     time.Duration
	GameOver time.Duration
	Win      time.Duration
}
