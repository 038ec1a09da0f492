package event

import "github.com/birdhop/game/internal/core/ecs"

// Game event types. Values are plain data so subscribers can keep them.

type BirdRescued struct {
	Tick      uint64
	Bird      ecs.EntityID
	X, Z      int
	Remaining int
	Rescued   int
}

type GameOver struct {
	Tick   uint64
	Player ecs.EntityID
	Log    ecs.EntityID
}

type GameWon struct {
	Tick    uint64
	Rescued int
}

type GameReset struct {
	Tick uint64
	Game int
}

type PhaseChanged struct {
	Tick     uint64
	From, To string
}

type LogSpawned struct {
	Tick uint64
	Log  ecs.EntityID
	Lane int
	X, Z int
}

type LogDespawned struct {
	Tick uint64
	Log  ecs.EntityID
}

type InputDropped struct {
	Tick   uint64
	Reason string
}
