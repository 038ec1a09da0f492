package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput       Phase = iota // 0: swap event buffers, resolve input
	PhaseAction                   // 1: player action timers
	PhaseEnvironment              // 2: log roll, turn counter
	PhaseInteraction              // 3: collision, rescue
	PhaseSpawn                    // 4: per-step log spawn
	PhaseOutcome                  // 5: game over / win timers, reset
	PhaseCleanup                  // 6: destroy queued entities
)

var phaseNames = [...]string{"input", "action", "environment", "interaction", "spawn", "outcome", "cleanup"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Named is optionally implemented by systems for logging.
type Named interface {
	Name() string
}
