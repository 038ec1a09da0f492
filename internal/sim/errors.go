package sim

import (
	"errors"
	"fmt"
	"strings"

	"github.com/birdhop/game/internal/core/ecs"
)

var (
	// ErrInitialization is matched by every *InitializationError.
	ErrInitialization = errors.New("sim: initialization failed")
	ErrNotReady       = errors.New("sim: world not initialized")
	ErrTerminated     = errors.New("sim: world terminated")
	ErrNoSource       = errors.New("sim: nil randomness source")
)

// InitializationError reports required assets that were not Loaded when the
// world was built. It is the only error that stops a game from starting.
type InitializationError struct {
	Missing []string // never requested, or still pending
	Failed  []string // load failed
	Cause   error
}

func (e *InitializationError) Error() string {
	var b strings.Builder
	b.WriteString("initialize world:")
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, " missing %s;", strings.Join(e.Missing, ", "))
	}
	if len(e.Failed) > 0 {
		fmt.Fprintf(&b, " failed %s;", strings.Join(e.Failed, ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, " %v", e.Cause)
	}
	return strings.TrimSuffix(b.String(), ";")
}

func (e *InitializationError) Unwrap() error { return e.Cause }

func (e *InitializationError) Is(target error) bool { return target == ErrInitialization }

func (e *InitializationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Failed) == 0 && e.Cause == nil
}

// InputError describes an input event that was dropped.
type InputError struct {
	Input  Input
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("drop input %v: %s", e.Input, e.Reason)
}

// EntityUpdateError records one entity whose update was skipped for a tick.
type EntityUpdateError struct {
	Tick   uint64
	Entity ecs.EntityID
	System string
	Err    error
}

func (e *EntityUpdateError) Error() string {
	return fmt.Sprintf("tick %d: %s: entity %s: %v", e.Tick, e.System, e.Entity, e.Err)
}

func (e *EntityUpdateError) Unwrap() error { return e.Err }
