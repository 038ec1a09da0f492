package sim

import (
	"fmt"
	"strconv"
	"strings"
)

// InputKind enumerates player intents.
type InputKind uint8

const (
	InputNone InputKind = iota
	InputMove
	InputJump
	InputPause
	InputToggleSkipAction
	InputToggleSkipCollision
	inputKindCount
)

var inputNames = [...]string{"none", "move", "jump", "pause", "skip_action", "skip_collision"}

func (k InputKind) String() string {
	if int(k) < len(inputNames) {
		return inputNames[k]
	}
	return fmt.Sprintf("input(%d)", uint8(k))
}

// Direction is a move direction on the board. North is +z and east is +x.
type Direction uint8

const (
	DirNone Direction = iota
	DirNorth
	DirSouth
	DirEast
	DirWest
	dirCount
)

var dirNames = [...]string{"none", "north", "south", "east", "west"}

func (d Direction) String() string {
	if int(d) < len(dirNames) {
		return dirNames[d]
	}
	return fmt.Sprintf("dir(%d)", uint8(d))
}

// Delta returns the tile offset for d.
func (d Direction) Delta() (dx, dz int) {
	switch d {
	case DirNorth:
		return 0, 1
	case DirSouth:
		return 0, -1
	case DirEast:
		return 1, 0
	case DirWest:
		return -1, 0
	}
	return 0, 0
}

// Input is one input event collected by a front end for a tick.
type Input struct {
	Kind InputKind `yaml:"kind"`
	Dir  Direction `yaml:"dir,omitempty"`
}

func Move(d Direction) Input { return Input{Kind: InputMove, Dir: d} }
func Jump() Input            { return Input{Kind: InputJump} }
func Pause() Input           { return Input{Kind: InputPause} }

func (in Input) String() string {
	if in.Kind == InputMove {
		return "move " + in.Dir.String()
	}
	return in.Kind.String()
}

// validate checks the event shape. Board bounds are checked when the input
// is applied.
func (in Input) validate() error {
	switch {
	case in.Kind == InputNone || in.Kind >= inputKindCount:
		return &InputError{Input: in, Reason: "unknown kind"}
	case in.Kind == InputMove && (in.Dir == DirNone || in.Dir >= dirCount):
		return &InputError{Input: in, Reason: "move without a valid direction"}
	case in.Kind != InputMove && in.Dir != DirNone:
		return &InputError{Input: in, Reason: "direction on a non-move input"}
	}
	return nil
}

// MarshalText writes the kind's name. Values without a name are written as
// input(N) so recordings keep malformed inputs as they arrived.
func (k InputKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *InputKind) UnmarshalText(b []byte) error {
	for i, n := range inputNames {
		if n == string(b) {
			*k = InputKind(i)
			return nil
		}
	}
	v, err := parseRaw(string(b), "input")
	if err != nil {
		return fmt.Errorf("unknown input kind %q", b)
	}
	*k = InputKind(v)
	return nil
}

// MarshalText writes the direction's name, or dir(N) for unnamed values.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	for i, n := range dirNames {
		if n == string(b) {
			*d = Direction(i)
			return nil
		}
	}
	v, err := parseRaw(string(b), "dir")
	if err != nil {
		return fmt.Errorf("unknown direction %q", b)
	}
	*d = Direction(v)
	return nil
}

// parseRaw reads the prefix(N) form written for unnamed values.
func parseRaw(s, prefix string) (uint8, error) {
	inner, ok := strings.CutPrefix(s, prefix+"(")
	if ok {
		inner, ok = strings.CutSuffix(inner, ")")
	}
	if !ok {
		return 0, fmt.Errorf("not %s(N): %q", prefix, s)
	}
	v, err := strconv.ParseUint(inner, 10, 8)
	return uint8(v), err
}
