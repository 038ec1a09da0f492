// Package tui draws a World in a terminal with tcell and feeds it keyboard
// input.
package tui

import (
	"unicode"

	"github.com/birdhop/game/internal/sim"
	"github.com/gdamore/tcell/v2"
)

// Command is what a key press asks the game loop to do.
type Command uint8

const (
	CmdNone Command = iota
	CmdInput
	CmdQuit
)

// MapKey translates a key press. The board is drawn with x growing to the
// left, so A and Left step east and D and Right step west.
func MapKey(ev *tcell.EventKey) (sim.Input, Command) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return sim.Input{}, CmdQuit
	case tcell.KeyUp:
		return sim.Move(sim.DirNorth), CmdInput
	case tcell.KeyDown:
		return sim.Move(sim.DirSouth), CmdInput
	case tcell.KeyLeft:
		return sim.Move(sim.DirEast), CmdInput
	case tcell.KeyRight:
		return sim.Move(sim.DirWest), CmdInput
	case tcell.KeyRune:
	default:
		return sim.Input{}, CmdNone
	}

	switch unicode.ToLower(ev.Rune()) {
	case 'q':
		return sim.Input{}, CmdQuit
	case 'w':
		return sim.Move(sim.DirNorth), CmdInput
	case 's':
		return sim.Move(sim.DirSouth), CmdInput
	case 'a':
		return sim.Move(sim.DirEast), CmdInput
	case 'd':
		return sim.Move(sim.DirWest), CmdInput
	case 'j':
		return sim.Jump(), CmdInput
	case ' ':
		return sim.Pause(), CmdInput
	case 'z':
		return sim.Input{Kind: sim.InputToggleSkipAction}, CmdInput
	case 'x':
		return sim.Input{Kind: sim.InputToggleSkipCollision}, CmdInput
	}
	return sim.Input{}, CmdNone
}
