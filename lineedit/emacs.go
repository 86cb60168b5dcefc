package lineedit

import "scribe/term"

// EmacsScheme implements emacs-style keybindings.
// All printable characters go to the editor and Enter starts a new line.
type EmacsScheme struct{}

// NewEmacsScheme creates a new emacs keybinding scheme.
func NewEmacsScheme() *EmacsScheme {
	return &EmacsScheme{}
}

// Name returns the scheme name.
func (s *EmacsScheme) Name() string {
	return "emacs"
}

var (
	moved   = Event{Consumed: true}
	changed = Event{Consumed: true, TextChanged: true}
)

// edit runs a mutating action, recording an undo step only when the text
// actually changed.
func edit(e *Editor, fn func()) Event {
	before := e.snapshot()
	fn()
	if string(before.text) == e.Text() {
		return moved
	}
	e.pushState(before)
	return changed
}

// HandleKey processes a key press using emacs keybindings.
func (s *EmacsScheme) HandleKey(e *Editor, k term.Key) Event {
	ev := k.Event

	if ev.Alt {
		switch {
		case k.Special == term.Backspace:
			return edit(e, e.DeleteWordBackward)
		case k.Special == term.Left || ev.Key == "b" || ev.Key == "B":
			e.WordLeft()
			return moved
		case k.Special == term.Right || ev.Key == "f" || ev.Key == "F":
			e.WordRight()
			return moved
		case ev.Key == "d" || ev.Key == "D":
			return edit(e, e.DeleteWordForward)
		}
		return Event{}
	}

	if ev.Ctrl && k.Special == term.NoSpecial {
		switch ev.Key {
		case "a":
			e.Home()
		case "e":
			e.End()
		case "f":
			e.Right()
		case "b":
			e.Left()
		case "p":
			e.Up()
		case "n":
			e.Down()
		case "d":
			return edit(e, func() { e.DeleteForward() })
		case "k":
			return edit(e, e.KillToEnd)
		case "u":
			return edit(e, e.KillToStart)
		case "w":
			return edit(e, e.DeleteWordBackward)
		case "t":
			return edit(e, e.Transpose)
		case "z", "_":
			if e.Undo() {
				return changed
			}
		case "y":
			if e.Redo() {
				return changed
			}
		default:
			return Event{}
		}
		return moved
	}

	switch k.Special {
	case term.Escape:
		return Event{Consumed: true, Cancel: true}
	case term.Enter:
		return edit(e, func() { e.Insert('\n') })
	case term.Tab:
		return edit(e, func() { e.Insert('\t') })
	case term.Backspace:
		return edit(e, func() { e.DeleteBackward() })
	case term.Delete:
		return edit(e, func() { e.DeleteForward() })
	case term.Left:
		if ev.Ctrl {
			e.WordLeft()
		} else {
			e.Left()
		}
		return moved
	case term.Right:
		if ev.Ctrl {
			e.WordRight()
		} else {
			e.Right()
		}
		return moved
	case term.Up:
		e.Up()
		return moved
	case term.Down:
		e.Down()
		return moved
	case term.Home:
		e.Home()
		return moved
	case term.End:
		e.End()
		return moved
	}

	if k.Printable() {
		// Typing is not snapshotted per character; undo returns to the
		// last structural edit.
		e.Insert(k.Rune)
		return changed
	}
	return Event{}
}
