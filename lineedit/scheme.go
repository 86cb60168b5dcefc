package lineedit

import "scribe/term"

// Event represents the result of handling a key press.
type Event struct {
	Consumed    bool // true if the scheme handled the key
	TextChanged bool // true if editor content was modified
	Cancel      bool // true if user wants to leave the editor
}

// KeyScheme interprets key presses and translates them to editor actions.
type KeyScheme interface {
	// Name returns the scheme name for display/config.
	Name() string

	// HandleKey processes one decoded key and performs editor actions.
	HandleKey(e *Editor, k term.Key) Event
}
