// Package shortcut compiles configurable keyboard shortcuts into fast
// per-keystroke predicates and dispatches key events to shortcut slots.
package shortcut

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Modifier is one of the modifier keys a shortcut can require.
type Modifier uint8

const (
	Ctrl Modifier = 1 << iota
	Shift
	Alt
	Meta
)

// allModifiers is the full enumeration, in display order.
var allModifiers = []Modifier{Ctrl, Shift, Alt, Meta}

const modifierMask = Ctrl | Shift | Alt | Meta

// ErrUnknownModifier is returned when a modifier name is not recognised.
var ErrUnknownModifier = errors.New("unknown modifier")

// ParseModifier accepts the bare names (ctrl, shift, alt, meta), a few common
// aliases, and the DOM event property names (ctrlKey, shiftKey, ...) that
// stored extension settings use.
func ParseModifier(name string) (Modifier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ctrl", "control", "ctrlkey":
		return Ctrl, nil
	case "shift", "shiftkey":
		return Shift, nil
	case "alt", "option", "opt", "altkey":
		return Alt, nil
	case "meta", "cmd", "command", "super", "metakey":
		return Meta, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownModifier, name)
}

// String returns the config name of the modifier.
func (m Modifier) String() string {
	switch m {
	case Ctrl:
		return "ctrl"
	case Shift:
		return "shift"
	case Alt:
		return "alt"
	case Meta:
		return "meta"
	}
	return fmt.Sprintf("modifier(%d)", uint8(m))
}

// DisplayName returns the label shown to users.
func (m Modifier) DisplayName() string {
	switch m {
	case Ctrl:
		return "Ctrl"
	case Shift:
		return "Shift"
	case Alt:
		return "Alt"
	case Meta:
		return "Cmd"
	}
	return m.String()
}

// MarshalText implements encoding.TextMarshaler so modifiers round-trip
// through TOML and JSON as names.
func (m Modifier) MarshalText() ([]byte, error) {
	if m&modifierMask == 0 || m&(m-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownModifier, uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Modifier) UnmarshalText(text []byte) error {
	parsed, err := ParseModifier(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Spec is a declarative shortcut: a set of modifiers plus a single key.
type Spec struct {
	Modifiers []Modifier `toml:"modifiers" json:"modifiers"`
	Key       string     `toml:"key" json:"key"`
	Enabled   bool       `toml:"enabled" json:"enabled"`
}

// mask folds the modifier list into a bit set. Duplicates and ordering
// collapse here.
func (s Spec) mask() Modifier {
	var mask Modifier
	for _, m := range s.Modifiers {
		mask |= m
	}
	return mask & modifierMask
}

// KeyEvent is a raw key press as seen by a page or terminal.
type KeyEvent struct {
	Key   string
	Ctrl  bool
	Shift bool
	Alt   bool
	Meta  bool
}

func (e KeyEvent) mask() Modifier {
	var mask Modifier
	if e.Ctrl {
		mask |= Ctrl
	}
	if e.Shift {
		mask |= Shift
	}
	if e.Alt {
		mask |= Alt
	}
	if e.Meta {
		mask |= Meta
	}
	return mask
}

// Matcher reports whether a key event triggers a compiled shortcut.
// A nil Matcher never matches.
type Matcher func(KeyEvent) bool

// Match is a nil-safe call of m.
func (m Matcher) Match(ev KeyEvent) bool {
	return m != nil && m(ev)
}

// Compile turns a spec into a Matcher. Disabled specs, specs without any
// modifier and specs whose key is not a single character compile to nil.
//
// The returned predicate compares the key first, since a key mismatch is the
// common case, and then requires every listed modifier to be held. Modifiers
// that are not listed are not checked, so holding an extra one still matches.
func Compile(s Spec) Matcher {
	if !s.Enabled || utf8.RuneCountInString(s.Key) != 1 {
		return nil
	}
	want := s.mask()
	if want == 0 {
		return nil
	}
	key := strings.ToUpper(s.Key)
	return func(ev KeyEvent) bool {
		if !strings.EqualFold(ev.Key, key) {
			return false
		}
		return ev.mask()&want == want
	}
}

var (
	// ErrNoModifier rejects enabled shortcuts without a modifier.
	ErrNoModifier = errors.New("shortcut needs at least one modifier")

	// ErrInvalidKey rejects keys that are not exactly one character.
	ErrInvalidKey = errors.New("shortcut key must be a single character")
)

// ValidationError carries the user-facing message for a rejected shortcut.
type ValidationError struct {
	Name    string
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks a shortcut before it is saved. name is the human name of
// the slot, used in the message.
func Validate(s Spec, name string) error {
	if !s.Enabled {
		return nil
	}
	if s.mask() == 0 {
		return &ValidationError{
			Name: name,
			Message: fmt.Sprintf("Please select at least one modifier for the %s shortcut. "+
				"Shortcuts without modifiers will conflict with everyday typing.", name),
			Err: ErrNoModifier,
		}
	}
	if utf8.RuneCountInString(s.Key) != 1 {
		return &ValidationError{
			Name:    name,
			Message: fmt.Sprintf("Please choose a single key for the %s shortcut.", name),
			Err:     ErrInvalidKey,
		}
	}
	return nil
}

// Format renders a shortcut for display, e.g. "Ctrl+Shift+E".
// Disabled shortcuts render as "".
func Format(s Spec) string {
	if !s.Enabled {
		return ""
	}
	mask := s.mask()
	var parts []string
	for _, m := range allModifiers {
		if mask&m != 0 {
			parts = append(parts, m.DisplayName())
		}
	}
	parts = append(parts, strings.ToUpper(s.Key))
	return strings.Join(parts, "+")
}

// Parse reads a binding such as "ctrl+shift+e". The result is enabled.
func Parse(binding string) (Spec, error) {
	parts := strings.Split(binding, "+")
	if len(parts) < 2 {
		return Spec{}, fmt.Errorf("invalid binding %q: need modifier+key", binding)
	}
	key := strings.TrimSpace(parts[len(parts)-1])
	if utf8.RuneCountInString(key) != 1 {
		return Spec{}, fmt.Errorf("invalid binding %q: %w", binding, ErrInvalidKey)
	}
	spec := Spec{Key: key, Enabled: true}
	for _, name := range parts[:len(parts)-1] {
		m, err := ParseModifier(name)
		if err != nil {
			return Spec{}, fmt.Errorf("invalid binding %q: %w", binding, err)
		}
		spec.Modifiers = append(spec.Modifiers, m)
	}
	return spec, nil
}

// HasEnabled reports whether any of the given shortcuts is enabled.
func HasEnabled(specs ...Spec) bool {
	for _, s := range specs {
		if s.Enabled {
			return true
		}
	}
	return false
}
