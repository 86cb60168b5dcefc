package term

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"scribe/shortcut"
)

// Special identifies a non-printing key.
type Special int

const (
	NoSpecial Special = iota
	Enter
	Tab
	Backspace
	Delete
	Escape
	Left
	Right
	Up
	Down
	Home
	End
)

var specialNames = map[Special]string{
	Enter:     "Enter",
	Tab:       "Tab",
	Backspace: "Backspace",
	Delete:    "Delete",
	Escape:    "Escape",
	Left:      "ArrowLeft",
	Right:     "ArrowRight",
	Up:        "ArrowUp",
	Down:      "ArrowDown",
	Home:      "Home",
	End:       "End",
}

// Key is one decoded key press.
type Key struct {
	// Event is the key as a page would report it to a keydown listener.
	Event   shortcut.KeyEvent
	// Rune is the typed character, or zero for control and special keys.
	Rune    rune
	Special Special
}

// Printable reports whether the key inserts text.
func (k Key) Printable() bool {
	return k.Rune != 0 && !k.Event.Ctrl && !k.Event.Alt
}

func special(s Special) Key {
	return Key{Event: shortcut.KeyEvent{Key: specialNames[s]}, Special: s}
}

// DecodeAll splits raw terminal input into key presses. A read can hold
// several keys, for example when text is pasted.
func DecodeAll(buf []byte) []Key {
	var keys []Key
	for len(buf) > 0 {
		k, n := decode(buf)
		if n == 0 {
			break
		}
		keys = append(keys, k)
		buf = buf[n:]
	}
	return keys
}

// Decode returns the first key in buf.
func Decode(buf []byte) Key {
	k, _ := decode(buf)
	return k
}

// decode returns the first key and how many bytes it used.
func decode(buf []byte) (Key, int) {
	if len(buf) == 0 {
		return Key{}, 0
	}
	b := buf[0]

	if b == 27 {
		if len(buf) == 1 {
			return special(Escape), 1
		}
		if buf[1] == '[' || buf[1] == 'O' {
			if k, n, ok := decodeCSI(buf); ok {
				return k, n
			}
		}
		// ESC followed by a key is how terminals send Alt.
		k, n := decode(buf[1:])
		if k.Special == Escape {
			return special(Escape), 1
		}
		k.Event.Alt = true
		return k, n + 1
	}

	switch b {
	case 13, 10:
		return special(Enter), 1
	case 9:
		return special(Tab), 1
	case 127, 8:
		return special(Backspace), 1
	}
	if b < 32 {
		if b >= 1 && b <= 26 {
			letter := string(rune('a' + b - 1))
			return Key{Event: shortcut.KeyEvent{Key: letter, Ctrl: true}}, 1
		}
		if b == 31 {
			return Key{Event: shortcut.KeyEvent{Key: "_", Ctrl: true}}, 1
		}
		return Key{}, 1
	}

	r, n := utf8.DecodeRune(buf)
	if r == utf8.RuneError && n <= 1 {
		return Key{}, 1
	}
	return Key{
		Event: shortcut.KeyEvent{Key: string(r), Shift: unicode.IsUpper(r)},
		Rune:  r,
	}, n
}

var csiKeys = map[string]Special{
	"A": Up, "B": Down, "C": Right, "D": Left,
	"H": Home, "F": End,
	"1~": Home, "7~": Home, "4~": End, "8~": End,
	"3~": Delete,
}

// decodeCSI handles ESC [ ... and ESC O ... sequences.
func decodeCSI(buf []byte) (Key, int, bool) {
	for i := 2; i < len(buf); i++ {
		c := buf[i]
		if (c >= 'A' && c <= 'Z') || c == '~' {
			params := string(buf[2 : i+1])
			// Modified keys arrive as "1;5C" (ctrl+right) or "3;5~"
			// (ctrl+delete). Tilde keys keep their number.
			var ctrl, alt, shift bool
			if j := strings.IndexByte(params, ';'); j >= 0 && j+1 < len(params) {
				mod := int(params[j+1]-'0') - 1
				shift, alt, ctrl = mod&1 != 0, mod&2 != 0, mod&4 != 0
				if final := params[len(params)-1:]; final == "~" {
					params = params[:j] + final
				} else {
					params = final
				}
			}
			s, ok := csiKeys[params]
			if !ok {
				return Key{}, i + 1, true
			}
			k := special(s)
			k.Event.Ctrl, k.Event.Alt, k.Event.Shift = ctrl, alt, shift
			return k, i + 1, true
		}
	}
	return Key{}, 0, false
}
