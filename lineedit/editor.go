// Package lineedit provides a small multi-line text editor with
// emacs-style keybindings.
package lineedit

import (
	"strings"
	"unicode"
)

// editorState represents a snapshot of editor state for undo.
type editorState struct {
	text   []rune
	cursor int
}

// Editor is a multi-line text buffer with cursor tracking. Positions count
// runes, not bytes.
type Editor struct {
	text        []rune
	cursor      int
	goalCol     int           // Column Up/Down aim for, -1 when unset
	history     []editorState // Undo history stack
	redoHistory []editorState // Redo history stack
	maxHist     int           // Maximum history size (0 = unlimited)
}

// New creates a new empty Editor.
func New() *Editor {
	return &Editor{goalCol: -1}
}

// Text returns the current text.
func (e *Editor) Text() string {
	return string(e.text)
}

// Cursor returns the current cursor position.
func (e *Editor) Cursor() int {
	return e.cursor
}

// SetCursor sets the cursor position, clamping to valid range.
func (e *Editor) SetCursor(pos int) {
	e.cursor = max(0, min(pos, len(e.text)))
	e.goalCol = -1
}

// Len returns the length of the text in runes.
func (e *Editor) Len() int {
	return len(e.text)
}

// Clear resets the editor to empty state.
func (e *Editor) Clear() {
	e.text = e.text[:0]
	e.cursor = 0
	e.goalCol = -1
}

// Set replaces the text and moves cursor to end.
func (e *Editor) Set(text string) {
	e.text = []rune(text)
	e.cursor = len(e.text)
	e.goalCol = -1
}

func (e *Editor) snapshot() editorState {
	textCopy := make([]rune, len(e.text))
	copy(textCopy, e.text)
	return editorState{text: textCopy, cursor: e.cursor}
}

// SaveState saves the current state to the undo history.
// Call this before making changes that should be undoable.
func (e *Editor) SaveState() {
	e.pushState(e.snapshot())
}

func (e *Editor) pushState(s editorState) {
	if len(e.history) > 0 {
		last := e.history[len(e.history)-1]
		if last.cursor == s.cursor && string(last.text) == string(s.text) {
			return
		}
	}
	e.history = append(e.history, s)
	if e.maxHist > 0 && len(e.history) > e.maxHist {
		e.history = e.history[1:]
	}
	// A new change invalidates redo.
	e.redoHistory = e.redoHistory[:0]
}

// Undo restores the previous state from the undo history.
// Returns true if undo was performed, false if history is empty.
func (e *Editor) Undo() bool {
	if len(e.history) == 0 {
		return false
	}
	e.redoHistory = append(e.redoHistory, e.snapshot())
	last := e.history[len(e.history)-1]
	e.history = e.history[:len(e.history)-1]
	e.text, e.cursor, e.goalCol = last.text, last.cursor, -1
	return true
}

// Redo restores the next state from the redo history.
// Returns true if redo was performed, false if redo history is empty.
func (e *Editor) Redo() bool {
	if len(e.redoHistory) == 0 {
		return false
	}
	e.history = append(e.history, e.snapshot())
	last := e.redoHistory[len(e.redoHistory)-1]
	e.redoHistory = e.redoHistory[:len(e.redoHistory)-1]
	e.text, e.cursor, e.goalCol = last.text, last.cursor, -1
	return true
}

// ClearHistory clears the undo and redo history.
func (e *Editor) ClearHistory() {
	e.history = e.history[:0]
	e.redoHistory = e.redoHistory[:0]
}

// SetMaxHistory sets the maximum undo history size (0 = unlimited).
func (e *Editor) SetMaxHistory(max int) {
	e.maxHist = max
}

// Lines splits the text on newlines. An empty buffer has one empty line.
func (e *Editor) Lines() []string {
	return strings.Split(string(e.text), "\n")
}

// LineCol returns the cursor's 0-based line and rune column.
func (e *Editor) LineCol() (line, col int) {
	start := 0
	for i := 0; i < e.cursor; i++ {
		if e.text[i] == '\n' {
			line++
			start = i + 1
		}
	}
	return line, e.cursor - start
}

// lineStart returns the index of the first rune of the cursor's line.
func (e *Editor) lineStart() int {
	i := e.cursor
	for i > 0 && e.text[i-1] != '\n' {
		i--
	}
	return i
}

// lineEnd returns the index of the newline ending the cursor's line, or the
// text length on the last line.
func (e *Editor) lineEnd() int {
	i := e.cursor
	for i < len(e.text) && e.text[i] != '\n' {
		i++
	}
	return i
}

// Insert adds a character at the cursor position.
func (e *Editor) Insert(r rune) {
	e.text = append(e.text, 0)
	copy(e.text[e.cursor+1:], e.text[e.cursor:])
	e.text[e.cursor] = r
	e.cursor++
	e.goalCol = -1
}

// InsertString adds a string at the cursor position.
func (e *Editor) InsertString(s string) {
	for _, r := range s {
		e.Insert(r)
	}
}

// DeleteBackward removes the character before the cursor (backspace).
// Returns true if a character was deleted.
func (e *Editor) DeleteBackward() bool {
	if e.cursor == 0 {
		return false
	}
	e.text = append(e.text[:e.cursor-1], e.text[e.cursor:]...)
	e.cursor--
	e.goalCol = -1
	return true
}

// DeleteForward removes the character at the cursor (delete).
// Returns true if a character was deleted.
func (e *Editor) DeleteForward() bool {
	if e.cursor >= len(e.text) {
		return false
	}
	e.text = append(e.text[:e.cursor], e.text[e.cursor+1:]...)
	return true
}

// Left moves cursor one character left.
// Returns true if cursor moved.
func (e *Editor) Left() bool {
	e.goalCol = -1
	if e.cursor == 0 {
		return false
	}
	e.cursor--
	return true
}

// Right moves cursor one character right.
// Returns true if cursor moved.
func (e *Editor) Right() bool {
	e.goalCol = -1
	if e.cursor >= len(e.text) {
		return false
	}
	e.cursor++
	return true
}

// Home moves cursor to beginning of the current line.
func (e *Editor) Home() {
	e.cursor = e.lineStart()
	e.goalCol = -1
}

// End moves cursor to end of the current line.
func (e *Editor) End() {
	e.cursor = e.lineEnd()
	e.goalCol = -1
}

// Up moves the cursor to the previous line, keeping the column where the
// line is long enough. Returns false on the first line.
func (e *Editor) Up() bool {
	start := e.lineStart()
	if start == 0 {
		return false
	}
	col := e.column(start)
	prevEnd := start - 1
	e.cursor = prevEnd
	prevStart := e.lineStart()
	e.cursor = min(prevStart+col, prevEnd)
	return true
}

// Down moves the cursor to the next line, keeping the column where the
// line is long enough. Returns false on the last line.
func (e *Editor) Down() bool {
	end := e.lineEnd()
	if end >= len(e.text) {
		return false
	}
	col := e.column(e.lineStart())
	e.cursor = end + 1
	e.cursor = min(e.cursor+col, e.lineEnd())
	return true
}

// column returns the goal column for vertical motion and remembers it, so
// passing through a short line does not lose the original column.
func (e *Editor) column(lineStart int) int {
	if e.goalCol < 0 {
		e.goalCol = e.cursor - lineStart
	}
	return e.goalCol
}

// charClass returns the class of a character for word motion purposes.
// 0 = whitespace, 1 = word char, 2 = punctuation/other
func charClass(r rune) int {
	if unicode.IsSpace(r) {
		return 0
	}
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '\'' {
		return 1
	}
	return 2
}

// wordBoundaryLeft finds the start of the previous word.
func (e *Editor) wordBoundaryLeft() int {
	if e.cursor == 0 {
		return 0
	}
	i := e.cursor - 1
	for i > 0 && charClass(e.text[i]) == 0 {
		i--
	}
	if i == 0 {
		return 0
	}
	class := charClass(e.text[i])
	for i > 0 && charClass(e.text[i-1]) == class {
		i--
	}
	return i
}

// wordBoundaryRight finds the end of the current or next word, the way
// emacs forward-word stops after the word rather than before the next one.
func (e *Editor) wordBoundaryRight() int {
	i := e.cursor
	for i < len(e.text) && charClass(e.text[i]) == 0 {
		i++
	}
	if i >= len(e.text) {
		return len(e.text)
	}
	class := charClass(e.text[i])
	for i < len(e.text) && charClass(e.text[i]) == class {
		i++
	}
	return i
}

// WordLeft moves cursor to the start of the previous word (Alt+B).
func (e *Editor) WordLeft() {
	e.cursor = e.wordBoundaryLeft()
	e.goalCol = -1
}

// WordRight moves cursor past the end of the next word (Alt+F).
func (e *Editor) WordRight() {
	e.cursor = e.wordBoundaryRight()
	e.goalCol = -1
}

// DeleteWordBackward deletes from cursor to previous word boundary (Ctrl+W).
func (e *Editor) DeleteWordBackward() {
	newPos := e.wordBoundaryLeft()
	e.text = append(e.text[:newPos], e.text[e.cursor:]...)
	e.cursor = newPos
	e.goalCol = -1
}

// DeleteWordForward deletes from cursor to next word boundary (Alt+D).
func (e *Editor) DeleteWordForward() {
	newPos := e.wordBoundaryRight()
	e.text = append(e.text[:e.cursor], e.text[newPos:]...)
}

// KillToEnd deletes from cursor to end of line (Ctrl+K). At the end of a
// line it joins the next line instead.
func (e *Editor) KillToEnd() {
	end := e.lineEnd()
	if end == e.cursor && end < len(e.text) {
		end++
	}
	e.text = append(e.text[:e.cursor], e.text[end:]...)
}

// KillToStart deletes from the beginning of the line to cursor (Ctrl+U).
func (e *Editor) KillToStart() {
	start := e.lineStart()
	e.text = append(e.text[:start], e.text[e.cursor:]...)
	e.cursor = start
	e.goalCol = -1
}

// Transpose swaps the character before cursor with the one at cursor (Ctrl+T).
// If at end, swaps the last two characters.
func (e *Editor) Transpose() {
	if e.cursor == 0 || len(e.text) < 2 {
		return
	}
	pos := e.cursor
	if pos == len(e.text) {
		pos--
	}
	e.text[pos-1], e.text[pos] = e.text[pos], e.text[pos-1]
	if e.cursor < len(e.text) {
		e.cursor++
	}
	e.goalCol = -1
}
