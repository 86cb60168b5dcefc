// Package page models the host page's editable elements as narrow
// capabilities, so editor sessions can read from and write back to a page
// without holding raw DOM references.
package page

// Role classifies an editable element.
type Role int

const (
	RoleNone Role = iota
	RoleInput
	RoleContentEditable
)

func (r Role) String() string {
	switch r {
	case RoleInput:
		return "input"
	case RoleContentEditable:
		return "contenteditable"
	}
	return "none"
}

// Element is a captured editable element.
type Element interface {
	// Role reports how the element was classified at capture time.
	Role() Role

	// Read extracts the element's text: the value of inputs and textareas,
	// the rendered text of content-editable regions.
	Read() string

	// Attached reports whether the element is still part of the page.
	Attached() bool

	// CanApply reports whether Write is safe right now. Only attached
	// inputs and textareas can be written; rich regions are capture-only.
	CanApply() bool

	// Write replaces the element's text so that the page's own change
	// detection fires. It returns false if nothing was written.
	Write(text string) bool
}

// Focuser exposes the page's currently focused element.
type Focuser interface {
	// ActiveElement returns the focused element, or nil if none.
	ActiveElement() Element
}

// Capture is what a session remembers about the element it was opened on.
type Capture struct {
	Element Element
	Role    Role
	Text    string
}

// Appliable reports whether the capture supports writing content back.
func (c Capture) Appliable() bool {
	return c.Element != nil && c.Role == RoleInput
}

// CaptureFocused inspects the focused element. Unsupported or missing
// elements produce an empty, non-appliable capture so the editor can still
// open as a scratch pad.
func CaptureFocused(f Focuser) Capture {
	if f == nil {
		return Capture{}
	}
	el := f.ActiveElement()
	if el == nil {
		return Capture{}
	}
	role := el.Role()
	if role == RoleNone {
		return Capture{}
	}
	return Capture{Element: el, Role: role, Text: el.Read()}
}
