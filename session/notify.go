package session

import (
	"errors"
	"fmt"

	"scribe/rewrite"
)

// Notifier shows transient messages to the user. Implementations must not
// block.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(msg string) { f(msg) }

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}

// Clipboard receives copied editor content.
type Clipboard interface {
	WriteText(text string) error
}

// UserError formats err as the message shown to the user.
func UserError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, rewrite.ErrMissingCredentials):
		return "Please configure your API key in the extension options first."
	case errors.Is(err, rewrite.ErrEmptyInput):
		return "Please enter both content and a prompt for rewriting."
	case errors.Is(err, ErrBusy):
		return "A rewrite is already in progress."
	case errors.Is(err, ErrNotAppliable):
		return "This field can't be updated automatically. Copy the text instead."
	}
	return fmt.Sprintf("Error rewriting content:\n%s", err.Error())
}
