package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"scribe/message"
	"scribe/page"
	"scribe/rewrite"
	"scribe/shortcut"
)

var (
	// ErrNoEditor is returned when an editor operation runs with no editor
	// open in this context.
	ErrNoEditor = errors.New("editor is not open")

	// ErrNotAppliable is returned when applying to a capture that was never
	// appliable, such as a rich content-editable region.
	ErrNotAppliable = errors.New("captured element cannot be written")
)

// Controller is the page-side session state machine. It owns the captured
// element; only extracted text and flags ever leave it.
type Controller struct {
	mu      sync.Mutex
	state   State
	capture page.Capture
	editor  *Editor

	page      page.Focuser
	transport message.Transport
	rewriter  rewrite.Rewriter
	notifier  Notifier
	style     string
	log       zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithTransport sets the transport used to reach the background.
func WithTransport(t message.Transport) Option {
	return func(c *Controller) { c.transport = t }
}

// WithControllerRewriter sets the rewriter handed to local editors.
func WithControllerRewriter(r rewrite.Rewriter) Option {
	return func(c *Controller) { c.rewriter = r }
}

// WithControllerNotifier sets where user-facing messages go.
func WithControllerNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithDefaultStyle pre-fills each new editor's style instruction.
func WithDefaultStyle(style string) Option {
	return func(c *Controller) { c.style = style }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// NewController creates an idle controller for a page.
func NewController(p page.Focuser, opts ...Option) *Controller {
	c := &Controller{
		page:     p,
		notifier: nopNotifier{},
		log:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Capture returns what was captured by the last trigger.
func (c *Controller) Capture() page.Capture {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture
}

// Editor returns the local editor, or nil when none is open.
func (c *Controller) Editor() *Editor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editor
}

// SetStyle changes the style pre-filled into editors opened from now on.
func (c *Controller) SetStyle(style string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.style = style
}

// SetRewriter replaces the rewriter handed to editors opened from now on.
func (c *Controller) SetRewriter(r rewrite.Rewriter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rewriter = r
}

func (c *Controller) setState(to State) error {
	if err := checkTransition(c.state, to); err != nil {
		return err
	}
	c.log.Debug().Stringer("from", c.state).Stringer("to", to).Msg("session transition")
	c.state = to
	return nil
}

// Trigger handles a matched shortcut. The dialog slot opens a local editor
// seeded from the focused element, or an empty scratch pad. The side panel
// slot forwards the capture to the background and stays idle locally.
func (c *Controller) Trigger(ctx context.Context, slot shortcut.Slot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.setState(Capturing); err != nil {
		return err
	}
	if c.editor != nil {
		c.editor.Close()
		c.editor = nil
	}
	c.capture = page.CaptureFocused(c.page)
	appliable := c.capture.Appliable()
	c.log.Debug().Str("slot", string(slot)).Stringer("role", c.capture.Role).Bool("appliable", appliable).Msg("captured")

	switch slot {
	case shortcut.SlotSidePanel:
		// Fire and forget: the panel may not be listening yet.
		if c.transport != nil {
			req := message.OpenEditorRequest{Content: c.capture.Text, ContentAppliable: appliable}
			if err := c.transport.Broadcast(ctx, req); err != nil {
				c.log.Warn().Err(err).Msg("open side panel request not sent")
			}
		}
		return c.setState(Idle)
	default:
		c.editor = NewEditor(c.capture.Text, appliable,
			WithRewriter(c.rewriter),
			WithNotifier(c.notifier),
			WithStyle(c.style),
			WithEditorLogger(c.log),
		)
		return c.setState(EditorOpen)
	}
}

// Rewrite runs a rewrite in the local editor.
func (c *Controller) Rewrite(ctx context.Context) error {
	ed := c.Editor()
	if ed == nil {
		return ErrNoEditor
	}
	return ed.Rewrite(ctx)
}

// Close closes the local editor and discards its history.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != EditorOpen {
		return fmt.Errorf("%w: close while %s", ErrIllegalTransition, c.state)
	}
	c.editor.Close()
	c.editor = nil
	return c.setState(Idle)
}

// Apply writes the local editor's current content into the captured
// element and closes the editor. It reports whether anything was written;
// a detached element is a silent no-op.
func (c *Controller) Apply() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != EditorOpen {
		return false, fmt.Errorf("%w: apply while %s", ErrIllegalTransition, c.state)
	}
	if !c.editor.Appliable() {
		c.notifier.Notify(UserError(ErrNotAppliable))
		return false, ErrNotAppliable
	}
	written := c.write(c.editor.Content())
	c.editor.Close()
	c.editor = nil
	return written, c.setState(Idle)
}

// HandleApplyRequest writes content sent by the side panel. It may arrive
// at any time; with nothing captured, or a capture that is no longer
// appliable, it does nothing. The local editor state is not affected.
func (c *Controller) HandleApplyRequest(req message.ApplyContentRequest) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.capture.Appliable() {
		c.log.Debug().Msg("apply request with nothing appliable captured")
		return false
	}
	return c.write(req.Content)
}

// write re-checks the element before writing. Time has passed since the
// capture and the page may have changed.
func (c *Controller) write(text string) bool {
	el := c.capture.Element
	if el == nil || !el.Attached() || !el.CanApply() {
		c.log.Debug().Msg("captured element gone, apply skipped")
		return false
	}
	ok := el.Write(text)
	c.log.Debug().Bool("written", ok).Int("len", len(text)).Msg("apply")
	return ok
}
