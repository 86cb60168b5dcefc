package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"scribe/rewrite"
	"scribe/version"
)

var (
	// ErrBusy is returned when a rewrite is requested while one is in flight.
	ErrBusy = errors.New("rewrite already in progress")

	// ErrClosed is returned by operations on a closed editor.
	ErrClosed = errors.New("editor closed")

	// ErrDiscarded is returned when a rewrite finished after the editor was
	// closed or re-seeded. Its result was dropped.
	ErrDiscarded = errors.New("rewrite result discarded")
)

// Editor is the state behind one editor surface: a version history, the
// style instruction and the rewrite guard. Each surface owns its own Editor;
// two surfaces never share one.
type Editor struct {
	mu        sync.Mutex
	versions  *version.Manager
	appliable bool
	style     string
	summary   string
	rewriting bool
	closed    bool
	gen       uint64

	rewriter rewrite.Rewriter
	notifier Notifier
	log      zerolog.Logger
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithRewriter sets the rewrite collaborator.
func WithRewriter(r rewrite.Rewriter) EditorOption {
	return func(e *Editor) { e.rewriter = r }
}

// WithNotifier sets where user-facing errors go.
func WithNotifier(n Notifier) EditorOption {
	return func(e *Editor) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithStyle pre-fills the style instruction.
func WithStyle(style string) EditorOption {
	return func(e *Editor) { e.style = style }
}

// WithEditorLogger sets the logger.
func WithEditorLogger(log zerolog.Logger) EditorOption {
	return func(e *Editor) { e.log = log }
}

// NewEditor opens an editor seeded with content.
func NewEditor(content string, appliable bool, opts ...EditorOption) *Editor {
	e := &Editor{
		versions:  version.New(content),
		appliable: appliable,
		notifier:  nopNotifier{},
		log:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Hydrate replaces the session with new initial content. Any rewrite still
// in flight is discarded when it completes.
func (e *Editor) Hydrate(content string, appliable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.versions.Reset(content)
	e.appliable = appliable
	e.summary = ""
	e.closed = false
	e.gen++
}

// Close ends the session. The history is discarded.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.gen++
}

// Closed reports whether Close was called.
func (e *Editor) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Content returns the text of the current version.
func (e *Editor) Content() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.versions.CurrentContent()
}

// Edit records a user edit to the current version.
func (e *Editor) Edit(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.versions.UpdateCurrent(text)
}

// Appliable reports whether the content can be written back to the page.
func (e *Editor) Appliable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.appliable
}

// Style returns the current style instruction.
func (e *Editor) Style() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.style
}

// SetStyle changes the style instruction used by Rewrite.
func (e *Editor) SetStyle(style string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.style = style
}

// Summary is the explanation attached to the current version, if any.
func (e *Editor) Summary() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s := e.versions.Current().Summary; s != "" {
		return s
	}
	return e.summary
}

// Rewriting reports whether a rewrite is in flight.
func (e *Editor) Rewriting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rewriting
}

// Rewrite sends the current content to the rewriter and records the result
// as a new AI version. Failures are reported to the notifier and leave the
// history untouched. The editor lock is not held while the rewriter runs.
func (e *Editor) Rewrite(ctx context.Context) error {
	e.mu.Lock()
	switch {
	case e.closed:
		e.mu.Unlock()
		return ErrClosed
	case e.rewriting:
		e.mu.Unlock()
		e.notifier.Notify(UserError(ErrBusy))
		return ErrBusy
	case e.rewriter == nil:
		e.mu.Unlock()
		e.notifier.Notify(UserError(rewrite.ErrMissingCredentials))
		return rewrite.ErrMissingCredentials
	}
	e.rewriting = true
	gen := e.gen
	content := e.versions.CurrentContent()
	style := e.style
	r := e.rewriter
	e.mu.Unlock()

	res, err := r.Rewrite(ctx, content, style)

	e.mu.Lock()
	e.rewriting = false
	if gen != e.gen {
		e.mu.Unlock()
		e.log.Debug().Msg("stale rewrite result dropped")
		return ErrDiscarded
	}
	if err != nil {
		e.mu.Unlock()
		e.log.Warn().Err(err).Msg("rewrite failed")
		e.notifier.Notify(UserError(err))
		return err
	}
	v := e.versions.Add(res.Content, res.Summary, true)
	e.summary = res.Summary
	e.mu.Unlock()

	e.log.Debug().Str("version", v.ID).Msg("rewrite recorded")
	return nil
}

// Previous moves to the previous version.
func (e *Editor) Previous() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.versions.Previous()
}

// Next moves to the next version.
func (e *Editor) Next() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.versions.Next()
}

// CanGoBack reports whether Previous would move.
func (e *Editor) CanGoBack() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.versions.CanGoBack()
}

// CanGoForward reports whether Next would move.
func (e *Editor) CanGoForward() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.versions.CanGoForward()
}

// Reset discards every version and starts over from the captured text,
// dropping edits made to the baseline as well.
func (e *Editor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.versions.Reset(e.versions.Original())
	e.summary = ""
	e.gen++
}

// Label is the "n/m" position shown next to the navigation controls.
func (e *Editor) Label() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.versions.Label()
}

// History returns a copy of the version history.
func (e *Editor) History() version.History {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.versions.History()
}

// Copy writes the current content to cb. Failures are reported, not fatal.
func (e *Editor) Copy(cb Clipboard) error {
	text := e.Content()
	if err := cb.WriteText(text); err != nil {
		e.log.Warn().Err(err).Msg("copy failed")
		e.notifier.Notify("Failed to copy text: " + err.Error())
		return err
	}
	return nil
}
