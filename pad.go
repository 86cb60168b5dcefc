package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"scribe/lineedit"
	"scribe/logx"
	"scribe/rewrite"
	"scribe/session"
	"scribe/settings"
	"scribe/shortcut"
	"scribe/term"
)

// Scratch pad commands. Each is a shortcut slot, so bindings go through the
// same matcher as page shortcuts.
const (
	slotRewrite  shortcut.Slot = "rewrite"
	slotPrevious shortcut.Slot = "previous"
	slotNext     shortcut.Slot = "next"
	slotReset    shortcut.Slot = "reset"
	slotStyle    shortcut.Slot = "style"
	slotCopy     shortcut.Slot = "copy"
	slotQuit     shortcut.Slot = "quit"

	// Raw mode turns off signals, so Ctrl+C arrives as a key.
	slotInterrupt shortcut.Slot = "interrupt"
)

var padBindings = []struct {
	slot    shortcut.Slot
	binding string
}{
	{slotRewrite, "alt+r"},
	{slotPrevious, "alt+p"},
	{slotNext, "alt+n"},
	{slotReset, "alt+z"},
	{slotStyle, "alt+s"},
	{slotCopy, "alt+c"},
	{slotQuit, "ctrl+q"},
	{slotInterrupt, "ctrl+c"},
}

func padDispatcher() *shortcut.Dispatcher {
	d := shortcut.NewDispatcher()
	for _, b := range padBindings {
		spec, err := shortcut.Parse(b.binding)
		if err != nil {
			panic(err)
		}
		d.Update(b.slot, spec)
	}
	return d
}

// status is the one-line message under the editor. Rewrites report into it
// from their own goroutine.
type status struct {
	mu  sync.Mutex
	msg string
}

func (s *status) Notify(msg string) {
	s.mu.Lock()
	s.msg = strings.ReplaceAll(msg, "\n", " ")
	s.mu.Unlock()
}

func (s *status) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msg
}

// pad is the terminal scratch pad: a multi-line buffer backed by a version
// history, rewritten in place.
type pad struct {
	sess       *session.Editor
	buf        *lineedit.Editor
	scheme     lineedit.KeyScheme
	dispatcher *shortcut.Dispatcher
	styles     []settings.Style
	styleIdx   int
	status     *status
	clipboard  session.Clipboard
	spinner    *term.Spinner
	done       chan error
	scroll     int
	log        zerolog.Logger
}

func newPad(cfg settings.Settings, r rewrite.Rewriter, style string, log zerolog.Logger) *pad {
	st := &status{}
	p := &pad{
		buf:        lineedit.New(),
		scheme:     lineedit.NewEmacsScheme(),
		dispatcher: padDispatcher(),
		styles:     cfg.Styles,
		styleIdx:   -1,
		status:     st,
		clipboard:  term.NewClipboard(os.Stdout),
		spinner:    term.NewSpinner(),
		done:       make(chan error, 1),
		log:        log,
	}
	if style == "" && len(p.styles) > 0 {
		p.styleIdx = 0
		style = p.styles[0].Description
	}
	p.buf.SetMaxHistory(200)
	opts := []session.EditorOption{
		session.WithNotifier(st),
		session.WithStyle(style),
		session.WithEditorLogger(logx.Component(log, "editor")),
	}
	if r != nil {
		opts = append(opts, session.WithRewriter(r))
	}
	p.sess = session.NewEditor("", false, opts...)
	return p
}

// runPad runs the scratch pad until the user quits.
func runPad(ctx context.Context, store *settings.Store, style string, log zerolog.Logger) error {
	if !term.IsTerminal(os.Stdin) {
		return errors.New("the scratch pad needs a terminal; use -p to rewrite stdin")
	}
	cfg := store.Get()
	var r rewrite.Rewriter
	lr, err := rewrite.FromSettings(cfg, rewrite.WithLogger(logx.Component(log, "rewrite")))
	if err != nil {
		log.Warn().Err(err).Msg("rewriter unavailable")
	} else {
		r = lr
	}
	p := newPad(cfg, r, style, log)
	if lr == nil || !lr.Available() {
		p.status.Notify(session.UserError(rewrite.ErrMissingCredentials))
	}

	t, err := term.NewTerminal(os.Stdin)
	if err != nil {
		return err
	}
	if err := t.EnterRawMode(); err != nil {
		return fmt.Errorf("entering raw mode: %w", err)
	}
	defer t.RestoreMode()
	term.EnterAltScreen(os.Stdout)
	defer term.ExitAltScreen(os.Stdout)

	in := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		p.draw()

		n, err := os.Stdin.Read(in)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		for _, k := range term.DecodeAll(in[:n]) {
			if quit := p.handleKey(ctx, k); quit {
				return nil
			}
		}
		p.poll()
	}
}

// handleKey routes one key: commands first, then the text buffer. It
// reports whether the pad should close.
func (p *pad) handleKey(ctx context.Context, k term.Key) bool {
	if slot, ok := p.dispatcher.Match(k.Event); ok {
		return p.command(ctx, slot)
	}
	ev := p.scheme.HandleKey(p.buf, k)
	if ev.Cancel {
		return true
	}
	if ev.TextChanged {
		p.sess.Edit(p.buf.Text())
	}
	return false
}

func (p *pad) command(ctx context.Context, slot shortcut.Slot) bool {
	switch slot {
	case slotQuit, slotInterrupt:
		return true
	case slotRewrite:
		if p.sess.Rewriting() {
			p.status.Notify(session.UserError(session.ErrBusy))
			return false
		}
		p.status.Notify("")
		p.spinner.Reset()
		go func() { p.done <- p.sess.Rewrite(ctx) }()
	case slotPrevious:
		if p.sess.Previous() {
			p.load()
		}
	case slotNext:
		if p.sess.Next() {
			p.load()
		}
	case slotReset:
		p.sess.Reset()
		p.load()
		p.status.Notify("Back to the original text.")
	case slotStyle:
		p.nextStyle()
	case slotCopy:
		if err := p.sess.Copy(p.clipboard); err == nil {
			p.status.Notify("Copied to clipboard.")
		}
	}
	return false
}

// load shows the session's current version in the buffer. Undo does not
// reach across versions; the version history covers that.
func (p *pad) load() {
	p.buf.Set(p.sess.Content())
	p.buf.ClearHistory()
}

func (p *pad) nextStyle() {
	if len(p.styles) == 0 {
		return
	}
	p.styleIdx = (p.styleIdx + 1) % len(p.styles)
	s := p.styles[p.styleIdx]
	p.sess.SetStyle(s.Description)
	p.status.Notify("Style: " + s.Title)
}

// poll picks up a finished rewrite.
func (p *pad) poll() {
	select {
	case err := <-p.done:
		if err != nil {
			p.log.Debug().Err(err).Msg("rewrite failed")
			return
		}
		p.load()
		p.status.Notify(p.sess.Summary())
	default:
		p.spinner.Tick()
	}
}

func (p *pad) styleTitle() string {
	style := p.sess.Style()
	for _, s := range p.styles {
		if s.Description == style {
			return s.Title
		}
	}
	if style == "" {
		return "(none)"
	}
	return style
}

// draw repaints the whole screen. The buffer is hard-wrapped to the
// terminal width and scrolled to keep the cursor visible.
func (p *pad) draw() {
	width, height, err := term.Size(os.Stdout)
	if err != nil || width < 10 || height < 4 {
		width, height = 80, 24
	}
	bodyHeight := height - 3

	rows, curX, curY := layout(p.buf, width)
	if curY < p.scroll {
		p.scroll = curY
	}
	if curY >= p.scroll+bodyHeight {
		p.scroll = curY - bodyHeight + 1
	}

	var b strings.Builder
	b.WriteString(term.CursorHide + term.CursorHome)

	header := fmt.Sprintf(" scribe  version %s  style: %s", p.sess.Label(), p.styleTitle())
	b.WriteString("\033[7m" + padRight(term.Truncate(header, width), width) + "\033[0m\r\n")

	for i := 0; i < bodyHeight; i++ {
		b.WriteString(term.ClearLine)
		if j := p.scroll + i; j < len(rows) {
			b.WriteString(rows[j])
		}
		b.WriteString("\r\n")
	}

	msg := p.status.String()
	if p.sess.Rewriting() {
		msg = p.spinner.Frame() + " Rewriting..."
	}
	b.WriteString(term.ClearLine + "\033[1m" + term.Truncate(msg, width) + "\033[0m\r\n")
	help := " Alt+R rewrite  Alt+P/N versions  Alt+Z reset  Alt+S style  Alt+C copy  Esc quit"
	b.WriteString(term.ClearLine + "\033[2m" + term.Truncate(help, width) + "\033[0m")

	b.WriteString(term.MoveTo(curX, curY-p.scroll+1) + term.CursorShow)
	os.Stdout.WriteString(b.String())
}

// layout wraps the buffer into screen rows and locates the cursor on them.
func layout(e *lineedit.Editor, width int) (rows []string, curX, curY int) {
	line, col := e.LineCol()
	for i, text := range e.Lines() {
		wrapped := term.BreakRunes([]rune(strings.ReplaceAll(text, "\t", " ")), width)
		if i == line {
			c := col
			for j, row := range wrapped {
				if c < len(row) || j == len(wrapped)-1 {
					curX = term.StringWidth(string(row[:min(c, len(row))]))
					curY = len(rows) + j
					break
				}
				c -= len(row)
			}
		}
		for _, row := range wrapped {
			rows = append(rows, string(row))
		}
	}
	if curX >= width {
		curX = width - 1
	}
	return rows, curX, curY
}

func padRight(s string, width int) string {
	if w := term.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
