// Package sidepanel is the editor surface that lives beside the page. It has
// its own editor and version history, hydrated from forwarded requests.
package sidepanel

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"scribe/message"
	"scribe/rewrite"
	"scribe/session"
)

// ErrNoTab is returned by Apply before the panel was opened for a tab.
var ErrNoTab = errors.New("side panel is not attached to a tab")

// Panel is one side panel instance.
type Panel struct {
	transport message.Transport
	editor    *session.Editor
	notifier  session.Notifier
	log       zerolog.Logger

	mu    sync.Mutex
	tabID int
	last  message.OpenEditorRequest
	ready chan struct{}
}

// Option configures a Panel.
type Option func(*panelConfig)

type panelConfig struct {
	rewriter rewrite.Rewriter
	notifier session.Notifier
	style    string
	log      zerolog.Logger
}

// WithRewriter sets the rewriter used by the panel's editor.
func WithRewriter(r rewrite.Rewriter) Option {
	return func(c *panelConfig) { c.rewriter = r }
}

// WithNotifier sets where user-facing messages go.
func WithNotifier(n session.Notifier) Option {
	return func(c *panelConfig) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithStyle pre-fills the editor's style instruction.
func WithStyle(style string) Option {
	return func(c *panelConfig) { c.style = style }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *panelConfig) { c.log = log }
}

// New creates a panel with an empty editor.
func New(t message.Transport, opts ...Option) *Panel {
	cfg := panelConfig{notifier: session.NotifierFunc(func(string) {}), log: zerolog.Nop()}
	for _, o := range opts {
		o(&cfg)
	}
	return &Panel{
		transport: t,
		notifier:  cfg.notifier,
		log:       cfg.log,
		ready:     make(chan struct{}),
		editor: session.NewEditor("", false,
			session.WithRewriter(cfg.rewriter),
			session.WithNotifier(cfg.notifier),
			session.WithStyle(cfg.style),
			session.WithEditorLogger(cfg.log),
		),
	}
}

// Editor returns the panel's editor.
func (p *Panel) Editor() *session.Editor { return p.editor }

// Attach associates the panel with the tab it was opened for. Apply sends
// to this tab.
func (p *Panel) Attach(tabID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tabID = tabID
}

// TabID returns the attached tab, or zero.
func (p *Panel) TabID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tabID
}

// Ready is closed once the panel's listener is registered.
func (p *Panel) Ready() <-chan struct{} { return p.ready }

// Run listens for forwarded editor requests until ctx is done. It must be
// called at most once. Once the listener is registered the panel announces
// itself so the background can replay a request sent before it was
// listening.
func (p *Panel) Run(ctx context.Context) error {
	in, cancel := p.transport.Listen(message.Runtime)
	defer cancel()
	close(p.ready)

	if err := p.transport.Broadcast(ctx, message.SidePanelReady{}); err != nil {
		p.log.Debug().Err(err).Msg("ready announcement not sent")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-in:
			if !ok {
				return nil
			}
			p.handle(env)
		}
	}
}

func (p *Panel) handle(env message.Envelope) {
	req, ok := env.Message.(message.OpenEditorRequest)
	if !ok {
		return
	}
	// Tabs broadcast to every extension page. Only the background's
	// forwarded copy is meant for the panel.
	if env.Sender.TabID != 0 {
		return
	}
	if req.Content == "" {
		p.log.Debug().Msg("empty editor request ignored")
		return
	}
	// A replay of the request already shown must not wipe the history.
	p.mu.Lock()
	seen := req == p.last
	p.last = req
	p.mu.Unlock()
	if seen {
		return
	}
	p.editor.Hydrate(req.Content, req.ContentAppliable)
	p.log.Debug().Int("len", len(req.Content)).Bool("appliable", req.ContentAppliable).Msg("panel hydrated")
}

// Apply sends the editor's current content to the attached tab. The send is
// fire-and-forget; the page re-checks its element before writing.
func (p *Panel) Apply(ctx context.Context) error {
	if !p.editor.Appliable() {
		p.notifier.Notify(session.UserError(session.ErrNotAppliable))
		return session.ErrNotAppliable
	}
	tabID := p.TabID()
	if tabID == 0 {
		return ErrNoTab
	}
	return p.transport.SendToTab(ctx, tabID, message.ApplyContentRequest{Content: p.editor.Content()})
}

// OpenOptions asks the background to open the settings surface.
func (p *Panel) OpenOptions(ctx context.Context) error {
	return p.transport.Broadcast(ctx, message.OpenOptionsRequest{})
}
