// Package background is the long-lived coordinator between page tabs and
// the side panel.
package background

import (
	"context"

	"github.com/rs/zerolog"

	"scribe/message"
)

// PanelOpener opens the side panel and associates it with a tab.
type PanelOpener interface {
	OpenPanel(ctx context.Context, tabID int) error
}

// OptionsOpener opens the settings surface.
type OptionsOpener interface {
	OpenOptions(ctx context.Context) error
}

// PanelOpenerFunc adapts a function to PanelOpener.
type PanelOpenerFunc func(ctx context.Context, tabID int) error

// OpenPanel implements PanelOpener.
func (f PanelOpenerFunc) OpenPanel(ctx context.Context, tabID int) error { return f(ctx, tabID) }

// OptionsOpenerFunc adapts a function to OptionsOpener.
type OptionsOpenerFunc func(ctx context.Context) error

// OpenOptions implements OptionsOpener.
func (f OptionsOpenerFunc) OpenOptions(ctx context.Context) error { return f(ctx) }

// Coordinator reacts to runtime messages. It opens the side panel for a
// tab, forwards editor requests to it, and replays the latest request when
// a panel reports it is ready.
type Coordinator struct {
	transport message.Transport
	panel     PanelOpener
	options   OptionsOpener
	log       zerolog.Logger

	// pending is the last editor request per tab not yet replayed. The
	// panel may not have been listening when it was forwarded.
	pending map[int]message.OpenEditorRequest
	// activeTab is the tab the panel was last opened for.
	activeTab int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPanelOpener sets the side panel opener.
func WithPanelOpener(p PanelOpener) Option {
	return func(c *Coordinator) { c.panel = p }
}

// WithOptionsOpener sets the options page opener.
func WithOptionsOpener(o OptionsOpener) Option {
	return func(c *Coordinator) { c.options = o }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// New creates a coordinator sending through t.
func New(t message.Transport, opts ...Option) *Coordinator {
	c := &Coordinator{
		transport: t,
		log:       zerolog.Nop(),
		pending:   make(map[int]message.OpenEditorRequest),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run handles runtime messages until ctx is done or the transport closes.
func (c *Coordinator) Run(ctx context.Context) error {
	in, cancel := c.transport.Listen(message.Runtime)
	defer cancel()
	return c.loop(ctx, in)
}

// Start registers the listener before returning and handles messages in a
// goroutine. The returned channel receives the loop's result.
func (c *Coordinator) Start(ctx context.Context) <-chan error {
	in, cancel := c.transport.Listen(message.Runtime)
	done := make(chan error, 1)
	go func() {
		defer cancel()
		done <- c.loop(ctx, in)
	}()
	return done
}

func (c *Coordinator) loop(ctx context.Context, in <-chan message.Envelope) error {
	c.log.Debug().Msg("background listening")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-in:
			if !ok {
				return nil
			}
			c.handle(ctx, env)
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, env message.Envelope) {
	log := c.log.With().Str("type", string(env.Message.Type())).Int("tab", env.Sender.TabID).Logger()

	switch m := env.Message.(type) {
	case message.OpenEditorRequest:
		tabID := env.Sender.TabID
		if tabID == 0 {
			log.Debug().Msg("editor request without a tab ignored")
			return
		}
		c.pending[tabID] = m
		c.activeTab = tabID
		if c.panel != nil {
			if err := c.panel.OpenPanel(ctx, tabID); err != nil {
				log.Warn().Err(err).Msg("opening side panel")
			}
		}
		c.forward(ctx, log, m)

	case message.SidePanelReady:
		req, ok := c.pending[c.activeTab]
		if !ok {
			log.Debug().Msg("panel ready, nothing to replay")
			return
		}
		log.Debug().Int("replayTab", c.activeTab).Msg("replaying editor request")
		delete(c.pending, c.activeTab)
		c.forward(ctx, log, req)

	case message.OpenOptionsRequest:
		if c.options == nil {
			log.Debug().Msg("no options surface")
			return
		}
		if err := c.options.OpenOptions(ctx); err != nil {
			log.Warn().Err(err).Msg("opening options")
		}

	default:
		// ApplyContentRequest goes panel -> tab directly.
	}
}

// forward re-broadcasts a request for the side panel. Delivery is best
// effort; a panel that is not listening yet gets it on SidePanelReady.
func (c *Coordinator) forward(ctx context.Context, log zerolog.Logger, m message.OpenEditorRequest) {
	if err := c.transport.Broadcast(ctx, m); err != nil {
		log.Debug().Err(err).Msg("forward to side panel failed")
	}
}
