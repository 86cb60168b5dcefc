// Package content is the page-side context: it matches keystrokes against
// the configured shortcuts, drives the session controller, and accepts
// content applied from the side panel.
package content

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"scribe/message"
	"scribe/rewrite"
	"scribe/session"
	"scribe/settings"
	"scribe/shortcut"
)

// RewriterFactory builds a rewriter from the current settings.
type RewriterFactory func(settings.Settings) (rewrite.Rewriter, error)

// Script is the content script of one tab.
type Script struct {
	tabID     int
	transport message.Transport
	ctrl      *session.Controller
	store     *settings.Store
	factory   RewriterFactory
	log       zerolog.Logger

	mu         sync.Mutex
	dispatcher *shortcut.Dispatcher
	mode       settings.Mode
}

// Option configures a Script.
type Option func(*Script)

// WithStore keeps the script's shortcuts and rewriter in sync with store.
func WithStore(store *settings.Store) Option {
	return func(s *Script) { s.store = store }
}

// WithRewriterFactory rebuilds the controller's rewriter on settings change.
func WithRewriterFactory(f RewriterFactory) Option {
	return func(s *Script) { s.factory = f }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Script) { s.log = log }
}

// New creates the script for tabID. Until settings are applied, no
// shortcut matches.
func New(tabID int, t message.Transport, ctrl *session.Controller, opts ...Option) *Script {
	s := &Script{
		tabID:      tabID,
		transport:  t,
		ctrl:       ctrl,
		log:        zerolog.Nop(),
		dispatcher: shortcut.NewDispatcher(shortcut.DefaultOrder...),
		mode:       settings.ModeDialog,
	}
	for _, o := range opts {
		o(s)
	}
	if s.store != nil {
		s.ApplySettings(s.store.Get())
	}
	return s
}

// Controller returns the tab's session controller.
func (s *Script) Controller() *session.Controller { return s.ctrl }

// ApplySettings recompiles every shortcut slot from cfg so no stale
// matcher survives a change.
func (s *Script) ApplySettings(cfg settings.Settings) {
	s.mu.Lock()
	for _, slot := range s.dispatcher.Slots() {
		spec, ok := cfg.Shortcuts.Slot(slot)
		if !ok {
			continue
		}
		s.dispatcher.Update(slot, spec)
		s.log.Debug().Str("slot", string(slot)).Str("binding", shortcut.Format(spec)).Msg("shortcut compiled")
	}
	s.mode = cfg.UI.Mode
	s.mu.Unlock()

	s.ctrl.SetStyle(cfg.AI.DefaultPrompt)
	if s.factory != nil {
		r, err := s.factory(cfg)
		if err != nil {
			s.log.Warn().Err(err).Msg("rewriter not rebuilt")
			return
		}
		s.ctrl.SetRewriter(r)
	}
}

// HandleKey tests a keystroke against the shortcuts in priority order and
// triggers the matching slot. It reports whether the key was consumed, in
// which case the page must not see it.
func (s *Script) HandleKey(ctx context.Context, ev shortcut.KeyEvent) bool {
	s.mu.Lock()
	slot, ok := s.dispatcher.Match(ev)
	s.mu.Unlock()
	if !ok {
		return false
	}
	if err := s.ctrl.Trigger(ctx, slot); err != nil {
		s.log.Warn().Err(err).Str("slot", string(slot)).Msg("trigger failed")
	}
	return true
}

// Open triggers the surface chosen by the ui mode setting, for callers that
// open the editor without a keystroke.
func (s *Script) Open(ctx context.Context) error {
	s.mu.Lock()
	mode := s.mode
	s.mu.Unlock()

	slot := shortcut.SlotDialog
	if mode == settings.ModeSidePanel {
		slot = shortcut.SlotSidePanel
	}
	return s.ctrl.Trigger(ctx, slot)
}

// Run listens for apply requests addressed to this tab and for settings
// changes until ctx is done.
func (s *Script) Run(ctx context.Context) error {
	in, cancel := s.transport.Listen(message.TabScope(s.tabID))
	defer cancel()
	return s.loop(ctx, in, s.subscribe())
}

// Start registers the listeners before returning and runs the loop in a
// goroutine.
func (s *Script) Start(ctx context.Context) <-chan error {
	in, cancel := s.transport.Listen(message.TabScope(s.tabID))
	changes := s.subscribe()
	done := make(chan error, 1)
	go func() {
		defer cancel()
		done <- s.loop(ctx, in, changes)
	}()
	return done
}

type subscription struct {
	ch     <-chan settings.Settings
	cancel func()
}

func (s *Script) subscribe() subscription {
	if s.store == nil {
		return subscription{cancel: func() {}}
	}
	ch, cancel := s.store.Subscribe()
	return subscription{ch: ch, cancel: cancel}
}

func (s *Script) loop(ctx context.Context, in <-chan message.Envelope, sub subscription) error {
	defer sub.cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cfg, ok := <-sub.ch:
			if !ok {
				sub.ch = nil
				continue
			}
			s.ApplySettings(cfg)
		case env, ok := <-in:
			if !ok {
				return nil
			}
			req, isApply := env.Message.(message.ApplyContentRequest)
			if !isApply {
				continue
			}
			written := s.ctrl.HandleApplyRequest(req)
			s.log.Debug().Int("tab", s.tabID).Bool("written", written).Msg("apply request")
		}
	}
}
