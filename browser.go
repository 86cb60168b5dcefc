package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"scribe/background"
	"scribe/content"
	"scribe/logx"
	"scribe/message"
	"scribe/page"
	"scribe/rewrite"
	"scribe/session"
	"scribe/settings"
	"scribe/sidepanel"
)

// hydrateTimeout bounds the wait for the side panel to receive its content.
const hydrateTimeout = 5 * time.Second

// runBrowser opens url in Chrome, captures the field matching selector and
// rewrites it through the same components an extension install uses: a
// content script for the tab, the background coordinator and, in side panel
// mode, the panel.
func runBrowser(ctx context.Context, o options, store *settings.Store, style string, log zerolog.Logger) error {
	opts := page.DefaultOptions()
	opts.Headless = !o.headed
	log.Info().Str("url", o.url).Msg("opening tab")
	tab, err := page.OpenTab(ctx, o.url, opts)
	if err != nil {
		return err
	}
	defer tab.Close()

	if o.selector != "" {
		if err := tab.Focus(o.selector); err != nil {
			return fmt.Errorf("focusing %s: %w", o.selector, err)
		}
	}

	notify := session.NotifierFunc(func(msg string) { fmt.Fprintln(os.Stderr, msg) })
	factory := func(cfg settings.Settings) (rewrite.Rewriter, error) {
		return rewrite.FromSettings(cfg, rewrite.WithLogger(logx.Component(log, "rewrite")))
	}
	cfg := store.Get()
	r, err := factory(cfg)
	if err != nil {
		return err
	}

	hub := message.NewHub(message.WithLogger(logx.Component(log, "hub")))
	defer hub.Close()

	panel := sidepanel.New(hub.Connect(message.Sender{}),
		sidepanel.WithRewriter(r),
		sidepanel.WithNotifier(notify),
		sidepanel.WithStyle(style),
		sidepanel.WithLogger(logx.Component(log, "sidepanel")),
	)
	panelOpened := make(chan struct{}, 1)
	coord := background.New(hub.Connect(message.Sender{}),
		background.WithPanelOpener(background.PanelOpenerFunc(func(ctx context.Context, tabID int) error {
			panel.Attach(tabID)
			select {
			case panelOpened <- struct{}{}:
			default:
			}
			return nil
		})),
		background.WithLogger(logx.Component(log, "background")),
	)
	coord.Start(ctx)

	port := hub.Connect(message.Sender{TabID: tab.ID()})
	ctrl := session.NewController(tab,
		session.WithTransport(port),
		session.WithControllerRewriter(r),
		session.WithControllerNotifier(notify),
		session.WithLogger(logx.Component(log, "session")),
	)
	script := content.New(tab.ID(), port, ctrl,
		content.WithStore(store),
		content.WithRewriterFactory(factory),
		content.WithLogger(logx.Component(log, "content")),
	)
	scriptDone := script.Start(ctx)

	if err := script.Open(ctx); err != nil {
		return err
	}

	if cfg.UI.Mode == settings.ModeSidePanel {
		return rewriteInPanel(ctx, hub, panel, panelOpened, scriptDone, style)
	}
	return rewriteInDialog(ctx, ctrl, style, log)
}

func rewriteInDialog(ctx context.Context, ctrl *session.Controller, style string, log zerolog.Logger) error {
	ed := ctrl.Editor()
	if ed == nil {
		return errors.New("no editable field is focused")
	}
	if style != "" {
		ed.SetStyle(style)
	}
	if err := ed.Rewrite(ctx); err != nil {
		return err
	}
	fmt.Println(ed.Content())

	applied, err := ctrl.Apply()
	if errors.Is(err, session.ErrNotAppliable) {
		// The message already told the user to copy the text above.
		return ctrl.Close()
	}
	if err != nil {
		return err
	}
	if !applied {
		log.Debug().Msg("field detached before apply; nothing written")
	}
	return nil
}

// rewriteInPanel starts the panel after the background has opened it, the
// way a freshly opened panel joins late and relies on the replayed request.
func rewriteInPanel(ctx context.Context, hub *message.Hub, panel *sidepanel.Panel, opened <-chan struct{}, scriptDone <-chan error, style string) error {
	wait, cancel := context.WithTimeout(ctx, hydrateTimeout)
	defer cancel()

	select {
	case <-opened:
	case <-wait.Done():
		return errors.New("no editable field is focused")
	}
	go panel.Run(ctx)

	ed := panel.Editor()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for ed.Content() == "" {
		select {
		case <-tick.C:
		case <-wait.Done():
			return errors.New("side panel never received the captured text")
		}
	}

	if style != "" {
		ed.SetStyle(style)
	}
	if err := ed.Rewrite(ctx); err != nil {
		return err
	}
	fmt.Println(ed.Content())

	if err := panel.Apply(ctx); err != nil {
		if errors.Is(err, session.ErrNotAppliable) {
			return nil
		}
		return err
	}
	// Closing the hub lets the content script drain the apply request
	// before its loop ends.
	hub.Close()
	return <-scriptDone
}
