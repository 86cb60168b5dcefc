package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"scribe/message"
	"scribe/page"
	"scribe/rewrite"
	"scribe/shortcut"
)

const testPage = `<html><body>
<textarea id="note">hello wrold</textarea>
<input id="name" type="text" value="Ada">
<div id="rich" contenteditable="true"><p>Rich <b>text</b></p></div>
<p id="plain">nothing to edit</p>
</body></html>`

func newPage(t *testing.T, focus string) *page.Document {
	t.Helper()
	d, err := page.ParseString(testPage)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if focus != "" && !d.Focus(focus) {
		t.Fatalf("Focus(%q) failed", focus)
	}
	return d
}

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Notify(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func fixed(content, summary string) rewrite.Rewriter {
	return rewrite.Func(func(ctx context.Context, _, _ string) (rewrite.Result, error) {
		return rewrite.Result{Content: content, Summary: summary}, nil
	})
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{Idle, Capturing, true},
		{Idle, EditorOpen, false},
		{Idle, Idle, false},
		{Capturing, EditorOpen, true},
		{Capturing, Idle, true},
		{EditorOpen, Idle, true},
		{EditorOpen, Capturing, true},
		{EditorOpen, EditorOpen, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIllegalOperationsLeaveStateAlone(t *testing.T) {
	c := NewController(newPage(t, "#note"))
	if err := c.Close(); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Close while idle: %v", err)
	}
	if _, err := c.Apply(); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Apply while idle: %v", err)
	}
	if err := c.Rewrite(context.Background()); !errors.Is(err, ErrNoEditor) {
		t.Errorf("Rewrite while idle: %v", err)
	}
	if c.State() != Idle {
		t.Errorf("state = %s", c.State())
	}
}

func TestEndToEndDialogSession(t *testing.T) {
	doc := newPage(t, "#note")
	c := NewController(doc, WithControllerRewriter(fixed("Hello world.", "Fixed spelling")), WithDefaultStyle("fix grammar"))

	if err := c.Trigger(context.Background(), shortcut.SlotDialog); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if c.State() != EditorOpen {
		t.Fatalf("state = %s", c.State())
	}
	ed := c.Editor()
	h := ed.History()
	if len(h.Versions) != 1 || h.Versions[0].Content != "hello wrold" || h.CurrentIndex != 0 {
		t.Fatalf("unexpected initial history %+v", h)
	}

	ed.Edit("hello wrold fixed")
	if h := ed.History(); len(h.Versions) != 1 || h.CurrentIndex != 0 || ed.Content() != "hello wrold fixed" {
		t.Fatalf("edit should update in place: %+v", h)
	}

	if err := c.Rewrite(context.Background()); err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	h = ed.History()
	if len(h.Versions) != 2 || h.CurrentIndex != 1 || !h.Versions[1].AIGenerated {
		t.Fatalf("unexpected history after rewrite %+v", h)
	}
	if ed.Summary() != "Fixed spelling" {
		t.Errorf("Summary = %q", ed.Summary())
	}

	ed.Previous()
	if ed.Content() != "hello wrold fixed" {
		t.Fatalf("previous content = %q", ed.Content())
	}

	written, err := c.Apply()
	if err != nil || !written {
		t.Fatalf("Apply = %v, %v", written, err)
	}
	if got := doc.Value("#note"); got != "hello wrold fixed" {
		t.Errorf("textarea = %q", got)
	}
	if c.State() != Idle || c.Editor() != nil {
		t.Error("apply should return to idle and discard the editor")
	}
	if !ed.Closed() {
		t.Error("editor should be closed")
	}
}

func TestTriggerWithNothingFocusedOpensScratchPad(t *testing.T) {
	c := NewController(newPage(t, "#plain"))
	if err := c.Trigger(context.Background(), shortcut.SlotDialog); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	ed := c.Editor()
	if ed == nil || ed.Content() != "" || ed.Appliable() {
		t.Fatal("expected empty, non-appliable scratch pad")
	}
	if _, err := c.Apply(); !errors.Is(err, ErrNotAppliable) {
		t.Errorf("Apply on scratch pad: %v", err)
	}
	if c.State() != EditorOpen {
		t.Error("refused apply must leave the editor open")
	}
}

func TestRichRegionIsCaptureOnly(t *testing.T) {
	doc := newPage(t, "#rich")
	n := &recorder{}
	c := NewController(doc, WithControllerNotifier(n))
	c.Trigger(context.Background(), shortcut.SlotDialog)

	ed := c.Editor()
	if ed.Content() != "Rich text" || ed.Appliable() {
		t.Fatalf("content %q appliable %v", ed.Content(), ed.Appliable())
	}
	if _, err := c.Apply(); !errors.Is(err, ErrNotAppliable) {
		t.Fatalf("expected ErrNotAppliable, got %v", err)
	}
	if len(n.all()) != 1 {
		t.Errorf("expected one notification, got %v", n.all())
	}
	if c.HandleApplyRequest(message.ApplyContentRequest{Content: "x"}) {
		t.Error("rich region must never be written")
	}
}

func TestApplyToDetachedElementIsSilent(t *testing.T) {
	doc := newPage(t, "#name")
	c := NewController(doc)
	c.Trigger(context.Background(), shortcut.SlotDialog)
	doc.Remove("#name")

	written, err := c.Apply()
	if err != nil || written {
		t.Fatalf("Apply = %v, %v", written, err)
	}
	if c.State() != Idle {
		t.Errorf("state = %s", c.State())
	}
}

func TestRewriteFailureKeepsHistory(t *testing.T) {
	n := &recorder{}
	boom := rewrite.Func(func(ctx context.Context, _, _ string) (rewrite.Result, error) {
		return rewrite.Result{}, errors.New("network down")
	})
	c := NewController(newPage(t, "#note"), WithControllerRewriter(boom), WithControllerNotifier(n))
	c.Trigger(context.Background(), shortcut.SlotDialog)

	if err := c.Rewrite(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if h := c.Editor().History(); len(h.Versions) != 1 {
		t.Errorf("failed rewrite must not add a version: %+v", h)
	}
	if c.State() != EditorOpen || c.Editor().Rewriting() {
		t.Error("editor should stay open with the guard cleared")
	}
	msgs := n.all()
	if len(msgs) != 1 || msgs[0] != "Error rewriting content:\nnetwork down" {
		t.Errorf("notifications = %q", msgs)
	}
}

func TestMissingRewriterReportsCredentials(t *testing.T) {
	n := &recorder{}
	ed := NewEditor("text", true, WithNotifier(n))
	if err := ed.Rewrite(context.Background()); !errors.Is(err, rewrite.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if msgs := n.all(); len(msgs) != 1 || msgs[0] != UserError(rewrite.ErrMissingCredentials) {
		t.Errorf("notifications = %q", msgs)
	}
}

// blocking returns a rewriter that waits for release before answering.
func blocking(release <-chan struct{}, started chan<- struct{}) rewrite.Rewriter {
	return rewrite.Func(func(ctx context.Context, content, _ string) (rewrite.Result, error) {
		started <- struct{}{}
		<-release
		return rewrite.Result{Content: content + "!"}, nil
	})
}

func TestRewriteInFlightGuard(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	ed := NewEditor("a", true, WithRewriter(blocking(release, started)))

	done := make(chan error, 1)
	go func() { done <- ed.Rewrite(context.Background()) }()
	<-started

	if err := ed.Rewrite(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("second rewrite: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first rewrite: %v", err)
	}
	if ed.Content() != "a!" || ed.History().CurrentIndex != 1 {
		t.Errorf("unexpected result %q", ed.Content())
	}
}

func TestStaleRewriteDiscardedAfterClose(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	c := NewController(newPage(t, "#note"), WithControllerRewriter(blocking(release, started)))
	c.Trigger(context.Background(), shortcut.SlotDialog)
	ed := c.Editor()

	done := make(chan error, 1)
	go func() { done <- c.Rewrite(context.Background()) }()
	<-started
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	close(release)

	select {
	case err := <-done:
		if !errors.Is(err, ErrDiscarded) {
			t.Errorf("expected ErrDiscarded, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("rewrite did not finish")
	}
	if ed.History().Versions[len(ed.History().Versions)-1].AIGenerated {
		t.Error("stale result must not be recorded")
	}
}

func TestStaleRewriteDiscardedAfterHydrate(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	ed := NewEditor("old", true, WithRewriter(blocking(release, started)))

	done := make(chan error, 1)
	go func() { done <- ed.Rewrite(context.Background()) }()
	<-started
	ed.Hydrate("new field", false)
	close(release)

	if err := <-done; !errors.Is(err, ErrDiscarded) {
		t.Fatalf("expected ErrDiscarded, got %v", err)
	}
	if ed.Content() != "new field" || len(ed.History().Versions) != 1 || ed.Appliable() {
		t.Errorf("hydrated editor changed: %q %+v", ed.Content(), ed.History())
	}
}

func TestRetriggerReplacesSession(t *testing.T) {
	doc := newPage(t, "#note")
	c := NewController(doc, WithControllerRewriter(fixed("x", "")), WithDefaultStyle("s"))
	c.Trigger(context.Background(), shortcut.SlotDialog)
	first := c.Editor()
	first.Rewrite(context.Background())

	doc.Focus("#name")
	if err := c.Trigger(context.Background(), shortcut.SlotDialog); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if !first.Closed() {
		t.Error("previous editor should be closed")
	}
	if ed := c.Editor(); ed.Content() != "Ada" || len(ed.History().Versions) != 1 {
		t.Errorf("expected fresh history for the new field")
	}
}

func TestSidePanelTriggerBroadcasts(t *testing.T) {
	hub := message.NewHub()
	defer hub.Close()
	bg := hub.Connect(message.Sender{})
	in, cancel := bg.Listen(message.Runtime)
	defer cancel()

	doc := newPage(t, "#name")
	c := NewController(doc, WithTransport(hub.Connect(message.Sender{TabID: 7})))
	if err := c.Trigger(context.Background(), shortcut.SlotSidePanel); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if c.State() != Idle || c.Editor() != nil {
		t.Error("side panel trigger must stay idle locally")
	}

	select {
	case env := <-in:
		req, ok := env.Message.(message.OpenEditorRequest)
		if !ok || req.Content != "Ada" || !req.ContentAppliable || env.Sender.TabID != 7 {
			t.Errorf("unexpected envelope %+v", env)
		}
	case <-time.After(time.Second):
		t.Fatal("no OpenEditorRequest received")
	}

	if !c.HandleApplyRequest(message.ApplyContentRequest{Content: "Grace"}) {
		t.Fatal("apply request should write the captured input")
	}
	if doc.Value("#name") != "Grace" {
		t.Errorf("input = %q", doc.Value("#name"))
	}
}

func TestHandleApplyRequestWithNothingCaptured(t *testing.T) {
	c := NewController(newPage(t, ""))
	if c.HandleApplyRequest(message.ApplyContentRequest{Content: "x"}) {
		t.Error("nothing captured, nothing written")
	}
}

type failingClipboard struct{}

func (failingClipboard) WriteText(string) error { return errors.New("denied") }

type memClipboard struct{ text string }

func (m *memClipboard) WriteText(s string) error { m.text = s; return nil }

func TestCopy(t *testing.T) {
	n := &recorder{}
	ed := NewEditor("copy me", false, WithNotifier(n))
	cb := &memClipboard{}
	if err := ed.Copy(cb); err != nil || cb.text != "copy me" {
		t.Fatalf("Copy: %v %q", err, cb.text)
	}
	if err := ed.Copy(failingClipboard{}); err == nil {
		t.Error("expected clipboard error")
	}
	if len(n.all()) != 1 {
		t.Errorf("expected a copy failure notification, got %v", n.all())
	}
}

func TestEditorReset(t *testing.T) {
	ed := NewEditor("orig", true, WithRewriter(fixed("new", "why")), WithStyle("s"))
	ed.Rewrite(context.Background())
	ed.Reset()
	if ed.Content() != "orig" || len(ed.History().Versions) != 1 || ed.Summary() != "" {
		t.Errorf("Reset left %q %+v", ed.Content(), ed.History())
	}
	if ed.Label() != "1/1" {
		t.Errorf("Label = %q", ed.Label())
	}
}

func TestEditorResetDropsBaselineEdits(t *testing.T) {
	ed := NewEditor("hello wrold", true, WithRewriter(fixed("Hello world.", "")))
	ed.Edit("hello wrold fixed")
	if err := ed.Rewrite(context.Background()); err != nil {
		t.Fatal(err)
	}
	ed.Reset()
	if ed.Content() != "hello wrold" || ed.Label() != "1/1" {
		t.Errorf("Reset left %q at %s", ed.Content(), ed.Label())
	}

	ed.Hydrate("second capture", true)
	ed.Edit("second capture, edited")
	ed.Reset()
	if ed.Content() != "second capture" {
		t.Errorf("Reset after Hydrate left %q", ed.Content())
	}
}
