package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"scribe/lineedit"
	"scribe/page"
	"scribe/rewrite"
	"scribe/session"
	"scribe/settings"
	"scribe/shortcut"
	"scribe/term"
)

func TestResolveStyle(t *testing.T) {
	cfg := settings.Default()
	cfg.AI.DefaultPrompt = "Be brief."

	tests := []struct {
		flag string
		want string
	}{
		{"", "Be brief."},
		{"grammar & spelling", "Correct grammar and spelling without changing my style."},
		{"  Make it formal ", "Make it formal"},
	}
	for _, tt := range tests {
		if got := resolveStyle(cfg, tt.flag); got != tt.want {
			t.Errorf("resolveStyle(%q) = %q, want %q", tt.flag, got, tt.want)
		}
	}
}

func TestWriteStatus(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	var buf bytes.Buffer
	if err := writeStatus(&buf, settings.Default()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"openai (gpt-4o-mini)", "required", "OPENAI_API_KEY", "dialog      Ctrl+Shift+E"} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "side panel") {
		t.Errorf("disabled shortcut listed:\n%s", out)
	}

	cfg := settings.Default()
	cfg.AI.Provider = settings.ProviderGoogle
	cfg.Shortcuts.Dialog.Enabled = false
	t.Setenv("GEMINI_API_KEY", "g")
	buf.Reset()
	if err := writeStatus(&buf, cfg); err != nil {
		t.Fatal(err)
	}
	out = buf.String()
	for _, want := range []string{"google (gemini-2.0-flash)", "from GEMINI_API_KEY", "Shortcuts: none enabled"} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q:\n%s", want, out)
		}
	}
}

func TestRewriteInDialogDetachedFieldIsSilent(t *testing.T) {
	doc, err := page.ParseString(`<html><body><textarea id="f">teh draft</textarea></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	doc.Focus("#f")
	// The page drops the field while the rewrite is running.
	r := rewrite.Func(func(ctx context.Context, content, style string) (rewrite.Result, error) {
		doc.Remove("#f")
		return rewrite.Result{Content: "the draft"}, nil
	})
	ctrl := session.NewController(doc, session.WithControllerRewriter(r))
	if err := ctrl.Trigger(context.Background(), shortcut.SlotDialog); err != nil {
		t.Fatal(err)
	}

	if err := rewriteInDialog(context.Background(), ctrl, "fix", zerolog.Nop()); err != nil {
		t.Errorf("rewriteInDialog = %v, want nil for a detached field", err)
	}
	if ctrl.State() != session.Idle {
		t.Errorf("state = %s", ctrl.State())
	}
}

func TestLayoutPlacesCursor(t *testing.T) {
	e := lineedit.New()
	e.Set("abcdefgh\nxy")

	rows, x, y := layout(e, 5)
	if strings.Join(rows, "|") != "abcde|fgh|xy" {
		t.Errorf("rows = %q", rows)
	}
	if x != 2 || y != 2 {
		t.Errorf("cursor at %d,%d, want 2,2", x, y)
	}

	e.SetCursor(6)
	if _, x, y = layout(e, 5); x != 1 || y != 1 {
		t.Errorf("cursor at %d,%d, want 1,1", x, y)
	}
}

func typeText(t *testing.T, p *pad, s string) {
	t.Helper()
	for _, k := range term.DecodeAll([]byte(s)) {
		if p.handleKey(context.Background(), k) {
			t.Fatalf("key %+v closed the pad", k)
		}
	}
}

func newTestPad(r rewrite.Rewriter) *pad {
	return newPad(settings.Default(), r, "", zerolog.Nop())
}

func TestPadRewriteAndVersions(t *testing.T) {
	r := rewrite.Func(func(ctx context.Context, content, style string) (rewrite.Result, error) {
		return rewrite.Result{Content: strings.ToUpper(content), Summary: "shouted"}, nil
	})
	p := newTestPad(r)

	typeText(t, p, "hello")
	if p.sess.Content() != "hello" {
		t.Fatalf("session content %q", p.sess.Content())
	}

	typeText(t, p, "\x1br")
	err := <-p.done
	if err != nil {
		t.Fatal(err)
	}
	p.done <- err
	p.poll()

	if p.buf.Text() != "HELLO" || p.sess.Label() != "2/2" {
		t.Errorf("after rewrite: %q, %s", p.buf.Text(), p.sess.Label())
	}
	if p.status.String() != "shouted" {
		t.Errorf("status %q", p.status.String())
	}

	typeText(t, p, "\x1bp")
	if p.buf.Text() != "hello" {
		t.Errorf("previous: %q", p.buf.Text())
	}
	typeText(t, p, "\x1bn")
	if p.buf.Text() != "HELLO" {
		t.Errorf("next: %q", p.buf.Text())
	}
	typeText(t, p, "\x1bz")
	if p.buf.Text() != "hello" || p.sess.Label() != "1/1" {
		t.Errorf("reset: %q, %s", p.buf.Text(), p.sess.Label())
	}
}

func TestPadWithoutRewriter(t *testing.T) {
	p := newTestPad(nil)
	typeText(t, p, "draft\x1br")
	if err := <-p.done; err == nil {
		t.Fatal("expected an error without a rewriter")
	}
	if !strings.Contains(p.status.String(), "API key") {
		t.Errorf("status %q", p.status.String())
	}
	if p.sess.Label() != "1/1" {
		t.Errorf("history changed: %s", p.sess.Label())
	}
}

func TestPadStyleCycleAndCopy(t *testing.T) {
	t.Setenv("TMUX", "")
	p := newTestPad(nil)
	if p.styleTitle() != "Default" {
		t.Errorf("initial style %q", p.styleTitle())
	}
	typeText(t, p, "\x1bs")
	if p.styleTitle() != "Grammar & Spelling" {
		t.Errorf("after cycle %q", p.styleTitle())
	}

	var buf bytes.Buffer
	p.clipboard = term.NewClipboard(&buf)
	typeText(t, p, "text\x1bc")
	if !strings.HasPrefix(buf.String(), "\033]52;c;") {
		t.Errorf("clipboard escape %q", buf.String())
	}
	if p.status.String() != "Copied to clipboard." {
		t.Errorf("status %q", p.status.String())
	}
}

func TestPadQuitKeys(t *testing.T) {
	for _, in := range []string{"\x1b", "\x11", "\x03"} {
		p := newTestPad(nil)
		if !p.handleKey(context.Background(), term.Decode([]byte(in))) {
			t.Errorf("%q should close the pad", in)
		}
	}
}
