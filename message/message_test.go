package message

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestMarshalAddsType(t *testing.T) {
	data, err := Marshal(OpenEditorRequest{Content: "hi", ContentAppliable: true})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if fields["type"] != "OPEN_SIDE_PANEL_EDITOR" || fields["content"] != "hi" || fields["isContentAppliable"] != true {
		t.Errorf("unexpected fields %v", fields)
	}

	data, err = Marshal(OpenOptionsRequest{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"type":"OPEN_OPTIONS_PAGE"}` {
		t.Errorf("unexpected %s", data)
	}
}

func TestUnmarshalExtensionPayloads(t *testing.T) {
	msg, err := Unmarshal([]byte(`{"type":"APPLY_CONTENT","content":"Hello world."}`))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	apply, ok := msg.(ApplyContentRequest)
	if !ok || apply.Content != "Hello world." {
		t.Errorf("unexpected %#v", msg)
	}

	msg, err = Unmarshal([]byte(`{"type":"SIDE_PANEL_READY"}`))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := msg.(SidePanelReady); !ok {
		t.Errorf("unexpected %#v", msg)
	}
}

func TestUnmarshalRejects(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"type":"SHOW_IFRAME"}`)); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
	if _, err := Unmarshal([]byte(`{"content":"x"}`)); !errors.Is(err, ErrUnknownType) {
		t.Errorf("missing type should be unknown, got %v", err)
	}
	if _, err := Unmarshal([]byte(`not json`)); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Unmarshal([]byte(`{"type":"APPLY_CONTENT","content":5}`)); err == nil {
		t.Error("expected field type error")
	}
}

func receive(t *testing.T, ch <-chan Envelope) Envelope {
	t.Helper()
	select {
	case env, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Envelope{}
}

func expectNothing(t *testing.T, ch <-chan Envelope) {
	t.Helper()
	select {
	case env := <-ch:
		t.Fatalf("unexpected message %#v", env)
	default:
	}
}

func TestHubBroadcastSkipsSenderAndTabs(t *testing.T) {
	ctx := context.Background()
	hub := NewHub()
	tab := hub.Connect(Sender{TabID: 7})
	bg := hub.Connect(Sender{})
	panel := hub.Connect(Sender{})

	tabCh, cancelTab := tab.Listen(TabScope(7))
	defer cancelTab()
	bgCh, cancelBg := bg.Listen(Runtime)
	defer cancelBg()
	panelCh, cancelPanel := panel.Listen(Runtime)
	defer cancelPanel()

	if err := tab.Broadcast(ctx, OpenEditorRequest{Content: "x"}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	env := receive(t, bgCh)
	if env.Sender.TabID != 7 {
		t.Errorf("sender tab = %d, want 7", env.Sender.TabID)
	}
	receive(t, panelCh)
	expectNothing(t, tabCh)

	if err := bg.Broadcast(ctx, OpenEditorRequest{Content: "x"}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	receive(t, panelCh)
	expectNothing(t, bgCh)
}

func TestHubSendToTab(t *testing.T) {
	ctx := context.Background()
	hub := NewHub()
	one := hub.Connect(Sender{TabID: 1})
	two := hub.Connect(Sender{TabID: 2})
	panel := hub.Connect(Sender{})

	oneCh, c1 := one.Listen(TabScope(1))
	defer c1()
	twoCh, c2 := two.Listen(TabScope(2))
	defer c2()

	if err := panel.SendToTab(ctx, 2, ApplyContentRequest{Content: "done"}); err != nil {
		t.Fatalf("SendToTab: %v", err)
	}
	env := receive(t, twoCh)
	if env.Message.(ApplyContentRequest).Content != "done" {
		t.Errorf("unexpected %#v", env.Message)
	}
	expectNothing(t, oneCh)

	if err := panel.SendToTab(ctx, 0, ApplyContentRequest{}); err == nil {
		t.Error("tab id 0 should be rejected")
	}
}

func TestHubDropsWithoutListener(t *testing.T) {
	hub := NewHub(WithBuffer(1))
	a := hub.Connect(Sender{TabID: 1})
	b := hub.Connect(Sender{})

	// Nobody listening: not an error.
	if err := a.Broadcast(context.Background(), OpenOptionsRequest{}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	ch, cancel := b.Listen(Runtime)
	defer cancel()
	for i := 0; i < 3; i++ {
		if err := a.Broadcast(context.Background(), OpenOptionsRequest{}); err != nil {
			t.Fatalf("Broadcast: %v", err)
		}
	}
	receive(t, ch)
	expectNothing(t, ch)
}

func TestHubCancelAndClose(t *testing.T) {
	hub := NewHub()
	p := hub.Connect(Sender{})
	ch, cancel := p.Listen(Runtime)
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}

	ch2, _ := p.Listen(Runtime)
	hub.Close()
	if _, ok := <-ch2; ok {
		t.Error("channel should be closed after hub close")
	}
	if err := p.Broadcast(context.Background(), OpenOptionsRequest{}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestHubRespectsContext(t *testing.T) {
	hub := NewHub()
	p := hub.Connect(Sender{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Broadcast(ctx, OpenOptionsRequest{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
