package settings

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"

	"scribe/shortcut"
)

func TestDefaultTOMLMatchesDefault(t *testing.T) {
	var got Settings
	if _, err := toml.Decode(DefaultTOML(), &got); err != nil {
		t.Fatalf("decoding DefaultTOML: %v", err)
	}
	if !reflect.DeepEqual(got, Default()) {
		t.Errorf("DefaultTOML drifted from Default():\n got %+v\nwant %+v", got, Default())
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate: %v", err)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileLayersOnDefaults(t *testing.T) {
	path := writeConfig(t, `
[ai]
apiKey = "sk-test"

[shortcuts.sidePanel]
modifiers = ["altKey", "shiftKey"]
key = "P"
enabled = true

[emDash]
enabled = true
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.AI.APIKey != "sk-test" || cfg.AI.ModelName != "gpt-4o-mini" {
		t.Errorf("unexpected ai settings %+v", cfg.AI)
	}
	if !cfg.EmDash.Enabled || cfg.EmDash.Replacement != " - " {
		t.Errorf("unexpected em dash settings %+v", cfg.EmDash)
	}
	if shortcut.Format(cfg.Shortcuts.SidePanel) != "Shift+Alt+P" {
		t.Errorf("side panel = %q", shortcut.Format(cfg.Shortcuts.SidePanel))
	}
	if shortcut.Format(cfg.Shortcuts.Dialog) != "Ctrl+Shift+E" {
		t.Errorf("dialog default lost: %q", shortcut.Format(cfg.Shortcuts.Dialog))
	}
	if len(cfg.Styles) != 3 {
		t.Errorf("expected default styles, got %d", len(cfg.Styles))
	}
}

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Error("expected defaults")
	}
}

func TestLoadFileRejects(t *testing.T) {
	tests := map[string]string{
		"bare shortcut": `
[shortcuts.dialog]
modifiers = []
key = "E"
enabled = true
`,
		"unknown modifier": `
[shortcuts.dialog]
modifiers = ["hyper"]
`,
		"unknown key": `
[ai]
temperature = 0.3
`,
		"bad mode": `
[ui]
mode = "popup"
`,
		"bad syntax": `[ai`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadFile(writeConfig(t, body)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	want := Default()
	want.AI.Provider = ProviderAnthropic
	want.AI.APIKey = "key"
	want.Styles = append(want.Styles, Style{Title: "Formal", Description: "Make it formal."})

	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestValidateMessages(t *testing.T) {
	s := Default()
	s.Shortcuts.Dialog.Modifiers = nil
	s.Styles = append(s.Styles, Style{Title: " "})
	err := s.Validate()
	if !errors.Is(err, ErrInvalid) || !errors.Is(err, shortcut.ErrNoModifier) {
		t.Fatalf("unexpected error %v", err)
	}
	if !strings.Contains(err.Error(), "dialog shortcut") || !strings.Contains(err.Error(), "title is required") {
		t.Errorf("message missing details: %v", err)
	}
}

func TestStyleLookup(t *testing.T) {
	st, ok := Default().Style("grammar & spelling")
	if !ok || !strings.HasPrefix(st.Description, "Correct grammar") {
		t.Errorf("unexpected style %+v %v", st, ok)
	}
	if _, ok := Default().Style("missing"); ok {
		t.Error("unexpected match")
	}
}

func TestStoreSetRejectsInvalid(t *testing.T) {
	store := NewStore(Default())
	ch, cancel := store.Subscribe()
	defer cancel()

	bad := Default()
	bad.Shortcuts.Dialog.Modifiers = nil
	if err := store.Set(bad); err == nil {
		t.Fatal("expected validation error")
	}
	if got := store.Get(); len(got.Shortcuts.Dialog.Modifiers) != 2 {
		t.Error("rejected settings must not be stored")
	}
	select {
	case <-ch:
		t.Error("rejected settings must not notify")
	default:
	}
}

func TestStoreSubscribeLatestWins(t *testing.T) {
	store := NewStore(Default())
	ch, cancel := store.Subscribe()

	for _, model := range []string{"a", "b", "c"} {
		if err := store.Update(func(s *Settings) { s.AI.ModelName = model }); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	select {
	case s := <-ch:
		if s.AI.ModelName != "c" {
			t.Errorf("expected latest value, got %q", s.AI.ModelName)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
}

func TestStoreGetIsACopy(t *testing.T) {
	store := NewStore(Default())
	s := store.Get()
	s.Styles[0].Title = "mutated"
	s.Shortcuts.Dialog.Modifiers[0] = shortcut.Meta
	fresh := store.Get()
	if fresh.Styles[0].Title != "Default" || fresh.Shortcuts.Dialog.Modifiers[0] != shortcut.Ctrl {
		t.Error("Get must not alias store state")
	}
}

func TestStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Update(func(s *Settings) { s.AI.APIKey = "persisted" }); err != nil {
		t.Fatalf("Update: %v", err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.AI.APIKey != "persisted" {
		t.Errorf("APIKey = %q", cfg.AI.APIKey)
	}
}

func TestAIResolved(t *testing.T) {
	ai := Default().AI
	ai.Provider = ProviderAnthropic
	got := ai.Resolved()
	if got.BaseURL != "" || got.ModelName != RecommendedModel[ProviderAnthropic] {
		t.Errorf("openai defaults leaked into anthropic: %+v", got)
	}

	ai = Default().AI
	ai.Provider = ProviderGoogle
	if got := ai.Resolved(); got.BaseURL != "" || got.ModelName != "gemini-2.0-flash" {
		t.Errorf("openai defaults leaked into google: %+v", got)
	}
	s := Default()
	s.AI.Provider = ProviderGoogle
	if err := s.Validate(); err != nil {
		t.Errorf("google provider rejected: %v", err)
	}

	ai = AI{Provider: ProviderOpenAI, BaseURL: "http://localhost:11434/v1", ModelName: "llama3"}
	if got := ai.Resolved(); got != ai {
		t.Errorf("explicit values must be kept: %+v", got)
	}

	if got := (AI{}).Resolved(); got.Provider != ProviderOpenAI || got.ModelName != "gpt-4o-mini" {
		t.Errorf("empty settings resolved to %+v", got)
	}
}
