// Package settings provides configuration loading and a change-notifying
// settings store for scribe, using TOML.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"scribe/shortcut"
)

// Provider names understood by the llm package.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// DefaultOpenAIBaseURL is the stock endpoint for the openai provider.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// RecommendedModel is the model used when none is configured.
var RecommendedModel = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-sonnet-4-20250514",
	ProviderGoogle:    "gemini-2.0-flash",
}

// AI provider settings
type AI struct {
	Provider      string `toml:"provider"`
	APIKey        string `toml:"apiKey"`
	BaseURL       string `toml:"baseUrl"`
	ModelName     string `toml:"modelName"`
	DefaultPrompt string `toml:"defaultPrompt"` // pre-fills the style instruction
}

// HasCredentials reports whether a rewrite can be attempted at all.
func (a AI) HasCredentials() bool {
	return strings.TrimSpace(a.APIKey) != ""
}

// Resolved fills in the provider's own defaults. An endpoint or model left at
// another provider's default is treated as unset.
func (a AI) Resolved() AI {
	if a.Provider == "" {
		a.Provider = ProviderOpenAI
	}
	if a.Provider != ProviderOpenAI && a.BaseURL == DefaultOpenAIBaseURL {
		a.BaseURL = ""
	}
	for provider, model := range RecommendedModel {
		if provider != a.Provider && a.ModelName == model {
			a.ModelName = ""
		}
	}
	if a.ModelName == "" {
		a.ModelName = RecommendedModel[a.Provider]
	}
	return a
}

// Shortcut slots
type Shortcuts struct {
	Dialog    shortcut.Spec `toml:"dialog"`
	SidePanel shortcut.Spec `toml:"sidePanel"`
}

// Slot returns the spec for a dispatcher slot.
func (s Shortcuts) Slot(slot shortcut.Slot) (shortcut.Spec, bool) {
	switch slot {
	case shortcut.SlotDialog:
		return s.Dialog, true
	case shortcut.SlotSidePanel:
		return s.SidePanel, true
	}
	return shortcut.Spec{}, false
}

// Mode is the editor surface used when the editor is opened without a
// slot-specific shortcut.
type Mode string

const (
	ModeDialog    Mode = "dialog"
	ModeSidePanel Mode = "side_panel"
)

// UI settings
type UI struct {
	Mode Mode `toml:"mode"`
}

// EmDash replacement applied to rewritten text
type EmDash struct {
	Enabled     bool   `toml:"enabled"`
	Replacement string `toml:"replacement"`
}

// Style is a named style-instruction preset.
type Style struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
}

// Settings is the complete configuration.
type Settings struct {
	AI        AI        `toml:"ai"`
	Shortcuts Shortcuts `toml:"shortcuts"`
	UI        UI        `toml:"ui"`
	EmDash    EmDash    `toml:"emDash"`
	Styles    []Style   `toml:"styles"`
}

// Default returns the default configuration.
func Default() Settings {
	return Settings{
		AI: AI{
			Provider:  ProviderOpenAI,
			BaseURL:   DefaultOpenAIBaseURL,
			ModelName: RecommendedModel[ProviderOpenAI],
		},
		Shortcuts: Shortcuts{
			Dialog: shortcut.Spec{
				Modifiers: []shortcut.Modifier{shortcut.Ctrl, shortcut.Shift},
				Key:       "E",
				Enabled:   true,
			},
			SidePanel: shortcut.Spec{
				Modifiers: []shortcut.Modifier{shortcut.Ctrl, shortcut.Shift},
				Key:       "S",
				Enabled:   false,
			},
		},
		UI: UI{Mode: ModeDialog},
		EmDash: EmDash{
			Enabled:     false,
			Replacement: " - ",
		},
		Styles: []Style{
			{Title: "Default", Description: "Rewrite my text in clear, natural English while keeping my tone."},
			{Title: "Grammar & Spelling", Description: "Correct grammar and spelling without changing my style."},
			{Title: "emoji", Description: "Rewrite with emojis only"},
		},
	}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	out.Styles = append([]Style(nil), s.Styles...)
	out.Shortcuts.Dialog.Modifiers = append([]shortcut.Modifier(nil), s.Shortcuts.Dialog.Modifiers...)
	out.Shortcuts.SidePanel.Modifiers = append([]shortcut.Modifier(nil), s.Shortcuts.SidePanel.Modifiers...)
	return out
}

// Style looks up a preset by title, case-insensitively.
func (s Settings) Style(title string) (Style, bool) {
	for _, st := range s.Styles {
		if strings.EqualFold(st.Title, title) {
			return st, true
		}
	}
	return Style{}, false
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid settings")

// Validate rejects settings that must never be persisted.
func (s Settings) Validate() error {
	var errs []error
	if err := shortcut.Validate(s.Shortcuts.Dialog, "dialog"); err != nil {
		errs = append(errs, err)
	}
	if err := shortcut.Validate(s.Shortcuts.SidePanel, "side panel"); err != nil {
		errs = append(errs, err)
	}
	switch s.UI.Mode {
	case ModeDialog, ModeSidePanel:
	default:
		errs = append(errs, fmt.Errorf("unknown ui mode %q", s.UI.Mode))
	}
	switch s.AI.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle:
	default:
		errs = append(errs, fmt.Errorf("unknown ai provider %q", s.AI.Provider))
	}
	for i, st := range s.Styles {
		if strings.TrimSpace(st.Title) == "" {
			errs = append(errs, fmt.Errorf("style %d: title is required", i+1))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// configDir returns the configuration directory path.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "scribe"), nil
}

// ConfigPath returns the path to the user's config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the user's config, layered on top of defaults.
// Returns the defaults if no user config exists.
func Load() (Settings, error) {
	path, err := ConfigPath()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile decodes the TOML file at path on top of the defaults. Keys the
// file does not mention keep their default values.
func LoadFile(path string) (Settings, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	// A styles list in the file replaces the presets outright rather than
	// being merged entry by entry.
	cfg.Styles = nil
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Settings{}, fmt.Errorf("parsing config TOML %s: %w", path, err)
	}
	if !md.IsDefined("styles") {
		cfg.Styles = Default().Styles
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Settings{}, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Settings{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes s to path as TOML, creating the directory if needed.
func Save(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}

// DefaultTOML returns the default configuration as a TOML string.
// Used for --init-config to generate a user config file.
func DefaultTOML() string {
	return `# scribe configuration
# Save to ~/.config/scribe/config.toml and customize
# Only include settings you want to change from defaults

[ai]
provider = "openai"                   # "openai" (any compatible endpoint), "anthropic" or "google"
apiKey = ""
baseUrl = "https://api.openai.com/v1"
modelName = "gpt-4o-mini"
defaultPrompt = ""                    # style instruction pre-filled in the editor

# Keyboard shortcuts. At least one modifier is required when enabled.
# Modifiers: ctrl, shift, alt, meta
[shortcuts.dialog]
modifiers = ["ctrl", "shift"]
key = "E"
enabled = true

[shortcuts.sidePanel]
modifiers = ["ctrl", "shift"]
key = "S"
enabled = false

[ui]
mode = "dialog"                       # "dialog" or "side_panel"

# Replace em dashes in rewritten text
[emDash]
enabled = false
replacement = " - "

[[styles]]
title = "Default"
description = "Rewrite my text in clear, natural English while keeping my tone."

[[styles]]
title = "Grammar & Spelling"
description = "Correct grammar and spelling without changing my style."

[[styles]]
title = "emoji"
description = "Rewrite with emojis only"
`
}

// FormatError formats a configuration error for user display.
func FormatError(err error) string {
	return fmt.Sprintf("Configuration error:\n\n%s", err.Error())
}
