package main

import (
	"fmt"
	"io"

	"scribe/llm"
	"scribe/settings"
	"scribe/shortcut"
)

// writeStatus reports whether a rewrite can run and which page shortcuts
// are active.
func writeStatus(w io.Writer, cfg settings.Settings) error {
	client, err := llm.FromSettings(cfg.AI)
	if err != nil {
		return err
	}
	ai := cfg.AI.Resolved()
	fmt.Fprintf(w, "Provider:  %s (%s)\n", ai.Provider, ai.ModelName)
	switch {
	case !client.Available():
		fmt.Fprintf(w, "API key:   required. Set ai.apiKey in the config or %s.\n", llm.KeyEnv(ai.Provider))
	case cfg.AI.HasCredentials():
		fmt.Fprintln(w, "API key:   set in config")
	default:
		fmt.Fprintf(w, "API key:   from %s\n", llm.KeyEnv(ai.Provider))
	}
	fmt.Fprintf(w, "Mode:      %s\n", cfg.UI.Mode)

	sc := cfg.Shortcuts
	if !shortcut.HasEnabled(sc.Dialog, sc.SidePanel) {
		fmt.Fprintln(w, "Shortcuts: none enabled")
		return nil
	}
	fmt.Fprintln(w, "Shortcuts:")
	for _, s := range []struct {
		name string
		spec shortcut.Spec
	}{
		{"dialog", sc.Dialog},
		{"side panel", sc.SidePanel},
	} {
		if s.spec.Enabled {
			fmt.Fprintf(w, "  %-11s %s\n", s.name, shortcut.Format(s.spec))
		}
	}
	return nil
}
