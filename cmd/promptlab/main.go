// Command promptlab runs one text through every configured style so the
// style presets can be compared side by side.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"scribe/llm"
	"scribe/rewrite"
	"scribe/settings"
)

var (
	configPath = flag.String("config", "", "Config file (default ~/.config/scribe/config.toml)")
	only       = flag.String("style", "", "Run only the style with this title")
	timeout    = flag.Duration("timeout", 60*time.Second, "Timeout per rewrite")
	showPrompt = flag.Bool("prompt", false, "Print the prompt sent for each style")
)

const sample = `i think we should of shipped the feature last week but their was alot of
bugs — mostly in the export path — so we held off untill QA signed off.`

func main() {
	flag.Parse()

	cfg, err := loadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, settings.FormatError(err))
		os.Exit(1)
	}

	text := sample
	if flag.NArg() > 0 {
		data, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			fmt.Printf("Read error: %v\n", err)
			os.Exit(1)
		}
		text = string(data)
	} else if stat, _ := os.Stdin.Stat(); stat.Mode()&os.ModeCharDevice == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err == nil && strings.TrimSpace(string(data)) != "" {
			text = string(data)
		}
	}

	client, err := llm.FromSettings(cfg.AI)
	if err != nil {
		fmt.Printf("Provider error: %v\n", err)
		os.Exit(1)
	}
	if !client.Available() {
		fmt.Println("No LLM provider available! Set ai.apiKey in the config.")
		os.Exit(1)
	}
	r := rewrite.New(client, rewrite.WithEmDash(cfg.EmDash))

	fmt.Printf("PROMPT LAB: %d styles\n", len(cfg.Styles))
	fmt.Printf("Using LLM: %s (%s)\n", client.Provider().Name(), cfg.AI.Resolved().ModelName)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("\nInput:\n%s\n", text)

	for _, style := range cfg.Styles {
		if *only != "" && !strings.EqualFold(style.Title, *only) {
			continue
		}
		runStyle(r, style, text)
	}
}

func loadSettings() (settings.Settings, error) {
	if *configPath != "" {
		return settings.LoadFile(*configPath)
	}
	return settings.Load()
}

func runStyle(r rewrite.Rewriter, style settings.Style, text string) {
	fmt.Printf("\n%s %s %s\n", strings.Repeat("─", 20), style.Title, strings.Repeat("─", 20))
	fmt.Printf("Instruction: %s\n", style.Description)
	if *showPrompt {
		fmt.Printf("\nPrompt:\n%s\n", rewrite.BuildPrompt(text, style.Description))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	start := time.Now()
	res, err := r.Rewrite(ctx, text, style.Description)
	if err != nil {
		fmt.Printf("Rewrite error: %v\n", err)
		return
	}

	fmt.Printf("\nResult (%s, %d -> %d chars):\n%s\n",
		time.Since(start).Round(time.Millisecond), len(text), len(res.Content), res.Content)
	if res.Summary != "" {
		fmt.Printf("\nSummary: %s\n", res.Summary)
	}
}
