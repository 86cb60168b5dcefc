// Scribe is an AI writing helper: rewrite text in a terminal scratch pad,
// from stdin, or straight inside a web page's text field.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"scribe/logx"
	"scribe/settings"
	"scribe/term"
)

type options struct {
	printMode  bool
	initConfig bool
	status     bool
	configPath string
	style      string
	url        string
	selector   string
	headed     bool
	logLevel   string
	logFile    string
}

func main() {
	var o options
	args := os.Args[1:]
	// value returns the argument after a flag, exiting if there is none.
	value := func(i *int, flag string) string {
		if *i+1 >= len(args) {
			fmt.Fprintf(os.Stderr, "error: %s needs a value\n", flag)
			os.Exit(2)
		}
		*i++
		return args[*i]
	}

	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "-p", "--print":
			o.printMode = true
		case "--init-config":
			o.initConfig = true
		case "--status":
			o.status = true
		case "-c", "--config":
			o.configPath = value(&i, arg)
		case "-s", "--style":
			o.style = value(&i, arg)
		case "--url":
			o.url = value(&i, arg)
		case "--selector":
			o.selector = value(&i, arg)
		case "--headed":
			o.headed = true
		case "-v", "--verbose":
			o.logLevel = "debug"
		case "--log":
			o.logFile = value(&i, arg)
		case "-h", "--help":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "error: unknown argument %q\n", arg)
			printUsage()
			os.Exit(2)
		}
	}

	// Generate default config and exit
	if o.initConfig {
		fmt.Print(settings.DefaultTOML())
		return
	}

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Scribe - AI writing helper

Usage: scribe [options]

Options:
  -p, --print          Rewrite stdin to stdout (one-shot mode)
  -s, --style TEXT     Style instruction, or the title of a configured style
  --url URL            Open URL in Chrome and rewrite the focused field
  --selector CSS       Field to focus before capturing (with --url)
  --headed             Show the Chrome window (with --url)
  -c, --config PATH    Config file (default ~/.config/scribe/config.toml)
  -v, --verbose        Debug logging
  --log PATH           Write logs to a file (the scratch pad logs nowhere else)
  --status             Show provider, API key and shortcut status
  --init-config        Output default config
  -h, --help           Show this help

Examples:
  scribe                                      Open the scratch pad
  echo "teh draft" | scribe -p -s "Grammar & Spelling"
  scribe --url https://example.com/form --selector textarea -s "Make it formal"
  scribe --init-config > ~/.config/scribe/config.toml

Scratch pad keys:
  Alt+R rewrite   Alt+P/Alt+N previous/next version   Alt+Z reset
  Alt+S next style   Alt+C copy   Esc or Ctrl+Q quit`)
}

func run(o options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pad := !o.printMode && !o.status && o.url == ""
	log, closeLog, err := newLogger(o, pad)
	if err != nil {
		return err
	}
	defer closeLog()

	path := o.configPath
	if path == "" {
		if path, err = settings.ConfigPath(); err != nil {
			return fmt.Errorf("locating config: %w", err)
		}
	}
	store, err := settings.Open(path, settings.WithLogger(logx.Component(log, "settings")))
	if err != nil {
		return fmt.Errorf("%s", settings.FormatError(err))
	}
	cfg := store.Get()
	style := resolveStyle(cfg, o.style)
	log.Debug().Str("config", path).Str("provider", cfg.AI.Resolved().Provider).Msg("settings loaded")

	switch {
	case o.status:
		return writeStatus(os.Stdout, cfg)
	case o.printMode:
		return runPrint(ctx, cfg, style, log)
	case o.url != "":
		return runBrowser(ctx, o, store, style, log)
	}
	return runPad(ctx, store, style, log)
}

// newLogger logs to stderr, or to --log when given. The scratch pad owns
// the terminal, so it only logs when a file is named.
func newLogger(o options, pad bool) (zerolog.Logger, func(), error) {
	lc := logx.Config{Level: o.logLevel}
	if lc.Level == "" {
		lc.Level = "warn"
	}
	switch {
	case o.logFile != "":
		f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return zerolog.Nop(), func() {}, fmt.Errorf("opening log file: %w", err)
		}
		lc.Output = f
		return logx.New(lc), func() { f.Close() }, nil
	case pad:
		return zerolog.Nop(), func() {}, nil
	}
	lc.Pretty = term.IsTerminal(os.Stderr)
	return logx.New(lc), func() {}, nil
}

// resolveStyle expands a configured style title into its instruction.
// Anything else is used as the instruction itself. With no flag the
// configured default prompt applies.
func resolveStyle(cfg settings.Settings, flag string) string {
	if flag == "" {
		return cfg.AI.DefaultPrompt
	}
	if s, ok := cfg.Style(flag); ok {
		return s.Description
	}
	return strings.TrimSpace(flag)
}
