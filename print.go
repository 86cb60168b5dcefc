package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"scribe/logx"
	"scribe/rewrite"
	"scribe/session"
	"scribe/settings"
	"scribe/term"
)

// runPrint rewrites stdin once and writes the result to stdout. The model's
// summary goes to stderr so pipelines only see the text.
func runPrint(ctx context.Context, cfg settings.Settings, style string, log zerolog.Logger) error {
	in, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	r, err := rewrite.FromSettings(cfg, rewrite.WithLogger(logx.Component(log, "rewrite")))
	if err != nil {
		return err
	}

	var failure string
	ed := session.NewEditor(strings.TrimRight(string(in), "\n"), false,
		session.WithRewriter(r),
		session.WithStyle(style),
		session.WithNotifier(session.NotifierFunc(func(msg string) { failure = msg })),
		session.WithEditorLogger(logx.Component(log, "editor")),
	)
	if err := ed.Rewrite(ctx); err != nil {
		if failure != "" {
			return fmt.Errorf("%s", failure)
		}
		return err
	}

	fmt.Println(ed.Content())
	if summary := ed.Summary(); summary != "" && term.IsTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "\n%s\n", summary)
	}
	return nil
}
