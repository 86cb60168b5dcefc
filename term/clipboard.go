package term

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Clipboard copies text through the OSC 52 escape, which most terminal
// emulators forward to the system clipboard, including over SSH. When the
// output is not a terminal it falls back to the platform clipboard tool.
type Clipboard struct {
	w      io.Writer
	system func(text string) error
}

// NewClipboard writes escapes to w. A nil w uses stdout.
func NewClipboard(w io.Writer) *Clipboard {
	if w == nil {
		w = os.Stdout
	}
	return &Clipboard{w: w, system: copyToSystem}
}

// WriteText places text on the clipboard.
func (c *Clipboard) WriteText(text string) error {
	if f, ok := c.w.(*os.File); ok && !IsTerminal(f) {
		return c.system(text)
	}
	seq := "\033]52;c;" + base64.StdEncoding.EncodeToString([]byte(text)) + "\a"
	if os.Getenv("TMUX") != "" {
		seq = "\033Ptmux;\033" + seq + "\033\\"
	}
	if _, err := io.WriteString(c.w, seq); err != nil {
		return fmt.Errorf("writing clipboard escape: %w", err)
	}
	return nil
}

// copyToSystem pipes text into pbcopy, xclip or xsel.
func copyToSystem(text string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbcopy")
	case "linux":
		if _, err := exec.LookPath("xclip"); err == nil {
			cmd = exec.Command("xclip", "-selection", "clipboard")
		} else {
			cmd = exec.Command("xsel", "--clipboard", "--input")
		}
	default:
		return fmt.Errorf("clipboard not supported on %s", runtime.GOOS)
	}
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
