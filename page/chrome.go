package page

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
)

// Options configures the Chrome instance behind a Tab.
type Options struct {
	ChromePath     string // empty = auto-detect
	Headless       bool
	TimeoutSeconds int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{Headless: true, TimeoutSeconds: 30}
}

var tabSeq atomic.Int64

// Tab is a live Chrome tab. It implements Focuser over the real DOM.
type Tab struct {
	id     int
	ctx    context.Context
	cancel context.CancelFunc
}

// userDataDir keeps a profile separate from the user's own browser.
func userDataDir() string {
	dir, _ := os.UserCacheDir()
	return filepath.Join(dir, "scribe-chrome-profile")
}

// OpenTab starts Chrome and navigates to url.
func OpenTab(ctx context.Context, url string, o Options) (*Tab, error) {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("password-store", "basic"),
		chromedp.Flag("use-mock-keychain", true),
		chromedp.WindowSize(1280, 900),
		chromedp.UserDataDir(userDataDir()),
	}
	if o.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if o.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(o.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	timeout := time.Duration(o.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	navCtx, navCancel := context.WithTimeout(tabCtx, timeout)
	defer navCancel()

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		cancel()
		return nil, fmt.Errorf("opening %s: %w", url, err)
	}

	return &Tab{id: int(tabSeq.Add(1)), ctx: tabCtx, cancel: cancel}, nil
}

// ID is the tab id used for tab-scoped messages.
func (t *Tab) ID() int { return t.id }

// Close shuts the tab and its browser down.
func (t *Tab) Close() {
	t.cancel()
}

// Focus focuses the first element matching selector.
func (t *Tab) Focus(selector string) error {
	return chromedp.Run(t.ctx, chromedp.Focus(selector, chromedp.ByQuery))
}

// captureScript tags document.activeElement with a token so later calls can
// find the same element, and reports its classification.
const captureScript = `(function(token) {
  const el = document.activeElement;
  if (!el || el === document.body) return "";
  const tag = el.tagName;
  const textTypes = ["", "text", "search", "email", "url", "tel", "password"];
  if (tag === "TEXTAREA" || (tag === "INPUT" && textTypes.includes((el.getAttribute("type") || "").toLowerCase()))) {
    el.setAttribute("data-scribe-capture", token);
    return "input";
  }
  if (el.isContentEditable) {
    el.setAttribute("data-scribe-capture", token);
    return "contenteditable";
  }
  return "";
})(%s)`

const lookup = `document.querySelector('[data-scribe-capture=' + JSON.stringify(%s) + ']')`

const readScript = `(function() {
  const el = ` + lookup + `;
  if (!el) return "";
  return (el.tagName === "INPUT" || el.tagName === "TEXTAREA") ? el.value : el.innerText;
})()`

const attachedScript = `(function() {
  const el = ` + lookup + `;
  return !!el && el.isConnected;
})()`

// applyScript mirrors Element.Write inside the page.
const applyScript = `(function(text) {
  const el = ` + lookup + `;
  if (!el || !el.isConnected) return false;
  if (el.tagName !== "INPUT" && el.tagName !== "TEXTAREA") return false;
  el.focus();
  el.select();
  let inserted = false;
  try {
    inserted = document.execCommand("insertText", false, text);
  } catch (e) {
    inserted = false;
  }
  if (!inserted || el.value !== text) {
    el.value = text;
    el.dispatchEvent(new Event("input", { bubbles: true }));
    el.dispatchEvent(new Event("change", { bubbles: true }));
  }
  try {
    el.setSelectionRange(text.length, text.length);
  } catch (e) {}
  return true;
})(%s)`

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func withUserGesture(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithUserGesture(true)
}

// ActiveElement implements Focuser.
func (t *Tab) ActiveElement() Element {
	token := uuid.NewString()
	var role string
	if err := chromedp.Run(t.ctx, chromedp.Evaluate(fmt.Sprintf(captureScript, jsString(token)), &role)); err != nil {
		return nil
	}
	el := &tabElement{tab: t, token: token}
	switch role {
	case "input":
		el.role = RoleInput
	case "contenteditable":
		el.role = RoleContentEditable
	default:
		return nil
	}
	return el
}

type tabElement struct {
	tab   *Tab
	token string
	role  Role
}

func (e *tabElement) Role() Role { return e.role }

func (e *tabElement) Read() string {
	var text string
	script := fmt.Sprintf(readScript, jsString(e.token))
	if err := chromedp.Run(e.tab.ctx, chromedp.Evaluate(script, &text)); err != nil {
		return ""
	}
	return text
}

func (e *tabElement) Attached() bool {
	var ok bool
	script := fmt.Sprintf(attachedScript, jsString(e.token))
	if err := chromedp.Run(e.tab.ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return false
	}
	return ok
}

func (e *tabElement) CanApply() bool {
	return e.role == RoleInput && e.Attached()
}

func (e *tabElement) Write(text string) bool {
	if e.role != RoleInput {
		return false
	}
	var ok bool
	script := fmt.Sprintf(applyScript, jsString(e.token), jsString(text))
	if err := chromedp.Run(e.tab.ctx, chromedp.Evaluate(script, &ok, withUserGesture)); err != nil {
		return false
	}
	return ok
}
