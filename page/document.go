package page

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Event is a DOM event observed on a Document, recorded in dispatch order.
type Event struct {
	Type   string
	Target string // tag name plus #id when present
}

// Document is an in-memory host page. It tracks focus, caret and the
// events a real page would see when text is applied.
type Document struct {
	doc     *goquery.Document
	focused *html.Node
	caret   int

	insertTextDisabled bool
	events             []Event
}

// Parse reads an HTML page.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	return &Document{doc: doc}, nil
}

// ParseString parses an HTML string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// DisableInsertText simulates a page where in-place text insertion is
// unavailable, forcing the value-assignment fallback.
func (d *Document) DisableInsertText() {
	d.insertTextDisabled = true
}

// Focus moves focus to the first element matching selector.
func (d *Document) Focus(selector string) bool {
	sel := d.doc.Find(selector).First()
	if sel.Length() == 0 {
		return false
	}
	d.setFocus(sel.Get(0))
	return true
}

// Blur clears focus.
func (d *Document) Blur() {
	d.focused = nil
}

// Remove detaches every element matching selector.
func (d *Document) Remove(selector string) int {
	sel := d.doc.Find(selector)
	n := sel.Length()
	sel.Remove()
	return n
}

// Find returns the elements matching selector as capabilities.
func (d *Document) Find(selector string) []Element {
	var out []Element
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &docElement{d: d, n: s.Get(0)})
	})
	return out
}

// ActiveElement implements Focuser.
func (d *Document) ActiveElement() Element {
	if d.focused == nil || !d.attached(d.focused) {
		return nil
	}
	return &docElement{d: d, n: d.focused}
}

// Value returns the current text of the first element matching selector.
func (d *Document) Value(selector string) string {
	sel := d.doc.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	return (&docElement{d: d, n: sel.Get(0)}).Read()
}

// Caret returns the caret offset inside the focused element.
func (d *Document) Caret() int { return d.caret }

// Events returns the events dispatched so far.
func (d *Document) Events() []Event {
	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}

// HTML renders the current page.
func (d *Document) HTML() (string, error) {
	return goquery.OuterHtml(d.doc.Selection)
}

func (d *Document) setFocus(n *html.Node) {
	if d.focused != n {
		d.focused = n
		d.dispatch("focus", n)
	}
}

func (d *Document) dispatch(typ string, n *html.Node) {
	d.events = append(d.events, Event{Type: typ, Target: describe(n)})
}

func (d *Document) attached(n *html.Node) bool {
	root := d.doc.Get(0)
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

func describe(n *html.Node) string {
	if id := attr(n, "id"); id != "" {
		return n.Data + "#" + id
	}
	return n.Data
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// textInputTypes are the input types whose value is free text.
var textInputTypes = map[string]bool{
	"": true, "text": true, "search": true, "email": true,
	"url": true, "tel": true, "password": true,
}

func classify(n *html.Node) Role {
	if n == nil || n.Type != html.ElementNode {
		return RoleNone
	}
	switch n.DataAtom {
	case atom.Textarea:
		return RoleInput
	case atom.Input:
		if textInputTypes[strings.ToLower(attr(n, "type"))] {
			return RoleInput
		}
		return RoleNone
	}
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode || !hasAttr(p, "contenteditable") {
			continue
		}
		switch strings.ToLower(attr(p, "contenteditable")) {
		case "", "true", "plaintext-only":
			return RoleContentEditable
		default:
			return RoleNone
		}
	}
	return RoleNone
}

type docElement struct {
	d *Document
	n *html.Node
}

func (e *docElement) Role() Role { return classify(e.n) }

func (e *docElement) Attached() bool { return e.d.attached(e.n) }

func (e *docElement) CanApply() bool {
	return e.Attached() && e.Role() == RoleInput
}

func (e *docElement) Read() string {
	switch e.n.DataAtom {
	case atom.Input:
		return attr(e.n, "value")
	case atom.Textarea:
		return goquery.NewDocumentFromNode(e.n).Text()
	}
	return innerText(e.n)
}

// Write follows the apply procedure: focus, select all, insert the text in
// place so the page sees an input event, fall back to assigning the value
// and dispatching input and change, then put the caret at the end.
func (e *docElement) Write(text string) bool {
	if !e.CanApply() {
		return false
	}
	e.d.setFocus(e.n)
	e.d.dispatch("select", e.n)

	if !e.d.insertTextDisabled {
		e.d.dispatch("beforeinput", e.n)
		e.setValue(text)
		e.d.dispatch("input", e.n)
	} else {
		e.setValue(text)
		e.d.dispatch("input", e.n)
		e.d.dispatch("change", e.n)
	}

	e.d.caret = len([]rune(text))
	return true
}

func (e *docElement) setValue(text string) {
	if e.n.DataAtom == atom.Textarea {
		for c := e.n.FirstChild; c != nil; {
			next := c.NextSibling
			e.n.RemoveChild(c)
			c = next
		}
		e.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
		return
	}
	setAttr(e.n, "value", text)
}

// blockElements start a new line in rendered text.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Section: true, atom.Article: true, atom.Tr: true,
}

// innerText approximates the browser's rendered text: markup is dropped,
// whitespace runs collapse, <br> and block boundaries become newlines.
func innerText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			writeCollapsed(&b, n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Br:
				trimTrailingSpace(&b)
				b.WriteByte('\n')
				return
			case atom.Script, atom.Style, atom.Template:
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			newline(&b)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			newline(&b)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return strings.TrimSpace(b.String())
}

func writeCollapsed(b *strings.Builder, s string) {
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space {
			writeSpace(b)
			space = false
		}
		b.WriteRune(r)
	}
	if space {
		writeSpace(b)
	}
}

func writeSpace(b *strings.Builder) {
	cur := b.String()
	if cur == "" || strings.HasSuffix(cur, " ") || strings.HasSuffix(cur, "\n") {
		return
	}
	b.WriteByte(' ')
}

func trimTrailingSpace(b *strings.Builder) {
	s := strings.TrimRight(b.String(), " ")
	b.Reset()
	b.WriteString(s)
}

func newline(b *strings.Builder) {
	trimTrailingSpace(b)
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
}
