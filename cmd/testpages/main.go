// Test pages captures and applies text on a set of fixture pages to validate
// field handling, and can serve them for trying `scribe --url` by hand.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"scribe/page"
)

var serve = flag.String("serve", "", "Serve the fixture pages on this address (e.g. :8080)")

type fixture struct {
	html     string
	selector string
}

var fixtures = map[string]fixture{
	"textarea": {
		html:     `<html><body><form><textarea id="f">hello wrold</textarea></form></body></html>`,
		selector: "#f",
	},
	"input": {
		html:     `<html><body><input id="f" type="email" value="me@example.com"></body></html>`,
		selector: "#f",
	},
	"rich": {
		html:     `<html><body><div id="f" contenteditable="true"><p>Rich <b>text</b></p><p>second paragraph</p></div></body></html>`,
		selector: "#f",
	},
	"checkbox": {
		html:     `<html><body><input id="f" type="checkbox"></body></html>`,
		selector: "#f",
	},
	"nothing": {
		html: `<html><body><p>No fields here.</p></body></html>`,
	},
}

func main() {
	flag.Parse()

	if *serve != "" {
		if err := serveFixtures(*serve); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	names := flag.Args()
	if len(names) == 0 {
		for name := range fixtures {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	for _, name := range names {
		testFixture(name)
		fmt.Println(strings.Repeat("=", 60))
	}
}

func testFixture(name string) {
	fmt.Printf("Testing: %s\n", name)
	f, ok := fixtures[name]
	if !ok {
		fmt.Printf("  ERROR unknown fixture\n")
		return
	}

	doc, err := page.ParseString(f.html)
	if err != nil {
		fmt.Printf("  ERROR parsing: %v\n", err)
		return
	}
	if f.selector != "" && !doc.Focus(f.selector) {
		fmt.Printf("  ERROR %s matched nothing\n", f.selector)
		return
	}

	c := page.CaptureFocused(doc)
	fmt.Printf("  Role: %s\n", c.Role)
	fmt.Printf("  Appliable: %v\n", c.Appliable())
	fmt.Printf("  Captured: %q\n", c.Text)
	if !c.Appliable() {
		return
	}

	written := c.Element.Write("hello world")
	fmt.Printf("  Applied: %v\n", written)
	fmt.Printf("  Value now: %q\n", doc.Value(f.selector))
	for _, ev := range doc.Events() {
		fmt.Printf("  Event: %s on %s\n", ev.Type, ev.Target)
	}
	fmt.Printf("  Caret: %d\n", doc.Caret())
}

func serveFixtures(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.Trim(r.URL.Path, "/")
		f, ok := fixtures[name]
		if !ok {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<html><body><ul>")
			for n := range fixtures {
				fmt.Fprintf(w, `<li><a href="/%s">%s</a></li>`, n, n)
			}
			fmt.Fprint(w, "</ul></body></html>")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, f.html)
	})
	fmt.Printf("Serving fixtures on %s\n", addr)
	fmt.Printf("Try: scribe --url http://localhost%s/textarea --selector '#f' -s \"Fix typos\"\n", addr)
	return http.ListenAndServe(addr, mux)
}
