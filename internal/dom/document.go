// CLAUDE:SUMMARY In-memory x/net/html DOM with capture/target/bubble dispatch, used to drive recorders without Chrome.
// Package dom is an in-memory DOM host for the recorder. It parses HTML
// with x/net/html and dispatches events through the three DOM phases
// (capture from the document down, target, bubble back up) so recorder
// behaviour can be exercised without a browser.
package dom

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/hazyhaar/actrec/action"
	"github.com/hazyhaar/actrec/recorder"
	"github.com/hazyhaar/actrec/selector"
)

// Handler is a page-side listener. Calling stop halts propagation like
// Event.stopPropagation: the remaining listeners on the current node still
// run, nodes further along the path do not.
type Handler func(ev *recorder.Event, stop func())

type listener struct {
	id      uint64
	node    *html.Node // nil = document
	typ     action.Type
	capture bool
	fn      Handler
}

// Document is a parsed HTML tree with event listeners.
type Document struct {
	Root *html.Node

	mu        sync.Mutex
	url       string
	nextID    uint64
	listeners []*listener
}

// Parse builds a Document from HTML source.
func Parse(r io.Reader, url string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return &Document{Root: root, url: url}, nil
}

// ParseString is Parse for a string.
func ParseString(src, url string) (*Document, error) {
	return Parse(strings.NewReader(src), url)
}

// URL returns the document URL.
func (d *Document) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

// Navigate changes the document URL, as a same-document navigation does.
func (d *Document) Navigate(url string) {
	d.mu.Lock()
	d.url = url
	d.mu.Unlock()
}

// AddEventListener implements recorder.Document: l is attached at
// document level.
func (d *Document) AddEventListener(typ action.Type, l recorder.Listener, capture bool) recorder.Registration {
	return d.On(nil, typ, capture, func(ev *recorder.Event, _ func()) { l(ev) })
}

// On attaches a page handler to node (nil = document) and returns its
// registration.
func (d *Document) On(node *html.Node, typ action.Type, capture bool, fn Handler) recorder.Registration {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.listeners = append(d.listeners, &listener{id: id, node: node, typ: typ, capture: capture, fn: fn})
	return recorder.RegistrationFunc(func() { d.remove(id) })
}

func (d *Document) remove(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, l := range d.listeners {
		if l.id == id {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of attached listeners for typ at
// document level.
func (d *Document) ListenerCount(typ action.Type) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, l := range d.listeners {
		if l.node == nil && l.typ == typ {
			n++
		}
	}
	return n
}

// Dispatch delivers ev to target. ev.Target is set to the target's node
// view. Listeners run without the document lock held.
func (d *Document) Dispatch(target *html.Node, ev *recorder.Event) {
	ev.Target = selector.HTML(target)

	// Propagation path: document, then ancestors root-to-target.
	var path []*html.Node
	for n := target; n != nil && n != d.Root; n = n.Parent {
		path = append([]*html.Node{n}, path...)
	}
	path = append([]*html.Node{nil}, path...)

	stopped := false
	stop := func() { stopped = true }

	run := func(node *html.Node, capture bool, atTarget bool) {
		for _, l := range d.snapshot(node, ev.Type) {
			if !atTarget && l.capture != capture {
				continue
			}
			l.fn(ev, stop)
		}
	}

	last := len(path) - 1
	for i := 0; i < last && !stopped; i++ {
		run(path[i], true, false)
	}
	if !stopped {
		run(path[last], false, true)
	}
	for i := last - 1; i >= 0 && !stopped; i-- {
		run(path[i], false, false)
	}
}

func (d *Document) snapshot(node *html.Node, typ action.Type) []*listener {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*listener
	for _, l := range d.listeners {
		if l.node == node && l.typ == typ {
			out = append(out, l)
		}
	}
	return out
}

// ByID returns the first element with the given id.
func (d *Document) ByID(id string) *html.Node {
	return d.Find(func(n *html.Node) bool {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return true
			}
		}
		return false
	})
}

// Find returns the first element accepted by pred, in document order.
func (d *Document) Find(pred func(*html.Node) bool) *html.Node {
	var found *html.Node
	var visit func(*html.Node) bool
	visit = func(n *html.Node) bool {
		if n.Type == html.ElementNode && pred(n) {
			found = n
			return false
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	visit(d.Root)
	return found
}

// Query resolves a selector produced by the synthesizer.
func (d *Document) Query(sel string) *html.Node {
	return selector.Query(d.Root, sel)
}
