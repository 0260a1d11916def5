package selector

import (
	"strings"

	"golang.org/x/net/html"
)

// htmlNode adapts an x/net/html node to Node.
type htmlNode struct {
	n *html.Node
}

// HTML wraps an x/net/html node. A nil node yields a Node that
// Synthesize treats as degenerate.
func HTML(n *html.Node) Node {
	return &htmlNode{n: n}
}

func (h *htmlNode) IsElement() bool { return h.n != nil && h.n.Type == html.ElementNode }

func (h *htmlNode) Tag() string {
	if !h.IsElement() {
		return ""
	}
	return h.n.Data
}

func (h *htmlNode) Attr(name string) string {
	if !h.IsElement() {
		return ""
	}
	return attr(h.n, name)
}

func (h *htmlNode) Parent() Node {
	if h.n == nil || h.n.Parent == nil {
		return nil
	}
	return &htmlNode{n: h.n.Parent}
}

func (h *htmlNode) Index() int {
	if h.n == nil || h.n.Parent == nil {
		return 1
	}
	return elementIndex(h.n)
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

// elementIndex counts n's 1-based position among its parent's element
// children.
func elementIndex(n *html.Node) int {
	idx := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			idx++
		}
	}
	return idx
}
