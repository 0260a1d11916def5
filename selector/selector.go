// CLAUDE:SUMMARY Synthesizes CSS selectors (id, data-testid, anchored nth-child path) from a read-only ancestor view.
// Package selector synthesizes CSS selectors for DOM elements.
//
// The synthesizer works on a read-only view of the ancestor chain (Node),
// so it runs identically against a live page snapshot (Chain), a parsed
// HTML tree (HTML) or a test fixture.
//
// Priority, first match wins:
//
//	#id                          element has a non-empty id
//	[data-testid="v"]            element has a non-empty data-testid
//	a:nth-child(i) > ... > b:nth-child(j)
//	                             structural path, anchored at the nearest
//	                             ancestor with an id when there is one
package selector

import (
	"strconv"
	"strings"
)

// TestIDAttr is the author-curated attribute preferred over structure.
const TestIDAttr = "data-testid"

// Separator joins path levels root-to-leaf.
const Separator = " > "

// Node is a read-only view of a DOM node.
type Node interface {
	// IsElement reports whether the node is an element node.
	IsElement() bool
	// Tag is the element tag name as reported by the host.
	Tag() string
	// Attr returns the attribute value, "" when absent.
	Attr(name string) string
	// Parent returns the parent node (element or document), nil when
	// the node is detached or is the root.
	Parent() Node
	// Index is the 1-based position among the parent's element children.
	// A node without parent reports 1.
	Index() int
}

// Synthesize returns the selector for n. It never panics: nil and
// non-element nodes yield "", and an element without tag ends the walk
// with the partial path built so far.
func Synthesize(n Node) string {
	if isNil(n) || !n.IsElement() {
		return ""
	}

	if id := n.Attr("id"); id != "" {
		return "#" + id
	}
	if tid := n.Attr(TestIDAttr); tid != "" {
		return `[` + TestIDAttr + `="` + tid + `"]`
	}

	var levels []string
	for cur := n; !isNil(cur) && cur.IsElement(); cur = cur.Parent() {
		if id := cur.Attr("id"); id != "" {
			levels = append(levels, "#"+id)
			break
		}
		tag := strings.ToLower(cur.Tag())
		if tag == "" {
			break
		}
		idx := cur.Index()
		if idx < 1 {
			idx = 1
		}
		levels = append(levels, tag+":nth-child("+strconv.Itoa(idx)+")")
	}

	// Collected leaf-to-root.
	for i, j := 0, len(levels)-1; i < j; i, j = i+1, j-1 {
		levels[i], levels[j] = levels[j], levels[i]
	}
	return strings.Join(levels, Separator)
}

// isNil catches typed nil pointers hidden in the interface.
func isNil(n Node) bool {
	if n == nil {
		return true
	}
	switch v := n.(type) {
	case *Chain:
		return v == nil
	case *htmlNode:
		return v == nil || v.n == nil
	}
	return false
}
