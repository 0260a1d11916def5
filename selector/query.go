package selector

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// step is one compound selector of the grammar emitted by Synthesize.
type step struct {
	id     string
	testID string
	tag    string
	nth    int
}

// parse splits a selector produced by Synthesize into its steps. Only that
// grammar is supported: #id, [data-testid="v"] and tag:nth-child(n),
// joined by the child combinator.
func parse(sel string) ([]step, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return nil, fmt.Errorf("selector: empty")
	}

	parts := strings.Split(sel, Separator)
	steps := make([]step, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		switch {
		case strings.HasPrefix(p, "#") && len(p) > 1:
			steps = append(steps, step{id: p[1:]})

		case strings.HasPrefix(p, "["+TestIDAttr+`="`) && strings.HasSuffix(p, `"]`):
			v := strings.TrimSuffix(strings.TrimPrefix(p, "["+TestIDAttr+`="`), `"]`)
			steps = append(steps, step{testID: v})

		default:
			open := strings.Index(p, ":nth-child(")
			if open <= 0 || !strings.HasSuffix(p, ")") {
				return nil, fmt.Errorf("selector: unsupported step %q", p)
			}
			n, err := strconv.Atoi(p[open+len(":nth-child(") : len(p)-1])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("selector: bad nth-child in %q", p)
			}
			steps = append(steps, step{tag: p[:open], nth: n})
		}
	}
	return steps, nil
}

func (s step) matches(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	switch {
	case s.id != "":
		return attr(n, "id") == s.id
	case s.testID != "":
		return attr(n, TestIDAttr) == s.testID
	default:
		return strings.EqualFold(n.Data, s.tag) && elementIndex(n) == s.nth
	}
}

// Query resolves sel against the tree rooted at root with querySelector
// semantics: the first element in document order matching the whole chain.
// It returns nil when nothing matches or sel is outside the grammar.
func Query(root *html.Node, sel string) *html.Node {
	steps, err := parse(sel)
	if err != nil {
		return nil
	}
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if matchChain(n, steps) {
			found = n
			return false
		}
		return true
	})
	return found
}

// matchChain checks steps right-to-left, each step against the parent of
// the previous match.
func matchChain(n *html.Node, steps []step) bool {
	cur := n
	for i := len(steps) - 1; i >= 0; i-- {
		if !steps[i].matches(cur) {
			return false
		}
		cur = cur.Parent
	}
	return true
}

// walk visits element nodes in document order until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if n == nil {
		return true
	}
	if n.Type == html.ElementNode && !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}
