package selector

// Level is one element of an ancestor chain snapshot, as serialised by the
// page script at capture time.
type Level struct {
	Tag    string `json:"tag"`
	ID     string `json:"id,omitempty"`
	TestID string `json:"testid,omitempty"`
	Index  int    `json:"index"`
}

// Chain is a Node over a leaf-to-root snapshot of element levels. Levels[0]
// is the event target; the last level's parent is the document, which is
// not an element.
type Chain struct {
	Levels []Level
	pos    int
	// NotElement marks a target that is not an element node (document,
	// text node). Levels are ignored in that case.
	NotElement bool
}

// NewChain returns a Node positioned at the leaf of levels.
func NewChain(levels []Level) *Chain {
	return &Chain{Levels: levels}
}

func (c *Chain) valid() bool {
	return !c.NotElement && c.pos >= 0 && c.pos < len(c.Levels)
}

func (c *Chain) IsElement() bool { return c.valid() }

func (c *Chain) Tag() string {
	if !c.valid() {
		return ""
	}
	return c.Levels[c.pos].Tag
}

func (c *Chain) Attr(name string) string {
	if !c.valid() {
		return ""
	}
	switch name {
	case "id":
		return c.Levels[c.pos].ID
	case TestIDAttr:
		return c.Levels[c.pos].TestID
	}
	return ""
}

func (c *Chain) Parent() Node {
	if !c.valid() || c.pos+1 >= len(c.Levels) {
		return nil
	}
	return &Chain{Levels: c.Levels, pos: c.pos + 1}
}

func (c *Chain) Index() int {
	if !c.valid() || c.Levels[c.pos].Index < 1 {
		return 1
	}
	return c.Levels[c.pos].Index
}
