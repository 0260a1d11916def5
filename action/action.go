// CLAUDE:SUMMARY Action log contract: event types, actions with type-specific payloads, and finished sessions.
// Package action defines the structured action log produced by the recorder.
// These types are the contract handed to collaborators (storage, playback,
// test generation): any consumer imports this package to read a session.
package action

// Type is the kind of user interaction captured.
type Type string

const (
	Click   Type = "click"   // pointer click, carries Coordinates
	Input   Type = "input"   // field edit, carries Value
	Submit  Type = "submit"  // form submission, no payload
	Keydown Type = "keydown" // key press, carries Key
	Scroll  Type = "scroll"  // scroll, carries Scroll offset
)

// Types lists every captured event type in attach order.
var Types = []Type{Click, Input, Submit, Keydown, Scroll}

// Valid reports whether t belongs to the captured event set.
func (t Type) Valid() bool {
	switch t {
	case Click, Input, Submit, Keydown, Scroll:
		return true
	}
	return false
}

// Coordinates are viewport (client) coordinates of a click.
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ScrollOffset is the scroll position of the scrolled target after the
// scroll event (window offset when the document itself scrolled).
type ScrollOffset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Action is a single captured interaction. Values are immutable once
// appended to a log.
type Action struct {
	Type      Type   `json:"type"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds at capture
	Selector  string `json:"selector"`
	URL       string `json:"url"`

	Coordinates *Coordinates  `json:"coordinates,omitempty"` // click
	Value       *string       `json:"value,omitempty"`       // input, present even when empty
	Key         string        `json:"key,omitempty"`         // keydown
	Scroll      *ScrollOffset `json:"scroll,omitempty"`      // scroll
}

// Session is one finished Start..Stop recording.
type Session struct {
	ID          string   `json:"id"`
	PageURL     string   `json:"page_url"`
	StartedAt   int64    `json:"started_at"` // epoch milliseconds
	StoppedAt   int64    `json:"stopped_at"` // epoch milliseconds
	ActionCount int      `json:"action_count"`
	Actions     []Action `json:"actions"`
}

// NewSession assembles a Session, normalising a nil log to an empty one so
// that the JSON form always carries an array.
func NewSession(id, pageURL string, startedAt, stoppedAt int64, actions []Action) Session {
	if actions == nil {
		actions = []Action{}
	}
	return Session{
		ID:          id,
		PageURL:     pageURL,
		StartedAt:   startedAt,
		StoppedAt:   stoppedAt,
		ActionCount: len(actions),
		Actions:     actions,
	}
}
