package recorder

import (
	"github.com/hazyhaar/actrec/action"
	"github.com/hazyhaar/actrec/selector"
)

// Event is a host DOM event as seen by the recorder.
type Event struct {
	Type   action.Type
	Target selector.Node // may be nil or a non-element

	// Timestamp is the capture instant in epoch milliseconds as stamped
	// by the host. Zero means the recorder's clock is used.
	Timestamp int64

	ClientX, ClientY float64 // click
	Value            string  // input: current value of the target field
	Key              string  // keydown
	ScrollX, ScrollY float64 // scroll: offset of the scrolled target
}

// Listener handles one dispatched event. It runs to completion inside the
// host's dispatch.
type Listener func(ev *Event)

// Registration is the handle returned when a listener is attached.
// Remove detaches it; removing twice is a no-op.
type Registration interface {
	Remove()
}

// Document is the host the recorder attaches to: a live page, an
// in-memory DOM, or a test double.
type Document interface {
	// AddEventListener attaches l for events of type typ at document
	// level. capture selects the capturing phase.
	AddEventListener(typ action.Type, l Listener, capture bool) Registration
	// URL is the current document URL.
	URL() string
}

// RegistrationFunc adapts a func to Registration.
type RegistrationFunc func()

func (f RegistrationFunc) Remove() {
	if f != nil {
		f()
	}
}
