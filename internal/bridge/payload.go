package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/actrec/action"
	"github.com/hazyhaar/actrec/recorder"
	"github.com/hazyhaar/actrec/selector"
)

// Message kinds sent by recorder.js.
const (
	kindReady = "ready"
	kindEvent = "event"
)

// message is the binding payload.
type message struct {
	Kind   string      `json:"kind"`
	Type   action.Type `json:"type"`
	TS     float64     `json:"ts"` // Date.now() in the page
	URL    string      `json:"url"`
	Target struct {
		NodeType int              `json:"node_type"`
		Path     []selector.Level `json:"path"`
	} `json:"target"`

	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Value   string  `json:"value"`
	Key     string  `json:"key"`
	ScrollX float64 `json:"scroll_x"`
	ScrollY float64 `json:"scroll_y"`
}

func decode(payload string) (*message, error) {
	var m message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return nil, fmt.Errorf("bridge: decode payload: %w", err)
	}
	switch m.Kind {
	case kindReady:
	case kindEvent:
		if !m.Type.Valid() {
			return nil, fmt.Errorf("bridge: unknown event type %q", m.Type)
		}
	default:
		return nil, fmt.Errorf("bridge: unknown message kind %q", m.Kind)
	}
	return &m, nil
}

// event converts an event message into the recorder's view. The target is
// the ancestor chain snapshot taken inside the page.
func (m *message) event() *recorder.Event {
	target := selector.NewChain(m.Target.Path)
	if m.Target.NodeType != 1 {
		target.NotElement = true
	}
	return &recorder.Event{
		Type:      m.Type,
		Target:    target,
		Timestamp: int64(m.TS),
		ClientX:   m.X,
		ClientY:   m.Y,
		Value:     m.Value,
		Key:       m.Key,
		ScrollX:   m.ScrollX,
		ScrollY:   m.ScrollY,
	}
}
