package bridge

import (
	"log/slog"
	"sync"

	"github.com/hazyhaar/actrec/action"
	"github.com/hazyhaar/actrec/recorder"
)

// scripter arms and disarms the page-side listener for one event type.
type scripter interface {
	attach(typ action.Type)
	detach(typ action.Type)
}

type entry struct {
	id uint64
	fn recorder.Listener
}

// hub is the Go half of the bridge: it keeps the listeners registered by
// the recorder, asks the page to attach a DOM listener for the first one of
// each type and to detach it when the last one goes, and dispatches decoded
// binding messages in arrival order.
type hub struct {
	script scripter
	logger *slog.Logger

	mu        sync.Mutex
	url       string
	nextID    uint64
	listeners map[action.Type][]entry
}

func newHub(s scripter, logger *slog.Logger) *hub {
	return &hub{
		script:    s,
		logger:    logger,
		listeners: make(map[action.Type][]entry),
	}
}

// AddEventListener implements recorder.Document. The page script always
// listens in the capture phase.
func (h *hub) AddEventListener(typ action.Type, l recorder.Listener, capture bool) recorder.Registration {
	if !capture {
		h.logger.Warn("bridge: bubble-phase listener requested, page listens in capture phase", "type", typ)
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.listeners[typ] = append(h.listeners[typ], entry{id: id, fn: l})
	first := len(h.listeners[typ]) == 1
	h.mu.Unlock()

	if first {
		h.script.attach(typ)
	}

	var once sync.Once
	return recorder.RegistrationFunc(func() {
		once.Do(func() { h.remove(typ, id) })
	})
}

func (h *hub) remove(typ action.Type, id uint64) {
	h.mu.Lock()
	list := h.listeners[typ]
	found := false
	for i, e := range list {
		if e.id == id {
			list = append(list[:i], list[i+1:]...)
			found = true
			break
		}
	}
	last := found && len(list) == 0
	if len(list) == 0 {
		delete(h.listeners, typ)
	} else {
		h.listeners[typ] = list
	}
	h.mu.Unlock()

	if last {
		h.script.detach(typ)
	}
}

// URL implements recorder.Document: the URL reported by the most recent
// message from the page.
func (h *hub) URL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.url
}

func (h *hub) setURL(u string) {
	if u == "" {
		return
	}
	h.mu.Lock()
	h.url = u
	h.mu.Unlock()
}

// active returns the event types that currently have listeners.
func (h *hub) active() []action.Type {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []action.Type
	for _, typ := range action.Types {
		if len(h.listeners[typ]) > 0 {
			out = append(out, typ)
		}
	}
	return out
}

// handle processes one binding payload. Listeners run without the hub
// lock held.
func (h *hub) handle(payload string) {
	m, err := decode(payload)
	if err != nil {
		h.logger.Warn("bridge: drop payload", "error", err)
		return
	}

	h.setURL(m.URL)

	switch m.Kind {
	case kindReady:
		// New document: the script starts with no listeners armed.
		for _, typ := range h.active() {
			h.script.attach(typ)
		}
		h.logger.Debug("bridge: page ready", "url", m.URL)

	case kindEvent:
		h.mu.Lock()
		list := append([]entry(nil), h.listeners[m.Type]...)
		h.mu.Unlock()

		ev := m.event()
		for _, e := range list {
			e.fn(ev)
		}
	}
}
