// CLAUDE:SUMMARY Recording controller: arms capture-phase listeners on a Document and appends one action per event.
// Package recorder implements the recording controller: it arms
// capture-phase listeners on a Document, turns every observed event into an
// action.Action, and hands the ordered log back on Stop.
//
// Each Start..Stop pair is one session: Start on an idle recorder clears
// the previous log. Start while recording and Stop while idle are no-ops.
package recorder

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/actrec/action"
	"github.com/hazyhaar/actrec/selector"
)

// Recorder owns the recording flag, the action log and the listener
// registrations for one document. Create one per page or frame.
type Recorder struct {
	doc      Document
	logger   *slog.Logger
	now      func() time.Time
	events   []action.Type
	observer func(action.Action)

	mu        sync.Mutex
	recording bool
	session   uint64
	actions   []action.Action
	regs      []Registration
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

// WithClock sets the time source used for action timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithEvents restricts the captured event types. Unknown types are
// ignored; an empty list keeps the default (all of action.Types).
func WithEvents(types ...action.Type) Option {
	return func(r *Recorder) {
		var keep []action.Type
		seen := make(map[action.Type]bool)
		for _, t := range types {
			if t.Valid() && !seen[t] {
				keep = append(keep, t)
				seen[t] = true
			}
		}
		if len(keep) > 0 {
			r.events = keep
		}
	}
}

// WithObserver registers fn to be called with every appended action, after
// the append and outside the recorder lock.
func WithObserver(fn func(action.Action)) Option {
	return func(r *Recorder) { r.observer = fn }
}

// New creates an idle Recorder bound to doc.
func New(doc Document, opts ...Option) *Recorder {
	r := &Recorder{
		doc:     doc,
		logger:  slog.Default(),
		now:     time.Now,
		events:  action.Types,
		actions: []action.Action{},
	}
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Start arms the recorder: it clears the previous session and attaches one
// capture-phase listener per tracked event type. Calling Start while
// already recording does nothing.
func (r *Recorder) Start() {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		r.logger.Debug("recorder: start ignored, already recording")
		return
	}
	r.recording = true
	r.actions = []action.Action{}
	r.session++
	session := r.session
	r.mu.Unlock()

	// Attached outside the lock: a live page answers over CDP, and
	// captures must not queue behind those round trips.
	var regs []Registration
	for _, typ := range r.events {
		if h := r.handler(typ); h != nil {
			regs = append(regs, r.doc.AddEventListener(typ, h, true))
		}
	}

	r.mu.Lock()
	if r.recording && r.session == session {
		r.regs = append(r.regs, regs...)
		r.mu.Unlock()
		r.logger.Debug("recorder: started", "url", r.doc.URL(), "listeners", len(regs))
		return
	}
	r.mu.Unlock()

	// Stopped while attaching: these registrations were never handed to
	// Stop.
	for _, reg := range regs {
		if reg != nil {
			reg.Remove()
		}
	}
}

// Stop disarms the recorder, releases exactly the registrations acquired by
// Start, and returns a copy of the session log. Stop without a prior Start
// returns an empty log.
func (r *Recorder) Stop() []action.Action {
	r.mu.Lock()
	wasRecording := r.recording
	r.recording = false
	regs := r.regs
	r.regs = nil
	out := make([]action.Action, len(r.actions))
	copy(out, r.actions)
	r.mu.Unlock()

	// Released outside the lock: a host may hold its own lock while it
	// calls our listeners.
	for _, reg := range regs {
		if reg != nil {
			reg.Remove()
		}
	}

	if wasRecording {
		r.logger.Debug("recorder: stopped", "actions", len(out), "released", len(regs))
	}
	return out
}

// Recording reports whether events are currently captured.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Len returns the number of actions in the current session.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actions)
}

// Actions returns a copy of the current session log without stopping.
func (r *Recorder) Actions() []action.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]action.Action, len(r.actions))
	copy(out, r.actions)
	return out
}

func (r *Recorder) handler(typ action.Type) Listener {
	switch typ {
	case action.Click:
		return r.handleClick
	case action.Input:
		return r.handleInput
	case action.Submit:
		return r.handleSubmit
	case action.Keydown:
		return r.handleKeydown
	case action.Scroll:
		return r.handleScroll
	}
	return nil
}

func (r *Recorder) handleClick(ev *Event) {
	r.capture(ev, action.Click, func(a *action.Action) {
		a.Coordinates = &action.Coordinates{X: ev.ClientX, Y: ev.ClientY}
	})
}

func (r *Recorder) handleInput(ev *Event) {
	r.capture(ev, action.Input, func(a *action.Action) {
		v := ev.Value
		a.Value = &v
	})
}

func (r *Recorder) handleSubmit(ev *Event) {
	r.capture(ev, action.Submit, nil)
}

func (r *Recorder) handleKeydown(ev *Event) {
	r.capture(ev, action.Keydown, func(a *action.Action) {
		a.Key = ev.Key
	})
}

func (r *Recorder) handleScroll(ev *Event) {
	r.capture(ev, action.Scroll, func(a *action.Action) {
		a.Scroll = &action.ScrollOffset{X: ev.ScrollX, Y: ev.ScrollY}
	})
}

// capture appends one action when recording. The selector is synthesized
// here, at capture time, from the target as it is now.
func (r *Recorder) capture(ev *Event, typ action.Type, payload func(*action.Action)) {
	if ev == nil {
		return
	}

	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}

	ts := ev.Timestamp
	if ts == 0 {
		ts = r.now().UnixMilli()
	}
	a := action.Action{
		Type:      typ,
		Timestamp: ts,
		Selector:  selector.Synthesize(ev.Target),
		URL:       r.doc.URL(),
	}
	if payload != nil {
		payload(&a)
	}
	r.actions = append(r.actions, a)
	r.mu.Unlock()

	if r.observer != nil {
		r.observer(a)
	}
}
