package bridge

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/actrec/action"
	"github.com/hazyhaar/actrec/recorder"
	"github.com/hazyhaar/actrec/selector"
)

type fakeScript struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeScript) attach(typ action.Type) { f.record("attach:" + string(typ)) }
func (f *fakeScript) detach(typ action.Type) { f.record("detach:" + string(typ)) }

func (f *fakeScript) record(s string) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	f.mu.Unlock()
}

func (f *fakeScript) log() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.calls, ",")
}

func newTestHub() (*hub, *fakeScript) {
	fs := &fakeScript{}
	return newHub(fs, slog.Default()), fs
}

func eventPayload(t *testing.T, typ action.Type, url string, levels []selector.Level, extra map[string]any) string {
	t.Helper()
	m := map[string]any{
		"kind":   "event",
		"type":   typ,
		"url":    url,
		"target": map[string]any{"node_type": 1, "path": levels},
	}
	for k, v := range extra {
		m[k] = v
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestRecorderOverBridge(t *testing.T) {
	h, fs := newTestHub()
	h.handle(`{"kind":"ready","url":"https://shop.example/cart"}`)

	r := recorder.New(h)
	r.Start()

	levels := []selector.Level{
		{Tag: "BUTTON", Index: 2},
		{Tag: "DIV", ID: "cart", Index: 1},
		{Tag: "BODY", Index: 2},
		{Tag: "HTML", Index: 1},
	}
	h.handle(eventPayload(t, action.Click, "https://shop.example/cart", levels, map[string]any{"x": 10.5, "y": 20}))
	h.handle(eventPayload(t, action.Input, "https://shop.example/cart", []selector.Level{{Tag: "INPUT", TestID: "qty", Index: 1}}, map[string]any{"value": "3"}))
	h.handle(eventPayload(t, action.Keydown, "https://shop.example/checkout", []selector.Level{{Tag: "INPUT", ID: "q"}}, map[string]any{"key": "Enter"}))

	got := r.Stop()
	if len(got) != 3 {
		t.Fatalf("got %d actions, want 3", len(got))
	}
	if got[0].Selector != "#cart > button:nth-child(2)" {
		t.Errorf("click selector: got %q", got[0].Selector)
	}
	if got[0].Coordinates == nil || got[0].Coordinates.X != 10.5 {
		t.Errorf("click coordinates: got %+v", got[0].Coordinates)
	}
	if got[1].Selector != `[data-testid="qty"]` || *got[1].Value != "3" {
		t.Errorf("input: got %+v", got[1])
	}
	if got[2].URL != "https://shop.example/checkout" || got[2].Key != "Enter" {
		t.Errorf("keydown: got %+v", got[2])
	}

	log := fs.log()
	for _, typ := range action.Types {
		if !strings.Contains(log, "attach:"+string(typ)) || !strings.Contains(log, "detach:"+string(typ)) {
			t.Errorf("%s not attached and detached: %s", typ, log)
		}
	}
	if len(h.active()) != 0 {
		t.Errorf("listeners left after stop: %v", h.active())
	}
}

func TestPageTimestampKept(t *testing.T) {
	h, _ := newTestHub()
	r := recorder.New(h, recorder.WithClock(func() time.Time { return time.UnixMilli(9_999_999_999_999) }))
	r.Start()

	btn := []selector.Level{{Tag: "BUTTON", ID: "go"}}
	h.handle(eventPayload(t, action.Click, "https://example.com/", btn, map[string]any{"ts": 1_700_000_000_123}))
	h.handle(eventPayload(t, action.Click, "https://example.com/", btn, nil))

	got := r.Stop()
	if len(got) != 2 {
		t.Fatalf("got %d actions", len(got))
	}
	if got[0].Timestamp != 1_700_000_000_123 {
		t.Errorf("page timestamp: got %d", got[0].Timestamp)
	}
	if got[1].Timestamp != 9_999_999_999_999 {
		t.Errorf("clock fallback: got %d", got[1].Timestamp)
	}
}

func TestAttachOncePerType(t *testing.T) {
	h, fs := newTestHub()
	noop := func(*recorder.Event) {}

	r1 := h.AddEventListener(action.Click, noop, true)
	r2 := h.AddEventListener(action.Click, noop, true)
	if fs.log() != "attach:click" {
		t.Fatalf("calls: %s", fs.log())
	}

	r1.Remove()
	r1.Remove()
	if fs.log() != "attach:click" {
		t.Fatalf("detached while a listener remains: %s", fs.log())
	}
	r2.Remove()
	if fs.log() != "attach:click,detach:click" {
		t.Fatalf("calls: %s", fs.log())
	}
}

func TestReadyReattaches(t *testing.T) {
	h, fs := newTestHub()
	h.AddEventListener(action.Scroll, func(*recorder.Event) {}, true)
	h.AddEventListener(action.Submit, func(*recorder.Event) {}, true)

	h.handle(`{"kind":"ready","url":"https://example.com/next"}`)

	if fs.log() != "attach:scroll,attach:submit,attach:submit,attach:scroll" {
		t.Errorf("calls: %s", fs.log())
	}
	if h.URL() != "https://example.com/next" {
		t.Errorf("URL: got %q", h.URL())
	}
}

func TestNonElementTarget(t *testing.T) {
	h, _ := newTestHub()
	r := recorder.New(h)
	r.Start()

	h.handle(`{"kind":"event","type":"scroll","url":"https://x","target":{"node_type":9,"path":[]},"scroll_x":0,"scroll_y":900}`)
	got := r.Stop()

	if len(got) != 1 {
		t.Fatalf("got %d actions", len(got))
	}
	if got[0].Selector != "" || got[0].Scroll == nil || got[0].Scroll.Y != 900 {
		t.Errorf("got %+v", got[0])
	}
}

func TestBadPayloadsDropped(t *testing.T) {
	h, _ := newTestHub()
	r := recorder.New(h)
	r.Start()

	for _, p := range []string{
		`not json`,
		`{"kind":"event","type":"hover"}`,
		`{"kind":"mystery"}`,
	} {
		h.handle(p)
	}
	if got := r.Stop(); len(got) != 0 {
		t.Errorf("got %d actions from bad payloads", len(got))
	}
}

func TestDecode(t *testing.T) {
	m, err := decode(`{"kind":"event","type":"input","url":"u","target":{"node_type":1,"path":[{"tag":"TEXTAREA","index":4}]},"value":"hi"}`)
	if err != nil {
		t.Fatal(err)
	}
	ev := m.event()
	if ev.Type != action.Input || ev.Value != "hi" {
		t.Errorf("event: %+v", ev)
	}
	if got := selector.Synthesize(ev.Target); got != "textarea:nth-child(4)" {
		t.Errorf("selector: got %q", got)
	}
}

func TestScriptEmbedded(t *testing.T) {
	for _, want := range []string{BindingName, "addEventListener(type, handlers[type], true)", "removeEventListener"} {
		if !strings.Contains(recorderJS, want) {
			t.Errorf("recorder.js missing %q", want)
		}
	}
}
