package actrec

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/net/html"

	"github.com/hazyhaar/actrec/action"
	"github.com/hazyhaar/actrec/dbopen"
	"github.com/hazyhaar/actrec/idgen"
	"github.com/hazyhaar/actrec/internal/dom"
	"github.com/hazyhaar/actrec/internal/sink"
	"github.com/hazyhaar/actrec/internal/store"
	"github.com/hazyhaar/actrec/recorder"
)

const testPage = `<html><body>
<form id="search"><input data-testid="q"><button id="go">Go</button></form>
<ul><li>one</li><li>two</li></ul>
</body></html>`

// fakePage is a synthetic DOM standing in for a browser tab.
type fakePage struct {
	*dom.Document
	mu     sync.Mutex
	closed bool
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *fakePage) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type fakeBackend struct {
	mu     sync.Mutex
	pages  []*fakePage
	fail   error
	closed bool
}

func (b *fakeBackend) Open(_ context.Context, url string) (Page, error) {
	if b.fail != nil {
		return nil, b.fail
	}
	d, err := dom.ParseString(testPage, url)
	if err != nil {
		return nil, err
	}
	p := &fakePage{Document: d}
	b.mu.Lock()
	b.pages = append(b.pages, p)
	b.mu.Unlock()
	return p, nil
}

func (b *fakeBackend) Close() error {
	b.closed = true
	return nil
}

func (b *fakeBackend) last() *fakePage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pages[len(b.pages)-1]
}

func stepClock() func() time.Time {
	var mu sync.Mutex
	ts := time.UnixMilli(1_700_000_000_000)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		ts = ts.Add(time.Second)
		return ts
	}
}

type collected struct {
	mu       sync.Mutex
	sessions []action.Session
}

func (c *collected) sink() sink.Sink {
	return sink.NewCallback(func(_ context.Context, s action.Session) error {
		c.mu.Lock()
		c.sessions = append(c.sessions, s)
		c.mu.Unlock()
		return nil
	})
}

func testService(t *testing.T, opts ...Option) (*Service, *fakeBackend, *collected) {
	t.Helper()
	b := &fakeBackend{}
	c := &collected{}
	all := append([]Option{
		WithIDGenerator(idgen.Sequence("s")),
		WithClock(stepClock()),
		WithSinks(c.sink()),
	}, opts...)
	s := New(b, all...)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s, b, c
}

func clickGo(p *fakePage) {
	p.Dispatch(p.ByID("go"), &recorder.Event{Type: action.Click, ClientX: 3, ClientY: 4})
}

func TestStartStopSession(t *testing.T) {
	s, b, c := testService(t)
	ctx := context.Background()

	info, err := s.StartSession(ctx, StartRequest{URL: "https://example.com/search"})
	if err != nil {
		t.Fatal(err)
	}
	if info.ID != "s1" || info.State != StateRecording || info.PageURL != "https://example.com/search" {
		t.Fatalf("info: %+v", info)
	}

	p := b.last()
	clickGo(p)
	p.Dispatch(p.Find(func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == "input" }), &recorder.Event{Type: action.Input, Value: "golang"})

	sess, err := s.StopSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if sess.ActionCount != 2 {
		t.Fatalf("actions: got %d, want 2", sess.ActionCount)
	}
	if sess.Actions[0].Selector != "#go" || sess.Actions[1].Selector != `[data-testid="q"]` {
		t.Errorf("selectors: %q, %q", sess.Actions[0].Selector, sess.Actions[1].Selector)
	}
	if sess.StoppedAt <= sess.StartedAt {
		t.Errorf("times: started %d stopped %d", sess.StartedAt, sess.StoppedAt)
	}
	if !p.isClosed() {
		t.Error("page not closed")
	}
	if p.ListenerCount(action.Click) != 0 {
		t.Error("listeners left on page")
	}
	if len(c.sessions) != 1 || c.sessions[0].ID != "s1" {
		t.Errorf("sink got %+v", c.sessions)
	}

	if got := testutil.ToFloat64(s.Metrics().ActionsCaptured.WithLabelValues("click")); got != 1 {
		t.Errorf("click metric: %v", got)
	}
	if got := testutil.ToFloat64(s.Metrics().SessionsActive); got != 0 {
		t.Errorf("active metric: %v", got)
	}
}

func TestStartValidation(t *testing.T) {
	s, b, _ := testService(t)
	ctx := context.Background()

	if _, err := s.StartSession(ctx, StartRequest{}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty url: got %v", err)
	}
	if _, err := s.StartSession(ctx, StartRequest{URL: "javascript:alert(1)"}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("javascript url: got %v", err)
	}
	if _, err := s.StartSession(ctx, StartRequest{URL: "https://a", ID: "../escape"}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("path-like id: got %v", err)
	}

	if _, err := s.StartSession(ctx, StartRequest{URL: "https://a", ID: "mine"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.StartSession(ctx, StartRequest{URL: "https://b", ID: "mine"}); !errors.Is(err, ErrSessionExists) {
		t.Errorf("duplicate id: got %v", err)
	}
	if _, err := s.StopSession(ctx, "mine"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.StartSession(ctx, StartRequest{URL: "https://b", ID: "mine"}); !errors.Is(err, ErrSessionExists) {
		t.Errorf("id of finished session reused: got %v", err)
	}

	b.fail = errors.New("chrome gone")
	_, err := s.StartSession(ctx, StartRequest{URL: "https://c", ID: "broken"})
	if err == nil || !strings.Contains(err.Error(), "chrome gone") {
		t.Fatalf("got %v", err)
	}
	b.fail = nil
	if _, err := s.StartSession(ctx, StartRequest{URL: "https://c", ID: "broken"}); err != nil {
		t.Errorf("id not released after failed open: %v", err)
	}
}

func TestStopUnknown(t *testing.T) {
	s, _, _ := testService(t)
	if _, err := s.StopSession(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestStopTwice(t *testing.T) {
	s, _, c := testService(t)
	ctx := context.Background()
	s.StartSession(ctx, StartRequest{URL: "https://a"})
	if _, err := s.StopSession(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.StopSession(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second stop: got %v", err)
	}
	if len(c.sessions) != 1 {
		t.Errorf("delivered %d times", len(c.sessions))
	}
}

func TestGetSessionRunningAndFinished(t *testing.T) {
	s, b, _ := testService(t)
	ctx := context.Background()

	s.StartSession(ctx, StartRequest{URL: "https://a"})
	clickGo(b.last())

	running, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if running.State != StateRecording || running.ActionCount != 1 || len(running.Actions) != 1 {
		t.Errorf("running: %+v", running)
	}

	s.StopSession(ctx, "s1")
	done, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if done.State != StateStopped || done.StoppedAt == 0 || len(done.Actions) != 1 {
		t.Errorf("finished: %+v", done)
	}

	if _, err := s.GetSession(ctx, "zzz"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown: got %v", err)
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	s, _, _ := testService(t)
	ctx := context.Background()

	for _, u := range []string{"https://a", "https://b", "https://c"} {
		if _, err := s.StartSession(ctx, StartRequest{URL: u}); err != nil {
			t.Fatal(err)
		}
	}
	s.StopSession(ctx, "s2")

	list, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, info := range list {
		ids = append(ids, info.ID+":"+string(info.State))
		if info.Actions != nil {
			t.Errorf("list carries actions for %s", info.ID)
		}
	}
	if got := strings.Join(ids, ","); got != "s3:recording,s2:stopped,s1:recording" {
		t.Errorf("got %s", got)
	}
}

func TestRetainEvicts(t *testing.T) {
	s, _, _ := testService(t, WithRetain(2))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.StartSession(ctx, StartRequest{URL: "https://a"})
	}
	for _, id := range []string{"s1", "s2", "s3"} {
		s.StopSession(ctx, id)
	}
	if _, err := s.GetSession(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("s1 should be evicted: %v", err)
	}
	if _, err := s.GetSession(ctx, "s3"); err != nil {
		t.Errorf("s3: %v", err)
	}
}

func TestArchiveFallback(t *testing.T) {
	st := &store.Store{DB: dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))}
	s, b, _ := testService(t, WithRetain(1), WithArchive(st), WithSinks(sink.NewStore(st)))
	ctx := context.Background()

	s.StartSession(ctx, StartRequest{URL: "https://a"})
	clickGo(b.last())
	s.StopSession(ctx, "s1")
	s.StartSession(ctx, StartRequest{URL: "https://b"})
	s.StopSession(ctx, "s2")

	got, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("archived session: %v", err)
	}
	if got.ActionCount != 1 || got.Actions[0].Selector != "#go" {
		t.Errorf("got %+v", got)
	}

	list, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("list: got %d entries, want 2 (no duplicates)", len(list))
	}
}

func TestSinkFailureStillReturnsSession(t *testing.T) {
	failing := sink.NewCallback(func(context.Context, action.Session) error { return errors.New("disk full") })
	s, _, c := testService(t, WithSinks(failing))
	ctx := context.Background()

	s.StartSession(ctx, StartRequest{URL: "https://a"})
	sess, err := s.StopSession(ctx, "s1")
	if err != nil || sess == nil {
		t.Fatalf("got %v, %v", sess, err)
	}
	if len(c.sessions) != 1 {
		t.Error("healthy sink skipped")
	}
	if got := testutil.ToFloat64(s.Metrics().SinkFailures); got != 1 {
		t.Errorf("sink failures: %v", got)
	}
}

func TestWithEventsSubset(t *testing.T) {
	s, b, _ := testService(t, WithEvents(action.Submit))
	ctx := context.Background()

	s.StartSession(ctx, StartRequest{URL: "https://a"})
	p := b.last()
	clickGo(p)
	p.Dispatch(p.ByID("search"), &recorder.Event{Type: action.Submit})

	sess, _ := s.StopSession(ctx, "s1")
	if sess.ActionCount != 1 || sess.Actions[0].Type != action.Submit || sess.Actions[0].Selector != "#search" {
		t.Errorf("got %+v", sess.Actions)
	}
}

func TestCloseFlushesRunning(t *testing.T) {
	b := &fakeBackend{}
	c := &collected{}
	s := New(b, WithSinks(c.sink()), WithIDGenerator(idgen.Sequence("s")))
	ctx := context.Background()

	s.StartSession(ctx, StartRequest{URL: "https://a"})
	s.StartSession(ctx, StartRequest{URL: "https://b"})

	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if len(c.sessions) != 2 || !b.closed {
		t.Errorf("delivered %d, backend closed %v", len(c.sessions), b.closed)
	}
	if _, err := s.StartSession(ctx, StartRequest{URL: "https://c"}); !errors.Is(err, ErrClosed) {
		t.Errorf("start after close: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestStopDeliversAfterCallerCancels(t *testing.T) {
	var deliverErr error
	delivered := 0
	check := sink.NewCallback(func(ctx context.Context, _ action.Session) error {
		delivered++
		deliverErr = ctx.Err()
		return deliverErr
	})
	s, _, _ := testService(t, WithSinks(check))

	if _, err := s.StartSession(context.Background(), StartRequest{URL: "https://a"}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.StopSession(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if delivered != 1 || deliverErr != nil {
		t.Errorf("delivered=%d ctx err=%v", delivered, deliverErr)
	}
	if got := testutil.ToFloat64(s.Metrics().SinkFailures); got != 0 {
		t.Errorf("sink failures: %v", got)
	}
}
