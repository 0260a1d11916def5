// CLAUDE:SUMMARY Recording service: starts and stops sessions on browser pages, retains finished ones, delivers them to sinks.
// Package actrec records user interactions in a browser page as an ordered
// log of actions (clicks, input, submits, key presses, scrolls), each with a
// CSS selector that finds its target again.
//
// A Service runs recording sessions: StartSession opens the page and arms a
// recorder.Recorder on it, StopSession disarms it and hands the finished
// action.Session to the configured sinks. The same operations are exposed
// over HTTP (RegisterHTTP) and MCP (RegisterMCP).
package actrec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hazyhaar/actrec/action"
	"github.com/hazyhaar/actrec/idgen"
	"github.com/hazyhaar/actrec/internal/metrics"
	"github.com/hazyhaar/actrec/internal/safe"
	"github.com/hazyhaar/actrec/internal/sink"
	"github.com/hazyhaar/actrec/internal/store"
	"github.com/hazyhaar/actrec/recorder"
)

var (
	// ErrSessionNotFound is returned for an unknown session ID.
	ErrSessionNotFound = errors.New("actrec: session not found")
	// ErrSessionExists is returned when starting a session under an ID
	// already in use.
	ErrSessionExists = errors.New("actrec: session already exists")
	// ErrInvalidRequest is returned for a malformed start request.
	ErrInvalidRequest = errors.New("actrec: invalid request")
	// ErrClosed is returned once the service is closed.
	ErrClosed = errors.New("actrec: service closed")
)

// State is the lifecycle state of a session.
type State string

const (
	StateRecording State = "recording"
	StateStopped   State = "stopped"
)

// StartRequest asks for a new recording session on URL. ID is optional.
type StartRequest struct {
	URL string `json:"url"`
	ID  string `json:"id,omitempty"`
}

// SessionInfo describes a session, running or finished.
type SessionInfo struct {
	ID          string          `json:"id"`
	PageURL     string          `json:"page_url"`
	State       State           `json:"state"`
	StartedAt   int64           `json:"started_at"`
	StoppedAt   int64           `json:"stopped_at,omitempty"`
	ActionCount int             `json:"action_count"`
	Actions     []action.Action `json:"actions,omitempty"`
}

type session struct {
	id        string
	pageURL   string
	startedAt time.Time
	page      Page
	rec       *recorder.Recorder
}

func (s *session) info(withActions bool) *SessionInfo {
	info := &SessionInfo{
		ID:        s.id,
		PageURL:   s.pageURL,
		State:     StateRecording,
		StartedAt: s.startedAt.UnixMilli(),
	}
	if withActions {
		info.Actions = s.rec.Actions()
		info.ActionCount = len(info.Actions)
	} else {
		info.ActionCount = s.rec.Len()
	}
	return info
}

func finishedInfo(sess *action.Session, withActions bool) *SessionInfo {
	info := &SessionInfo{
		ID:          sess.ID,
		PageURL:     sess.PageURL,
		State:       StateStopped,
		StartedAt:   sess.StartedAt,
		StoppedAt:   sess.StoppedAt,
		ActionCount: sess.ActionCount,
	}
	if withActions {
		info.Actions = sess.Actions
	}
	return info
}

// Service runs recording sessions against a Backend.
type Service struct {
	backend Backend
	outs    []sink.Sink
	sinks   *sink.Router
	archive *store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	newID   idgen.Generator
	now     func() time.Time
	events  []action.Type
	retain  int

	mu       sync.Mutex
	closed   bool
	pending  map[string]bool
	active   map[string]*session
	finished map[string]*action.Session
	order    []string // finished IDs, oldest first
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithSinks sets the sinks finished sessions are delivered to.
func WithSinks(sinks ...sink.Sink) Option {
	return func(s *Service) { s.outs = append(s.outs, sinks...) }
}

// WithArchive lets GetSession and ListSessions fall back to the SQLite
// archive for sessions no longer held in memory.
func WithArchive(st *store.Store) Option { return func(s *Service) { s.archive = st } }

// WithMetrics sets the metrics instance. Default: a fresh metrics.New().
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithIDGenerator sets the session ID generator. Default: idgen.Session().
func WithIDGenerator(g idgen.Generator) Option { return func(s *Service) { s.newID = g } }

// WithClock sets the time source for sessions and actions.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithEvents restricts the captured event types. Default: all.
func WithEvents(types ...action.Type) Option { return func(s *Service) { s.events = types } }

// WithRetain sets how many finished sessions are kept in memory. Default 256.
func WithRetain(n int) Option { return func(s *Service) { s.retain = n } }

// New creates a Service opening pages through backend.
func New(backend Backend, opts ...Option) *Service {
	s := &Service{
		backend:  backend,
		logger:   slog.Default(),
		newID:    idgen.Session(),
		now:      time.Now,
		retain:   256,
		pending:  make(map[string]bool),
		active:   make(map[string]*session),
		finished: make(map[string]*action.Session),
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.sinks = sink.NewRouter(s.logger, s.outs...)
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	return s
}

// Metrics returns the service metrics.
func (s *Service) Metrics() *metrics.Metrics { return s.metrics }

// StartSession opens req.URL and starts recording on it.
func (s *Service) StartSession(ctx context.Context, req StartRequest) (*SessionInfo, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}
	if err := safe.ValidateURL(req.URL, safe.PageSchemes...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	id := req.ID
	if id == "" {
		id = s.newID()
	} else if err := safe.ValidateIdentifier(id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.pending[id] || s.active[id] != nil || s.finished[id] != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	s.pending[id] = true
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}

	page, err := s.backend.Open(ctx, req.URL)
	if err != nil {
		release()
		return nil, fmt.Errorf("actrec: open %s: %w", req.URL, err)
	}

	opts := []recorder.Option{
		recorder.WithLogger(s.logger.With("session", id)),
		recorder.WithClock(s.now),
		recorder.WithObserver(s.metrics.ObserveAction),
	}
	if len(s.events) > 0 {
		opts = append(opts, recorder.WithEvents(s.events...))
	}
	sess := &session{
		id:        id,
		pageURL:   req.URL,
		startedAt: s.now(),
		page:      page,
		rec:       recorder.New(page, opts...),
	}
	if u := page.URL(); u != "" {
		sess.pageURL = u
	}

	s.mu.Lock()
	delete(s.pending, id)
	if s.closed {
		s.mu.Unlock()
		page.Close()
		return nil, ErrClosed
	}
	s.active[id] = sess
	s.mu.Unlock()

	sess.rec.Start()
	s.metrics.SessionStarted()
	s.logger.Info("actrec: session started", "session", id, "url", sess.pageURL)
	return sess.info(false), nil
}

// StopSession stops recording, closes the page and delivers the finished
// session to the sinks. A sink failure is logged and counted; the session
// is still returned.
func (s *Service) StopSession(ctx context.Context, id string) (*action.Session, error) {
	s.mu.Lock()
	sess, ok := s.active[id]
	if ok {
		delete(s.active, id)
	}
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	return s.finish(ctx, sess), nil
}

func (s *Service) finish(ctx context.Context, sess *session) *action.Session {
	actions := sess.rec.Stop()
	stopped := s.now()
	if err := sess.page.Close(); err != nil {
		s.logger.Warn("actrec: close page", "session", sess.id, "error", err)
	}

	out := action.NewSession(sess.id, sess.pageURL, sess.startedAt.UnixMilli(), stopped.UnixMilli(), actions)
	s.metrics.SessionStopped(stopped.Sub(sess.startedAt))

	s.mu.Lock()
	s.remember(&out)
	s.mu.Unlock()

	// Delivery outlives the request that stopped the session.
	if err := s.sinks.Send(context.WithoutCancel(ctx), out); err != nil {
		s.metrics.SinkFailed()
		s.logger.Error("actrec: deliver session", "session", sess.id, "error", err)
	}
	s.logger.Info("actrec: session stopped", "session", sess.id, "actions", out.ActionCount)
	return &out
}

// remember keeps a finished session, evicting the oldest beyond retain.
// Callers hold s.mu.
func (s *Service) remember(sess *action.Session) {
	s.finished[sess.ID] = sess
	s.order = append(s.order, sess.ID)
	for s.retain > 0 && len(s.order) > s.retain {
		delete(s.finished, s.order[0])
		s.order = s.order[1:]
	}
}

// GetSession returns a session with its actions. Running sessions report
// the actions captured so far.
func (s *Service) GetSession(ctx context.Context, id string) (*SessionInfo, error) {
	s.mu.Lock()
	sess := s.active[id]
	done := s.finished[id]
	s.mu.Unlock()

	switch {
	case sess != nil:
		return sess.info(true), nil
	case done != nil:
		return finishedInfo(done, true), nil
	}

	if s.archive != nil {
		stored, err := s.archive.Get(ctx, id)
		if err == nil {
			return finishedInfo(stored, true), nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
}

// ListSessions returns running and finished sessions, newest first,
// without their actions.
func (s *Service) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	s.mu.Lock()
	var out []SessionInfo
	seen := make(map[string]bool)
	for _, sess := range s.active {
		out = append(out, *sess.info(false))
		seen[sess.id] = true
	}
	for _, done := range s.finished {
		out = append(out, *finishedInfo(done, false))
		seen[done.ID] = true
	}
	s.mu.Unlock()

	if s.archive != nil {
		stored, err := s.archive.List(ctx, 0)
		if err != nil {
			return nil, err
		}
		for i := range stored {
			if !seen[stored[i].ID] {
				out = append(out, *finishedInfo(&stored[i], false))
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartedAt != out[j].StartedAt {
			return out[i].StartedAt > out[j].StartedAt
		}
		return out[i].ID > out[j].ID
	})
	if out == nil {
		out = []SessionInfo{}
	}
	return out, nil
}

// Close stops every running session (delivering it), then closes the
// backend and the sinks.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	running := make([]*session, 0, len(s.active))
	for id, sess := range s.active {
		running = append(running, sess)
		delete(s.active, id)
	}
	s.mu.Unlock()

	for _, sess := range running {
		s.finish(ctx, sess)
	}

	var errs []error
	if err := s.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("actrec: close backend: %w", err))
	}
	if err := s.sinks.Close(); err != nil {
		errs = append(errs, fmt.Errorf("actrec: close sinks: %w", err))
	}
	return errors.Join(errs...)
}
