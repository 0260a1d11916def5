package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/actrec/action"
)

// Router fans a session out to every configured sink concurrently. A
// failing sink does not hold back the others; all failures are logged and
// returned joined.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router over sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

// Len reports the number of sinks behind the router.
func (r *Router) Len() int { return len(r.sinks) }

func (r *Router) Send(ctx context.Context, sess action.Session) error {
	errs := make([]error, len(r.sinks))
	var wg sync.WaitGroup
	for i, s := range r.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Send(ctx, sess); err != nil {
				r.logger.Warn("sink: send session failed", "sink", sinkName(s), "session", sess.ID, "error", err)
				errs[i] = fmt.Errorf("%s: %w", sinkName(s), err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (r *Router) Close() error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sinkName(s), err))
		}
	}
	return errors.Join(errs...)
}

func sinkName(s Sink) string {
	switch s.(type) {
	case *Stdout:
		return "stdout"
	case *File:
		return "file"
	case *Webhook:
		return "webhook"
	case *Store:
		return "store"
	case *Callback:
		return "callback"
	}
	return fmt.Sprintf("%T", s)
}
