package sink

import (
	"context"

	"github.com/hazyhaar/actrec/action"
)

// SessionFunc receives a finished session in-process.
type SessionFunc func(ctx context.Context, sess action.Session) error

// Callback delivers sessions through a Go function call, for embedders
// that run the recorder in the same binary.
type Callback struct {
	fn SessionFunc
}

// NewCallback creates a Callback sink. fn may be nil.
func NewCallback(fn SessionFunc) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Send(ctx context.Context, sess action.Session) error {
	if c.fn == nil {
		return nil
	}
	return c.fn(ctx, sess)
}

func (c *Callback) Close() error { return nil }
