// CLAUDE:SUMMARY Sink interface and envelope for delivering finished sessions to output backends.
// Package sink delivers finished recording sessions to output backends.
package sink

import (
	"context"

	"github.com/hazyhaar/actrec/action"
)

// Sink is the output interface. Implementations deliver sessions to
// different backends (stdout, file, webhook, SQLite, in-process callback).
type Sink interface {
	Send(ctx context.Context, sess action.Session) error
	Close() error
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
