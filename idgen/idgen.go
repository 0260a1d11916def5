// Package idgen generates recording session identifiers.
package idgen

import (
	"strconv"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator of RFC 9562 version 7 UUIDs. They sort by
// creation time, so session listings keyed on them come out in start order.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends prefix to every ID produced by gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Session is the default generator for recording sessions: "rec_" followed
// by a UUIDv7.
func Session() Generator {
	return Prefixed("rec_", UUIDv7())
}

// Sequence returns a Generator yielding prefix1, prefix2, ... Tests use it
// for predictable session IDs.
func Sequence(prefix string) Generator {
	var n int
	return func() string {
		n++
		return prefix + strconv.Itoa(n)
	}
}
