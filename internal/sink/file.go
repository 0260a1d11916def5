package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/actrec/action"
)

// File saves each session as an indented JSON document with an "actions"
// array. The path pattern may contain {id}, replaced by the session ID;
// without it every session overwrites the same file.
type File struct {
	pattern string
}

// NewFile creates a File sink writing to pattern.
func NewFile(pattern string) *File {
	return &File{pattern: pattern}
}

// Path returns the file a session is written to.
func (f *File) Path(sess action.Session) string {
	return strings.ReplaceAll(f.pattern, "{id}", sess.ID)
}

func (f *File) Send(_ context.Context, sess action.Session) error {
	data, err := action.MarshalSession(&sess)
	if err != nil {
		return fmt.Errorf("file: marshal: %w", err)
	}
	path := f.Path(sess)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("file: mkdir: %w", err)
		}
	}

	// Write then rename so a reader never sees a half-written session.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("file: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("file: rename: %w", err)
	}
	return nil
}

func (f *File) Close() error { return nil }
