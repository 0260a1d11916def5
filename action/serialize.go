package action

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// MarshalSession serialises a Session to indented JSON (array-of-objects
// form under "actions").
func MarshalSession(s *Session) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// UnmarshalSession deserialises a Session from JSON.
func UnmarshalSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Actions == nil {
		s.Actions = []Action{}
	}
	s.ActionCount = len(s.Actions)
	return &s, nil
}

// EncodeLines writes actions as JSON lines, one action per line.
func EncodeLines(w io.Writer, actions []Action) error {
	enc := json.NewEncoder(w)
	for i := range actions {
		if err := enc.Encode(&actions[i]); err != nil {
			return fmt.Errorf("action: encode line %d: %w", i, err)
		}
	}
	return nil
}

// DecodeLines reads JSON lines produced by EncodeLines. Blank lines are
// skipped; an unknown type is rejected.
func DecodeLines(r io.Reader) ([]Action, error) {
	var out []Action
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var a Action
		if err := json.Unmarshal(b, &a); err != nil {
			return nil, fmt.Errorf("action: line %d: %w", line, err)
		}
		if !a.Type.Valid() {
			return nil, fmt.Errorf("action: line %d: unknown type %q", line, a.Type)
		}
		out = append(out, a)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("action: scan: %w", err)
	}
	return out, nil
}
