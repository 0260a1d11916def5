package sink

import (
	"context"

	"github.com/hazyhaar/actrec/action"
	"github.com/hazyhaar/actrec/internal/store"
)

// Store archives sessions in the SQLite store.
type Store struct {
	st    *store.Store
	owned bool
}

// NewStore wraps an open store. The caller keeps ownership.
func NewStore(st *store.Store) *Store {
	return &Store{st: st}
}

// OpenStore opens the archive at path; Close closes it.
func OpenStore(path string) (*Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	return &Store{st: st, owned: true}, nil
}

// Archive returns the underlying store.
func (s *Store) Archive() *store.Store { return s.st }

func (s *Store) Send(ctx context.Context, sess action.Session) error {
	return s.st.Save(ctx, sess)
}

func (s *Store) Close() error {
	if s.owned {
		return s.st.Close()
	}
	return nil
}
