// Package memstore implements assembly.Store purely in memory, adapted
// from session/memsession's map-backed storage.
package memstore

import (
	"context"
	"sync"

	"github.com/sebastian404/newsreap/assembly"
)

// Store is an in-memory assembly.Store, intended for tests and for
// single-process embedders with no durability requirement.
type Store struct {
	mu     sync.Mutex
	states map[string]*assembly.State
}

var _ assembly.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{states: make(map[string]*assembly.State)}
}

// Get returns the State for gid, or nil, nil if absent.
func (s *Store) Get(ctx context.Context, gid string) (*assembly.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.states[gid]; ok {
		return v.Clone(), nil
	}
	return nil, nil
}

// Insert adds st, failing if gid is already present.
func (s *Store) Insert(ctx context.Context, st *assembly.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[st.GID]; ok {
		return assembly.AlreadyExists{GID: st.GID}
	}
	s.states[st.GID] = st.Clone()
	return nil
}

// Replace overwrites the State for st.GID, failing if it is not present.
func (s *Store) Replace(ctx context.Context, st *assembly.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[st.GID]; !ok {
		return assembly.DoesNotExist{GID: st.GID}
	}
	s.states[st.GID] = st.Clone()
	return nil
}

// Delete removes the State for gid, if present.
func (s *Store) Delete(ctx context.Context, gid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, gid)
	return nil
}
