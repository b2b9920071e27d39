package store

import (
	"context"
	"sync"

	"github.com/traveltrackie/superteam-ireland/internal/hunt"
)

// MemoryStore keeps sessions in process memory. Sessions are copied in and
// out so callers never share slices with the stored value.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]hunt.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: map[string]hunt.Session{}}
}

func (s *MemoryStore) Get(_ context.Context, id string) (hunt.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[id]
	if !ok {
		return hunt.Session{}, ErrNotFound
	}
	return v.Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, sess hunt.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sess.ID] = sess.Clone()
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]hunt.Session, error) {
	s.mu.RLock()
	out := make([]hunt.Session, 0, len(s.m))
	for _, v := range s.m {
		out = append(out, v.Clone())
	}
	s.mu.RUnlock()
	sortByUpdated(out)
	return out, nil
}
