package kvmock

import (
	"context"
	"sync"

	"finagent/internal/domain/kv"
)

var _ kv.Store = (*Store)(nil)

// Store is an in-memory kv.Store with optional failure injection.
type Store struct {
	mu   sync.Mutex
	data map[string]string

	GetErr    error
	SetErr    error
	DeleteErr error
	// SetErrFor fails Set for the listed keys only.
	SetErrFor map[string]error
}

func New() *Store { return &Store{data: map[string]string{}} }

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return "", s.GetErr
	}
	v, ok := s.data[key]
	if !ok {
		return "", kv.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetErr != nil {
		return s.SetErr
	}
	if err := s.SetErrFor[key]; err != nil {
		return err
	}
	if s.data == nil {
		s.data = map[string]string{}
	}
	s.data[key] = value
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Snapshot copies the current contents.
func (s *Store) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}
