package memory

import (
	"context"

	"finagent/internal/domain/kv"

	"github.com/patrickmn/go-cache"
)

var _ kv.Store = (*Store)(nil)

// Store keeps slots in process memory. Nothing survives a restart.
type Store struct{ c *cache.Cache }

func New() *Store {
	return &Store{c: cache.New(cache.NoExpiration, 0)}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return "", kv.ErrNotFound
	}
	return v.(string), nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.c.Set(key, value, cache.NoExpiration)
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.c.Delete(k)
	}
	return nil
}
