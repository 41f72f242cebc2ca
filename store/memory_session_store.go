package store

import (
	"context"
	"time"

	"github.com/BatmanBruc/jondor-ad-bot/types"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemorySessionStore keeps sessions in process memory. Entries expire after
// ttl without writes, and the least recently used entries are evicted once
// limit is reached. Everything is lost on restart.
type MemorySessionStore struct {
	cache *expirable.LRU[types.SessionKey, types.Session]
	now   func() time.Time
}

func NewMemorySessionStore(limit int, ttl time.Duration) *MemorySessionStore {
	if limit <= 0 {
		limit = 10000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemorySessionStore{
		cache: expirable.NewLRU[types.SessionKey, types.Session](limit, nil, ttl),
		now:   time.Now,
	}
}

func (s *MemorySessionStore) Get(_ context.Context, key types.SessionKey) (types.StateTag, types.DataBag, error) {
	session, ok := s.cache.Get(key)
	if !ok {
		return types.StateIdle, types.DataBag{}, nil
	}
	return session.State, session.Data.Clone(), nil
}

func (s *MemorySessionStore) Set(_ context.Context, key types.SessionKey, state types.StateTag, data types.DataBag) error {
	if state == types.StateIdle {
		s.cache.Remove(key)
		return nil
	}
	s.cache.Add(key, types.Session{State: state, Data: data.Clone(), UpdatedAt: s.now()})
	return nil
}

func (s *MemorySessionStore) Clear(_ context.Context, key types.SessionKey) error {
	s.cache.Remove(key)
	return nil
}

func (s *MemorySessionStore) Len() int {
	return s.cache.Len()
}
