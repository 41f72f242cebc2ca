package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BatmanBruc/jondor-ad-bot/types"
)

// RedisSessionStore keeps conversation sessions in Redis so they survive a
// restart of the bot. Every write refreshes the TTL.
type RedisSessionStore struct {
	client *RedisClient
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisSessionStore(redisClient *RedisClient, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessionStore{
		client: redisClient,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *RedisSessionStore) key(k types.SessionKey) string {
	return s.client.generateKey("session", fmt.Sprintf("%d", k.UserID), fmt.Sprintf("%d", k.ChatID))
}

func (s *RedisSessionStore) Get(ctx context.Context, key types.SessionKey) (types.StateTag, types.DataBag, error) {
	var session types.Session
	if err := s.client.Get(ctx, s.key(key), &session); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return types.StateIdle, types.DataBag{}, nil
		}
		return types.StateIdle, types.DataBag{}, err
	}
	if !session.State.Valid() {
		_ = s.client.Del(ctx, s.key(key))
		return types.StateIdle, types.DataBag{}, nil
	}
	return session.State, session.Data, nil
}

func (s *RedisSessionStore) Set(ctx context.Context, key types.SessionKey, state types.StateTag, data types.DataBag) error {
	if state == types.StateIdle {
		return s.Clear(ctx, key)
	}
	session := types.Session{
		State:     state,
		Data:      data,
		UpdatedAt: s.now(),
	}
	return s.client.Set(ctx, s.key(key), session, s.ttl)
}

func (s *RedisSessionStore) Clear(ctx context.Context, key types.SessionKey) error {
	return s.client.Del(ctx, s.key(key))
}
