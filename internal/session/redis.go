package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"lunemusic/internal/domain"
)

const redisKeyPrefix = "lunemusic:session:"

// RedisStore keeps sessions in Redis so they survive restarts. Expiry is the
// key TTL, refreshed on every Set.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(chatID int64) string {
	return redisKeyPrefix + strconv.FormatInt(chatID, 10)
}

func (s *RedisStore) Get(ctx context.Context, chatID int64) (domain.SearchSession, bool, error) {
	data, err := s.client.Get(ctx, redisKey(chatID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.SearchSession{}, false, nil
		}
		return domain.SearchSession{}, false, err
	}
	var session domain.SearchSession
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.SearchSession{}, false, err
	}
	return session, true, nil
}

func (s *RedisStore) Set(ctx context.Context, session domain.SearchSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey(session.ChatID), data, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, chatID int64) error {
	return s.client.Del(ctx, redisKey(chatID)).Err()
}
