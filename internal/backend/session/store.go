package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned when a token does not resolve to a live session.
var ErrNoSession = errors.New("no such session")

const keyPrefix = "session:"

// Store keeps operator sessions server-side: a request either carries a token
// that resolves to an account, or it does not.
type Store interface {
	Create(ctx context.Context, accountID int64) (token string, err error)
	Resolve(ctx context.Context, token string) (accountID int64, err error)
	Delete(ctx context.Context, token string) error
}

// RedisStore backs sessions with Redis entries expiring after ttl
// (remember-me semantics: the session survives browser restarts and only
// lapses when the TTL runs out or the operator logs out).
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(addr string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

// NewRedisStoreWithClient is used by tests to inject a miniredis-backed client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context, accountID int64) (string, error) {
	token := uuid.NewString()
	err := s.client.Set(ctx, keyPrefix+token, accountID, s.ttl).Err()
	if err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

func (s *RedisStore) Resolve(ctx context.Context, token string) (int64, error) {
	value, err := s.client.Get(ctx, keyPrefix+token).Result()
	if err == redis.Nil {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve session: %w", err)
	}
	accountID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt session value %q: %w", value, err)
	}
	return accountID, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
