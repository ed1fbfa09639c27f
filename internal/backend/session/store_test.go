package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, ttl)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_CreateResolve(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	token, err := store.Create(ctx, 7)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}

	accountID, err := store.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if accountID != 7 {
		t.Errorf("expected account 7, got %d", accountID)
	}
}

func TestRedisStore_TokensAreUnique(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	first, err := store.Create(ctx, 1)
	if err != nil {
		t.Fatalf("Create #1 error: %v", err)
	}
	second, err := store.Create(ctx, 1)
	if err != nil {
		t.Fatalf("Create #2 error: %v", err)
	}
	if first == second {
		t.Errorf("expected distinct tokens for separate logins")
	}
}

func TestRedisStore_ResolveUnknownToken(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	if _, err := store.Resolve(context.Background(), "bogus"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestRedisStore_Delete(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	token, err := store.Create(ctx, 3)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := store.Delete(ctx, token); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := store.Resolve(ctx, token); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after delete, got %v", err)
	}
	// Deleting an already-invalidated session is not an error
	if err := store.Delete(ctx, token); err != nil {
		t.Fatalf("second Delete error: %v", err)
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	token, err := store.Create(ctx, 5)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Resolve(ctx, token); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after TTL, got %v", err)
	}
}
