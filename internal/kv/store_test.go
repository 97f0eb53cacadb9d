package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestStores(t *testing.T) {
	t.Parallel()

	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore(nil) },
		"redis": func(t *testing.T) Store {
			s, _ := newRedisStore(t)
			return s
		},
		"prefixed": func(t *testing.T) Store { return WithPrefix(NewMemoryStore(nil), "campus") },
	}

	for name, build := range stores {
		build := build
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store := build(t)

			if _, err := store.Get(ctx, "registeredUsers"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound for missing key, got %v", err)
			}

			if err := store.Set(ctx, "registeredUsers", []byte(`{"records":{}}`), 0); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := store.Get(ctx, "registeredUsers")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != `{"records":{}}` {
				t.Fatalf("unexpected value %q", got)
			}

			if err := store.Delete(ctx, "registeredUsers", "missing"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := store.Get(ctx, "registeredUsers"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected key to be gone, got %v", err)
			}

			if err := store.Ping(ctx); err != nil {
				t.Fatalf("Ping: %v", err)
			}
		})
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	store := NewMemoryStore(func() time.Time { return now })
	ctx := context.Background()

	if err := store.Set(ctx, "session:abc:isLoggedIn", []byte("true"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := store.Get(ctx, "session:abc:isLoggedIn"); err != nil {
		t.Fatalf("expected live key, got %v", err)
	}

	now = now.Add(time.Hour)
	if _, err := store.Get(ctx, "session:abc:isLoggedIn"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected key to expire, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected expired key to be evicted, have %d", store.Len())
	}
}

func TestMemoryStoreEvictionKeepsConcurrentSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	var store *MemoryStore
	rewrite := false
	// the clock is read between the read and write locks, so a Set from here
	// lands exactly in the window where an eviction could drop it
	store = NewMemoryStore(func() time.Time {
		if rewrite {
			rewrite = false
			_ = store.Set(ctx, "session:abc:userData", []byte("fresh"), 0)
		}
		return now
	})

	if err := store.Set(ctx, "session:abc:userData", []byte("stale"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	now = now.Add(time.Hour)
	rewrite = true

	if _, err := store.Get(ctx, "session:abc:userData"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected the expired read to miss, got %v", err)
	}
	got, err := store.Get(ctx, "session:abc:userData")
	if err != nil || string(got) != "fresh" {
		t.Fatalf("concurrent Set was evicted: %q, %v", got, err)
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(nil)
	ctx := context.Background()

	value := []byte("abc")
	_ = store.Set(ctx, "k", value, 0)
	value[0] = 'x'

	got, _ := store.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("store kept a reference to caller buffer: %q", got)
	}
}

func TestRedisStoreTTL(t *testing.T) {
	t.Parallel()

	store, mr := newRedisStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "session:abc:userData", []byte("{}"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "session:abc:userData"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected key to expire, got %v", err)
	}
}

func TestWithPrefixNamespacesKeys(t *testing.T) {
	t.Parallel()

	inner := NewMemoryStore(nil)
	store := WithPrefix(inner, "campus")
	ctx := context.Background()

	_ = store.Set(ctx, "registeredStaff", []byte("x"), 0)
	if _, err := inner.Get(ctx, "campus:registeredStaff"); err != nil {
		t.Fatalf("expected prefixed key in inner store: %v", err)
	}
	if _, err := inner.Get(ctx, "registeredStaff"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected bare key to be absent, got %v", err)
	}
	if WithPrefix(inner, "") != Store(inner) {
		t.Fatal("empty prefix should return the inner store")
	}
}
