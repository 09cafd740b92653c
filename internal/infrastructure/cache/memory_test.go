package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_GetAfterSet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Set(ctx, "monstera deliciosa", []byte(`{"family":"Araceae"}`), time.Minute)

	got, ok := store.Get(ctx, "monstera deliciosa")
	if !ok {
		t.Fatal("expected cache hit within TTL")
	}
	if string(got) != `{"family":"Araceae"}` {
		t.Errorf("unexpected value: %s", got)
	}
}

func TestMemoryStore_ExpiredReadIsMiss(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }
	store.Set(ctx, "ficus lyrata", []byte("v1"), time.Hour)

	// Advance past expiry; must never serve stale.
	store.now = func() time.Time { return now.Add(time.Hour + time.Second) }
	if _, ok := store.Get(ctx, "ficus lyrata"); ok {
		t.Fatal("expected miss after TTL elapsed")
	}

	// Entry is eligible for overwrite after expiry.
	store.Set(ctx, "ficus lyrata", []byte("v2"), time.Hour)
	got, ok := store.Get(ctx, "ficus lyrata")
	if !ok || string(got) != "v2" {
		t.Errorf("expected overwritten value, got %q ok=%v", got, ok)
	}
}

func TestMemoryStore_MissingKey(t *testing.T) {
	store := NewMemoryStore()
	if _, ok := store.Get(context.Background(), "absent"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Set(ctx, "k", []byte("v"), time.Minute)
	store.Delete(ctx, "k")
	if _, ok := store.Get(ctx, "k"); ok {
		t.Error("expected miss after delete")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 200; j++ {
				store.Set(ctx, "shared", []byte("v"), time.Minute)
				store.Get(ctx, "shared")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	if _, ok := store.Get(ctx, "shared"); !ok {
		t.Error("expected hit after concurrent writes")
	}
}
