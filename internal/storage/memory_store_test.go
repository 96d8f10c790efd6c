package storage

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryStore_SetGet(t *testing.T) {
	store := NewMemoryStore(20)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "file-info", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := store.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get() = %q, %v, %v", got, ok, err)
	}
	if got != "file-info" {
		t.Errorf("Expected 'file-info', got '%s'", got)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(20)
	now := time.Unix(1700000000, 0)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Set(ctx, "k", "v", 10*time.Second)

	now = now.Add(10 * time.Second)
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Error("Expected entry to be expired")
	}
}

func TestMemoryStore_ZeroTTLNotCached(t *testing.T) {
	store := NewMemoryStore(20)
	_ = store.Set(context.Background(), "k", "v", 0)

	if store.Len() != 0 {
		t.Errorf("Expected 0 entries, got %d", store.Len())
	}
}

func TestMemoryStore_TrimToMaxEntries(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = store.Set(ctx, fmt.Sprintf("k%d", i), "v", time.Hour)
	}

	if store.Len() != 3 {
		t.Errorf("Expected 3 entries, got %d", store.Len())
	}
	if _, ok, _ := store.Get(ctx, "k0"); ok {
		t.Error("Expected oldest entry to be trimmed")
	}
	if _, ok, _ := store.Get(ctx, "k4"); !ok {
		t.Error("Expected newest entry to be kept")
	}
}

func TestMemoryStore_Concurrency(t *testing.T) {
	store := NewMemoryStore(100)
	ctx := context.Background()

	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func(id int) {
			_ = store.Set(ctx, fmt.Sprintf("k%d", id), "v", time.Hour)
			_, _, _ = store.Get(ctx, "k0")
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	if store.Len() != 10 {
		t.Errorf("Expected 10 entries, got %d", store.Len())
	}
}

func TestMediaKey_CacheKey(t *testing.T) {
	a := MediaKey{Scope: "c2c", TargetID: "u1", FileType: 1, URL: "https://example.com/a.png"}
	b := a
	b.TargetID = "u2"

	if a.CacheKey() == b.CacheKey() {
		t.Error("Expected different keys for different targets")
	}
	if a.CacheKey() != a.CacheKey() {
		t.Error("Expected stable key")
	}
}

func TestCacheTTL(t *testing.T) {
	if got := CacheTTL(3600); got != 3600*time.Second-SafetyWindow {
		t.Errorf("CacheTTL(3600) = %v", got)
	}
	if got := CacheTTL(60); got != 0 {
		t.Errorf("CacheTTL(60) = %v, want 0", got)
	}
	if got := CacheTTL(0); got != 0 {
		t.Errorf("CacheTTL(0) = %v, want 0", got)
	}
}
