package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_SetGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	key := Key(KindRawSnapshot, "abc", "https://example.com")
	s.Set(ctx, key, "payload", time.Minute)
	v, ok := s.Get(ctx, key)
	if !ok || v.(string) != "payload" {
		t.Fatalf("get: %v ok=%v", v, ok)
	}
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()
	s.Set(ctx, "k", 1, time.Minute)

	now = now.Add(2 * time.Minute)
	if _, ok := s.Get(ctx, "k"); ok {
		t.Fatal("expired entry must read as absent")
	}
	// Lazy expiry removed it.
	s.mu.Lock()
	_, present := s.entries["k"]
	s.mu.Unlock()
	if present {
		t.Fatal("expired entry not dropped on read")
	}
}

func TestMemoryStore_LastWriterWins(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Set(ctx, "k", "first", time.Minute)
	s.Set(ctx, "k", "second", time.Minute)
	v, _ := s.Get(ctx, "k")
	if v.(string) != "second" {
		t.Fatalf("expected last write, got %v", v)
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()
	s.Set(ctx, "a", 1, time.Second)
	s.Set(ctx, "b", 2, time.Hour)
	now = now.Add(time.Minute)
	s.sweep()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries["a"]; ok {
		t.Fatal("sweep left expired entry")
	}
	if _, ok := s.entries["b"]; !ok {
		t.Fatal("sweep dropped live entry")
	}
}

func TestKeyLayout(t *testing.T) {
	got := Key(KindPublicReport, "deadbeef", "https://example.com/x")
	want := "publicReport:deadbeef:https://example.com/x"
	if got != want {
		t.Fatalf("key layout mismatch: %s", got)
	}
}
