package session

import (
	"context"
	"testing"
	"time"

	"lunemusic/internal/domain"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestStore(ttl time.Duration) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(ttl)
	store.now = clock.Now
	return store, clock
}

func sampleSession(chatID int64, titles ...string) domain.SearchSession {
	results := make([]domain.SearchResultItem, 0, len(titles))
	for _, title := range titles {
		results = append(results, domain.SearchResultItem{Title: title, Origin: domain.OriginLiveAudio, SelectionKey: title})
	}
	return domain.SearchSession{ChatID: chatID, Results: results, OriginMessageID: 10, CurrentPage: 1}
}

func TestMemoryStoreSetReplacesSession(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	ctx := context.Background()

	_ = store.Set(ctx, sampleSession(1, "a", "b"))
	_ = store.Set(ctx, sampleSession(1, "c"))

	got, ok, err := store.Get(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if len(got.Results) != 1 || got.Results[0].Title != "c" {
		t.Fatalf("expected replaced session, got %+v", got.Results)
	}
}

func TestMemoryStoreChatsAreIndependent(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	ctx := context.Background()

	_ = store.Set(ctx, sampleSession(1, "a"))
	_ = store.Set(ctx, sampleSession(2, "b"))
	_ = store.Delete(ctx, 1)

	if _, ok, _ := store.Get(ctx, 1); ok {
		t.Fatal("chat 1 should be gone")
	}
	if got, ok, _ := store.Get(ctx, 2); !ok || got.Results[0].Title != "b" {
		t.Fatalf("chat 2 should be intact, got ok=%v %+v", ok, got)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store, clock := newTestStore(time.Minute)
	ctx := context.Background()

	_ = store.Set(ctx, sampleSession(1, "a"))
	clock.now = clock.now.Add(59 * time.Second)
	if _, ok, _ := store.Get(ctx, 1); !ok {
		t.Fatal("session should still be live")
	}
	clock.now = clock.now.Add(time.Second)
	if _, ok, _ := store.Get(ctx, 1); ok {
		t.Fatal("session should have expired")
	}
}

func TestMemoryStoreEvictExpired(t *testing.T) {
	store, clock := newTestStore(time.Minute)
	ctx := context.Background()

	_ = store.Set(ctx, sampleSession(1, "a"))
	clock.now = clock.now.Add(30 * time.Second)
	_ = store.Set(ctx, sampleSession(2, "b"))
	clock.now = clock.now.Add(45 * time.Second)

	if n := store.evictExpired(); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if store.Len() != 1 {
		t.Fatalf("Len = %d, want 1", store.Len())
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	ctx := context.Background()

	_ = store.Set(ctx, sampleSession(1, "a"))
	got, _, _ := store.Get(ctx, 1)
	got.Results[0].Title = "mutated"

	again, _, _ := store.Get(ctx, 1)
	if again.Results[0].Title != "a" {
		t.Fatal("store must not share result slices with callers")
	}
}

func TestMemoryStoreRunStopsOnCancel(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
