package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"lunemusic/internal/domain"
)

// setupRedis connects to REDIS_TEST_URL (default localhost:6379) and skips
// when Redis is unreachable.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	raw := os.Getenv("REDIS_TEST_URL")
	if raw == "" {
		raw = "redis://localhost:6379/15"
	}
	opts, err := redis.ParseURL(raw)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available at %s: %v", raw, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestIntegrationRedisStoreRoundtrip(t *testing.T) {
	client := setupRedis(t)
	store := NewRedisStore(client, time.Minute)
	ctx := context.Background()
	chatID := time.Now().UnixNano()
	t.Cleanup(func() { _ = store.Delete(context.Background(), chatID) })

	session := sampleSession(chatID, "a", "b")
	session.Results[0].Duration = domain.Duration{Text: "3:10"}
	session.ListingMessageID = 77
	if err := store.Set(ctx, session); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := store.Get(ctx, chatID)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if len(got.Results) != 2 || got.Results[0].Duration.Text != "3:10" || got.ListingMessageID != 77 {
		t.Fatalf("unexpected session: %+v", got)
	}

	ttl, err := client.TTL(ctx, redisKey(chatID)).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v (err %v)", ttl, err)
	}

	if err := store.Delete(ctx, chatID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, chatID); ok {
		t.Fatal("expected session to be deleted")
	}
}
