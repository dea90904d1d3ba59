package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, ttl), mr
}

func TestRedisStore_SaveGetDelete(t *testing.T) {
	store, _ := testRedisStore(t, time.Minute)
	ctx := context.Background()

	sess := &Session{
		UserID:                "u1",
		ChatID:                "c1",
		State:                 StateAwaitingConfirmation,
		Message:               "сломан светофор",
		CandidateDepartmentID: "transport",
		Confidence:            1.0,
		MatchedKeywords:       []string{"светофор"},
	}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.State != StateAwaitingConfirmation || got.CandidateDepartmentID != "transport" {
		t.Fatalf("unexpected session %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatal("save must stamp UpdatedAt")
	}

	if err := store.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil after delete, got %+v", got)
	}
}

func TestRedisStore_MissingSessionIsNil(t *testing.T) {
	store, _ := testRedisStore(t, time.Minute)

	got, err := store.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown user, got %+v", got)
	}
}

func TestRedisStore_InactivityTTLExpiresDraft(t *testing.T) {
	store, mr := testRedisStore(t, 30*time.Minute)
	ctx := context.Background()

	sess := &Session{UserID: "u1", State: StateAwaitingDescription}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	mr.FastForward(31 * time.Minute)

	got, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatal("expected abandoned session to expire")
	}
}

func TestRedisStore_SaveResetsTTL(t *testing.T) {
	store, mr := testRedisStore(t, 30*time.Minute)
	ctx := context.Background()

	sess := &Session{UserID: "u1", State: StateAwaitingDescription}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	mr.FastForward(20 * time.Minute)
	sess.State = StateAwaitingConfirmation
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("second save: %v", err)
	}

	mr.FastForward(20 * time.Minute)

	got, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("active session must not expire while being updated")
	}
}
