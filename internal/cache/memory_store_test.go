package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gatemail/internal/models"
)

func TestMemoryStoreJSONRoundTripAndTTL(t *testing.T) {
	store := NewMemoryStore("test")
	ctx := context.Background()

	if err := store.SetJSON(ctx, "greeting", map[string]string{"hello": "world"}, 50*time.Millisecond); err != nil {
		t.Fatalf("set json failed: %v", err)
	}
	var got map[string]string
	hit, err := store.GetJSON(ctx, "greeting", &got)
	if err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}
	if got["hello"] != "world" {
		t.Fatalf("unexpected value: %+v", got)
	}

	time.Sleep(80 * time.Millisecond)
	hit, err = store.GetJSON(ctx, "greeting", &got)
	if err != nil {
		t.Fatalf("get after expiry failed: %v", err)
	}
	if hit {
		t.Fatalf("value should have expired")
	}
}

func TestMemoryStoreIncrFixedWindow(t *testing.T) {
	store := NewMemoryStore("")
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, ttl, err := store.Incr(ctx, "login:1.2.3.4", time.Minute)
		if err != nil {
			t.Fatalf("incr failed: %v", err)
		}
		if count != i {
			t.Fatalf("count want %d got %d", i, count)
		}
		if ttl <= 0 || ttl > time.Minute {
			t.Fatalf("unexpected ttl: %s", ttl)
		}
	}
}

func TestMemoryStoreMutateIsSerialized(t *testing.T) {
	store := NewMemoryStore("")
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Mutate(ctx, "counter", func(current []byte, exists bool) (Mutation, error) {
				n := 0
				if exists {
					n = len(current)
				}
				return Put(make([]byte, n+1), time.Minute), nil
			})
			if err != nil {
				t.Errorf("mutate failed: %v", err)
			}
		}()
	}
	wg.Wait()

	var length int
	_ = store.Mutate(ctx, "counter", func(current []byte, exists bool) (Mutation, error) {
		length = len(current)
		return Keep(), nil
	})
	if length != workers {
		t.Fatalf("lost updates: want %d got %d", workers, length)
	}
}

func TestMemoryStoreMutateRemoveAndError(t *testing.T) {
	store := NewMemoryStore("")
	ctx := context.Background()
	_ = store.SetJSON(ctx, "k", 1, time.Minute)

	if err := store.Mutate(ctx, "k", func([]byte, bool) (Mutation, error) { return Remove(), nil }); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	var v int
	if hit, _ := store.GetJSON(ctx, "k", &v); hit {
		t.Fatalf("key should be removed")
	}

	boom := errors.New("boom")
	err := store.Mutate(ctx, "k", func([]byte, bool) (Mutation, error) { return Keep(), boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestAdminAuthStateThroughStore(t *testing.T) {
	store := NewMemoryStore("")
	ctx := context.Background()
	state := BuildAdminAuthState(&models.Admin{ID: 3, Username: "ops", TokenVersion: 2})

	if err := SetAdminAuthState(ctx, store, state); err != nil {
		t.Fatalf("set state failed: %v", err)
	}
	got, hit, err := GetAdminAuthState(ctx, store, 3)
	if err != nil || !hit {
		t.Fatalf("expected state hit, hit=%v err=%v", hit, err)
	}
	if got.TokenVersion != 2 || got.Username != "ops" {
		t.Fatalf("unexpected state: %+v", got)
	}
	if err := DelAdminAuthState(ctx, store, 3); err != nil {
		t.Fatalf("del state failed: %v", err)
	}
	if _, hit, _ := GetAdminAuthState(ctx, store, 3); hit {
		t.Fatalf("state should be deleted")
	}
}

func TestAdminAuthStateAccepts(t *testing.T) {
	cutoff := time.Unix(1_700_000_000, 0)
	state := &AdminAuthState{AdminID: 1, TokenVersion: 3, TokenInvalidBefore: cutoff.Unix()}

	if state.Accepts(2, cutoff.Add(time.Minute)) {
		t.Fatalf("stale version should be rejected")
	}
	if state.Accepts(3, cutoff.Add(-time.Second)) {
		t.Fatalf("token issued before cutoff should be rejected")
	}
	if state.Accepts(3, time.Time{}) {
		t.Fatalf("token without iat should be rejected when cutoff is set")
	}
	if !state.Accepts(3, cutoff) {
		t.Fatalf("token issued at cutoff should be accepted")
	}
	if !(&AdminAuthState{TokenVersion: 1}).Accepts(1, time.Time{}) {
		t.Fatalf("no cutoff should accept matching version")
	}
}
