package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
)

// stepClock returns a clock that advances one second per call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newTestStore(t *testing.T, opts ...Option) *ShardedStore {
	t.Helper()
	s := NewShardedStore(context.Background(), opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestShardedStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	key := model.Key{UserID: "u1", AgentID: "diet-coach"}

	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}

	ev, n, err := store.Append(ctx, key, map[string]any{"calories": 300})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected log length 1, got %d", n)
	}
	if ev.ID == "" || ev.Seq == 0 || ev.Timestamp.IsZero() {
		t.Errorf("event not stamped: %+v", ev)
	}
	if ev.UserID != "u1" || ev.AgentID != "diet-coach" {
		t.Errorf("wrong key on event: %+v", ev)
	}

	log, err := store.Log(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(log) != 1 || log[0].Fields["calories"] != 300 {
		t.Errorf("unexpected log: %+v", log)
	}

	if count := store.Count(ctx); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
}

func TestShardedStore_UnknownKeyIsEmpty(t *testing.T) {
	store := newTestStore(t)
	log, err := store.Log(context.Background(), model.Key{UserID: "nobody", AgentID: "sleep-coach"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log == nil || len(log) != 0 {
		t.Errorf("expected empty non-nil log, got %#v", log)
	}
}

func TestShardedStore_InvalidKey(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, key := range []model.Key{{}, {UserID: "u1"}, {AgentID: "diet-coach"}} {
		if _, _, err := store.Append(ctx, key, nil); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Append(%+v) error = %v, want ErrInvalidKey", key, err)
		}
		if _, err := store.Log(ctx, key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Log(%+v) error = %v, want ErrInvalidKey", key, err)
		}
	}
	if _, err := store.UserEvents(ctx, "", time.Time{}, time.Now()); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("UserEvents error = %v, want ErrInvalidKey", err)
	}
}

func TestShardedStore_CancelledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := store.Append(ctx, model.Key{UserID: "u1", AgentID: "a"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.Count(context.Background()) != 0 {
		t.Fatal("cancelled append must not write")
	}
}

func TestShardedStore_FIFOEviction(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, WithLogCapacity(100))
	key := model.Key{UserID: "u1", AgentID: "fitness-coach"}

	for i := 0; i < 250; i++ {
		_, n, err := store.Append(ctx, key, map[string]any{"i": i})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if n > 100 {
			t.Fatalf("log length %d exceeds capacity", n)
		}
	}

	log, _ := store.Log(ctx, key)
	if len(log) != 100 {
		t.Fatalf("expected 100 events, got %d", len(log))
	}
	for j, ev := range log {
		if want := 150 + j; ev.Fields["i"] != want {
			t.Fatalf("position %d holds %v, want %d", j, ev.Fields["i"], want)
		}
	}
	if count := store.Count(ctx); count != 100 {
		t.Errorf("expected count 100, got %d", count)
	}
}

func TestShardedStore_FieldsAreCopied(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	key := model.Key{UserID: "u1", AgentID: "money-coach"}
	fields := map[string]any{"amount": 10}

	if _, _, err := store.Append(ctx, key, fields); err != nil {
		t.Fatalf("append: %v", err)
	}
	fields["amount"] = 99

	log, _ := store.Log(ctx, key)
	if log[0].Fields["amount"] != 10 {
		t.Fatalf("stored event changed with caller map: %v", log[0].Fields)
	}
}

func TestShardedStore_ReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	key := model.Key{UserID: "u1", AgentID: "money-coach"}

	appended, _, err := store.Append(ctx, key, map[string]any{"amount": 10})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	appended.Fields["amount"] = 1

	log, _ := store.Log(ctx, key)
	log[0].Fields["amount"] = 2
	log[0].Fields["extra"] = true

	events, _ := store.UserEvents(ctx, "u1", time.Time{}, time.Now().Add(time.Hour))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	events[0].Fields["amount"] = 3

	again, _ := store.Log(ctx, key)
	if again[0].Fields["amount"] != 10 {
		t.Fatalf("stored event changed through a read: %v", again[0].Fields)
	}
	if _, ok := again[0].Fields["extra"]; ok {
		t.Fatalf("stored event gained a field through a read: %v", again[0].Fields)
	}
}

func TestShardedStore_KeysDoNotCollide(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// "a:b" + "c" and "a" + "b:c" would collide under string concatenation.
	k1 := model.Key{UserID: "a:b", AgentID: "c"}
	k2 := model.Key{UserID: "a", AgentID: "b:c"}
	if _, _, err := store.Append(ctx, k1, map[string]any{"who": 1}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.Append(ctx, k2, map[string]any{"who": 2}); err != nil {
		t.Fatal(err)
	}

	l1, _ := store.Log(ctx, k1)
	l2, _ := store.Log(ctx, k2)
	if len(l1) != 1 || len(l2) != 1 || l1[0].Fields["who"] != 1 || l2[0].Fields["who"] != 2 {
		t.Fatalf("logs collided: %v / %v", l1, l2)
	}
}

func TestShardedStore_UserEventsWindow(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 3, 10, 23, 59, 57, 0, time.UTC)
	store := newTestStore(t, WithClock(stepClock(start)))

	// Timestamps: 23:59:58, 23:59:59, 00:00:00, 00:00:01
	agents := []string{"sleep-coach", "diet-coach", "sleep-coach", "mental-coach"}
	for _, a := range agents {
		if _, _, err := store.Append(ctx, model.Key{UserID: "u1", AgentID: a}, nil); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, err := store.Append(ctx, model.Key{UserID: "u2", AgentID: "sleep-coach"}, nil); err != nil {
		t.Fatal(err)
	}

	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	evs, err := store.UserEvents(ctx, "u1", day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("user events: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("expected 2 events in window, got %d", len(evs))
	}
	for _, ev := range evs {
		if ev.UserID != "u1" || ev.Timestamp.Before(day) {
			t.Errorf("unexpected event %+v", ev)
		}
	}
}

func TestShardedStore_SeqIsMonotonic(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, WithShardCount(4))

	var prev uint64
	for i := 0; i < 50; i++ {
		ev, _, err := store.Append(ctx, model.Key{UserID: fmt.Sprintf("u%d", i%7), AgentID: "a"}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if ev.Seq <= prev {
			t.Fatalf("seq %d not greater than %d", ev.Seq, prev)
		}
		prev = ev.Seq
	}
}

func TestShardedStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, WithLogCapacity(100))
	key := model.Key{UserID: "u1", AgentID: "sleep-coach"}

	const goroutines = 8
	const perGoroutine = 50
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				if _, _, err := store.Append(ctx, key, nil); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	log, _ := store.Log(ctx, key)
	if len(log) != 100 {
		t.Fatalf("expected 100 events, got %d", len(log))
	}
	for i := 1; i < len(log); i++ {
		if log[i].Seq <= log[i-1].Seq {
			t.Fatalf("log out of arrival order at %d", i)
		}
	}
}

func TestShardedStore_Reset(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	key := model.Key{UserID: "u1", AgentID: "a"}
	for i := 0; i < 3; i++ {
		_, _, _ = store.Append(ctx, key, nil)
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if store.Count(ctx) != 0 {
		t.Fatal("count not cleared")
	}
	if log, _ := store.Log(ctx, key); len(log) != 0 {
		t.Fatal("log not cleared")
	}
}

func TestShardedStore_CloseIsIdempotent(t *testing.T) {
	store := NewShardedStore(context.Background(), WithMetricsUpdateInterval(time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
}
