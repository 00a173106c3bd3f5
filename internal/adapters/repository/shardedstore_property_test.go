package repository

import (
	"context"
	"testing"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
	"pgregory.net/rapid"
)

// Every log keeps exactly its most recent capacity events, in arrival order.
func TestShardedStoreBoundedFIFO_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 20).Draw(t, "capacity")
		store := NewShardedStore(context.Background(), WithLogCapacity(capacity), WithShardCount(rapid.IntRange(1, 8).Draw(t, "shards")))
		defer func() { _ = store.Close() }()

		users := []string{"u1", "u2", "u:3"}
		agents := []string{"sleep-coach", "diet-coach"}
		want := make(map[model.Key][]int)

		ops := rapid.IntRange(0, 120).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			key := model.Key{
				UserID:  rapid.SampledFrom(users).Draw(t, "user"),
				AgentID: rapid.SampledFrom(agents).Draw(t, "agent"),
			}
			_, n, err := store.Append(context.Background(), key, map[string]any{"i": i})
			if err != nil {
				t.Fatalf("append: %v", err)
			}
			want[key] = append(want[key], i)
			if len(want[key]) > capacity {
				want[key] = want[key][1:]
			}
			if n != len(want[key]) {
				t.Fatalf("reported length %d, want %d", n, len(want[key]))
			}
		}

		total := 0
		for key, ids := range want {
			log, err := store.Log(context.Background(), key)
			if err != nil {
				t.Fatalf("log: %v", err)
			}
			if len(log) != len(ids) {
				t.Fatalf("%+v: length %d, want %d", key, len(log), len(ids))
			}
			for j, ev := range log {
				if ev.Fields["i"] != ids[j] {
					t.Fatalf("%+v[%d] = %v, want %d", key, j, ev.Fields["i"], ids[j])
				}
			}
			total += len(ids)
		}
		if got := store.Count(context.Background()); got != total {
			t.Fatalf("count %d, want %d", got, total)
		}
	})
}
