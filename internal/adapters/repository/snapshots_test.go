package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
)

func TestMemorySnapshotStore_UpsertAndRange(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySnapshotStore()

	for _, s := range []model.DailySnapshot{
		{UserID: "u1", Date: "2024-03-12", OverallScore: 70},
		{UserID: "u1", Date: "2024-03-10", OverallScore: 40},
		{UserID: "u1", Date: "2024-03-10", OverallScore: 55, CategoryScores: map[string]float64{"health": 60}},
		{UserID: "u1", Date: "2024-03-20", OverallScore: 90},
		{UserID: "u2", Date: "2024-03-11", OverallScore: 10},
	} {
		if err := store.SaveSnapshot(ctx, s); err != nil {
			t.Fatalf("save %+v: %v", s, err)
		}
	}

	got, err := store.Snapshots(ctx, "u1", "2024-03-10", "2024-03-15")
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(got))
	}
	if got[0].Date != "2024-03-10" || got[0].OverallScore != 55 {
		t.Errorf("upsert lost: %+v", got[0])
	}
	if got[1].Date != "2024-03-12" {
		t.Errorf("not ordered by date: %+v", got)
	}

	got[0].CategoryScores["health"] = 0
	again, _ := store.Snapshots(ctx, "u1", "2024-03-10", "2024-03-10")
	if again[0].CategoryScores["health"] != 60 {
		t.Error("returned snapshot aliases stored map")
	}
}

func TestMemorySnapshotStore_Validation(t *testing.T) {
	store := NewMemorySnapshotStore()
	for _, s := range []model.DailySnapshot{
		{Date: "2024-03-10"},
		{UserID: "u1", Date: "yesterday"},
	} {
		if err := store.SaveSnapshot(context.Background(), s); !errors.Is(err, ErrInvalidSnapshot) {
			t.Errorf("SaveSnapshot(%+v) = %v, want ErrInvalidSnapshot", s, err)
		}
	}
}
