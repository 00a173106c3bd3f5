package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
	"github.com/takumisawano-hash/dodo-demo-sub000/pkg/metrics"
)

// MemorySnapshotStore keeps daily snapshots in memory.
type MemorySnapshotStore struct {
	mu    sync.RWMutex
	byDay map[string]map[string]model.DailySnapshot // userID -> date -> snapshot
}

// NewMemorySnapshotStore creates an empty store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{byDay: make(map[string]map[string]model.DailySnapshot)}
}

// ValidateSnapshot checks the fields every SnapshotStore requires.
func ValidateSnapshot(snap model.DailySnapshot) error {
	if strings.TrimSpace(snap.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidSnapshot)
	}
	if _, err := time.Parse(time.DateOnly, snap.Date); err != nil {
		return fmt.Errorf("%w: date %q: %w", ErrInvalidSnapshot, snap.Date, err)
	}
	return nil
}

// SaveSnapshot implements SnapshotStore.
func (m *MemorySnapshotStore) SaveSnapshot(ctx context.Context, snap model.DailySnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateSnapshot(snap); err != nil {
		return err
	}
	snap.CategoryScores = maps.Clone(snap.CategoryScores)

	m.mu.Lock()
	days, ok := m.byDay[snap.UserID]
	if !ok {
		days = make(map[string]model.DailySnapshot)
		m.byDay[snap.UserID] = days
	}
	days[snap.Date] = snap
	m.mu.Unlock()

	metrics.RecordRepositorySnapshotWrite()
	return nil
}

// Snapshots implements SnapshotStore.
func (m *MemorySnapshotStore) Snapshots(ctx context.Context, userID, fromDate, toDate string) ([]model.DailySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	out := make([]model.DailySnapshot, 0)
	for date, snap := range m.byDay[userID] {
		if date >= fromDate && date <= toDate {
			snap.CategoryScores = maps.Clone(snap.CategoryScores)
			out = append(out, snap)
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.DailySnapshot) int { return strings.Compare(a.Date, b.Date) })
	return out, nil
}
