// Package repository defines the event and snapshot store interfaces and
// their in-memory implementations.
package repository

import (
	"context"
	"time"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
)

// EventStore holds one bounded, append-only log per (user, agent) pair.
type EventStore interface {
	// Append adds an event to the log of key and returns it together with the
	// log length after the append. The oldest event is evicted once the log
	// is full.
	Append(ctx context.Context, key model.Key, fields map[string]any) (model.AgentEvent, int, error)

	// Log returns the log of key, oldest first. An unknown key yields an
	// empty log.
	Log(ctx context.Context, key model.Key) ([]model.AgentEvent, error)

	// UserEvents returns every event of userID, across agents, whose
	// timestamp falls in [from, to).
	UserEvents(ctx context.Context, userID string, from, to time.Time) ([]model.AgentEvent, error)

	// Reset drops every log.
	Reset(ctx context.Context) error

	// Count returns the number of events held across all logs.
	Count(ctx context.Context) int
}

// SnapshotStore persists one score snapshot per user per local day.
type SnapshotStore interface {
	// SaveSnapshot inserts or replaces the snapshot of (UserID, Date).
	SaveSnapshot(ctx context.Context, snap model.DailySnapshot) error

	// Snapshots returns the user's snapshots with fromDate <= Date <= toDate
	// (YYYY-MM-DD), ordered by date.
	Snapshots(ctx context.Context, userID, fromDate, toDate string) ([]model.DailySnapshot, error)
}
