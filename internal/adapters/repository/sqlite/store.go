// Package sqlite provides a SQLite-backed daily snapshot store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/adapters/repository"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/adapters/repository/sqlite/migrations"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
	"github.com/takumisawano-hash/dodo-demo-sub000/pkg/metrics"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ErrNotConfigured is returned by a nil or closed store.
var ErrNotConfigured = errors.New("snapshot storage is not configured")

// SnapshotStore persists daily snapshots in SQLite.
type SnapshotStore struct {
	sqlDB *sql.DB
}

var _ repository.SnapshotStore = (*SnapshotStore)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite snapshot store and applies embedded migrations.
func Open(ctx context.Context, path string) (*SnapshotStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SnapshotStore{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *SnapshotStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveSnapshot implements repository.SnapshotStore.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snap model.DailySnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return ErrNotConfigured
	}
	if err := repository.ValidateSnapshot(snap); err != nil {
		return err
	}
	scores := snap.CategoryScores
	if scores == nil {
		scores = map[string]float64{}
	}
	raw, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("encode category scores: %w", err)
	}
	updatedAt := snap.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO daily_snapshots (
		   user_id,
		   day,
		   overall_score,
		   status_level,
		   category_scores,
		   updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, day) DO UPDATE SET
		   overall_score = excluded.overall_score,
		   status_level = excluded.status_level,
		   category_scores = excluded.category_scores,
		   updated_at = excluded.updated_at`,
		snap.UserID,
		snap.Date,
		snap.OverallScore,
		snap.StatusLevel,
		string(raw),
		toMillis(updatedAt),
	)
	if err != nil {
		metrics.RecordErrorByComponent("snapshot_store", "write_failed")
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	metrics.RecordRepositorySnapshotWrite()
	return nil
}

// Snapshots implements repository.SnapshotStore.
func (s *SnapshotStore) Snapshots(ctx context.Context, userID, fromDate, toDate string) ([]model.DailySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, ErrNotConfigured
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT user_id, day, overall_score, status_level, category_scores, updated_at
		   FROM daily_snapshots
		  WHERE user_id = ? AND day >= ? AND day <= ?
		  ORDER BY day`,
		userID, fromDate, toDate,
	)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.DailySnapshot, 0)
	for rows.Next() {
		var (
			snap      model.DailySnapshot
			raw       string
			updatedAt int64
		)
		if err := rows.Scan(&snap.UserID, &snap.Date, &snap.OverallScore, &snap.StatusLevel, &raw, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &snap.CategoryScores); err != nil {
			return nil, fmt.Errorf("decode category scores: %w", err)
		}
		snap.UpdatedAt = fromMillis(updatedAt)
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}
