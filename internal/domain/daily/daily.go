// Package daily folds a user's per-agent events into the record of one local
// calendar day.
package daily

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
)

// Bounds returns the half-open window [start, end) of the local day that
// contains t.
func Bounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	lt := t.In(loc)
	start := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Date formats the local day of t as YYYY-MM-DD.
func Date(t time.Time, loc *time.Location) string {
	start, _ := Bounds(t, loc)
	return start.Format(time.DateOnly)
}

// Merge shallow-merges event fields in (Timestamp, Seq) order, so the latest
// write wins a field collision regardless of which agent log it came from.
// The input slice is not modified.
func Merge(events []model.AgentEvent) model.DailyRecord {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b model.AgentEvent) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})

	out := make(model.DailyRecord)
	for _, ev := range sorted {
		maps.Copy(out, ev.Fields)
	}
	return out
}

// Filter keeps events whose timestamp falls in [start, end).
func Filter(events []model.AgentEvent, start, end time.Time) []model.AgentEvent {
	out := make([]model.AgentEvent, 0, len(events))
	for _, ev := range events {
		if !ev.Timestamp.Before(start) && ev.Timestamp.Before(end) {
			out = append(out, ev)
		}
	}
	return out
}
