// Package model contains domain models passed between layers.
package model

import "time"

// Key identifies one per-agent data log of a user.
type Key struct {
	UserID  string
	AgentID string
}

// Valid reports whether both parts of the key are set.
func (k Key) Valid() bool {
	return k.UserID != "" && k.AgentID != ""
}

// AgentEvent is one immutable entry in a (user, agent) log.
type AgentEvent struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	AgentID   string         `json:"agent_id"`
	Fields    map[string]any `json:"fields"`
	Timestamp time.Time      `json:"timestamp"`
	Seq       uint64         `json:"seq"` // global append order, breaks timestamp ties
}

// Key returns the log key the event belongs to.
func (e AgentEvent) Key() Key {
	return Key{UserID: e.UserID, AgentID: e.AgentID}
}

// Input is one user-reported event waiting to be fanned out.
type Input struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// DailyRecord is the flattened union of a user's entries for one local day.
type DailyRecord map[string]any

// Clone returns a shallow copy of the record.
func (r DailyRecord) Clone() DailyRecord {
	out := make(DailyRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
