package model

import "time"

// Priority orders insights for presentation.
type Priority string

// Known priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority maps a string to a Priority, defaulting to low.
func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Rank returns the sort rank: high 0, medium 1, anything else 2.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Insight is a fired correlation rule. ID is the rule key.
type Insight struct {
	ID             string    `json:"id"`
	Message        string    `json:"message"`
	AffectedAgents []string  `json:"affected_agents"`
	Priority       Priority  `json:"priority"`
	Category       string    `json:"category"`
	Timestamp      time.Time `json:"timestamp"`
}

// Affects reports whether agentID is among the insight's affected agents.
func (i Insight) Affects(agentID string) bool {
	for _, a := range i.AffectedAgents {
		if a == agentID {
			return true
		}
	}
	return false
}

// InsightSummary condenses a list of insights for a dashboard.
type InsightSummary struct {
	TotalInsights     int       `json:"total_insights"`
	HighPriorityCount int       `json:"high_priority_count"`
	Categories        []string  `json:"categories"`
	TopMessage        string    `json:"top_message,omitempty"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// Notification carries one high-priority insight to the dispatcher.
type Notification struct {
	ID      string  `json:"id"`
	UserID  string  `json:"user_id"`
	Date    string  `json:"date"`
	Insight Insight `json:"insight"`
}

// NotificationKey identifies a notification for once-per-day delivery.
type NotificationKey struct {
	UserID  string
	Date    string
	RuleKey string
}

// Key returns the dedupe key of the notification.
func (n Notification) Key() NotificationKey {
	return NotificationKey{UserID: n.UserID, Date: n.Date, RuleKey: n.Insight.ID}
}
