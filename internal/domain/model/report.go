package model

import "time"

// WriteResult records the outcome of one fan-out write.
type WriteResult struct {
	Agent     string `json:"agent"`
	Field     string `json:"field,omitempty"`
	Success   bool   `json:"success"`
	Skipped   bool   `json:"skipped,omitempty"`
	DataCount int    `json:"data_count,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SyncResult is returned by a single fan-out. Callers check Success.
type SyncResult struct {
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	SyncID    string        `json:"sync_id,omitempty"`
	InputType string        `json:"type,omitempty"`
	SyncedAt  time.Time     `json:"synced_at"`
	Primary   *WriteResult  `json:"primary,omitempty"`
	Secondary []WriteResult `json:"secondary,omitempty"`
	Insights  []Insight     `json:"insights"`
}

// BatchResult is returned by a batch of fan-outs.
type BatchResult struct {
	Success     bool         `json:"success"`
	BatchCount  int          `json:"batch_count"`
	Results     []SyncResult `json:"results"`
	Insights    []Insight    `json:"insights"`
	ProcessedAt time.Time    `json:"processed_at"`
}

// MetricDetail is one metric contribution inside a category score.
type MetricDetail struct {
	Metric string  `json:"metric"`
	Value  any     `json:"value"`
	Score  float64 `json:"score"`
}

// CategoryScore is the normalized score of one life domain.
type CategoryScore struct {
	Category string         `json:"category"`
	Name     string         `json:"name"`
	Score    float64        `json:"score"`
	Weight   float64        `json:"weight"`
	Details  []MetricDetail `json:"details"`
}

// Status is the presentation bucket of an overall score.
type Status struct {
	Level   string `json:"level"`
	Emoji   string `json:"emoji"`
	Message string `json:"message"`
}

// Balance is the spread analysis across category scores.
type Balance struct {
	AverageScore      float64         `json:"average_score"`
	StandardDeviation float64         `json:"standard_deviation"`
	IsBalanced        bool            `json:"is_balanced"`
	WeakCategories    []CategoryScore `json:"weak_categories"`
	StrongCategories  []CategoryScore `json:"strong_categories"`
	Recommendation    string          `json:"recommendation"`
}

// UnifiedReport is the dashboard view of one user's day.
type UnifiedReport struct {
	UserID       string          `json:"user_id"`
	Date         string          `json:"date"`
	OverallScore int             `json:"overall_score"`
	Status       Status          `json:"status"`
	Categories   []CategoryScore `json:"categories"`
	Balance      Balance         `json:"balance"`
	Insights     []Insight       `json:"insights"`
	Summary      InsightSummary  `json:"summary"`
	RawData      DailyRecord     `json:"raw_data"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// DailySnapshot is the persisted score of one user for one local day.
type DailySnapshot struct {
	UserID         string             `json:"user_id"`
	Date           string             `json:"date"`
	OverallScore   int                `json:"overall_score"`
	StatusLevel    string             `json:"status_level"`
	CategoryScores map[string]float64 `json:"category_scores"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// TrendPoint is one day of a trend report.
type TrendPoint struct {
	Date    string `json:"date"`
	Score   int    `json:"score"`
	HasData bool   `json:"has_data"`
}

// TrendChange describes movement between the first and last day with data.
type TrendChange struct {
	Value     int    `json:"value"`
	Percent   int    `json:"percent"`
	Direction string `json:"direction"`
}

// TrendReport summarises persisted daily scores over a window.
type TrendReport struct {
	UserID       string       `json:"user_id"`
	Period       string       `json:"period"`
	Days         int          `json:"days"`
	Trend        []TrendPoint `json:"trend"`
	DaysWithData int          `json:"days_with_data"`
	AverageScore int          `json:"average_score"`
	Change       TrendChange  `json:"change"`
	GeneratedAt  time.Time    `json:"generated_at"`
}
