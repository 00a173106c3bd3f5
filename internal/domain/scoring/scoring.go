// Package scoring normalizes raw daily metrics into 0-100 scores.
package scoring

import (
	"math"
	"slices"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/catalog"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
)

// Default scoring configuration constants.
const (
	neutralScore           = 50
	maxScoreValue          = 100
	overshootFloor         = 50
	defaultBalancedStdDev  = 15
	defaultBalancedAdvice  = "Nicely balanced across every area. Keep it up!"
	recommendationTemplate = "Try focusing on %s"
)

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithThresholds sets the scoring curve of each metric.
func WithThresholds(th map[string]catalog.Threshold) Option {
	return func(s *Scorer) {
		// Copy the map to avoid external modifications
		s.thresholds = make(map[string]catalog.Threshold, len(th))
		for k, v := range th {
			s.thresholds[k] = v
		}
	}
}

// WithCategories sets the weighted categories in report order.
func WithCategories(cats []catalog.Category) Option {
	return func(s *Scorer) {
		s.categories = slices.Clone(cats)
	}
}

// WithBalanceThreshold sets the standard deviation under which scores count
// as balanced.
func WithBalanceThreshold(stdDev float64) Option {
	return func(s *Scorer) {
		if stdDev > 0 {
			s.balancedStdDev = stdDev
		}
	}
}

// Scorer computes metric, category and overall scores. It is immutable after
// construction and safe for concurrent use.
type Scorer struct {
	thresholds     map[string]catalog.Threshold
	categories     []catalog.Category
	balancedStdDev float64
}

// New creates a scorer with configuration options.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		thresholds:     make(map[string]catalog.Threshold),
		balancedStdDev: defaultBalancedStdDev,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// FromCatalog creates a scorer over the catalog's thresholds and categories.
// Extra options are applied afterwards.
func FromCatalog(c *catalog.Catalog, opts ...Option) *Scorer {
	base := []Option{WithThresholds(c.Thresholds()), WithCategories(c.Categories())}
	return New(append(base, opts...)...)
}

// MetricScore maps a raw value onto [0, 100]. Undershoot rises linearly from
// 0 at min to 100 at optimal; overshoot falls from 100 at optimal to 50 at
// max and keeps falling past it. Metrics without a threshold, and values that
// are not numbers, score a neutral 50.
func (s *Scorer) MetricScore(metric string, value any) float64 {
	th, ok := s.thresholds[metric]
	if !ok {
		return neutralScore
	}
	v, ok := catalog.Number(value)
	if !ok || math.IsNaN(v) {
		return neutralScore
	}

	switch {
	case v == th.Optimal:
		return maxScoreValue
	case v < th.Optimal:
		span := th.Optimal - th.Min
		if span == 0 {
			return 0
		}
		return clamp((v - th.Min) / span * maxScoreValue)
	default:
		span := th.Max - th.Optimal
		if span == 0 {
			return overshootFloor
		}
		return clamp(maxScoreValue - (v-th.Optimal)/span*(maxScoreValue-overshootFloor))
	}
}

// CategoryScore averages the scores of the category's metrics present in
// record, rounded to an integer. Nil values count as absent. A category with no metrics present scores 50.
// An unknown category scores 50 with zero weight.
func (s *Scorer) CategoryScore(category string, record model.DailyRecord) model.CategoryScore {
	i := slices.IndexFunc(s.categories, func(c catalog.Category) bool { return c.Key == category })
	if i < 0 {
		return model.CategoryScore{Category: category, Name: category, Score: neutralScore, Details: []model.MetricDetail{}}
	}
	cat := s.categories[i]

	details := make([]model.MetricDetail, 0, len(cat.Metrics))
	total := 0.0
	for _, metric := range cat.Metrics {
		v := record[metric]
		if v == nil {
			continue
		}
		score := s.MetricScore(metric, v)
		total += score
		details = append(details, model.MetricDetail{Metric: metric, Value: v, Score: score})
	}

	score := float64(neutralScore)
	if len(details) > 0 {
		score = math.Round(total / float64(len(details)))
	}
	return model.CategoryScore{
		Category: cat.Key,
		Name:     cat.Name,
		Score:    score,
		Weight:   cat.Weight,
		Details:  details,
	}
}

// CategoryScores scores every configured category in declaration order.
func (s *Scorer) CategoryScores(record model.DailyRecord) []model.CategoryScore {
	out := make([]model.CategoryScore, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, s.CategoryScore(c.Key, record))
	}
	return out
}

// OverallScore is the rounded weighted mean of the category scores, or 50
// when the total weight is zero.
func OverallScore(scores []model.CategoryScore) int {
	var weighted, weight float64
	for _, c := range scores {
		weighted += c.Score * c.Weight
		weight += c.Weight
	}
	if weight <= 0 {
		return neutralScore
	}
	return int(math.Round(weighted / weight))
}

// Status levels.
const (
	LevelExcellent      = "excellent"
	LevelGood           = "good"
	LevelFair           = "fair"
	LevelNeedsAttention = "needs_attention"
	LevelLow            = "low"
)

// StatusFromScore buckets an overall score. Each bound is inclusive, so 80 is
// excellent and 79 is good.
func StatusFromScore(score int) model.Status {
	switch {
	case score >= 80:
		return model.Status{Level: LevelExcellent, Emoji: "🌟", Message: "You're in top form. Keep it going!"}
	case score >= 60:
		return model.Status{Level: LevelGood, Emoji: "😊", Message: "Looking good. Almost perfect!"}
	case score >= 40:
		return model.Status{Level: LevelFair, Emoji: "🙂", Message: "Not bad. Let's find something to improve."}
	case score >= 20:
		return model.Status{Level: LevelNeedsAttention, Emoji: "😐", Message: "Take care. Improve one thing at a time."}
	default:
		return model.Status{Level: LevelLow, Emoji: "😔", Message: "You might need some rest today. Don't push yourself."}
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(maxScoreValue, v))
}
