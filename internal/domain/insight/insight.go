// Package insight evaluates the correlation rule table against a daily record.
package insight

import (
	"cmp"
	"slices"
	"time"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/catalog"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
)

// Engine fires correlation rules. It keeps no state between calls, so the
// same record always yields the same insights in the same order.
type Engine struct {
	rules []catalog.CorrelationRule
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the timestamp source of produced insights.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New builds an engine over rules, which are evaluated in the given order.
func New(rules []catalog.CorrelationRule, opts ...Option) *Engine {
	e := &Engine{
		rules: slices.Clone(rules),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate returns the insights whose trigger holds for record, ordered by
// priority. Rules of equal priority keep table order.
func (e *Engine) Generate(userID string, record model.DailyRecord) []model.Insight {
	ts := e.now()
	out := make([]model.Insight, 0)
	for _, r := range e.rules {
		if !r.Trigger.Eval(record) {
			continue
		}
		out = append(out, model.Insight{
			ID:             r.Key,
			Message:        r.Message,
			AffectedAgents: slices.Clone(r.AffectedAgents),
			Priority:       r.Priority,
			Category:       r.Category,
			Timestamp:      ts,
		})
	}
	slices.SortStableFunc(out, func(a, b model.Insight) int {
		return cmp.Compare(a.Priority.Rank(), b.Priority.Rank())
	})
	return out
}

// ForAgent keeps the insights that affect agentID, preserving order.
func ForAgent(insights []model.Insight, agentID string) []model.Insight {
	out := make([]model.Insight, 0, len(insights))
	for _, in := range insights {
		if in.Affects(agentID) {
			out = append(out, in)
		}
	}
	return out
}

// Summarize condenses insights for the dashboard. The top message is the
// first high-priority insight, falling back to the first insight.
func Summarize(insights []model.Insight, at time.Time) model.InsightSummary {
	s := model.InsightSummary{
		TotalInsights: len(insights),
		Categories:    make([]string, 0),
		GeneratedAt:   at,
	}
	for _, in := range insights {
		if in.Priority == model.PriorityHigh {
			s.HighPriorityCount++
			if s.TopMessage == "" {
				s.TopMessage = in.Message
			}
		}
		if !slices.Contains(s.Categories, in.Category) {
			s.Categories = append(s.Categories, in.Category)
		}
	}
	if s.TopMessage == "" && len(insights) > 0 {
		s.TopMessage = insights[0].Message
	}
	return s
}
