package simulate

import (
	"errors"
	"fmt"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
)

// VerifyReport checks the invariants a unified report must hold: scores
// within [0, 100], insights ordered by priority, and a summary that agrees
// with the insight list.
func VerifyReport(r model.UnifiedReport) error {
	var errs []error

	if r.OverallScore < 0 || r.OverallScore > 100 {
		errs = append(errs, fmt.Errorf("overall score %d out of range", r.OverallScore))
	}
	for _, c := range r.Categories {
		if c.Score < 0 || c.Score > 100 {
			errs = append(errs, fmt.Errorf("category %s score %.1f out of range", c.Category, c.Score))
		}
	}
	if r.Status.Level == "" {
		errs = append(errs, errors.New("missing status level"))
	}

	high := 0
	for i, in := range r.Insights {
		if in.Priority == model.PriorityHigh {
			high++
		}
		if i > 0 && in.Priority.Rank() < r.Insights[i-1].Priority.Rank() {
			errs = append(errs, fmt.Errorf("insight %s (%s) after %s (%s)",
				in.ID, in.Priority, r.Insights[i-1].ID, r.Insights[i-1].Priority))
		}
	}
	if r.Summary.TotalInsights != len(r.Insights) {
		errs = append(errs, fmt.Errorf("summary counts %d insights, report has %d", r.Summary.TotalInsights, len(r.Insights)))
	}
	if r.Summary.HighPriorityCount != high {
		errs = append(errs, fmt.Errorf("summary counts %d high priority insights, report has %d", r.Summary.HighPriorityCount, high))
	}
	return errors.Join(errs...)
}
