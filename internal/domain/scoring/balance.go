package scoring

import (
	"fmt"
	"math"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
)

// AnalyzeBalance reports the spread of category scores using the population
// mean and standard deviation. Weak categories sit strictly below mean-sd and
// strong ones strictly above mean+sd; both keep the order of scores. The
// recommendation names the first weak category.
func (s *Scorer) AnalyzeBalance(scores []model.CategoryScore) model.Balance {
	b := model.Balance{
		IsBalanced:       true,
		WeakCategories:   []model.CategoryScore{},
		StrongCategories: []model.CategoryScore{},
		Recommendation:   defaultBalancedAdvice,
	}
	if len(scores) == 0 {
		return b
	}

	n := float64(len(scores))
	sum := 0.0
	for _, c := range scores {
		sum += c.Score
	}
	mean := sum / n

	variance := 0.0
	for _, c := range scores {
		d := c.Score - mean
		variance += d * d
	}
	sd := math.Sqrt(variance / n)

	for _, c := range scores {
		switch {
		case c.Score < mean-sd:
			b.WeakCategories = append(b.WeakCategories, c)
		case c.Score > mean+sd:
			b.StrongCategories = append(b.StrongCategories, c)
		}
	}

	b.AverageScore = mean
	b.StandardDeviation = sd
	b.IsBalanced = sd < s.balancedStdDev
	if len(b.WeakCategories) > 0 {
		b.Recommendation = fmt.Sprintf(recommendationTemplate, b.WeakCategories[0].Name)
	}
	return b
}
