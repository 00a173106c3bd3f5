package service

import (
	"context"
	"fmt"
	"math"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/daily"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/insight"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/scoring"
	"github.com/takumisawano-hash/dodo-demo-sub000/pkg/logger"
	"github.com/takumisawano-hash/dodo-demo-sub000/pkg/metrics"
)

// Trend directions.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
	DirectionFlat = "flat"
)

// GetUnifiedMetrics scores the user's day and stores it as today's snapshot
// when the day has any events.
func (s *Service) GetUnifiedMetrics(ctx context.Context, userID string) (model.UnifiedReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return model.UnifiedReport{}, ErrNotStarted
	}
	return s.unifiedMetrics(ctx, userID)
}

func (s *Service) unifiedMetrics(ctx context.Context, userID string) (model.UnifiedReport, error) {
	now := s.now()
	record, err := s.todayRecord(ctx, userID)
	if err != nil {
		return model.UnifiedReport{}, fmt.Errorf("load today's data: %w", err)
	}

	categories := s.scorer.CategoryScores(record)
	overall := scoring.OverallScore(categories)
	status := scoring.StatusFromScore(overall)
	insights := s.engine.Generate(userID, record)

	report := model.UnifiedReport{
		UserID:       userID,
		Date:         daily.Date(now, s.location),
		OverallScore: overall,
		Status:       status,
		Categories:   categories,
		Balance:      s.scorer.AnalyzeBalance(categories),
		Insights:     insights,
		Summary:      insight.Summarize(insights, now),
		RawData:      record,
		GeneratedAt:  now,
	}
	metrics.RecordOverallScore(overall)

	// A day without events is not a data point.
	if len(record) == 0 {
		return report, nil
	}

	byCategory := make(map[string]float64, len(categories))
	for _, c := range categories {
		byCategory[c.Category] = c.Score
	}
	snap := model.DailySnapshot{
		UserID:         userID,
		Date:           report.Date,
		OverallScore:   overall,
		StatusLevel:    status.Level,
		CategoryScores: byCategory,
		UpdatedAt:      now,
	}
	if err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
		return report, fmt.Errorf("save snapshot: %w", err)
	}
	metrics.RecordSnapshotPersisted()

	return report, nil
}

// GetWeeklyTrend reports persisted daily scores for the last days days,
// today included. Today's snapshot is refreshed first if today has events.
func (s *Service) GetWeeklyTrend(ctx context.Context, userID string, days int) (model.TrendReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return model.TrendReport{}, ErrNotStarted
	}
	if days < 1 {
		days = defaultTrendDays
	}
	if days > s.maxTrendDays {
		days = s.maxTrendDays
	}

	if _, err := s.unifiedMetrics(ctx, userID); err != nil {
		return model.TrendReport{}, err
	}

	now := s.now()
	today := now.In(s.location)
	first := today.AddDate(0, 0, -(days - 1))
	snaps, err := s.snapshots.Snapshots(ctx, userID, daily.Date(first, s.location), daily.Date(today, s.location))
	if err != nil {
		return model.TrendReport{}, fmt.Errorf("load snapshots: %w", err)
	}
	byDate := make(map[string]int, len(snaps))
	for _, snap := range snaps {
		byDate[snap.Date] = snap.OverallScore
	}

	report := model.TrendReport{
		UserID:      userID,
		Period:      fmt.Sprintf("%d days", days),
		Days:        days,
		Trend:       make([]model.TrendPoint, days),
		Change:      model.TrendChange{Direction: DirectionFlat},
		GeneratedAt: now,
	}

	var (
		sum         int
		firstScore  int
		lastScore   int
		seenAnyData bool
	)
	for i := range days {
		date := daily.Date(first.AddDate(0, 0, i), s.location)
		score, ok := byDate[date]
		report.Trend[i] = model.TrendPoint{Date: date, Score: score, HasData: ok}
		if !ok {
			continue
		}
		if !seenAnyData {
			firstScore = score
			seenAnyData = true
		}
		lastScore = score
		sum += score
		report.DaysWithData++
	}

	if report.DaysWithData > 0 {
		report.AverageScore = int(math.Round(float64(sum) / float64(report.DaysWithData)))
		report.Change = trendChange(firstScore, lastScore)
	}

	s.logger.Debug(ctx, "trend computed",
		logger.String("user_id", userID),
		logger.Int("days", days),
		logger.Int("days_with_data", report.DaysWithData),
	)
	return report, nil
}

func trendChange(first, last int) model.TrendChange {
	c := model.TrendChange{Value: last - first, Direction: DirectionFlat}
	if first != 0 {
		c.Percent = int(math.Round(float64(c.Value) / float64(first) * 100))
	}
	switch {
	case c.Value > 0:
		c.Direction = DirectionUp
	case c.Value < 0:
		c.Direction = DirectionDown
	}
	return c
}

// GetAgentData returns the bounded log of one agent, oldest first.
func (s *Service) GetAgentData(ctx context.Context, userID, agentID string) ([]model.AgentEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store.Log(ctx, model.Key{UserID: userID, AgentID: agentID})
}

// GetTodayData returns the merged record of the user's current local day.
func (s *Service) GetTodayData(ctx context.Context, userID string) (model.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	return s.todayRecord(ctx, userID)
}

// InsightsForAgent returns today's insights, restricted to those affecting
// agentID when it is not empty.
func (s *Service) InsightsForAgent(ctx context.Context, userID, agentID string) ([]model.Insight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	record, err := s.todayRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	insights := s.engine.Generate(userID, record)
	if agentID == "" {
		return insights, nil
	}
	return insight.ForAgent(insights, agentID), nil
}

// Reset drops every agent log. Snapshots are kept.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return ErrNotStarted
	}
	if err := s.store.Reset(ctx); err != nil {
		return err
	}
	s.logger.Info(ctx, "event store reset")
	return nil
}
