package simulate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
	"github.com/takumisawano-hash/dodo-demo-sub000/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// PercentageMultiplier converts ratios to percentages.
const PercentageMultiplier = 100

// ErrVerification is returned when at least one report broke an invariant.
var ErrVerification = errors.New("report verification failed")

type counters struct {
	submitted, accepted, duplicate, failed atomic.Int64
	inputsFailed, retrieved, invalid       atomic.Int64
	insights                               atomic.Int64
}

// Run executes a complete simulation against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("simulate")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting sync simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Bool("replay", cfg.Replay))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := client.get(ctx, "/healthz", nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate one day per user
	batches := NewGenerator(cfg.Seed).Batches(cfg.Users)
	stats.UsersGenerated = len(batches)
	for _, b := range batches {
		stats.InputsGenerated += len(b.Inputs)
	}

	var c counters

	// Step 3: Submit batches concurrently
	if err := forEach(ctx, cfg.Workers, batches, func(ctx context.Context, b UserBatch) {
		submit(ctx, client, b, &c, log)
		if cfg.Replay {
			submit(ctx, client, b, &c, log)
		}
	}); err != nil {
		return stats, fmt.Errorf("batch submission failed: %w", err)
	}

	// Step 4: Retrieve and verify reports
	if err := forEach(ctx, cfg.Workers, batches, func(ctx context.Context, b UserBatch) {
		var report model.UnifiedReport
		if err := client.get(ctx, userPath(b.UserID, "metrics"), &report); err != nil {
			log.Warn(ctx, "metrics request failed", logger.String("user", b.UserID), logger.Error(err))
			return
		}
		c.retrieved.Add(1)
		c.insights.Add(int64(len(report.Insights)))
		if err := VerifyReport(report); err != nil {
			c.invalid.Add(1)
			log.Warn(ctx, "invalid report", logger.String("user", b.UserID), logger.Error(err))
			return
		}
		if cfg.Verbose {
			log.Info(ctx, "user report",
				logger.String("user", b.UserID),
				logger.Int("overall", report.OverallScore),
				logger.String("status", report.Status.Level),
				logger.Int("insights", len(report.Insights)))
		}
	}); err != nil {
		return stats, fmt.Errorf("report retrieval failed: %w", err)
	}

	stats.BatchesSubmitted = int(c.submitted.Load())
	stats.BatchesAccepted = int(c.accepted.Load())
	stats.BatchesDuplicate = int(c.duplicate.Load())
	stats.BatchesFailed = int(c.failed.Load())
	stats.InputsFailed = int(c.inputsFailed.Load())
	stats.ReportsRetrieved = int(c.retrieved.Load())
	stats.ReportsInvalid = int(c.invalid.Load())
	stats.InsightsSeen = int(c.insights.Load())
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(ctx, log, stats)

	if stats.ReportsInvalid > 0 {
		return stats, fmt.Errorf("%w: %d of %d reports", ErrVerification, stats.ReportsInvalid, stats.ReportsRetrieved)
	}
	if cfg.Replay && stats.BatchesDuplicate != stats.BatchesAccepted {
		return stats, fmt.Errorf("%w: %d replays acknowledged as duplicates, want %d",
			ErrVerification, stats.BatchesDuplicate, stats.BatchesAccepted)
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

// forEach runs fn over items with at most workers in flight.
func forEach[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(gctx, item)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func submit(ctx context.Context, client *HTTPClient, b UserBatch, c *counters, log logger.Logger) {
	c.submitted.Add(1)
	var ack batchAck
	if err := client.post(ctx, "/v1/sync/batch", b, &ack); err != nil {
		c.failed.Add(1)
		log.Warn(ctx, "batch request failed", logger.String("user", b.UserID), logger.Error(err))
		return
	}
	if ack.Duplicate {
		c.duplicate.Add(1)
		return
	}
	c.accepted.Add(1)
	for _, r := range ack.Results {
		if !r.Success {
			c.inputsFailed.Add(1)
		}
	}
}

// displayFinalStats logs the final statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var acceptRate, batchesPerSecond float64
	if stats.BatchesSubmitted > 0 {
		acceptRate = float64(stats.BatchesAccepted) / float64(stats.BatchesSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		batchesPerSecond = float64(stats.BatchesSubmitted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("usersGenerated", stats.UsersGenerated),
		logger.Int("inputsGenerated", stats.InputsGenerated),
		logger.Int("batchesSubmitted", stats.BatchesSubmitted),
		logger.Int("batchesAccepted", stats.BatchesAccepted),
		logger.Int("batchesDuplicate", stats.BatchesDuplicate),
		logger.Int("batchesFailed", stats.BatchesFailed),
		logger.Int("inputsFailed", stats.InputsFailed),
		logger.Int("reportsRetrieved", stats.ReportsRetrieved),
		logger.Int("reportsInvalid", stats.ReportsInvalid),
		logger.Int("insightsSeen", stats.InsightsSeen),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("batchesPerSecond", batchesPerSecond))
}
