// Package service wires the sync engine together: catalog fan-out, event
// store, daily aggregation, correlation insights, scoring and notification
// dispatch.
package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	eventqueue "github.com/takumisawano-hash/dodo-demo-sub000/internal/adapters/mq/queue"
	workerpool "github.com/takumisawano-hash/dodo-demo-sub000/internal/adapters/mq/worker"
	repository "github.com/takumisawano-hash/dodo-demo-sub000/internal/adapters/repository"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/adapters/repository/sqlite"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/catalog"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/daily"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/dedupe"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/insight"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/scoring"
	"github.com/takumisawano-hash/dodo-demo-sub000/pkg/logger"
	"github.com/takumisawano-hash/dodo-demo-sub000/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Default service configuration constants.
const (
	defaultQueueSize            = 10000
	defaultDedupeSize           = 50000
	defaultShardCount           = 16
	defaultLogCapacity          = 100
	defaultWriteTimeout         = 2 * time.Second
	defaultSecondaryParallelism = 4
	defaultTrendDays            = 7
	defaultMaxTrendDays         = 90
)

// Bookkeeping fields written next to fan-out values.
const (
	fieldType       = "type"
	fieldSource     = "source"
	fieldSourceType = "sourceType"
)

// Service implements the sync engine operations used by the HTTP API.
type Service struct {
	mu sync.RWMutex

	// Core components
	catalog       *catalog.Catalog
	engine        *insight.Engine
	scorer        *scoring.Scorer
	store         repository.EventStore
	snapshots     repository.SnapshotStore
	requests      dedupe.Deduper[string]
	notifications dedupe.Deduper[model.NotificationKey]
	notifyQueue   eventqueue.Queue
	workerPool    *workerpool.Pool
	notifier      workerpool.Notifier

	// Components built by Start and released by Stop
	ownStore     *repository.ShardedStore
	ownSnapshots *sqlite.SnapshotStore

	// Configuration
	workerCount          int
	queueSize            int
	dedupeSize           int
	shardCount           int
	logCapacity          int
	location             *time.Location
	writeTimeout         time.Duration
	secondaryParallelism int
	maxTrendDays         int
	snapshotDBPath       string
	now                  func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:          runtime.NumCPU(),
		queueSize:            defaultQueueSize,
		dedupeSize:           defaultDedupeSize,
		shardCount:           defaultShardCount,
		logCapacity:          defaultLogCapacity,
		location:             time.Local,
		writeTimeout:         defaultWriteTimeout,
		secondaryParallelism: defaultSecondaryParallelism,
		maxTrendDays:         defaultMaxTrendDays,
		now:                  time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting sync service...")

	if s.catalog == nil {
		s.catalog = catalog.Default()
	}
	s.engine = insight.New(s.catalog.Rules(), insight.WithClock(s.now))
	s.scorer = scoring.FromCatalog(s.catalog)

	if s.store == nil {
		s.ownStore = repository.NewShardedStore(ctx,
			repository.WithShardCount(s.shardCount),
			repository.WithLogCapacity(s.logCapacity),
			repository.WithClock(s.now),
		)
		s.store = s.ownStore
	}
	if s.snapshots == nil {
		if s.snapshotDBPath != "" {
			db, err := sqlite.Open(ctx, s.snapshotDBPath)
			if err != nil {
				s.releaseLocked()
				return fmt.Errorf("open snapshot store: %w", err)
			}
			s.ownSnapshots = db
			s.snapshots = db
			s.logger.Info(ctx, "using sqlite snapshot store", logger.String("path", s.snapshotDBPath))
		} else {
			s.snapshots = repository.NewMemorySnapshotStore()
		}
	}

	s.requests = dedupe.NewInMemoryDeduper[string](dedupe.WithMaxSize(s.dedupeSize))
	s.notifications = dedupe.NewInMemoryDeduper[model.NotificationKey](dedupe.WithMaxSize(s.dedupeSize))
	s.notifyQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)
	if s.notifier == nil {
		s.notifier = workerpool.NewLogNotifier(s.logger.Named("notifier"))
	}
	s.workerPool = workerpool.NewPool(s.workerCount, s.notifyQueue, s.notifier, s.notifications)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "sync service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("inputTypes", len(s.catalog.InputTypes())),
		logger.String("timezone", s.location.String()),
	)

	return nil
}

// Stop drains pending notifications and releases owned resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping sync service...")

	if s.workerPool != nil {
		if err := s.workerPool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}
	s.releaseLocked()

	s.started = false
	s.logger.Info(ctx, "sync service stopped")
}

func (s *Service) releaseLocked() {
	if s.ownStore != nil {
		_ = s.ownStore.Close()
		s.store = nil
		s.ownStore = nil
	}
	if s.ownSnapshots != nil {
		if err := s.ownSnapshots.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing snapshot store", logger.Error(err))
		}
		s.snapshots = nil
		s.ownSnapshots = nil
	}
}

// SeenRequest reports whether a client request id was already processed and
// records it otherwise.
func (s *Service) SeenRequest(ctx context.Context, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return false
	}
	seen := s.requests.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordRequestDuplicate()
	}
	return seen
}

// UnrecordRequest forgets a request id so the client can retry it.
func (s *Service) UnrecordRequest(ctx context.Context, id string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.started {
		s.requests.Unrecord(ctx, id)
	}
}

// HasInputType reports whether the catalog maps inputType.
func (s *Service) HasInputType(inputType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.catalog == nil {
		return false
	}
	_, ok := s.catalog.Mapping(inputType)
	return ok
}

// SyncDataAcrossAgents fans one input out to its primary and secondary
// agent logs and returns the insights of the updated day. Failures are
// reported in the result, never as an error.
func (s *Service) SyncDataAcrossAgents(ctx context.Context, userID, inputType string, data map[string]any) model.SyncResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return failed(inputType, s.now(), ErrNotStarted)
	}

	res := s.syncOne(ctx, userID, inputType, data)
	if !res.Success {
		return res
	}

	insights, err := s.currentInsights(ctx, userID)
	if err != nil {
		s.logger.Warn(ctx, "insight generation failed",
			logger.String("user_id", userID),
			logger.Error(err),
		)
		return res
	}
	res.Insights = insights
	s.dispatch(ctx, userID, insights)
	return res
}

// BatchSync applies inputs in order and evaluates insights once, against
// the state left by the whole batch.
func (s *Service) BatchSync(ctx context.Context, userID string, inputs []model.Input) model.BatchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := model.BatchResult{
		Success:    true,
		BatchCount: len(inputs),
		Results:    make([]model.SyncResult, 0, len(inputs)),
		Insights:   make([]model.Insight, 0),
	}
	if !s.started {
		out.Success = false
		out.ProcessedAt = s.now()
		return out
	}

	for _, in := range inputs {
		res := s.syncOne(ctx, userID, in.Type, in.Data)
		if !res.Success {
			out.Success = false
		}
		out.Results = append(out.Results, res)
	}
	metrics.RecordBatch()

	insights, err := s.currentInsights(ctx, userID)
	if err != nil {
		s.logger.Warn(ctx, "batch insight generation failed",
			logger.String("user_id", userID),
			logger.Error(err),
		)
	} else {
		out.Insights = insights
		s.dispatch(ctx, userID, insights)
	}
	out.ProcessedAt = s.now()
	return out
}

// syncOne performs the writes of one input without evaluating insights.
func (s *Service) syncOne(ctx context.Context, userID, inputType string, data map[string]any) model.SyncResult {
	start := time.Now()
	syncedAt := s.now()

	mapping, ok := s.catalog.Mapping(inputType)
	if !ok {
		metrics.RecordSync("unknown", metrics.ResultUnknownType, msSince(start))
		s.logger.Warn(ctx, "unknown input type",
			logger.String("user_id", userID),
			logger.String("input_type", inputType),
		)
		return failed(inputType, syncedAt, fmt.Errorf("%w: %s", ErrUnknownInputType, inputType))
	}

	fields := make(map[string]any, len(data)+1)
	fields[fieldType] = inputType
	maps.Copy(fields, data)

	ev, n, err := s.write(ctx, model.Key{UserID: userID, AgentID: mapping.Primary}, fields)
	if err != nil {
		metrics.RecordSync(inputType, metrics.ResultPrimaryFailed, msSince(start))
		metrics.RecordErrorByComponent("service", "primary_write")
		s.logger.Error(ctx, "primary write failed",
			logger.String("user_id", userID),
			logger.String("input_type", inputType),
			logger.String("agent", mapping.Primary),
			logger.Error(err),
		)
		res := failed(inputType, syncedAt, err)
		res.Primary = &model.WriteResult{Agent: mapping.Primary, Success: false, Error: err.Error()}
		return res
	}

	secondary := make([]model.WriteResult, len(mapping.Secondary))
	var g errgroup.Group
	g.SetLimit(s.secondaryParallelism)
	for i, target := range mapping.Secondary {
		g.Go(func() error {
			secondary[i] = s.writeSecondary(ctx, userID, mapping.Primary, inputType, target, data)
			return nil
		})
	}
	_ = g.Wait()

	metrics.RecordSync(inputType, metrics.ResultSuccess, msSince(start))
	s.logger.Debug(ctx, "input synced",
		logger.String("user_id", userID),
		logger.String("input_type", inputType),
		logger.Int("secondary", len(secondary)),
	)

	return model.SyncResult{
		Success:   true,
		SyncID:    ev.ID,
		InputType: inputType,
		SyncedAt:  syncedAt,
		Primary:   &model.WriteResult{Agent: mapping.Primary, Success: true, DataCount: n},
		Secondary: secondary,
		Insights:  make([]model.Insight, 0),
	}
}

func (s *Service) writeSecondary(ctx context.Context, userID, primary, inputType string, target catalog.Target, data map[string]any) model.WriteResult {
	slot := model.WriteResult{Agent: target.Agent, Field: target.Field}
	if target.SkipIfMissing && target.Transform.Missing(data) {
		slot.Success, slot.Skipped = true, true
		return slot
	}

	value, err := target.Transform.Apply(data)
	if err == nil {
		var n int
		_, n, err = s.write(ctx, model.Key{UserID: userID, AgentID: target.Agent}, map[string]any{
			target.Field:    value,
			fieldSource:     primary,
			fieldSourceType: inputType,
		})
		slot.DataCount = n
	}
	if err != nil {
		metrics.RecordSecondaryFailure(target.Agent)
		s.logger.Warn(ctx, "secondary write failed",
			logger.String("user_id", userID),
			logger.String("input_type", inputType),
			logger.String("agent", target.Agent),
			logger.String("field", target.Field),
			logger.Error(err),
		)
		slot.Error = err.Error()
		return slot
	}
	slot.Success = true
	return slot
}

// write appends under the per-call timeout.
func (s *Service) write(ctx context.Context, key model.Key, fields map[string]any) (model.AgentEvent, int, error) {
	wctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	ev, n, err := s.store.Append(wctx, key, fields)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("write to %s timed out after %s: %w", key.AgentID, s.writeTimeout, err)
	}
	return ev, n, err
}

// todayRecord merges the user's events of the current local day.
func (s *Service) todayRecord(ctx context.Context, userID string) (model.DailyRecord, error) {
	start, end := daily.Bounds(s.now(), s.location)
	events, err := s.store.UserEvents(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	return daily.Merge(events), nil
}

func (s *Service) currentInsights(ctx context.Context, userID string) ([]model.Insight, error) {
	record, err := s.todayRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	insights := s.engine.Generate(userID, record)
	for _, in := range insights {
		metrics.RecordInsight(string(in.Priority))
	}
	return insights, nil
}

// dispatch queues high-priority insights for notification. Delivery is
// deduplicated per user, day and rule by the workers.
func (s *Service) dispatch(ctx context.Context, userID string, insights []model.Insight) {
	date := daily.Date(s.now(), s.location)
	for _, in := range insights {
		if in.Priority != model.PriorityHigh {
			continue
		}
		n := model.Notification{ID: uuid.NewString(), UserID: userID, Date: date, Insight: in}
		if !s.notifyQueue.Enqueue(ctx, n) {
			s.logger.Warn(ctx, "notification dropped",
				logger.String("user_id", userID),
				logger.String("rule", in.ID),
			)
		}
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"timezone":    s.location.String(),
	}

	if s.started {
		stats["queueLength"] = s.notifyQueue.Len(ctx)
		stats["totalEvents"] = s.store.Count(ctx)
		stats["seenRequests"] = s.requests.Size()
		stats["sentNotifications"] = s.notifications.Size()
		stats["inputTypes"] = s.catalog.InputTypes()
	}

	return stats
}

func failed(inputType string, at time.Time, err error) model.SyncResult {
	return model.SyncResult{
		Success:   false,
		Error:     err.Error(),
		InputType: inputType,
		SyncedAt:  at,
		Insights:  make([]model.Insight, 0),
	}
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
