package repository

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
	"github.com/takumisawano-hash/dodo-demo-sub000/pkg/metrics"
)

// Sharded, in-memory EventStore implementation.
//
// Every log of one user lives in the same shard, chosen by hashing the user
// ID, so a user's daily scan takes a single read lock. Writes to one
// (user, agent) log are serialized by the shard mutex, which keeps the FIFO
// and capacity bound exact under concurrent fan-out.

type shard struct {
	mu    sync.RWMutex
	users map[string]map[string]*ring // userID -> agentID -> log
}

// ShardedStore implements EventStore.
type ShardedStore struct {
	shards                []*shard
	shardCount            int
	capacity              int
	now                   func() time.Time
	metricsUpdateInterval time.Duration

	seq   atomic.Uint64
	total atomic.Int64

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewShardedStore creates a store and starts its metrics updater, which runs
// until ctx is done or Close is called.
func NewShardedStore(ctx context.Context, opts ...Option) *ShardedStore {
	s := &ShardedStore{
		shardCount:            defaultShardCount,
		capacity:              defaultLogCapacity,
		now:                   time.Now,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{users: make(map[string]map[string]*ring)}
	}

	metrics.UpdateRepositoryShardCount(s.shardCount)
	s.startMetricsUpdater(ctx)

	return s
}

func (s *ShardedStore) shardFor(userID string) *shard {
	return s.shards[xxhash.Sum64String(userID)%uint64(len(s.shards))]
}

// Append implements EventStore.
func (s *ShardedStore) Append(ctx context.Context, key model.Key, fields map[string]any) (model.AgentEvent, int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryAppend(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := ctx.Err(); err != nil {
		return model.AgentEvent{}, 0, fmt.Errorf("append: %w", err)
	}
	if !key.Valid() {
		metrics.RecordErrorByComponent("repository", "invalid_key")
		return model.AgentEvent{}, 0, fmt.Errorf("%w: %+v", ErrInvalidKey, key)
	}

	ev := model.AgentEvent{
		ID:      uuid.NewString(),
		UserID:  key.UserID,
		AgentID: key.AgentID,
		Fields:  maps.Clone(fields),
	}
	if ev.Fields == nil {
		ev.Fields = make(map[string]any)
	}

	sh := s.shardFor(key.UserID)
	sh.mu.Lock()
	agents, ok := sh.users[key.UserID]
	if !ok {
		agents = make(map[string]*ring)
		sh.users[key.UserID] = agents
	}
	log, ok := agents[key.AgentID]
	if !ok {
		log = newRing(s.capacity)
		agents[key.AgentID] = log
	}
	// Stamp under the lock so Seq and Timestamp order agree within a log.
	ev.Seq = s.seq.Add(1)
	ev.Timestamp = s.now()
	evicted := log.push(ev)
	n := log.size
	sh.mu.Unlock()

	if evicted {
		metrics.RecordRepositoryEviction()
	} else {
		s.total.Add(1)
	}
	ev.Fields = maps.Clone(ev.Fields)
	return ev, n, nil
}

// Log implements EventStore.
func (s *ShardedStore) Log(ctx context.Context, key model.Key) ([]model.AgentEvent, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	if !key.Valid() {
		return nil, fmt.Errorf("%w: %+v", ErrInvalidKey, key)
	}

	sh := s.shardFor(key.UserID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	log, ok := sh.users[key.UserID][key.AgentID]
	if !ok {
		return []model.AgentEvent{}, nil
	}
	return log.items(), nil
}

// UserEvents implements EventStore.
func (s *ShardedStore) UserEvents(ctx context.Context, userID string, from, to time.Time) ([]model.AgentEvent, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("user events: %w", err)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user", ErrInvalidKey)
	}

	sh := s.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	out := make([]model.AgentEvent, 0)
	for _, log := range sh.users[userID] {
		for _, ev := range log.items() {
			if !ev.Timestamp.Before(from) && ev.Timestamp.Before(to) {
				out = append(out, ev)
			}
		}
	}
	return out, nil
}

// Reset implements EventStore.
func (s *ShardedStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.users = make(map[string]map[string]*ring)
		sh.mu.Unlock()
	}
	s.total.Store(0)
	metrics.UpdateRepositoryRecordsTotal(0)
	return nil
}

// Count implements EventStore.
func (s *ShardedStore) Count(ctx context.Context) int {
	return int(s.total.Load())
}

// Close stops the metrics updater. It is safe to call more than once.
func (s *ShardedStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *ShardedStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateRepositoryRecordsTotal(s.Count(ctx))
			}
		}
	}()
}
