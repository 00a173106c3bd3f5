package service

import (
	"time"

	workerpool "github.com/takumisawano-hash/dodo-demo-sub000/internal/adapters/mq/worker"
	repository "github.com/takumisawano-hash/dodo-demo-sub000/internal/adapters/repository"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/catalog"
	"github.com/takumisawano-hash/dodo-demo-sub000/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of notification workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the notification queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the request and notification dedupe caches.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the number of event store shards.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithLogCapacity sets how many events each (user, agent) log keeps.
func WithLogCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.logCapacity = capacity
		}
	}
}

// WithLocation sets the time zone that defines a user's day.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithCatalog replaces the built-in catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithWriteTimeout bounds every single store write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithSecondaryParallelism limits concurrent secondary writes of one sync.
func WithSecondaryParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.secondaryParallelism = n
		}
	}
}

// WithMaxTrendDays caps the window of GetWeeklyTrend.
func WithMaxTrendDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.maxTrendDays = days
		}
	}
}

// WithSnapshotDBPath stores daily snapshots in a SQLite file instead of
// memory.
func WithSnapshotDBPath(path string) Option {
	return func(s *Service) {
		s.snapshotDBPath = path
	}
}

// WithEventStore injects the event store instead of building a sharded one.
func WithEventStore(store repository.EventStore) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSnapshotStore injects the snapshot store.
func WithSnapshotStore(store repository.SnapshotStore) Option {
	return func(s *Service) {
		if store != nil {
			s.snapshots = store
		}
	}
}

// WithNotifier sets where high-priority insights are delivered.
func WithNotifier(n workerpool.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides the time source used for event timestamps and days.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
