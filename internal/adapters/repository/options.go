package repository

import "time"

// Default store configuration constants.
const (
	defaultShardCount            = 16
	defaultLogCapacity           = 100
	defaultMetricsUpdateInterval = 5 * time.Second
)

// Option applies a configuration option to the ShardedStore.
type Option func(*ShardedStore)

// WithShardCount sets the number of lock shards.
func WithShardCount(n int) Option {
	return func(s *ShardedStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithLogCapacity sets the maximum length of each (user, agent) log.
func WithLogCapacity(n int) Option {
	return func(s *ShardedStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithClock overrides the timestamp source of appended events.
func WithClock(now func() time.Time) Option {
	return func(s *ShardedStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *ShardedStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}
