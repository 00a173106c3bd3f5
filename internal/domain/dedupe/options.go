package dedupe

const defaultMaxSize = 50000

type options struct {
	maxSize int
}

// Option applies a configuration option to an in-memory deduper.
type Option func(*options)

// WithMaxSize sets the maximum number of keys to keep in memory.
// If maxSize > 0: bounded mode, oldest keys are evicted first.
// If maxSize <= 0: unbounded mode (no eviction, no size limit).
func WithMaxSize(maxSize int) Option {
	return func(o *options) {
		o.maxSize = maxSize
	}
}
